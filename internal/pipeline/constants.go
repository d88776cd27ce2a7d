package pipeline

import "fmt"

// Default values for statement processing.
const (
	// DefaultWindowSize is the number of characters sent to the model per call.
	DefaultWindowSize = 4000

	// DefaultWindowOverlap is how many characters consecutive windows share,
	// so that a line cut by one window boundary is whole in the next window.
	DefaultWindowOverlap = 500

	// DefaultMaxConcurrency caps in-flight extraction calls per dispatcher.
	DefaultMaxConcurrency = 4

	// DefaultCurrency is used when the currency policy finds nothing better.
	DefaultCurrency = "EUR"

	// DefaultAccountName and DefaultAccountNumber are used when no window
	// reports a usable identity.
	DefaultAccountName   = "Account"
	DefaultAccountNumber = "0000"
)

// Progress messages reported while a document is processed.
const (
	StatusScanningImage   = "Scanning image..."
	StatusReadingDocument = "Reading document structure..."
	StatusMerging         = "Cleaning and merging data..."
)

// StatusAnalyzing is reported once the text has been split into windows.
func StatusAnalyzing(windows int) string {
	return fmt.Sprintf("Analyzing %d segments in parallel...", windows)
}
