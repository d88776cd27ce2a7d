package domain

// CandidateAccount is what a single window extraction claims to have seen.
// NumberPartial may hold anything the model produced, including "Unknown".
type CandidateAccount struct {
	Name          string
	NumberPartial string
	Currency      string
	Transactions  []Transaction
}

// CanonicalAccount is the single resolved ledger produced for a document.
// Transactions are deduplicated, sanitized and sorted by date.
type CanonicalAccount struct {
	Name          string
	NumberPartial string
	Currency      string
	Transactions  []Transaction

	// Interchange is the rendered QBO/OFX text, set once the ledger is final.
	Interchange string
}
