package pipeline

// Segment splits text into windows of size characters where consecutive
// windows share overlap characters. Window i starts at i*(size-overlap); the
// last window is truncated at the end of the text. Empty text yields no
// windows and text no longer than size yields exactly one.
func Segment(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	windows := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}

	return windows
}
