package locate

import "strings"

// Needle is the normalized, truncated fragment text searched for in page haystacks.
type Needle struct {
	text    string
	windows []string
}

// NewNeedle normalizes fragment text, truncates it to opts.PrefixLength runes and,
// in windowed mode, splits it into overlapping windows.
func NewNeedle(fragmentText string, opts Options) Needle {
	opts = opts.WithDefaults()
	text := strings.TrimRight(truncateRunes(NormalizeWith(fragmentText, opts), opts.PrefixLength), " ")

	n := Needle{text: text}
	if opts.Mode == Windowed {
		n.windows = splitWindows(text, opts.WindowSize, opts.WindowStride)
	}
	return n
}

// Text returns the needle text.
func (n Needle) Text() string { return n.text }

// Windows returns the needle windows; nil in prefix mode.
func (n Needle) Windows() []string { return n.windows }

// IsEmpty reports whether the needle is empty, which matches every page.
func (n Needle) IsEmpty() bool { return n.text == "" }

// Matches reports whether the haystack contains the needle, or any of its windows.
func (n Needle) Matches(haystack string) bool {
	if n.windows == nil {
		return strings.Contains(haystack, n.text)
	}
	for _, w := range n.windows {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// splitWindows cuts text into windows of size runes advanced by stride runes.
// The last window always ends at the end of text so the tail is covered.
func splitWindows(text string, size, stride int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var windows []string
	for start := 0; ; start += stride {
		end := start + size
		if end >= len(runes) {
			windows = append(windows, string(runes[len(runes)-size:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}
