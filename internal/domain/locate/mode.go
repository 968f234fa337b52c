package locate

// Mode is the needle matching strategy.
type Mode string

// Match mode constants.
const (
	// Prefix matches a page when its haystack contains the whole truncated needle.
	Prefix Mode = "prefix"
	// Windowed matches a page when any overlapping window of the needle is contained.
	Windowed Mode = "windowed"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Prefix || m == Windowed
}
