package locate

import "fmt"

// Default matching constants. They are empirical and exposed through configuration.
const (
	DefaultPrefixLength = 120
	DefaultWindowSize   = 40
	DefaultWindowStride = 20
)

// Options controls normalization and needle construction. Lengths are counted in runes.
type Options struct {
	Mode         Mode
	PrefixLength int
	WindowSize   int
	WindowStride int
	// KeepPunctuation disables treating punctuation as whitespace.
	KeepPunctuation bool
}

// DefaultOptions returns prefix mode with the default constants.
func DefaultOptions() Options {
	return Options{
		Mode:         Prefix,
		PrefixLength: DefaultPrefixLength,
		WindowSize:   DefaultWindowSize,
		WindowStride: DefaultWindowStride,
	}
}

// WithDefaults fills zero fields with default values.
func (o Options) WithDefaults() Options {
	if o.Mode == "" {
		o.Mode = Prefix
	}
	if o.PrefixLength <= 0 {
		o.PrefixLength = DefaultPrefixLength
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.WindowStride <= 0 {
		o.WindowStride = DefaultWindowStride
	}
	return o
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if !o.Mode.IsValid() {
		return fmt.Errorf("unknown locate mode %q", o.Mode)
	}
	if o.PrefixLength <= 0 {
		return fmt.Errorf("prefix length must be positive, got %d", o.PrefixLength)
	}
	if o.Mode == Windowed {
		if o.WindowSize <= 0 {
			return fmt.Errorf("window size must be positive, got %d", o.WindowSize)
		}
		if o.WindowStride <= 0 || o.WindowStride > o.WindowSize {
			return fmt.Errorf("window stride must be within [1, %d], got %d", o.WindowSize, o.WindowStride)
		}
	}
	return nil
}
