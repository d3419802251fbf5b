package dedupe

// Option configures the in-memory deduper.
type Option func(*lruDeduper)

// WithMaxSize sets the maximum number of keys to keep. Non-positive values
// fall back to DefaultMaxSize.
func WithMaxSize(maxSize int) Option {
	return func(d *lruDeduper) {
		d.maxSize = maxSize
	}
}
