package arbitro

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	rootDir      string
	allowedHosts []string
	fetchTimeout time.Duration
	maxBytes     int64

	mode            string
	prefixLength    int
	windowSize      int
	windowStride    int
	keepPunctuation bool
	parallelism     int

	cacheDriver string // "memory", "valkey", "redis" or "" for none
	cacheAddrs  []string
	password    string
	cacheTTL    time.Duration
	maxDocs     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDocumentsRoot allows local references relative to dir. Without it only URLs are accepted.
func WithDocumentsRoot(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rootDir = dir
	})
}

// WithAllowedHosts restricts URL references to the given hosts.
func WithAllowedHosts(hosts ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.allowedHosts = append(c.allowedHosts, hosts...)
	})
}

// WithFetchLimits bounds how long a download may take and how large a document may be.
func WithFetchLimits(timeout time.Duration, maxBytes int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.fetchTimeout = timeout
		c.maxBytes = maxBytes
	})
}

// WithPrefixLength sets how many leading runes of the fragment are searched for.
// Default: 120.
func WithPrefixLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefixLength = n
	})
}

// WithWindowedMatching matches a page when any window of the fragment prefix occurs on it.
// Defaults: size 40, stride 20.
func WithWindowedMatching(size, stride int) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = "windowed"
		c.windowSize = size
		c.windowStride = stride
	})
}

// WithKeepPunctuation compares punctuation literally instead of folding it to spaces.
func WithKeepPunctuation() Option {
	return optionFunc(func(c *clientConfig) {
		c.keepPunctuation = true
	})
}

// WithParallelism decodes up to n pages concurrently. The lowest matching page still wins.
func WithParallelism(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallelism = n
	})
}

// WithMemoryCache keeps page text of up to maxDocs documents in process.
func WithMemoryCache(maxDocs int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.maxDocs = maxDocs
		c.cacheTTL = ttl
	})
}

// WithValkey caches page text in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.password = password
	})
}

// WithRedis caches page text in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.password = password
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
