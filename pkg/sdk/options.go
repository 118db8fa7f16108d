package interviewd

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
	embedder  Embedder
	generator Generator

	maxQuestions  int
	retrievalK    int
	historyWindow int
	chunkSize     int
	chunkOverlap  int
	dimensions    int

	retryAttempts   int
	retryBackoff    time.Duration
	providerTimeout time.Duration

	idleTimeout      time.Duration
	evictionInterval time.Duration

	cacheAddr     string
	cachePassword string
	cacheTTL      time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the question generation provider. Required.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithMaxQuestions bounds the interview length. Default: 7.
func WithMaxQuestions(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQuestions = n
	})
}

// WithRetrievalK sets how many chunks back each question. Default: 3.
func WithRetrievalK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.retrievalK = k
	})
}

// WithHistoryWindow bounds how many recent turns enter the prompt. Default: 10.
func WithHistoryWindow(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.historyWindow = n
	})
}

// WithChunking sets the sliding-window chunk size and overlap in runes.
// Defaults: size=500, overlap=100.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithVectorDimensions enforces the embedding dimension at ingest time.
// 0 (the default) accepts whatever the provider emits.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithRetry configures the provider retry policy: attempts is the total
// number of tries per call, backoff the base delay doubled between tries.
// Defaults: 3 attempts, 200ms backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	})
}

// WithProviderTimeout bounds each individual embedding/generation call.
// Default: 30s.
func WithProviderTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.providerTimeout = d
	})
}

// WithIdleTimeout sets how long an inactive session survives before the
// janitor evicts it. Default: 30 minutes, swept every minute.
func WithIdleTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.idleTimeout = d
	})
}

// WithRedisCache enables a Redis-backed embedding cache so repeated
// uploads of the same document skip provider calls. ttl <= 0 means 24h.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddr = addr
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
