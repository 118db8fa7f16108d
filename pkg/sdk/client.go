package interviewd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/chunker"
	"github.com/hireloop/interviewd/internal/db"
	dbRedis "github.com/hireloop/interviewd/internal/db/redis"
	"github.com/hireloop/interviewd/internal/domain"
	domsession "github.com/hireloop/interviewd/internal/domain/session"
	"github.com/hireloop/interviewd/internal/prompt"
	"github.com/hireloop/interviewd/internal/repository/embcache"
	sessionrepo "github.com/hireloop/interviewd/internal/repository/session"
	"github.com/hireloop/interviewd/internal/transport/extract"
	healthuc "github.com/hireloop/interviewd/internal/usecase/health"
	ingestuc "github.com/hireloop/interviewd/internal/usecase/ingest"
	interviewuc "github.com/hireloop/interviewd/internal/usecase/interview"
	retrievaluc "github.com/hireloop/interviewd/internal/usecase/retrieval"
)

const defaultCacheReadinessTimeout = 10 * time.Second

// Internal interfaces for test substitution.
type ingestUseCase interface {
	Upload(ctx context.Context, filename, mimeType string, data []byte) (ingestuc.UploadResult, error)
}

type interviewUseCase interface {
	Start(ctx context.Context, sessionID string) (interviewuc.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (interviewuc.SubmitResult, error)
	End(sessionID string) error
	Status(sessionID string) (domsession.View, error)
	List() []domsession.View
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the interviewd embedded engine entry point.
type Client struct {
	store         db.Store
	janitorCancel context.CancelFunc

	ingestSvc    ingestUseCase
	interviewSvc interviewUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates an interviewd Client. The provided context is used for the
// cache readiness check when WithRedisCache is set; session eviction runs
// in the background until Close.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		maxQuestions:     7,
		retrievalK:       3,
		historyWindow:    10,
		chunkSize:        500,
		chunkOverlap:     100,
		retryAttempts:    3,
		retryBackoff:     200 * time.Millisecond,
		providerTimeout:  30 * time.Second,
		idleTimeout:      30 * time.Minute,
		evictionInterval: time.Minute,
		cacheTTL:         24 * time.Hour,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("interviewd: embedder required (use WithEmbedder)")
	}
	if cfg.generator == nil {
		return nil, errors.New("interviewd: generator required (use WithGenerator)")
	}

	var store db.Store
	if cfg.cacheAddr != "" {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{cfg.cacheAddr},
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("interviewd: create cache store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultCacheReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("interviewd: cache not ready: %w", err)
		}
		store = s
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	// Internal services log through zap; the embedded client keeps its own
	// slog-based observer and mutes the service layer.
	nop := zap.NewNop()

	embedder := &embedderAdapter{inner: cfg.embedder}
	generator := &generatorAdapter{inner: cfg.generator}

	// One embedder chain serves both ingestion and retrieval; the cache
	// decorator keys on raw text, so the split the server makes for
	// instruction prefixes is unnecessary here.
	var chain domain.Embedder = embedder
	if store != nil {
		chain = embcache.New(embedder, store, cfg.cacheTTL, nil, nop)
	}

	sessions := sessionrepo.New(cfg.idleTimeout, nop)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go sessions.Run(janitorCtx, cfg.evictionInterval)

	ingestSvc := ingestuc.New(
		extract.NewTextExtractor(),
		chain,
		sessions,
		chunker.New(cfg.chunkSize, cfg.chunkOverlap),
		cfg.maxQuestions,
		cfg.dimensions,
		nop,
	)

	interviewSvc := interviewuc.New(
		sessions,
		retrievaluc.New(chain, cfg.retrievalK),
		generator,
		prompt.New(cfg.historyWindow),
		nop,
	).
		WithRetry(cfg.retryAttempts, cfg.retryBackoff).
		WithProviderTimeout(cfg.providerTimeout)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, embedder, generator)

	return &Client{
		store:         store,
		janitorCancel: janitorCancel,
		ingestSvc:     ingestSvc,
		interviewSvc:  interviewSvc,
		healthSvc:     healthSvc,
		obs:           obs,
	}
}

// Close stops the session janitor and releases the cache connection.
// Active sessions are discarded; the engine holds no durable state.
func (c *Client) Close() {
	if c.janitorCancel != nil {
		c.janitorCancel()
	}
	if c.store != nil {
		c.store.Close()
	}
}
