package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/config"
	dbredis "github.com/kailas-cloud/arbitro/internal/db/redis"
	"github.com/kailas-cloud/arbitro/internal/repository/pagecache"
	"github.com/kailas-cloud/arbitro/internal/transport/pdf"
	locateuc "github.com/kailas-cloud/arbitro/internal/usecase/locate"
)

// pageCache is a page text cache that can also drop entries for changed files.
type pageCache interface {
	locateuc.PageCache
	Invalidate(ctx context.Context, refPrefix string) (int, error)
}

// locatorStack is the document source, page cache and locator shared by serve and locate.
type locatorStack struct {
	source  *pdf.Source
	locator *locateuc.Service
	cache   pageCache      // nil when caching is disabled
	store   *dbredis.Store // nil unless the cache lives in redis/valkey
}

func buildLocator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*locatorStack, error) {
	source := pdf.NewSource(pdf.Config{
		RootDir:       cfg.Documents.RootDir,
		AllowedHosts:  cfg.Documents.AllowedHosts,
		FetchTimeout:  time.Duration(cfg.Documents.FetchTimeoutSec) * time.Second,
		MaxBytes:      cfg.Documents.MaxBytes,
		RetryAttempts: uint(cfg.Documents.RetryAttempts), //nolint:gosec // validated positive
		RetryDelay:    time.Duration(cfg.Documents.RetryDelayMs) * time.Millisecond,
		Logger:        logger,
	})

	stack := &locatorStack{source: source}
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second

	switch cfg.Cache.Driver {
	case config.CacheNone:
	case config.CacheMemory:
		stack.cache = pagecache.NewMemory(cfg.Cache.MaxDocuments, ttl)
	case config.CacheRedis, config.CacheValkey:
		// Valkey speaks the same protocol; the page cache only needs core hash and key commands.
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Cache.Driver, err)
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Cache.Driver, err)
		}
		stack.store = store
		stack.cache = pagecache.NewRedis(store, cfg.Cache.KeyPrefix, ttl, logger)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	loc := locateuc.New(source, cfg.Locator.Options(), logger).
		WithParallelism(cfg.Locator.Parallelism).
		WithTimeout(time.Duration(cfg.Locator.TimeoutSec) * time.Second)
	if stack.cache != nil {
		loc = loc.WithCache(stack.cache)
	}
	stack.locator = loc

	logger.Info("Locator ready",
		zap.String("mode", cfg.Locator.Mode),
		zap.Int("prefix_length", cfg.Locator.PrefixLength),
		zap.Int("parallelism", cfg.Locator.Parallelism),
		zap.String("cache_driver", cfg.Cache.Driver),
	)
	return stack, nil
}

func (s *locatorStack) Close() {
	if s.store != nil {
		s.store.Close()
	}
}
