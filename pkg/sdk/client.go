package arbitro

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	dbredis "github.com/kailas-cloud/arbitro/internal/db/redis"
	"github.com/kailas-cloud/arbitro/internal/domain"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
	"github.com/kailas-cloud/arbitro/internal/repository/pagecache"
	"github.com/kailas-cloud/arbitro/internal/transport/pdf"
	healthuc "github.com/kailas-cloud/arbitro/internal/usecase/health"
	locateuc "github.com/kailas-cloud/arbitro/internal/usecase/locate"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 24 * time.Hour
	defaultMaxDocs          = 32
)

// Internal interfaces, swapped for mocks in tests.
type locateUseCase interface {
	Locate(ctx context.Context, fragmentText, ref string) domlocate.Result
}

type invalidator interface {
	Invalidate(ctx context.Context, refPrefix string) (int, error)
}

// Result is where a fragment was found.
type Result struct {
	Page         int  // 1-based; 1 when nothing matched
	Matched      bool // false means Page is the fallback
	PagesScanned int
}

// Client is the arbitro SDK entry point.
type Client struct {
	store     *dbredis.Store // nil unless the cache lives in valkey/redis
	locator   locateUseCase
	pages     domain.PageExporter
	cache     invalidator // nil when caching is disabled
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. When a valkey/redis cache is configured the provided
// context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		mode:         string(domlocate.Prefix),
		prefixLength: domlocate.DefaultPrefixLength,
		windowSize:   domlocate.DefaultWindowSize,
		windowStride: domlocate.DefaultWindowStride,
		cacheTTL:     defaultCacheTTL,
		maxDocs:      defaultMaxDocs,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	locOpts := domlocate.Options{
		Mode:            domlocate.Mode(cfg.mode),
		PrefixLength:    cfg.prefixLength,
		WindowSize:      cfg.windowSize,
		WindowStride:    cfg.windowStride,
		KeepPunctuation: cfg.keepPunctuation,
	}
	if err := locOpts.Validate(); err != nil {
		return nil, fmt.Errorf("arbitro: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	source := pdf.NewSource(pdf.Config{
		RootDir:      cfg.rootDir,
		AllowedHosts: cfg.allowedHosts,
		FetchTimeout: cfg.fetchTimeout,
		MaxBytes:     cfg.maxBytes,
	})
	loc := locateuc.New(source, locOpts, zap.NewNop()).WithParallelism(cfg.parallelism)

	c := &Client{locator: loc, pages: source, obs: obs}

	switch cfg.cacheDriver {
	case "":
	case "memory":
		mem := pagecache.NewMemory(cfg.maxDocs, cfg.cacheTTL)
		loc.WithCache(mem)
		c.cache = mem
	case "valkey", "redis":
		store, err := connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rc := pagecache.NewRedis(store, pagecache.DefaultKeyPrefix, cfg.cacheTTL, zap.NewNop())
		loc.WithCache(rc)
		c.store = store
		c.cache = rc
	default:
		return nil, fmt.Errorf("arbitro: unknown cache driver %q", cfg.cacheDriver)
	}

	// Pass a nil interface, not a typed nil pointer, when there is no store.
	var pinger healthuc.StorePinger
	if c.store != nil {
		pinger = c.store
	}
	c.healthSvc = healthuc.New(pinger, nil)
	return c, nil
}

func connect(ctx context.Context, cfg *clientConfig) (*dbredis.Store, error) {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("arbitro: create %s store: %w", cfg.cacheDriver, err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("arbitro: %s not ready: %w", cfg.cacheDriver, err)
	}
	return store, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Locate returns the lowest page of ref whose text contains the fragment.
// Only blank input is an error; an unreadable document or no match yields page 1.
func (c *Client) Locate(ctx context.Context, fragmentText, ref string) (Result, error) {
	start := time.Now()
	if strings.TrimSpace(fragmentText) == "" || strings.TrimSpace(ref) == "" {
		err := fmt.Errorf("%w: fragment text and document reference are required", ErrInvalidRequest)
		c.obs.observe("locate", start, "", err)
		return Result{}, err
	}

	res := c.locator.Locate(ctx, fragmentText, ref)
	c.obs.observe("locate", start, string(res.Outcome()), nil)
	return Result{
		Page:         res.Page(),
		Matched:      res.Matched(),
		PagesScanned: res.PagesScanned(),
	}, nil
}

// ExportPage writes page of ref to w as a standalone one-page PDF.
func (c *Client) ExportPage(ctx context.Context, ref string, page int, w io.Writer) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("export_page", start, "", err) }()

	if err = c.pages.ExportPage(ctx, ref, page, w); err != nil {
		return fmt.Errorf("export page: %w", err)
	}
	return nil
}

// InvalidateLocal drops cached page text of the local file at absPath.
// It returns the number of cached versions removed.
func (c *Client) InvalidateLocal(ctx context.Context, absPath string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("invalidate", start, "", err) }()

	if c.cache == nil {
		return 0, nil
	}
	n, err = c.cache.Invalidate(ctx, pdf.LocalKey(absPath)+"#")
	if err != nil {
		return 0, fmt.Errorf("invalidate: %w", err)
	}
	return n, nil
}

// Ping checks the cache store connectivity. Without a store it always succeeds.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, "", err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
