package locate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/arbitro/internal/domain"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

// Service finds the page of a document that contains a fragment.
// Locate is total: every failure degrades to domlocate.FallbackPage.
type Service struct {
	docs        domain.DocumentOpener
	cache       PageCache
	opts        domlocate.Options
	parallelism int
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a locator. Zero option fields take default values.
func New(docs domain.DocumentOpener, opts domlocate.Options, logger *zap.Logger) *Service {
	return &Service{
		docs:        docs,
		opts:        opts.WithDefaults(),
		parallelism: 1,
		logger:      logger,
	}
}

// WithCache enables the page text cache.
func (s *Service) WithCache(c PageCache) *Service {
	s.cache = c
	return s
}

// WithParallelism sets how many pages are decoded concurrently. n <= 1 scans sequentially.
func (s *Service) WithParallelism(n int) *Service {
	if n < 1 {
		n = 1
	}
	s.parallelism = n
	return s
}

// WithTimeout bounds a single locate call. Zero disables the bound.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Options returns the effective matching options.
func (s *Service) Options() domlocate.Options { return s.opts }

// Locate returns the lowest 1-based page whose text contains the fragment needle.
// No match, an empty document or any retrieval failure yields the fallback page.
func (s *Service) Locate(ctx context.Context, fragmentText, ref string) domlocate.Result {
	start := time.Now()
	res := s.locate(ctx, fragmentText, ref)

	mode := string(s.opts.Mode)
	metrics.LocateTotal.WithLabelValues(mode, string(res.Outcome())).Inc()
	metrics.LocateDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.LocatePagesScanned.Observe(float64(res.PagesScanned()))

	s.logger.Debug("Fragment located",
		zap.String("document_ref", ref),
		zap.Int("page", res.Page()),
		zap.String("outcome", string(res.Outcome())),
		zap.Int("pages_scanned", res.PagesScanned()),
		zap.Duration("latency", time.Since(start)),
	)
	return res
}

func (s *Service) locate(ctx context.Context, fragmentText, ref string) (res domlocate.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Recovered panic while locating, using fallback page",
				zap.String("document_ref", ref), zap.Any("panic", r))
			res = domlocate.Fallback(domlocate.LoadError, 0)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	needle := domlocate.NewNeedle(fragmentText, s.opts)

	doc, err := s.docs.Open(ctx, ref)
	if err != nil {
		s.logger.Warn("Failed to open document, using fallback page",
			zap.String("document_ref", ref), zap.Error(err))
		return domlocate.Fallback(domlocate.LoadError, 0)
	}
	if c, ok := doc.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	pageCount := doc.PageCount()
	if pageCount <= 0 {
		return domlocate.Fallback(domlocate.EmptyDocument, 0)
	}

	sc := &scan{
		svc:    s,
		doc:    doc,
		needle: needle,
		cached: s.loadPages(ctx, doc.ID()),
		fresh:  make(map[int]string),
	}

	if s.parallelism > 1 {
		res = sc.runParallel(ctx, pageCount)
	} else {
		res = sc.runSequential(ctx, pageCount)
	}

	s.savePages(ctx, doc.ID(), sc.fresh)
	return res
}

func (s *Service) loadPages(ctx context.Context, docID string) map[int]string {
	if s.cache == nil {
		return nil
	}
	pages, err := s.cache.Pages(ctx, docID)
	if err != nil {
		s.logger.Warn("Failed to load cached page text", zap.String("doc_id", docID), zap.Error(err))
		return nil
	}
	return pages
}

func (s *Service) savePages(ctx context.Context, docID string, pages map[int]string) {
	if s.cache == nil || len(pages) == 0 {
		return
	}
	// The scan context may already be done; the cache write is independent of it.
	ctx = context.WithoutCancel(ctx)
	if err := s.cache.SavePages(ctx, docID, pages); err != nil {
		s.logger.Warn("Failed to cache page text", zap.String("doc_id", docID), zap.Error(err))
	}
}

// scan holds the per-call state of one document search.
type scan struct {
	svc    *Service
	doc    domain.Document
	needle domlocate.Needle
	cached map[int]string

	mu    sync.Mutex
	fresh map[int]string
}

func (sc *scan) runSequential(ctx context.Context, pageCount int) domlocate.Result {
	scanned := 0
	for page := 1; page <= pageCount; page++ {
		if ctx.Err() != nil {
			sc.logCanceled(ctx, page)
			return domlocate.Fallback(domlocate.Canceled, scanned)
		}
		scanned++
		if sc.matches(ctx, page) {
			return domlocate.Found(page, scanned)
		}
	}
	return domlocate.Fallback(domlocate.NoMatch, scanned)
}

// runParallel decodes pages with bounded concurrency and keeps the minimum matching index,
// so the result equals the sequential scan regardless of completion order.
func (sc *scan) runParallel(ctx context.Context, pageCount int) domlocate.Result {
	var (
		best    atomic.Int64
		scanned atomic.Int64
	)
	best.Store(int64(pageCount + 1))

	var g errgroup.Group
	g.SetLimit(sc.svc.parallelism)
	for page := 1; page <= pageCount; page++ {
		if ctx.Err() != nil || int64(page) > best.Load() {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || int64(page) > best.Load() {
				return nil
			}
			scanned.Add(1)
			if !sc.matches(ctx, page) {
				return nil
			}
			for {
				cur := best.Load()
				if int64(page) >= cur || best.CompareAndSwap(cur, int64(page)) {
					return nil
				}
			}
		})
	}
	_ = g.Wait()

	if b := int(best.Load()); b <= pageCount {
		return domlocate.Found(b, int(scanned.Load()))
	}
	if ctx.Err() != nil {
		sc.logCanceled(ctx, 0)
		return domlocate.Fallback(domlocate.Canceled, int(scanned.Load()))
	}
	return domlocate.Fallback(domlocate.NoMatch, int(scanned.Load()))
}

// matches reports whether the page text contains the needle. Decode failures count as no match.
func (sc *scan) matches(ctx context.Context, page int) bool {
	text, ok := sc.pageText(ctx, page)
	if !ok {
		return false
	}
	return sc.needle.Matches(domlocate.NormalizeWith(text, sc.svc.opts))
}

func (sc *scan) pageText(ctx context.Context, page int) (string, bool) {
	if text, ok := sc.cached[page]; ok {
		metrics.PageCacheTotal.WithLabelValues("hit").Inc()
		return text, true
	}
	if sc.svc.cache != nil {
		metrics.PageCacheTotal.WithLabelValues("miss").Inc()
	}

	tokens, err := sc.pageTokens(ctx, page)
	if err != nil {
		metrics.PageDecodeErrorsTotal.Inc()
		sc.svc.logger.Warn("Failed to decode page text, skipping page",
			zap.String("document_ref", sc.doc.Ref()),
			zap.Int("page", page),
			zap.Error(err),
		)
		return "", false
	}

	text := domlocate.JoinTokens(tokens)
	sc.mu.Lock()
	sc.fresh[page] = text
	sc.mu.Unlock()
	return text, true
}

// pageTokens reports a decoder panic as a page error. It runs inside scan workers.
func (sc *scan) pageTokens(ctx context.Context, page int) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode panic: %v", r)
		}
	}()
	return sc.doc.PageTokens(ctx, page)
}

func (sc *scan) logCanceled(ctx context.Context, page int) {
	sc.svc.logger.Warn("Locate scan stopped early, using fallback page",
		zap.String("document_ref", sc.doc.Ref()),
		zap.Int("next_page", page),
		zap.Error(ctx.Err()),
	)
}
