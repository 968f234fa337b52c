package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
)

const defaultLocateConcurrency = 4

// Service answers chat queries: retrieve fragments, generate the answer and
// optionally annotate each fragment with its page.
type Service struct {
	retriever   Retriever
	answerer    Answerer
	locator     PageLocator
	concurrency int
	logger      *zap.Logger
}

// New creates a chat service without page annotation.
func New(retriever Retriever, answerer Answerer, logger *zap.Logger) *Service {
	return &Service{
		retriever:   retriever,
		answerer:    answerer,
		concurrency: defaultLocateConcurrency,
		logger:      logger,
	}
}

// WithLocator enables page annotation, locating at most concurrency fragments at once.
func (s *Service) WithLocator(l PageLocator, concurrency int) *Service {
	s.locator = l
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

// Ask answers a query. Page annotation runs alongside answer generation and never fails the request.
func (s *Service) Ask(ctx context.Context, req domchat.Request) (domchat.Response, error) {
	fragments, err := s.retriever.Retrieve(ctx, req.Query())
	if err != nil {
		return domchat.Response{}, fmt.Errorf("retrieve fragments: %w", err)
	}

	var answer string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.answerer.Answer(gctx, req, fragments)
		if err != nil {
			return fmt.Errorf("generate answer: %w", err)
		}
		answer = a
		return nil
	})

	annotated := fragments
	if s.locator != nil && len(fragments) > 0 {
		annotated = make([]fragment.Fragment, len(fragments))
		g.Go(func() error {
			s.annotate(gctx, fragments, annotated)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domchat.Response{}, err
	}

	s.logger.Debug("Chat answered",
		zap.Int("fragments", len(fragments)),
		zap.Bool("annotated", s.locator != nil),
	)

	return domchat.Response{Answer: answer, Fragments: annotated}, nil
}

// annotate writes each fragment with its located page into out, preserving order.
func (s *Service) annotate(ctx context.Context, in, out []fragment.Fragment) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range in {
		g.Go(func() error {
			f := in[i]
			res := s.locator.Locate(ctx, f.Text(), f.DocumentRef())
			out[i] = f.WithPage(res.Page())
			return nil
		})
	}
	_ = g.Wait()
}
