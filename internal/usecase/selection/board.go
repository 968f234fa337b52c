package selection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

// Status is the state of the current selection of a session.
type Status string

// Status constants.
const (
	Pending Status = "pending"
	Ready   Status = "ready"
)

// Defaults for session retention.
const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 10000
)

// Ticket identifies an accepted selection.
type Ticket struct {
	SelectionID string
	Generation  uint64
}

// View is the applied selection state of a session.
type View struct {
	SelectionID string
	Generation  uint64
	Status      Status
	Page        int
	Matched     bool
	DocumentRef string
	DisplayName string
}

type session struct {
	generation uint64
	view       View
	cancel     context.CancelFunc
	touched    time.Time
}

// Board tracks the latest fragment selection per session. Each selection gets a
// higher generation; a locate result is applied only while its generation is
// still the newest for the session, so a slow superseded scan never overwrites
// a newer one.
type Board struct {
	locator     Locator
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
}

// NewBoard creates a selection board. Zero ttl or maxSessions take default values.
func NewBoard(locator Locator, ttl time.Duration, maxSessions int, logger *zap.Logger) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		locator:     locator,
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
}

// Select records a new selection for the session and locates its page in the background.
// Any in-flight locate of an older selection of the same session is canceled.
func (b *Board) Select(sessionID string, f fragment.Fragment) (Ticket, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Ticket{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(f.Text()) == "" {
		return Ticket{}, fmt.Errorf("%w: fragment text is blank", domain.ErrInvalidFragment)
	}

	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return Ticket{}, fmt.Errorf("selection board is closed")
	}

	now := b.now()
	b.pruneLocked(now)

	s, ok := b.sessions[sessionID]
	if !ok {
		if len(b.sessions) >= b.maxSessions {
			b.evictOldestLocked()
		}
		s = &session{}
		b.sessions[sessionID] = s
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.generation++
	ticket := Ticket{SelectionID: uuid.NewString(), Generation: s.generation}
	s.view = View{
		SelectionID: ticket.SelectionID,
		Generation:  ticket.Generation,
		Status:      Pending,
		DocumentRef: f.DocumentRef(),
		DisplayName: f.DisplayName(),
	}
	s.touched = now

	ctx, cancel := context.WithCancel(b.ctx)
	s.cancel = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer cancel()
		res := b.locator.Locate(ctx, f.Text(), f.DocumentRef())
		b.commit(sessionID, s, ticket, res.Page(), res.Matched())
	}()

	return ticket, nil
}

// Current returns the applied selection of the session.
func (b *Board) Current(sessionID string) (View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(b.now())
	s, ok := b.sessions[sessionID]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s.view, nil
}

// Len returns the number of tracked sessions.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close cancels in-flight locates and waits for them to finish.
func (b *Board) Close() {
	b.mu.Lock()
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}

// commit applies a locate result if its selection is still the newest of the session.
// A session that was pruned and recreated under the same id does not accept results
// started for its predecessor.
func (b *Board) commit(sessionID string, owner *session, t Ticket, page int, matched bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok || s != owner || s.generation != t.Generation {
		metrics.SelectionResultsTotal.WithLabelValues("dropped").Inc()
		b.logger.Debug("Dropping superseded selection result",
			zap.String("session", sessionID),
			zap.String("selection_id", t.SelectionID),
			zap.Uint64("generation", t.Generation),
		)
		return
	}

	s.view.Status = Ready
	s.view.Page = page
	s.view.Matched = matched
	s.cancel = nil
	metrics.SelectionResultsTotal.WithLabelValues("applied").Inc()
}

func (b *Board) pruneLocked(now time.Time) {
	for id, s := range b.sessions {
		if now.Sub(s.touched) > b.ttl {
			b.dropLocked(id, s)
		}
	}
}

func (b *Board) evictOldestLocked() {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range b.sessions {
		if oldest == nil || s.touched.Before(oldest.touched) {
			oldestID, oldest = id, s
		}
	}
	if oldest != nil {
		b.dropLocked(oldestID, oldest)
	}
}

func (b *Board) dropLocked(id string, s *session) {
	if s.cancel != nil {
		s.cancel()
	}
	delete(b.sessions, id)
}
