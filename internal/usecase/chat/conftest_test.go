package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
)

type mockRetriever struct {
	fragments []fragment.Fragment
	err       error
	query     string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string) ([]fragment.Fragment, error) {
	m.query = query
	return m.fragments, m.err
}

type mockAnswerer struct {
	answer string
	err    error

	mu        sync.Mutex
	fragments []fragment.Fragment
}

func (m *mockAnswerer) Answer(_ context.Context, _ domchat.Request, fragments []fragment.Fragment) (string, error) {
	m.mu.Lock()
	m.fragments = fragments
	m.mu.Unlock()
	return m.answer, m.err
}

// mockLocator returns the page registered for a text, or the fallback page.
type mockLocator struct {
	pages map[string]int
	delay time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (m *mockLocator) Locate(_ context.Context, text, _ string) domlocate.Result {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if page, ok := m.pages[text]; ok {
		return domlocate.Found(page, page)
	}
	return domlocate.Fallback(domlocate.NoMatch, 0)
}

func mustFragment(text, ref string) fragment.Fragment {
	f, err := fragment.New(text, ref, "Reglas", 0.8)
	if err != nil {
		panic(err)
	}
	return f
}
