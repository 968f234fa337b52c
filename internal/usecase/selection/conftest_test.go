package selection

import (
	"context"
	"sync"

	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
)

// gatedLocator resolves each text to a fixed page. Texts with a gate block until
// the gate is closed, ignoring cancellation so late results reach the board.
type gatedLocator struct {
	pages map[string]int
	gates map[string]chan struct{}

	mu       sync.Mutex
	canceled map[string]bool
	started  map[string]chan struct{}
}

func newGatedLocator(pages map[string]int) *gatedLocator {
	return &gatedLocator{
		pages:    pages,
		gates:    make(map[string]chan struct{}),
		canceled: make(map[string]bool),
		started:  make(map[string]chan struct{}),
	}
}

func (g *gatedLocator) gate(text string) chan struct{} {
	ch := make(chan struct{})
	g.gates[text] = ch
	g.started[text] = make(chan struct{})
	return ch
}

func (g *gatedLocator) Locate(ctx context.Context, text, _ string) domlocate.Result {
	if gate, ok := g.gates[text]; ok {
		close(g.started[text])
		<-gate
		g.mu.Lock()
		g.canceled[text] = ctx.Err() != nil
		g.mu.Unlock()
	}
	if page, ok := g.pages[text]; ok {
		return domlocate.Found(page, page)
	}
	return domlocate.Fallback(domlocate.NoMatch, 0)
}

func (g *gatedLocator) wasCanceled(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled[text]
}

func frag(text string) fragment.Fragment {
	f, err := fragment.New(text, "reglas.pdf", "Reglas de juego", 0.7)
	if err != nil {
		panic(err)
	}
	return f
}
