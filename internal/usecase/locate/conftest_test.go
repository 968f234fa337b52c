package locate

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/arbitro/internal/domain"
)

// --- Mocks ---

type fakeDoc struct {
	id    string
	ref   string
	pages [][]string

	pageErr   map[int]error
	pagePanic map[int]bool
	// wait blocks decoding of a page until the channel is closed or ctx ends.
	wait map[int]chan struct{}
	// done is closed after the page has been decoded.
	done map[int]chan struct{}

	mu      sync.Mutex
	decoded []int
	closed  bool
}

func newFakeDoc(pages ...string) *fakeDoc {
	d := &fakeDoc{id: "doc-1", ref: "reglas.pdf"}
	for _, p := range pages {
		d.pages = append(d.pages, []string{p})
	}
	return d
}

func (d *fakeDoc) ID() string     { return d.id }
func (d *fakeDoc) Ref() string    { return d.ref }
func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageTokens(ctx context.Context, page int) ([]string, error) {
	if ch, ok := d.wait[page]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	d.decoded = append(d.decoded, page)
	d.mu.Unlock()

	if ch, ok := d.done[page]; ok {
		defer close(ch)
	}
	if d.pagePanic[page] {
		panic("corrupt content stream")
	}
	if err, ok := d.pageErr[page]; ok {
		return nil, err
	}
	if page < 1 || page > len(d.pages) {
		return nil, errors.New("page out of range")
	}
	return d.pages[page-1], nil
}

func (d *fakeDoc) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDoc) decodedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.decoded)
}

type fakeOpener struct {
	doc   domain.Document
	err   error
	panic bool
	opens int
}

func (o *fakeOpener) Open(_ context.Context, _ string) (domain.Document, error) {
	o.opens++
	if o.panic {
		panic("malformed xref")
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type memCache struct {
	mu      sync.Mutex
	data    map[string]map[int]string
	loadErr error
	saveErr error
	saves   int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]map[int]string)}
}

func (c *memCache) Pages(_ context.Context, docID string) (map[int]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	out := make(map[int]string, len(c.data[docID]))
	for k, v := range c.data[docID] {
		out[k] = v
	}
	return out, nil
}

func (c *memCache) SavePages(_ context.Context, docID string, pages map[int]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	if c.data[docID] == nil {
		c.data[docID] = make(map[int]string)
	}
	for k, v := range pages {
		c.data[docID][k] = v
	}
	return nil
}
