package pagecache

import (
	"container/list"
	"context"
	"maps"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process page text cache holding at most maxDocs documents.
// The oldest document is evicted first.
type Memory struct {
	maxDocs int
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	order *list.List // front = newest
	docs  map[string]*list.Element
}

type memEntry struct {
	docID   string
	pages   map[int]string
	expires time.Time
}

// NewMemory creates an in-memory cache. ttl <= 0 keeps entries until evicted.
func NewMemory(maxDocs int, ttl time.Duration) *Memory {
	if maxDocs <= 0 {
		maxDocs = 1
	}
	return &Memory{
		maxDocs: maxDocs,
		ttl:     ttl,
		now:     time.Now,
		order:   list.New(),
		docs:    make(map[string]*list.Element),
	}
}

// Pages returns a copy of the cached pages of a document, or nil when absent.
func (m *Memory) Pages(_ context.Context, docID string) (map[int]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.docs[docID]
	if !ok {
		return nil, nil
	}
	e := el.Value.(*memEntry)
	if m.expired(e) {
		m.remove(el)
		return nil, nil
	}
	return maps.Clone(e.pages), nil
}

// SavePages merges pages into the cached entry of a document.
func (m *Memory) SavePages(_ context.Context, docID string, pages map[int]string) error {
	if len(pages) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.docs[docID]; ok {
		e := el.Value.(*memEntry)
		if m.expired(e) {
			e.pages = make(map[int]string, len(pages))
		}
		maps.Copy(e.pages, pages)
		e.expires = m.expiry()
		return nil
	}

	for m.order.Len() >= m.maxDocs {
		m.remove(m.order.Back())
	}
	e := &memEntry{docID: docID, pages: maps.Clone(pages), expires: m.expiry()}
	m.docs[docID] = m.order.PushFront(e)
	return nil
}

// Invalidate drops every document whose identity starts with refPrefix.
func (m *Memory) Invalidate(_ context.Context, refPrefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, el := range m.docs {
		if strings.HasPrefix(id, refPrefix) {
			m.remove(el)
			n++
		}
	}
	return n, nil
}

// Len returns the number of cached documents.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) remove(el *list.Element) {
	e := m.order.Remove(el).(*memEntry)
	delete(m.docs, e.docID)
}

func (m *Memory) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *Memory) expired(e *memEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
