package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"

	"github.com/kailas-cloud/arbitro/internal/domain"
)

var (
	_ domain.Document = (*Document)(nil)
	_ io.Closer       = (*Document)(nil)
)

// Document is a parsed PDF whose page text is extracted on demand.
// The bytes are spooled to a temporary file on first extraction; Close removes it.
type Document struct {
	id        string
	ref       string
	pageCount int
	tempDir   string

	// tabula caches resolved objects per reader; access is serialized.
	mu     sync.Mutex
	data   []byte
	file   *os.File
	reader *reader.Reader
	closed bool
}

// ID returns the content-derived identity of the document.
func (d *Document) ID() string { return d.id }

// Ref returns the reference the document was opened from.
func (d *Document) Ref() string { return d.ref }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pageCount }

// PageTokens extracts the text of a page and returns its whitespace-separated tokens.
// Font encodings and ToUnicode CMaps are resolved by the extractor.
func (d *Document) PageTokens(ctx context.Context, page int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.pageCount {
		return nil, domain.NewPageOutOfRange(page, d.pageCount)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.openLocked(); err != nil {
		return nil, err
	}
	text, _, err := tabula.FromReader(d.reader).Pages(page).Text()
	if err != nil {
		return nil, fmt.Errorf("extract text of page %d: %w", page, err)
	}
	return strings.Fields(text), nil
}

// Close releases the extractor and removes the spooled file. It is safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.data = nil
	if d.file == nil {
		return nil
	}

	errs := []error{d.reader.Close()}
	if err := os.Remove(d.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	d.file, d.reader = nil, nil
	return errors.Join(errs...)
}

func (d *Document) openLocked() error {
	if d.closed {
		return errors.New("document closed")
	}
	if d.reader != nil {
		return nil
	}

	f, err := os.CreateTemp(d.tempDir, "arbitro-*.pdf")
	if err != nil {
		return fmt.Errorf("spool document: %w", err)
	}
	r, err := spool(f, d.data)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	d.file = f
	d.reader = r
	d.data = nil
	return nil
}

func spool(f *os.File, data []byte) (*reader.Reader, error) {
	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("spool document: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("spool document: %w", err)
	}
	r, err := reader.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: open text layer: %w", domain.ErrDocumentUnavailable, err)
	}
	return r, nil
}
