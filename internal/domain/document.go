package domain

import (
	"context"
	"io"
)

// Document is a paginated, text-bearing document borrowed for the duration of one search.
// Pages are addressed by 1-based index and decoded on demand.
// Implementations that also implement io.Closer are closed when the search ends.
type Document interface {
	// ID identifies the document contents; it changes whenever the underlying bytes change.
	ID() string
	// Ref is the reference the document was opened from.
	Ref() string
	PageCount() int
	// PageTokens returns the ordered text tokens of a page.
	PageTokens(ctx context.Context, page int) ([]string, error)
}

// DocumentOpener resolves a document reference (URL or local path) into a Document.
type DocumentOpener interface {
	Open(ctx context.Context, ref string) (Document, error)
}

// PageExporter writes a single page of a document as a standalone PDF.
type PageExporter interface {
	ExportPage(ctx context.Context, ref string, page int, w io.Writer) error
}

// HealthChecker verifies availability of an external provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
