package locate

import "context"

// PageCache stores decoded page text keyed by document identity.
// Values are raw joined tokens; normalization is applied per search.
type PageCache interface {
	Pages(ctx context.Context, docID string) (map[int]string, error)
	SavePages(ctx context.Context, docID string, pages map[int]string) error
}
