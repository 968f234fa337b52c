package selection

import (
	"context"

	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
)

// Locator finds the page of a document containing a fragment.
type Locator interface {
	Locate(ctx context.Context, fragmentText, documentRef string) domlocate.Result
}
