package chat

import (
	"context"

	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
)

// Retriever finds the rule fragments relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]fragment.Fragment, error)
}

// Answerer generates a reply grounded on the retrieved fragments.
type Answerer interface {
	Answer(ctx context.Context, req domchat.Request, fragments []fragment.Fragment) (string, error)
}

// PageLocator finds the page of a document containing a fragment.
type PageLocator interface {
	Locate(ctx context.Context, fragmentText, documentRef string) domlocate.Result
}
