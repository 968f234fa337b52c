package arbitro

import "github.com/kailas-cloud/arbitro/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrDocumentUnavailable = domain.ErrDocumentUnavailable
	ErrDocumentTooLarge    = domain.ErrDocumentTooLarge
	ErrRefNotAllowed       = domain.ErrRefNotAllowed
	ErrPageOutOfRange      = domain.ErrPageOutOfRange
)
