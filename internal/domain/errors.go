package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFragment signals a fragment that fails validation.
	ErrInvalidFragment = errors.New("invalid fragment")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentUnavailable signals a document that cannot be fetched or parsed.
	ErrDocumentUnavailable = errors.New("document unavailable")
	// ErrDocumentTooLarge signals a document above the configured size limit.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrRefNotAllowed signals a document reference outside the allowed hosts or root.
	ErrRefNotAllowed = errors.New("document reference not allowed")
	// ErrPageOutOfRange signals a page index outside [1, pageCount].
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrSessionNotFound signals an unknown or expired selection session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUpstream signals a fragment search backend failure.
	ErrUpstream = errors.New("upstream search error")
	// ErrLLMProviderError signals a chat model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrLLMBudgetExceeded signals a spent chat model token budget.
	ErrLLMBudgetExceeded = errors.New("llm token budget exceeded")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// PageOutOfRangeError wraps ErrPageOutOfRange with the document page count.
type PageOutOfRangeError struct {
	Page      int
	PageCount int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: page %d not in [1, %d]", ErrPageOutOfRange.Error(), e.Page, e.PageCount)
}

func (e *PageOutOfRangeError) Unwrap() error { return ErrPageOutOfRange }

// NewPageOutOfRange creates a page range error.
func NewPageOutOfRange(page, pageCount int) error {
	return &PageOutOfRangeError{Page: page, PageCount: pageCount}
}
