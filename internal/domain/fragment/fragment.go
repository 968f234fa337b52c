package fragment

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/arbitro/internal/domain"
)

// Fragment is a scored snippet returned by the search backend as supporting evidence
// for a chat answer (immutable value object).
type Fragment struct {
	text        string
	documentRef string
	displayName string
	score       float64
	page        int
}

// New validates and creates a Fragment.
// Text and document reference are required; score must be within [0, 1].
func New(text, documentRef, displayName string, score float64) (Fragment, error) {
	if strings.TrimSpace(text) == "" {
		return Fragment{}, fmt.Errorf("%w: text is required", domain.ErrInvalidFragment)
	}
	if strings.TrimSpace(documentRef) == "" {
		return Fragment{}, fmt.Errorf("%w: document reference is required", domain.ErrInvalidFragment)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return Fragment{}, fmt.Errorf("%w: score must be within [0, 1], got %v", domain.ErrInvalidFragment, score)
	}
	return Fragment{
		text:        text,
		documentRef: documentRef,
		displayName: displayName,
		score:       score,
	}, nil
}

// Reconstruct creates a Fragment without validation (upstream hydration).
func Reconstruct(text, documentRef, displayName string, score float64, page int) Fragment {
	return Fragment{text: text, documentRef: documentRef, displayName: displayName, score: score, page: page}
}

// Text returns the fragment text.
func (f *Fragment) Text() string { return f.text }

// DocumentRef returns the reference of the source document.
func (f *Fragment) DocumentRef() string { return f.documentRef }

// DisplayName returns the human-readable document name.
func (f *Fragment) DisplayName() string { return f.displayName }

// Score returns the relevance score.
func (f *Fragment) Score() float64 { return f.score }

// Page returns the located page, or 0 if the fragment has not been located.
func (f *Fragment) Page() int { return f.page }

// WithPage returns a copy with the located page set.
func (f *Fragment) WithPage(page int) Fragment {
	return Fragment{
		text: f.text, documentRef: f.documentRef, displayName: f.displayName,
		score: f.score, page: page,
	}
}
