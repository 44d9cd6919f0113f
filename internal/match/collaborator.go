// Package match selects, among the candidates a search returned, the one that
// corresponds to an input record, and drives phone extraction on it.
package match

import (
	"context"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Collaborator is the external search-and-extract capability. Implementations
// wrap a map/search service; the core never sees markup or wire formats.
type Collaborator interface {
	// Search returns candidates for a free-text query in relevance order.
	// An empty slice means no results.
	Search(ctx context.Context, query string) ([]model.Candidate, error)

	// ExtractDirect reads the phone from the candidate's listing without
	// opening its detail view.
	ExtractDirect(ctx context.Context, c model.Candidate) (model.ExtractionResult, error)

	// ExtractDetail opens the candidate's detail view and reads the phone and
	// address from it.
	ExtractDetail(ctx context.Context, c model.Candidate) (model.ExtractionResult, error)
}

// Resetter is implemented by collaborators that hold a navigable session.
// Reset returns the session to its neutral top-level state.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Closer is implemented by collaborators that own resources.
type Closer interface {
	Close() error
}
