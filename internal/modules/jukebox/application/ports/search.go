package ports

import "context"

// SearchCandidate is a single search hit: enough to build a watch URL and
// show a title, nothing more.
type SearchCandidate struct {
	ExternalID string
	Title      string
}

// SearchProvider maps free text to an ordered list of candidate tracks.
// Implementations are network-bound and must honor ctx cancellation.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error)
}
