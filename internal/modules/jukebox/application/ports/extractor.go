package ports

import (
	"context"
	"errors"
	"time"
)

// Extraction failure classes. Implementations translate provider-specific
// failures into these so callers can classify without string matching.
var (
	// ErrNoCandidates is returned when nothing playable was found.
	ErrNoCandidates = errors.New("no playable candidates found")

	// ErrRestricted is returned for age- or region-restricted content.
	ErrRestricted = errors.New("content is restricted")

	// ErrUnavailable is returned when the provider rejected the locator
	// (deleted, private, live-only).
	ErrUnavailable = errors.New("content is unavailable")
)

// ExtractedTrack is the metadata the extraction collaborator returns for a
// single locator. StreamURL is a direct audio locator; it expires, so it is
// never cached across resolutions.
type ExtractedTrack struct {
	Title      string
	Duration   time.Duration
	ExternalID string
	SourceURL  string
	StreamURL  string
}

// RelatedEntry is one item of a related-tracks listing. No stream URL:
// listings are fetched flat and selected entries are extracted afterwards.
type RelatedEntry struct {
	ExternalID string
	Title      string
	Duration   time.Duration
}

// Extractor resolves locators into playable track metadata. Both calls
// shell out to an external tool and block; callers run them off the
// scheduling path, under a hard timeout via ctx.
type Extractor interface {
	// Extract resolves a URL to full metadata including a direct audio
	// stream URL.
	Extract(ctx context.Context, url string) (*ExtractedTrack, error)

	// Related returns up to limit entries related to the given seed
	// external ID.
	Related(ctx context.Context, seedID string, limit int) ([]RelatedEntry, error)
}
