package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

// searchCandidates is how many search hits to request. Narrowed to 1:
// taking the first hit keeps request latency low and the first result is
// almost always the intended track.
const searchCandidates = 1

// Resolver turns a user query (free text or URL) into a ready track.
// It only ever runs on a guild's worker pool; nothing here is called from
// the scheduling path.
type Resolver struct {
	search    ports.SearchProvider
	extractor ports.Extractor

	searchTimeout  time.Duration
	extractTimeout time.Duration
}

// NewResolver creates a Resolver with hard per-call timeouts.
func NewResolver(
	search ports.SearchProvider,
	extractor ports.Extractor,
	searchTimeout, extractTimeout time.Duration,
) *Resolver {
	return &Resolver{
		search:         search,
		extractor:      extractor,
		searchTimeout:  searchTimeout,
		extractTimeout: extractTimeout,
	}
}

// Resolve maps a query to a playable track. Direct URLs skip search.
// Every resolution re-extracts: direct stream URLs expire, so they are
// never cached.
func (r *Resolver) Resolve(
	ctx context.Context,
	query string,
	requestedBy snowflake.ID,
	origin domain.TrackOrigin,
) (*domain.Track, error) {
	url := strings.TrimSpace(query)
	if !isDirectURL(url) {
		found, err := r.searchFirst(ctx, query)
		if err != nil {
			return nil, err
		}
		url = WatchURL(found)
	}

	extracted, err := r.extract(ctx, url)
	if err != nil {
		return nil, err
	}

	track, err := domain.NewReadyTrack(
		extracted.Title,
		extracted.Duration,
		requestedBy,
		extracted.ExternalID,
		extracted.SourceURL,
		extracted.StreamURL,
		origin,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}
	return track, nil
}

// searchFirst returns the external ID of the first search candidate.
func (r *Resolver) searchFirst(ctx context.Context, query string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	candidates, err := r.search.Search(sctx, query, searchCandidates)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: search for %q", ErrResolveTimeout, query)
		}
		return "", fmt.Errorf("%w: search: %w", ErrResolveFailed, err)
	}
	if len(candidates) == 0 || candidates[0].ExternalID == "" {
		return "", fmt.Errorf("%w: %q", ErrNoResults, query)
	}

	slog.Debug("search hit", "query", query, "video", candidates[0].ExternalID)
	return candidates[0].ExternalID, nil
}

// extract resolves the URL to full metadata under the extraction timeout
// and maps collaborator failures onto the resolution error taxonomy.
func (r *Resolver) extract(ctx context.Context, url string) (*ports.ExtractedTrack, error) {
	ectx, cancel := context.WithTimeout(ctx, r.extractTimeout)
	defer cancel()

	extracted, err := r.extractor.Extract(ectx, url)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: extraction of %s", ErrResolveTimeout, url)
		case errors.Is(err, ports.ErrRestricted):
			return nil, fmt.Errorf("%w: %s", ErrRestricted, url)
		case errors.Is(err, ports.ErrNoCandidates), errors.Is(err, ports.ErrUnavailable):
			return nil, fmt.Errorf("%w: %s", ErrNoResults, url)
		default:
			return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
		}
	}
	return extracted, nil
}

// WatchURL builds the canonical watch URL for an external ID.
func WatchURL(externalID string) string {
	return "https://www.youtube.com/watch?v=" + externalID
}

// isDirectURL reports whether the query is already a recognizable track
// locator, in which case search is skipped.
func isDirectURL(query string) bool {
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		return false
	}
	return strings.Contains(query, "youtube.com/watch") ||
		strings.Contains(query, "youtu.be/") ||
		strings.Contains(query, "music.youtube.com/")
}
