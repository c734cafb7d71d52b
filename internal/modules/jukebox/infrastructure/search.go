package infrastructure

import (
	"context"
	"fmt"

	"github.com/ppalone/ytsearch"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

// YouTubeSearch resolves free-text queries against YouTube search.
type YouTubeSearch struct {
	client *ytsearch.Client
}

// NewYouTubeSearch creates a new YouTubeSearch.
func NewYouTubeSearch() *YouTubeSearch {
	return &YouTubeSearch{
		client: ytsearch.NewClient(nil),
	}
}

// Search returns up to limit candidates for the query.
func (s *YouTubeSearch) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]ports.SearchCandidate, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	candidates := make([]ports.SearchCandidate, 0, limit)
	for _, video := range res.Results {
		if video.VideoID == "" {
			continue
		}
		candidates = append(candidates, ports.SearchCandidate{
			ExternalID: video.VideoID,
			Title:      video.Title,
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

// Ensure YouTubeSearch implements ports.SearchProvider.
var _ ports.SearchProvider = (*YouTubeSearch)(nil)
