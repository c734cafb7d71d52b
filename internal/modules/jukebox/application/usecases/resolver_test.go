package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

func TestResolverResolveSearchPath(t *testing.T) {
	search := &mockSearch{
		candidates: []ports.SearchCandidate{{ExternalID: "vid-1", Title: "Track vid-1"}},
	}
	extractor := &mockExtractor{
		tracks: map[string]*ports.ExtractedTrack{
			WatchURL("vid-1"): extractedTrack("vid-1", 3*time.Minute),
		},
	}
	resolver := NewResolver(search, extractor, time.Second, time.Second)

	track, err := resolver.Resolve(
		context.Background(), "some song", snowflake.ID(42), domain.OriginUserRequest,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if track.ExternalID() != "vid-1" {
		t.Errorf("expected external ID vid-1, got %q", track.ExternalID())
	}
	if !track.IsReady() {
		t.Error("expected resolved track to be ready")
	}
	if track.RequestedBy() != snowflake.ID(42) {
		t.Errorf("expected requester 42, got %d", track.RequestedBy())
	}
	if track.Origin() != domain.OriginUserRequest {
		t.Errorf("expected user-request origin, got %v", track.Origin())
	}
	if search.calls != 1 {
		t.Errorf("expected 1 search call, got %d", search.calls)
	}
	if search.lastQuery != "some song" {
		t.Errorf("expected search query %q, got %q", "some song", search.lastQuery)
	}
}

func TestResolverResolveDirectURLSkipsSearch(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=vid-2",
		"https://youtu.be/vid-2",
		"https://music.youtube.com/watch?v=vid-2",
	}

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			search := &mockSearch{}
			extractor := &mockExtractor{
				tracks: map[string]*ports.ExtractedTrack{
					url: extractedTrack("vid-2", 2*time.Minute),
				},
			}
			resolver := NewResolver(search, extractor, time.Second, time.Second)

			track, err := resolver.Resolve(
				context.Background(), url, snowflake.ID(1), domain.OriginUserRequest,
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if track.ExternalID() != "vid-2" {
				t.Errorf("expected external ID vid-2, got %q", track.ExternalID())
			}
			if search.calls != 0 {
				t.Errorf("expected search to be skipped, got %d calls", search.calls)
			}
		})
	}
}

func TestResolverResolveNoSearchResults(t *testing.T) {
	cases := []struct {
		name       string
		candidates []ports.SearchCandidate
	}{
		{name: "empty result list", candidates: nil},
		{name: "candidate without ID", candidates: []ports.SearchCandidate{{Title: "x"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			search := &mockSearch{candidates: tc.candidates}
			resolver := NewResolver(search, &mockExtractor{}, time.Second, time.Second)

			_, err := resolver.Resolve(
				context.Background(), "obscure", snowflake.ID(1), domain.OriginUserRequest,
			)
			if !errors.Is(err, ErrNoResults) {
				t.Errorf("expected ErrNoResults, got %v", err)
			}
		})
	}
}

func TestResolverResolveSearchTimeout(t *testing.T) {
	search := &mockSearch{err: context.DeadlineExceeded}
	resolver := NewResolver(search, &mockExtractor{}, time.Second, time.Second)

	_, err := resolver.Resolve(
		context.Background(), "slow query", snowflake.ID(1), domain.OriginUserRequest,
	)
	if !errors.Is(err, ErrResolveTimeout) {
		t.Errorf("expected ErrResolveTimeout, got %v", err)
	}
}

func TestResolverResolveExtractionErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		extractErr error
		want       error
	}{
		{name: "restricted", extractErr: ports.ErrRestricted, want: ErrRestricted},
		{name: "unavailable", extractErr: ports.ErrUnavailable, want: ErrNoResults},
		{name: "no candidates", extractErr: ports.ErrNoCandidates, want: ErrNoResults},
		{name: "other failure", extractErr: errors.New("network down"), want: ErrResolveFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			extractor := &mockExtractor{extractErr: tc.extractErr}
			resolver := NewResolver(&mockSearch{}, extractor, time.Second, time.Second)

			_, err := resolver.Resolve(
				context.Background(),
				"https://www.youtube.com/watch?v=vid-3",
				snowflake.ID(1),
				domain.OriginUserRequest,
			)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestResolverResolveExtractionTimeout(t *testing.T) {
	extractor := &mockExtractor{
		tracks: map[string]*ports.ExtractedTrack{
			WatchURL("vid-4"): extractedTrack("vid-4", time.Minute),
		},
		extractDelay: 200 * time.Millisecond,
	}
	resolver := NewResolver(&mockSearch{}, extractor, time.Second, 10*time.Millisecond)

	_, err := resolver.Resolve(
		context.Background(),
		WatchURL("vid-4"),
		snowflake.ID(1),
		domain.OriginUserRequest,
	)
	if !errors.Is(err, ErrResolveTimeout) {
		t.Errorf("expected ErrResolveTimeout, got %v", err)
	}
}

func TestResolverResolveMissingStreamURL(t *testing.T) {
	extracted := extractedTrack("vid-5", time.Minute)
	extracted.StreamURL = ""
	extractor := &mockExtractor{
		tracks: map[string]*ports.ExtractedTrack{WatchURL("vid-5"): extracted},
	}
	resolver := NewResolver(&mockSearch{}, extractor, time.Second, time.Second)

	_, err := resolver.Resolve(
		context.Background(),
		WatchURL("vid-5"),
		snowflake.ID(1),
		domain.OriginUserRequest,
	)
	if !errors.Is(err, ErrResolveFailed) {
		t.Errorf("expected ErrResolveFailed, got %v", err)
	}
	if !errors.Is(err, domain.ErrMissingStreamURL) {
		t.Errorf("expected wrapped ErrMissingStreamURL, got %v", err)
	}
}
