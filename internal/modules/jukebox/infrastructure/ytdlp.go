package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

// audioFormat prefers webm audio so no re-container pass is needed.
const audioFormat = "bestaudio[ext=webm]/bestaudio"

// YtdlpExtractor resolves track metadata and direct stream URLs by
// shelling out to yt-dlp. Calls block for the lifetime of the child
// process; ctx bounds them.
type YtdlpExtractor struct{}

// NewYtdlpExtractor creates a new YtdlpExtractor.
func NewYtdlpExtractor() *YtdlpExtractor {
	return &YtdlpExtractor{}
}

// Extract resolves a URL to full metadata including a direct audio stream
// URL. The stream URL is short-lived; callers use it immediately.
func (e *YtdlpExtractor) Extract(ctx context.Context, url string) (*ports.ExtractedTrack, error) {
	res, err := ytdlp.New().
		Print("%(url)s\t%(title)s\t%(duration)s\t%(id)s\t%(webpage_url)s").
		Format(audioFormat).
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyExtractionError(res, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 5 || fields[0] == "" {
			continue
		}
		duration, _ := time.ParseDuration(fields[2] + "s")
		return &ports.ExtractedTrack{
			StreamURL:  fields[0],
			Title:      fields[1],
			Duration:   duration,
			ExternalID: fields[3],
			SourceURL:  fields[4],
		}, nil
	}
	return nil, ports.ErrNoCandidates
}

// Related lists up to limit entries from the auto-generated mix playlist
// seeded by the given video. The listing is flat: no stream URLs are
// resolved here.
func (e *YtdlpExtractor) Related(
	ctx context.Context,
	seedID string,
	limit int,
) ([]ports.RelatedEntry, error) {
	mixURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s&list=RD%s", seedID, seedID)

	res, err := ytdlp.New().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, mixURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyExtractionError(res, err)
	}

	entries := make([]ports.RelatedEntry, 0, limit)
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		duration, _ := time.ParseDuration(fields[2] + "s")
		entries = append(entries, ports.RelatedEntry{
			ExternalID: fields[0],
			Title:      fields[1],
			Duration:   duration,
		})
	}
	if len(entries) == 0 {
		return nil, ports.ErrNoCandidates
	}
	return entries, nil
}

// classifyExtractionError maps yt-dlp failures onto the port's failure
// classes. yt-dlp reports its reasons on stderr only, so this has to
// string-match.
func classifyExtractionError(res *ytdlp.Result, err error) error {
	stderr := ""
	if res != nil {
		stderr = strings.ToLower(res.Stderr)
	}

	switch {
	case strings.Contains(stderr, "sign in to confirm your age"),
		strings.Contains(stderr, "age-restricted"),
		strings.Contains(stderr, "drm"):
		return fmt.Errorf("%w: %w", ports.ErrRestricted, err)
	case strings.Contains(stderr, "video unavailable"),
		strings.Contains(stderr, "private video"),
		strings.Contains(stderr, "this live event"),
		strings.Contains(stderr, "has been removed"):
		return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
	default:
		return fmt.Errorf("yt-dlp: %w", err)
	}
}

// Ensure YtdlpExtractor implements ports.Extractor.
var _ ports.Extractor = (*YtdlpExtractor)(nil)
