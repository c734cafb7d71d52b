package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// maxTitleLength bounds track titles for display.
const maxTitleLength = 95

// TrackStatus describes whether a queue entry is still being resolved or
// is ready for playback.
type TrackStatus int

const (
	// TrackResolving marks a placeholder entry whose resolution is still
	// in flight. It has no stream URL and is never selected for playback.
	TrackResolving TrackStatus = iota

	// TrackReady marks an entry with a confirmed playable stream URL.
	TrackReady
)

// TrackOrigin records how a track entered the queue.
type TrackOrigin int

const (
	// OriginUserRequest marks tracks typed into the music channel.
	OriginUserRequest TrackOrigin = iota

	// OriginMixExpansion marks tracks added by mix expansion.
	OriginMixExpansion
)

// Track is a single queue entry. Status transitions only forward:
// a placeholder is created as TrackResolving and either becomes TrackReady
// (via Resolve) or is removed from the queue. A TrackReady track always has
// a non-empty stream URL; a TrackResolving track never does.
type Track struct {
	title       string
	duration    time.Duration
	requestedBy snowflake.ID
	externalID  string
	sourceURL   string
	streamURL   string
	status      TrackStatus
	origin      TrackOrigin
}

// NewPlaceholder creates a TrackResolving entry for the given query.
// The query is used as the display title until resolution completes.
func NewPlaceholder(query string, requestedBy snowflake.ID) *Track {
	return &Track{
		title:       truncate(query, maxTitleLength),
		requestedBy: requestedBy,
		status:      TrackResolving,
		origin:      OriginUserRequest,
	}
}

// NewReadyTrack creates a TrackReady entry. Returns ErrMissingStreamURL if
// streamURL is empty, preserving the placeholder invariant at the type level.
func NewReadyTrack(
	title string,
	duration time.Duration,
	requestedBy snowflake.ID,
	externalID string,
	sourceURL string,
	streamURL string,
	origin TrackOrigin,
) (*Track, error) {
	if streamURL == "" {
		return nil, ErrMissingStreamURL
	}
	return &Track{
		title:       truncate(title, maxTitleLength),
		duration:    duration,
		requestedBy: requestedBy,
		externalID:  externalID,
		sourceURL:   sourceURL,
		streamURL:   streamURL,
		status:      TrackReady,
		origin:      origin,
	}, nil
}

// Title returns the display title.
func (t *Track) Title() string {
	return t.title
}

// Duration returns the track length, or 0 if unknown.
func (t *Track) Duration() time.Duration {
	return t.duration
}

// RequestedBy returns the requester's user ID.
func (t *Track) RequestedBy() snowflake.ID {
	return t.requestedBy
}

// ExternalID returns the provider-specific video ID.
func (t *Track) ExternalID() string {
	return t.externalID
}

// SourceURL returns the canonical locator used for dedup and mix seeding.
func (t *Track) SourceURL() string {
	return t.sourceURL
}

// StreamURL returns the direct playable locator. Empty while resolving.
func (t *Track) StreamURL() string {
	return t.streamURL
}

// Status returns the entry status.
func (t *Track) Status() TrackStatus {
	return t.status
}

// Origin returns how the track entered the queue.
func (t *Track) Origin() TrackOrigin {
	return t.origin
}

// IsReady reports whether the track is eligible for playback.
func (t *Track) IsReady() bool {
	return t.status == TrackReady
}

// ThumbnailURL returns the provider thumbnail for the track, or empty if
// the external ID is unknown.
func (t *Track) ThumbnailURL() string {
	if t.externalID == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + t.externalID + "/hqdefault.jpg"
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss.
func (t *Track) FormattedDuration() string {
	totalSeconds := int(t.duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
