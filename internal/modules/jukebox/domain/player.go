package domain

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Player is the per-guild playback state: the pending queue plus at most
// one currently playing track. All mutations happen under a single mutex,
// which is held only across in-memory operations, never across network
// calls or UI renders.
type Player struct {
	mu sync.Mutex

	guildID   snowflake.ID
	channelID snowflake.ID // designated music text channel
	messageID snowflake.ID // live status message

	queue   PendingQueue
	current *Track

	emptySince time.Time // when the voice channel was last seen without humans
}

// NewPlayer creates a Player bound to the guild's music channel and status
// message.
func NewPlayer(guildID, channelID, messageID snowflake.ID) *Player {
	return &Player{
		guildID:   guildID,
		channelID: channelID,
		messageID: messageID,
	}
}

// GuildID returns the owning guild. Immutable after creation.
func (p *Player) GuildID() snowflake.ID {
	return p.guildID
}

// ChannelID returns the designated music text channel. Immutable after creation.
func (p *Player) ChannelID() snowflake.ID {
	return p.channelID
}

// MessageID returns the live status message. Immutable after creation.
func (p *Player) MessageID() snowflake.ID {
	return p.messageID
}

// EnqueuePlaceholder appends a TrackResolving entry for the query so the
// UI can show it before resolution completes.
func (p *Player) EnqueuePlaceholder(query string, requestedBy snowflake.ID) PlaceholderHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Enqueue(NewPlaceholder(query, requestedBy))
}

// ResolvePlaceholder swaps the placeholder for the resolved track,
// preserving its queue position. Returns ErrPlaceholderGone if the
// placeholder was removed while resolution was in flight.
func (p *Player) ResolvePlaceholder(handle PlaceholderHandle, track *Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Resolve(handle, track)
}

// DiscardPlaceholder removes the placeholder, if it still exists. Used
// when resolution fails.
func (p *Player) DiscardPlaceholder(handle PlaceholderHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.Discard(handle)
}

// EnqueueReady appends already-resolved tracks (mix expansion path).
// Tracks that are not ready are ignored.
func (p *Player) EnqueueReady(tracks ...*Track) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, t := range tracks {
		if t.IsReady() {
			p.queue.Enqueue(t)
			added++
		}
	}
	return added
}

// RemoveAt removes the pending entry at index, validating the index at
// removal time.
func (p *Player) RemoveAt(index int) (*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.RemoveAt(index)
}

// StartNext pops the earliest ready track and makes it current, in one
// step under the mutex so there is never more than one current track.
// Returns nil if nothing is ready or a track is already current.
func (p *Player) StartNext() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return nil
	}
	track := p.queue.PopNextReady()
	if track == nil {
		return nil
	}
	p.current = track
	return track
}

// Current returns the currently playing track, or nil.
func (p *Player) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ClearCurrent drops the current track (track end, skip, playback failure).
func (p *Player) ClearCurrent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
}

// ClearCurrentIf drops the current track only if it is still the given
// one. Playback-end callbacks use this so a late callback from an
// already-replaced playback never clears its successor's state.
func (p *Player) ClearCurrentIf(track *Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == track {
		p.current = nil
	}
}

// Clear empties the pending queue and the current track. Used by stop.
func (p *Player) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	return p.queue.Clear()
}

// HasPendingByExternalID reports whether the pending queue already holds a
// track with the given external ID.
func (p *Player) HasPendingByExternalID(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.ContainsExternalID(id)
}

// IsIdle reports whether nothing is current and nothing is pending.
func (p *Player) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil && p.queue.IsEmpty()
}

// MarkEmpty records the first moment the voice channel was observed with
// no human members. Subsequent calls keep the original timestamp.
func (p *Player) MarkEmpty(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.emptySince.IsZero() {
		p.emptySince = now
	}
}

// MarkOccupied resets the empty-channel timer, e.g. a human rejoined.
func (p *Player) MarkOccupied() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emptySince = time.Time{}
}

// EmptySince returns when the channel went empty, or the zero time if it
// is occupied.
func (p *Player) EmptySince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emptySince
}

// Snapshot is a point-in-time copy of player state for rendering. The
// mutex is released before the snapshot is used, so renders never block
// producers.
type Snapshot struct {
	Current      *Track
	Pending      []*Track
	PendingCount int
	TotalPending time.Duration
}

// Snapshot copies the state needed to render the status UI.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Current:      p.current,
		Pending:      p.queue.Tracks(),
		PendingCount: p.queue.Len(),
		TotalPending: p.queue.TotalDuration(),
	}
}
