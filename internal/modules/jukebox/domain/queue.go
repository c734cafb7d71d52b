package domain

import "time"

// PlaceholderHandle identifies a queue entry across the lifetime of a
// background resolution. Handles are never reused within a queue.
type PlaceholderHandle uint64

type queueEntry struct {
	handle PlaceholderHandle
	track  *Track
}

// PendingQueue is the ordered list of tracks waiting for playback.
// Insertion order is display order. It is not safe for concurrent use;
// Player serializes access under its mutex.
type PendingQueue struct {
	entries    []queueEntry
	nextHandle PlaceholderHandle
}

// Len returns the number of pending entries.
func (q *PendingQueue) Len() int {
	return len(q.entries)
}

// IsEmpty returns true if no entries are pending.
func (q *PendingQueue) IsEmpty() bool {
	return len(q.entries) == 0
}

// Enqueue appends a track and returns its handle.
func (q *PendingQueue) Enqueue(track *Track) PlaceholderHandle {
	q.nextHandle++
	q.entries = append(q.entries, queueEntry{handle: q.nextHandle, track: track})
	return q.nextHandle
}

// Resolve swaps the entry identified by handle for the resolved track,
// preserving its queue position. Returns ErrPlaceholderGone if the entry
// was removed while resolution was in flight; callers discard the result
// in that case.
func (q *PendingQueue) Resolve(handle PlaceholderHandle, track *Track) error {
	for i, e := range q.entries {
		if e.handle == handle {
			q.entries[i].track = track
			return nil
		}
	}
	return ErrPlaceholderGone
}

// Discard removes the entry identified by handle, if it still exists.
func (q *PendingQueue) Discard(handle PlaceholderHandle) {
	for i, e := range q.entries {
		if e.handle == handle {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// RemoveAt removes and returns the entry at index. The index is validated
// here, at removal time: the queue may have mutated since the caller last
// rendered it, so an out-of-range index returns ErrTrackNotFound rather
// than panicking.
func (q *PendingQueue) RemoveAt(index int) (*Track, error) {
	if index < 0 || index >= len(q.entries) {
		return nil, ErrTrackNotFound
	}
	track := q.entries[index].track
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	return track, nil
}

// PopNextReady removes and returns the earliest TrackReady entry.
// TrackResolving entries are skipped in place: playback order is insertion
// order among ready tracks, and a still-resolving head never delays tracks
// behind it. Returns nil if nothing is ready.
func (q *PendingQueue) PopNextReady() *Track {
	for i, e := range q.entries {
		if e.track.IsReady() {
			track := e.track
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return track
		}
	}
	return nil
}

// Tracks returns a copy of the pending tracks in order.
func (q *PendingQueue) Tracks() []*Track {
	result := make([]*Track, len(q.entries))
	for i, e := range q.entries {
		result[i] = e.track
	}
	return result
}

// ContainsExternalID reports whether any pending entry has the given
// external ID. Used for mix-expansion dedup.
func (q *PendingQueue) ContainsExternalID(id string) bool {
	if id == "" {
		return false
	}
	for _, e := range q.entries {
		if e.track.ExternalID() == id {
			return true
		}
	}
	return false
}

// TotalDuration sums the durations of all pending entries.
func (q *PendingQueue) TotalDuration() time.Duration {
	var total time.Duration
	for _, e := range q.entries {
		total += e.track.Duration()
	}
	return total
}

// Clear removes all entries and returns how many were removed.
func (q *PendingQueue) Clear() int {
	n := len(q.entries)
	q.entries = nil
	return n
}
