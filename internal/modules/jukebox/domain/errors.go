package domain

import "errors"

var (
	// ErrMissingStreamURL is returned when constructing a ready track
	// without a stream URL.
	ErrMissingStreamURL = errors.New("ready track requires a stream URL")

	// ErrTrackNotFound is returned when an index no longer points at a
	// queue entry. Stale UI selections land here, not in a panic.
	ErrTrackNotFound = errors.New("track not found in queue")

	// ErrPlaceholderGone is returned when a placeholder handle no longer
	// exists in the queue, e.g. it was removed while resolution was in
	// flight.
	ErrPlaceholderGone = errors.New("placeholder no longer in queue")
)
