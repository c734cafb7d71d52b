package usecases

import "errors"

// Resolution errors. Background resolution recovers these at completion:
// the placeholder is removed and a short-lived notice is posted. They never
// escape to the scheduler.
var (
	// ErrNoResults is returned when search or extraction found nothing.
	ErrNoResults = errors.New("no results found")

	// ErrResolveTimeout is returned when search or extraction exceeded its
	// hard timeout.
	ErrResolveTimeout = errors.New("resolution timed out")

	// ErrRestricted is returned for age- or region-restricted content.
	ErrRestricted = errors.New("track is restricted")

	// ErrResolveFailed is the catch-all resolution failure.
	ErrResolveFailed = errors.New("failed to resolve track")
)

// Mix expansion errors.
var (
	// ErrSeedNotFound is returned when there is no seed track to expand from.
	ErrSeedNotFound = errors.New("no seed track to expand from")

	// ErrNothingToAdd is returned when no related track survives filtering.
	ErrNothingToAdd = errors.New("no related tracks to add")

	// ErrExpansionInProgress is returned for reentrant expansion of the
	// same seed.
	ErrExpansionInProgress = errors.New("mix expansion already in progress for this track")
)

// Control errors.
var (
	// ErrNoController is returned when a guild has no active player
	// controller.
	ErrNoController = errors.New("no active player for this guild")

	// ErrNotPlaying is returned when skip is requested with nothing playing.
	ErrNotPlaying = errors.New("nothing is currently playing")
)
