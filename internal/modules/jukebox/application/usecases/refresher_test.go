package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefresherRendersOnSchedule(t *testing.T) {
	var renders atomic.Int32
	refresher := NewRefresher(
		func(context.Context) error {
			renders.Add(1)
			return nil
		},
		func() bool { return false },
		testRefresherConfig(),
	)
	refresher.Start()
	defer refresher.Close()

	refresher.Schedule()
	waitFor(t, func() bool { return renders.Load() >= 1 }, "scheduled render")
}

func TestRefresherCoalescesBursts(t *testing.T) {
	var renders atomic.Int32
	cfg := testRefresherConfig()
	cfg.IdleInterval = 50 * time.Millisecond

	refresher := NewRefresher(
		func(context.Context) error {
			renders.Add(1)
			return nil
		},
		func() bool { return false },
		cfg,
	)
	refresher.Start()
	defer refresher.Close()

	for range 20 {
		refresher.Schedule()
	}

	waitFor(t, func() bool { return renders.Load() >= 1 }, "first render of the burst")
	time.Sleep(20 * time.Millisecond)
	if got := renders.Load(); got > 2 {
		t.Errorf("expected the burst to collapse into at most 2 renders, got %d", got)
	}
}

func TestRefresherRetriesAfterFailure(t *testing.T) {
	var renders atomic.Int32
	refresher := NewRefresher(
		func(context.Context) error {
			if renders.Add(1) == 1 {
				return errors.New("rate limited")
			}
			return nil
		},
		func() bool { return false },
		testRefresherConfig(),
	)
	refresher.Start()
	defer refresher.Close()

	refresher.Schedule()

	// The failed render re-arms itself; the state change must eventually
	// land without another Schedule call.
	waitFor(t, func() bool { return renders.Load() >= 2 }, "retry after failed render")
}

func TestRefresherBackoffDelaysRetry(t *testing.T) {
	var renders atomic.Int32
	cfg := testRefresherConfig()
	cfg.BackoffBase = 40 * time.Millisecond
	cfg.BackoffMax = 40 * time.Millisecond

	refresher := NewRefresher(
		func(context.Context) error {
			renders.Add(1)
			return errors.New("still failing")
		},
		func() bool { return false },
		cfg,
	)
	refresher.Start()
	defer refresher.Close()

	refresher.Schedule()
	waitFor(t, func() bool { return renders.Load() >= 1 }, "first render")

	time.Sleep(20 * time.Millisecond)
	if got := renders.Load(); got != 1 {
		t.Errorf("expected the retry to wait out the backoff, got %d renders", got)
	}
	waitFor(t, func() bool { return renders.Load() >= 2 }, "retry after backoff")
}

func TestRefresherCloseStopsRendering(t *testing.T) {
	var renders atomic.Int32
	refresher := NewRefresher(
		func(context.Context) error {
			renders.Add(1)
			return nil
		},
		func() bool { return false },
		testRefresherConfig(),
	)
	refresher.Start()

	refresher.Schedule()
	waitFor(t, func() bool { return renders.Load() >= 1 }, "render before close")

	refresher.Close()
	refresher.Close() // idempotent

	before := renders.Load()
	refresher.Schedule()
	time.Sleep(20 * time.Millisecond)
	if renders.Load() != before {
		t.Error("expected no renders after close")
	}
}
