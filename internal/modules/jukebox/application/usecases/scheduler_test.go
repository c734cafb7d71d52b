package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

type schedulerFixture struct {
	scheduler  *Scheduler
	manager    *Manager
	controller *Controller
	voice      *mockVoice
	clock      time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	mf := newManagerFixture(t)
	ctrl := mf.manager.Register(ports.GuildSettings{GuildID: 1, ChannelID: 2, MessageID: 3})

	f := &schedulerFixture{
		manager:    mf.manager,
		controller: ctrl,
		voice:      mf.voice,
		clock:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.scheduler = NewScheduler(mf.manager, SchedulerConfig{
		TickInterval: time.Second,
		GracePeriod:  300 * time.Second,
	})
	f.scheduler.now = func() time.Time { return f.clock }
	return f
}

func (f *schedulerFixture) tick() {
	f.scheduler.tick(context.Background())
}

func (f *schedulerFixture) advanceClock(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *schedulerFixture) join(t *testing.T) {
	t.Helper()
	if err := f.voice.Join(context.Background(), 1, 99); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	f.voice.setHumans(1, 1)
}

func TestSchedulerStartsNextReadyTrack(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()
	player.EnqueueReady(mustReadyTrack(t, "a"), mustReadyTrack(t, "b"))

	f.tick()

	current := player.Current()
	if current == nil || current.ExternalID() != "a" {
		t.Fatal("expected track a to start")
	}
	if !f.voice.IsPlaying(1) {
		t.Error("expected playback to be active")
	}

	// Further ticks do not start another track while one plays.
	f.tick()
	if got := f.voice.playedURLs(); len(got) != 1 {
		t.Fatalf("expected 1 playback start, got %d", len(got))
	}

	// Natural end of playback advances on the next tick.
	f.voice.endPlayback(1, nil)
	if player.Current() != nil {
		t.Error("expected current cleared by the end callback")
	}
	f.tick()
	current = player.Current()
	if current == nil || current.ExternalID() != "b" {
		t.Fatal("expected track b to start after a ended")
	}
}

func TestSchedulerSkipsResolvingPlaceholders(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()

	handle := player.EnqueuePlaceholder("still resolving", snowflake.ID(42))
	player.EnqueueReady(mustReadyTrack(t, "ready"))

	f.tick()

	current := player.Current()
	if current == nil || current.ExternalID() != "ready" {
		t.Fatal("expected the ready track to start ahead of the placeholder")
	}
	// The placeholder kept its queue position.
	pending := player.Snapshot().Pending
	if len(pending) != 1 || pending[0].IsReady() {
		t.Fatal("expected the placeholder to remain pending")
	}

	player.DiscardPlaceholder(handle)
}

func TestSchedulerNotConnectedDoesNothing(t *testing.T) {
	f := newSchedulerFixture(t)
	player := f.controller.Player()
	player.EnqueueReady(mustReadyTrack(t, "a"))

	f.tick()

	if player.Current() != nil {
		t.Error("expected no playback start while disconnected")
	}
}

func TestSchedulerDiscardsTrackOnStartFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()
	player.EnqueueReady(mustReadyTrack(t, "broken"), mustReadyTrack(t, "good"))

	f.voice.playErr = errors.New("stream URL rejected")
	f.tick()

	if player.Current() != nil {
		t.Error("expected the failed track to be discarded")
	}
	if got := player.Snapshot().PendingCount; got != 1 {
		t.Fatalf("expected only the good track to remain, got %d pending", got)
	}

	// The failed track is never retried; the next tick moves on.
	f.voice.playErr = nil
	f.tick()
	current := player.Current()
	if current == nil || current.ExternalID() != "good" {
		t.Fatal("expected the next track to start on the following tick")
	}
}

func TestSchedulerPlaybackErrorStillAdvances(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()
	player.EnqueueReady(mustReadyTrack(t, "a"), mustReadyTrack(t, "b"))

	f.tick()
	f.voice.endPlayback(1, errors.New("stream cut out"))

	if player.Current() != nil {
		t.Error("expected current cleared after an errored playback")
	}
	f.tick()
	current := player.Current()
	if current == nil || current.ExternalID() != "b" {
		t.Fatal("expected the queue to advance past the errored track")
	}
}

func TestSchedulerAutoDisconnectAfterGracePeriod(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	f.voice.setHumans(1, 0)

	// First lonely observation starts the grace timer.
	f.tick()
	if !f.voice.Connected(1) {
		t.Fatal("expected no disconnect on the first lonely tick")
	}

	f.advanceClock(100 * time.Second)
	f.tick()
	if !f.voice.Connected(1) {
		t.Fatal("expected no disconnect before the grace period elapses")
	}

	f.advanceClock(200 * time.Second)
	f.tick()
	if f.voice.Connected(1) {
		t.Fatal("expected disconnect once the grace period elapsed")
	}
}

func TestSchedulerRejoinCancelsGracePeriod(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	f.voice.setHumans(1, 0)

	f.tick()
	f.advanceClock(250 * time.Second)

	// Someone rejoins before expiry; the timer resets.
	f.voice.setHumans(1, 1)
	f.tick()

	// Alone again: the grace period starts over from now.
	f.voice.setHumans(1, 0)
	f.tick()
	f.advanceClock(250 * time.Second)
	f.tick()
	if !f.voice.Connected(1) {
		t.Fatal("expected the rejoin to restart the grace period")
	}

	f.advanceClock(60 * time.Second)
	f.tick()
	if f.voice.Connected(1) {
		t.Fatal("expected disconnect after a full fresh grace period")
	}
}

func TestSchedulerNoDisconnectWhilePlaying(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()
	player.EnqueueReady(mustReadyTrack(t, "a"))

	f.tick()
	if !f.voice.IsPlaying(1) {
		t.Fatal("expected playback to start")
	}

	// Channel empties mid-track; playback keeps the connection alive.
	f.voice.setHumans(1, 0)
	f.advanceClock(600 * time.Second)
	f.tick()
	if !f.voice.Connected(1) {
		t.Error("expected no disconnect while a track is playing")
	}
}

func TestSchedulerNoDisconnectWithPendingTracks(t *testing.T) {
	f := newSchedulerFixture(t)
	f.join(t)
	player := f.controller.Player()
	player.EnqueuePlaceholder("still resolving", snowflake.ID(42))
	f.voice.setHumans(1, 0)

	f.tick()
	f.advanceClock(600 * time.Second)
	f.tick()
	if !f.voice.Connected(1) {
		t.Error("expected no disconnect while the queue is non-empty")
	}
}
