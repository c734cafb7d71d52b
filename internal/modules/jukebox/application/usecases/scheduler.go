package usecases

import (
	"context"
	"log/slog"
	"time"
)

// SchedulerConfig holds the playback loop tunables.
type SchedulerConfig struct {
	// TickInterval is the polling period of the playback loop.
	TickInterval time.Duration

	// GracePeriod is how long a voice channel may stay without human
	// members before the bot disconnects.
	GracePeriod time.Duration
}

// Scheduler is the single playback loop: a fixed-interval tick iterating
// every guild controller. Each tick it starts the next ready track on
// connected, idle guilds and tears down connections whose channels stayed
// empty past the grace period. The tick itself never blocks on anything
// unbounded; resolution and extraction run elsewhere.
type Scheduler struct {
	manager *Manager
	cfg     SchedulerConfig

	now func() time.Time

	done chan struct{}
}

// NewScheduler creates a Scheduler over the manager's controllers.
func NewScheduler(manager *Manager, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		manager: manager,
		cfg:     cfg,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Run ticks until ctx is cancelled. Call from a dedicated goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Done is closed when the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// tick processes every guild once. A failure in one guild never prevents
// the remaining guilds from being processed.
func (s *Scheduler) tick(ctx context.Context) {
	for _, ctrl := range s.manager.Controllers() {
		s.step(ctx, ctrl)
	}
}

func (s *Scheduler) step(ctx context.Context, ctrl *Controller) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler step panicked",
				"guild", ctrl.Player().GuildID(), "panic", r)
		}
	}()

	player := ctrl.Player()
	guildID := player.GuildID()

	if !ctrl.voice.Connected(guildID) {
		player.MarkOccupied()
		return
	}

	if s.checkAutoDisconnect(ctx, ctrl) {
		return
	}

	s.advance(ctx, ctrl)
}

// checkAutoDisconnect handles the empty-channel grace period. The timer
// starts when the bot is alone with nothing playing or pending, and the
// same condition is re-checked at expiry so a momentary empty room never
// tears the connection down. Returns true if it disconnected.
func (s *Scheduler) checkAutoDisconnect(ctx context.Context, ctrl *Controller) bool {
	player := ctrl.Player()
	guildID := player.GuildID()

	humans, err := ctrl.voice.HumanCount(guildID)
	if err != nil {
		slog.Debug("voice occupancy check failed", "guild", guildID, "error", err)
		return false
	}

	lonelyAndIdle := humans == 0 && player.IsIdle() && !ctrl.voice.IsPlaying(guildID)
	if !lonelyAndIdle {
		player.MarkOccupied()
		return false
	}

	emptySince := player.EmptySince()
	if emptySince.IsZero() {
		player.MarkEmpty(s.now())
		return false
	}
	if s.now().Sub(emptySince) < s.cfg.GracePeriod {
		return false
	}

	slog.Info("voice channel empty past grace period, disconnecting", "guild", guildID)
	player.MarkOccupied()
	if err := ctrl.voice.Leave(ctx, guildID); err != nil {
		slog.Warn("auto-disconnect failed", "guild", guildID, "error", err)
	}
	ctrl.ScheduleRefresh()
	return true
}

// advance starts the next ready track when the guild is connected and
// idle. A start failure discards the track and the loop simply tries the
// next ready one on a later tick; a bad stream URL would fail identically
// on retry, so tracks are never retried.
func (s *Scheduler) advance(ctx context.Context, ctrl *Controller) {
	player := ctrl.Player()
	guildID := player.GuildID()

	if ctrl.voice.IsPlaying(guildID) {
		return
	}

	track := player.StartNext()
	if track == nil {
		return
	}

	err := ctrl.voice.Play(ctx, guildID, track.StreamURL(), func(playErr error) {
		if playErr != nil {
			slog.Warn("playback ended with error",
				"guild", guildID, "track", track.Title(), "error", playErr)
		}
		// Always advance, even after an error: a bad track never wedges
		// the guild.
		player.ClearCurrentIf(track)
		ctrl.ScheduleRefresh()
	})
	if err != nil {
		slog.Error("playback start failed, discarding track",
			"guild", guildID, "track", track.Title(), "error", err)
		player.ClearCurrentIf(track)
		ctrl.ScheduleRefresh()
		return
	}

	slog.Info("playback started", "guild", guildID, "track", track.Title())
	ctrl.ScheduleRefresh()
}
