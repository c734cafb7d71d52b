package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

// ControllerConfig holds the per-guild controller tunables.
type ControllerConfig struct {
	// ResolveWorkers bounds concurrent search/extraction per guild. Kept
	// small: it limits outbound load while still keeping slow extractions
	// off the scheduling path.
	ResolveWorkers int

	Refresher RefresherConfig
}

// Controller drives one guild's queue: it accepts requests, runs
// resolutions on a bounded worker pool, and exposes the control surface
// (skip, stop, status, removal, mix expansion). The scheduler advances
// playback; the controller never plays inline.
type Controller struct {
	player   *domain.Player
	voice    ports.VoiceGateway
	notifier ports.StatusNotifier
	resolver *Resolver
	expander *MixExpander

	refresher  *Refresher
	resolveSem chan struct{}

	// ctx outlives any single request: background resolutions belong to
	// the controller, not to the message that triggered them.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates and starts a controller for the given player.
func NewController(
	player *domain.Player,
	voice ports.VoiceGateway,
	notifier ports.StatusNotifier,
	resolver *Resolver,
	expander *MixExpander,
	cfg ControllerConfig,
) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	workers := cfg.ResolveWorkers
	if workers < 1 {
		workers = 1
	}

	c := &Controller{
		player:     player,
		voice:      voice,
		notifier:   notifier,
		resolver:   resolver,
		expander:   expander,
		resolveSem: make(chan struct{}, workers),
		ctx:        ctx,
		cancel:     cancel,
	}

	guildID := player.GuildID()
	c.refresher = NewRefresher(
		func(rctx context.Context) error {
			return notifier.PublishStatus(
				rctx,
				player.ChannelID(),
				player.MessageID(),
				player.Snapshot(),
				voice.Connected(guildID),
			)
		},
		func() bool { return voice.IsPlaying(guildID) },
		cfg.Refresher,
	)
	c.refresher.Start()

	return c
}

// Player exposes the guild state to the scheduler.
func (c *Controller) Player() *domain.Player {
	return c.player
}

// ScheduleRefresh requests a status message update.
func (c *Controller) ScheduleRefresh() {
	c.refresher.Schedule()
}

// HandleRequest accepts a typed query: a placeholder appears in the queue
// immediately, and resolution runs as a detached background unit of work
// on the worker pool. voiceChannelID is where the requester currently is;
// the bot joins it in parallel.
func (c *Controller) HandleRequest(query string, requestedBy, voiceChannelID snowflake.ID) {
	handle := c.player.EnqueuePlaceholder(query, requestedBy)
	c.refresher.Schedule()

	go c.resolveAndApply(handle, query, requestedBy)
	go c.ensureVoice(voiceChannelID)
}

// resolveAndApply is the background half of HandleRequest. The result is
// applied under the player's mutex; if the placeholder was removed while
// resolution was in flight, the result is discarded silently.
func (c *Controller) resolveAndApply(
	handle domain.PlaceholderHandle,
	query string,
	requestedBy snowflake.ID,
) {
	select {
	case c.resolveSem <- struct{}{}:
		defer func() { <-c.resolveSem }()
	case <-c.ctx.Done():
		return
	}

	track, err := c.resolver.Resolve(c.ctx, query, requestedBy, domain.OriginUserRequest)
	if err != nil {
		c.player.DiscardPlaceholder(handle)
		c.refresher.Schedule()
		if !errors.Is(err, context.Canceled) {
			slog.Warn("resolution failed",
				"guild", c.player.GuildID(), "query", query, "error", err)
			c.notifier.SendNotice(c.ctx, c.player.ChannelID(), resolveNotice(query, err))
		}
		return
	}

	if err := c.player.ResolvePlaceholder(handle, track); err != nil {
		// Removed while we were resolving; drop the result.
		slog.Debug("discarding late resolution",
			"guild", c.player.GuildID(), "track", track.Title())
		return
	}

	slog.Info("track queued",
		"guild", c.player.GuildID(), "track", track.Title(), "video", track.ExternalID())
	c.refresher.Schedule()
}

// Connect joins the given voice channel in the background.
func (c *Controller) Connect(voiceChannelID snowflake.ID) {
	go c.ensureVoice(voiceChannelID)
}

func (c *Controller) ensureVoice(channelID snowflake.ID) {
	if channelID == 0 {
		return
	}
	if err := c.voice.Join(c.ctx, c.player.GuildID(), channelID); err != nil {
		slog.Error("voice join failed",
			"guild", c.player.GuildID(), "channel", channelID, "error", err)
	}
}

// ExpandMix bulk-enqueues tracks related to the current track (or an
// explicit seed). Blocking; callers run it off the interaction path.
func (c *Controller) ExpandMix(
	ctx context.Context,
	seedID string,
	count int,
	requestedBy snowflake.ID,
) (int, error) {
	if seedID == "" {
		current := c.player.Current()
		if current == nil {
			return 0, ErrSeedNotFound
		}
		seedID = current.ExternalID()
	}
	return c.expander.Expand(
		ctx, c.player, seedID, count, requestedBy, c.refresher.Schedule,
	)
}

// Skip stops the current track. Advancement happens through the playback
// end callback and the next scheduler tick. Returns true if a track was
// actually playing.
func (c *Controller) Skip() bool {
	return c.voice.Stop(c.player.GuildID())
}

// Stop clears the queue, aborts playback and disconnects from voice.
func (c *Controller) Stop(ctx context.Context) {
	guildID := c.player.GuildID()
	c.player.Clear()
	c.voice.Stop(guildID)
	if err := c.voice.Leave(ctx, guildID); err != nil {
		slog.Warn("voice leave failed", "guild", guildID, "error", err)
	}
	c.refresher.Schedule()
}

// RemoveAt removes the pending entry at index. A stale index returns
// domain.ErrTrackNotFound.
func (c *Controller) RemoveAt(index int) (*domain.Track, error) {
	track, err := c.player.RemoveAt(index)
	if err != nil {
		return nil, err
	}
	c.refresher.Schedule()
	return track, nil
}

// Status is the external status view of one guild.
type Status struct {
	Current      *domain.Track
	PendingCount int
	TotalPending time.Duration
	IsPlaying    bool
	Connected    bool
}

// Status reports the guild's playback state.
func (c *Controller) Status() Status {
	snap := c.player.Snapshot()
	guildID := c.player.GuildID()
	return Status{
		Current:      snap.Current,
		PendingCount: snap.PendingCount,
		TotalPending: snap.TotalPending,
		IsPlaying:    c.voice.IsPlaying(guildID),
		Connected:    c.voice.Connected(guildID),
	}
}

// QueueList returns the pending tracks in display order.
func (c *Controller) QueueList() []*domain.Track {
	return c.player.Snapshot().Pending
}

// Close tears the controller down: playback stops, the voice connection
// is released, in-flight resolutions are cancelled and the refresher
// drains.
func (c *Controller) Close(ctx context.Context) {
	c.cancel()
	c.player.Clear()
	guildID := c.player.GuildID()
	c.voice.Stop(guildID)
	if err := c.voice.Leave(ctx, guildID); err != nil {
		slog.Warn("voice leave failed during teardown", "guild", guildID, "error", err)
	}
	c.refresher.Close()
}

// resolveNotice maps a resolution error to the short-lived notice text.
func resolveNotice(query string, err error) string {
	switch {
	case errors.Is(err, ErrNoResults):
		return fmt.Sprintf("❌ Couldn't find anything for %q.", query)
	case errors.Is(err, ErrResolveTimeout):
		return fmt.Sprintf("⌛ Searching for %q took too long, try again.", query)
	case errors.Is(err, ErrRestricted):
		return fmt.Sprintf("🔒 %q is restricted and can't be played.", query)
	default:
		return fmt.Sprintf("❌ Something went wrong while adding %q.", query)
	}
}
