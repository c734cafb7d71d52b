package presentation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/application/usecases"
)

// EventHandlers handles Discord gateway events for the jukebox.
type EventHandlers struct {
	manager    *usecases.Manager
	settings   ports.SettingsStore
	notifier   ports.StatusNotifier
	voiceState ports.VoiceStateProvider
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(
	manager *usecases.Manager,
	settings ports.SettingsStore,
	notifier ports.StatusNotifier,
	voiceState ports.VoiceStateProvider,
) *EventHandlers {
	return &EventHandlers{
		manager:    manager,
		settings:   settings,
		notifier:   notifier,
		voiceState: voiceState,
	}
}

// HandleMessageCreate turns messages typed into a guild's request channel
// into track requests. The typed message is deleted either way so the
// channel stays a clean control surface.
func (h *EventHandlers) HandleMessageCreate(
	_ *discordgo.Session,
	event *discordgo.MessageCreate,
) {
	if event.Author == nil || event.Author.Bot || event.GuildID == "" {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}

	ctx := context.Background()
	ctrl, err := h.manager.GetOrCreate(ctx, guildID)
	if err != nil {
		if !errors.Is(err, ports.ErrNotConfigured) {
			slog.Warn("request channel lookup failed", "guild", guildID, "error", err)
		}
		return
	}

	channelID := ctrl.Player().ChannelID()
	if event.ChannelID != channelID.String() {
		return
	}

	messageID, err := snowflake.Parse(event.ID)
	if err == nil {
		if err := h.notifier.DeleteMessage(ctx, channelID, messageID); err != nil {
			slog.Debug("failed to delete request message", "guild", guildID, "error", err)
		}
	}

	query := strings.TrimSpace(event.Content)
	if query == "" {
		return
	}

	userID, err := snowflake.Parse(event.Author.ID)
	if err != nil {
		return
	}
	voiceChannelID, err := h.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil || voiceChannelID == 0 {
		h.notifier.SendNotice(ctx, channelID, "🔇 Join a voice channel first.")
		return
	}

	ctrl.HandleRequest(query, userID, voiceChannelID)
}

// HandleGuildDelete tears the guild down when the bot is removed from it.
func (h *EventHandlers) HandleGuildDelete(
	_ *discordgo.Session,
	event *discordgo.GuildDelete,
) {
	// Unavailable means an outage, not a removal.
	if event.Unavailable {
		return
	}

	guildID, err := snowflake.Parse(event.ID)
	if err != nil {
		return
	}

	ctx := context.Background()
	h.manager.Remove(ctx, guildID)
	if err := h.settings.Delete(ctx, guildID); err != nil {
		slog.Warn("failed to delete settings for removed guild",
			"guild", guildID, "error", err)
	}
	slog.Info("guild removed, configuration dropped", "guild", guildID)
}

// HandleVoiceStateUpdate refreshes the status message when the bot's own
// voice connection changes.
func (h *EventHandlers) HandleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if s.State.User == nil || event.UserID != s.State.User.ID {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}
	if ctrl, ok := h.manager.Get(guildID); ok {
		ctrl.ScheduleRefresh()
	}
}
