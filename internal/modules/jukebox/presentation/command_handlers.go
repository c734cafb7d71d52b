package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/bot"
	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x2ECC71
	colorError   = 0xE74C3C
)

// defaultMixCount is how many tracks /mix adds when no count is given.
const defaultMixCount = 10

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	manager    *usecases.Manager
	settings   ports.SettingsStore
	notifier   ports.StatusNotifier
	voiceState ports.VoiceStateProvider
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	manager *usecases.Manager,
	settings ports.SettingsStore,
	notifier ports.StatusNotifier,
	voiceState ports.VoiceStateProvider,
) *CommandHandlers {
	return &CommandHandlers{
		manager:    manager,
		settings:   settings,
		notifier:   notifier,
		voiceState: voiceState,
	}
}

// HandleSetup handles the /setup command: it posts the status message in
// the chosen channel and registers the guild.
func (h *CommandHandlers) HandleSetup(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid channel")
	}
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			channelID, err = snowflake.Parse(opt.ChannelValue(s).ID)
			if err != nil {
				return respondError(r, "Invalid channel")
			}
		}
	}

	// Drop the previous status message if the guild was already set up.
	if old, err := h.settings.Get(ctx, guildID); err == nil {
		if err := h.notifier.DeleteMessage(ctx, old.ChannelID, old.MessageID); err != nil {
			slog.Debug("failed to delete previous status message",
				"guild", guildID, "error", err)
		}
	}

	messageID, err := h.notifier.CreateStatusMessage(ctx, channelID)
	if err != nil {
		return respondError(r, fmt.Sprintf("Couldn't post in <#%d>: %v", channelID, err))
	}

	settings := ports.GuildSettings{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
	}
	if err := h.settings.Put(ctx, settings); err != nil {
		return respondError(r, "Failed to save the configuration")
	}
	h.manager.Register(settings)

	slog.Info("guild set up", "guild", guildID, "channel", channelID)
	return respondSuccess(r, fmt.Sprintf(
		"Jukebox is ready. Type a song name or link in <#%d> to queue it.", channelID))
}

// HandleTeardown handles the /teardown command.
func (h *CommandHandlers) HandleTeardown(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	settings, err := h.settings.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return respondError(r, "This server has no jukebox set up.")
		}
		return respondError(r, "Failed to load the configuration")
	}

	h.manager.Remove(ctx, guildID)
	if err := h.notifier.DeleteMessage(ctx, settings.ChannelID, settings.MessageID); err != nil {
		slog.Debug("failed to delete status message", "guild", guildID, "error", err)
	}
	if err := h.settings.Delete(ctx, guildID); err != nil {
		return respondError(r, "Failed to remove the configuration")
	}

	slog.Info("guild torn down", "guild", guildID)
	return respondSuccess(r, "Jukebox removed. Run /setup to bring it back.")
}

// HandleInfo handles the /info command.
func (h *CommandHandlers) HandleInfo(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	ctrl, ok := h.manager.Get(guildID)
	if !ok {
		return respondSuccess(r, "Nothing going on right now.")
	}

	status := ctrl.Status()
	var description string
	if status.Current != nil {
		description = fmt.Sprintf("Now playing [%s](%s) — %s.",
			status.Current.Title(),
			status.Current.SourceURL(),
			status.Current.FormattedDuration())
	} else {
		description = "Nothing playing."
	}
	if status.PendingCount > 0 {
		description += fmt.Sprintf(" %d track(s) queued (%s).",
			status.PendingCount, status.TotalPending.Round(time.Second))
	}

	return respondSuccess(r, description)
}

// HandleMix handles the /mix command. Expansion runs detached; the
// interaction is answered immediately and progress shows up on the
// status message as batches land.
func (h *CommandHandlers) HandleMix(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}
	if i.Member == nil || i.Member.User == nil {
		return respondError(r, "This command only works in a server.")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	count := defaultMixCount
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}

	ctrl, err := h.manager.GetOrCreate(ctx, guildID)
	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return respondError(r, "Run /setup first.")
		}
		return respondError(r, "The jukebox channel is unavailable; run /setup again.")
	}

	voiceChannelID, err := h.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil || voiceChannelID == 0 {
		return respondError(r, "Join a voice channel first.")
	}
	ctrl.Connect(voiceChannelID)

	go func() {
		added, err := ctrl.ExpandMix(context.Background(), "", count, userID)
		channelID := ctrl.Player().ChannelID()
		if err != nil {
			h.notifier.SendNotice(context.Background(), channelID, mixNotice(err))
			return
		}
		h.notifier.SendNotice(context.Background(), channelID,
			fmt.Sprintf("🎶 Added %d track(s) to the mix.", added))
	}()

	return respondSuccess(r, fmt.Sprintf("Looking for up to %d similar tracks…", count))
}

func mixNotice(err error) string {
	switch {
	case errors.Is(err, usecases.ErrSeedNotFound):
		return "❌ Play something first, then ask for a mix."
	case errors.Is(err, usecases.ErrNothingToAdd):
		return "❌ Couldn't find similar tracks to add."
	case errors.Is(err, usecases.ErrExpansionInProgress):
		return "⏳ A mix for this track is already being built."
	default:
		return "❌ Something went wrong while building the mix."
	}
}

func respondSuccess(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorSuccess,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}
