package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/application/usecases"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
	"github.com/soramiya/jukebox/internal/modules/jukebox/infrastructure"
)

// ComponentHandlers handles button and select interactions on the status
// message.
type ComponentHandlers struct {
	manager    *usecases.Manager
	voiceState ports.VoiceStateProvider
	voice      ports.VoiceGateway
}

// NewComponentHandlers creates a new ComponentHandlers.
func NewComponentHandlers(
	manager *usecases.Manager,
	voiceState ports.VoiceStateProvider,
	voice ports.VoiceGateway,
) *ComponentHandlers {
	return &ComponentHandlers{
		manager:    manager,
		voiceState: voiceState,
		voice:      voice,
	}
}

// HandleInteraction routes component interactions by custom ID. Unknown
// IDs are ignored so other modules can use components too.
func (c *ComponentHandlers) HandleInteraction(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	switch customID {
	case infrastructure.CustomIDSkip, infrastructure.CustomIDStop, infrastructure.CustomIDRemove:
	default:
		return
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return
	}
	ctrl, ok := c.manager.Get(guildID)
	if !ok {
		c.acknowledge(s, i)
		return
	}

	if !c.mayControl(guildID, i.Member) {
		c.respondEphemeral(s, i, "🔇 Join the voice channel to control playback.")
		return
	}

	switch customID {
	case infrastructure.CustomIDSkip:
		if ctrl.Skip() {
			c.acknowledge(s, i)
		} else {
			c.respondEphemeral(s, i, "Nothing is playing.")
		}
	case infrastructure.CustomIDStop:
		ctrl.Stop(context.Background())
		c.acknowledge(s, i)
	case infrastructure.CustomIDRemove:
		c.handleRemove(s, i, ctrl)
	}
}

func (c *ComponentHandlers) handleRemove(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	ctrl *usecases.Controller,
) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		c.acknowledge(s, i)
		return
	}
	index, err := strconv.Atoi(values[0])
	if err != nil {
		c.acknowledge(s, i)
		return
	}

	track, err := ctrl.RemoveAt(index)
	if err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			// The queue moved since the menu was rendered.
			c.respondEphemeral(s, i, "That track is no longer in the queue.")
			return
		}
		slog.Warn("queue removal failed", "error", err)
		c.acknowledge(s, i)
		return
	}
	c.respondEphemeral(s, i, fmt.Sprintf("Removed **%s**.", track.Title()))
}

// mayControl gates playback controls: the member must share the bot's
// voice channel or hold manage-messages.
func (c *ComponentHandlers) mayControl(guildID snowflake.ID, member *discordgo.Member) bool {
	if member == nil || member.User == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionManageMessages != 0 {
		return true
	}

	userID, err := snowflake.Parse(member.User.ID)
	if err != nil {
		return false
	}
	channelID, err := c.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil || channelID == 0 {
		return false
	}
	return c.voice.Connected(guildID)
}

func (c *ComponentHandlers) acknowledge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		slog.Debug("failed to acknowledge component interaction", "error", err)
	}
}

func (c *ComponentHandlers) respondEphemeral(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	message string,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Debug("failed to respond to component interaction", "error", err)
	}
}
