package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

// VoiceStateProvider answers voice presence questions from gateway state.
type VoiceStateProvider struct {
	session *discordgo.Session
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{session: session}
}

// UserVoiceChannel returns the voice channel the user is in, or 0.
func (v *VoiceStateProvider) UserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0, fmt.Errorf("guild %d not in state: %w", guildID, err)
	}

	v.session.State.RLock()
	defer v.session.State.RUnlock()
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			return snowflake.Parse(vs.ChannelID)
		}
	}
	return 0, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
