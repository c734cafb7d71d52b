package ports

import "github.com/disgoorg/snowflake/v2"

// VoiceStateProvider looks up user voice presence from gateway state.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel the user currently
	// occupies in the guild, or 0 if they are not in one.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}
