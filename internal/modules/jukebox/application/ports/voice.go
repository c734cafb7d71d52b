package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceGateway owns the voice connections and the audio pipeline behind
// them. Each guild has at most one connection, owned exclusively by that
// guild's controller.
type VoiceGateway interface {
	// Join connects to (or moves into) the given voice channel.
	Join(ctx context.Context, guildID, channelID snowflake.ID) error

	// Leave disconnects the guild's voice connection, if any.
	Leave(ctx context.Context, guildID snowflake.ID) error

	// Connected reports whether the guild has an open voice connection.
	Connected(guildID snowflake.ID) bool

	// IsPlaying reports whether audio is currently being sent.
	IsPlaying(guildID snowflake.ID) bool

	// Play starts streaming the given locator into the guild's voice
	// connection. onEnd is invoked exactly once from a detached goroutine
	// when playback finishes or fails; it must not be called inline.
	Play(ctx context.Context, guildID snowflake.ID, streamURL string, onEnd func(error)) error

	// Stop aborts the current playback, if any. Returns true if something
	// was playing. The aborted playback's onEnd still fires.
	Stop(guildID snowflake.ID) bool

	// HumanCount returns the number of non-bot members in the voice
	// channel the bot currently occupies.
	HumanCount(guildID snowflake.ID) (int, error)
}
