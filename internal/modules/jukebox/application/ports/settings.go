package ports

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
)

// ErrNotConfigured is returned when a guild has no stored music channel.
var ErrNotConfigured = errors.New("guild has no music channel configured")

// GuildSettings is the persisted per-guild configuration: which text
// channel receives requests and which message is the live status UI.
type GuildSettings struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// SettingsStore persists guild settings across restarts. Stream URLs are
// deliberately not persisted anywhere; only channel wiring survives.
type SettingsStore interface {
	Get(ctx context.Context, guildID snowflake.ID) (*GuildSettings, error)
	Put(ctx context.Context, settings GuildSettings) error
	Delete(ctx context.Context, guildID snowflake.ID) error
	List(ctx context.Context) ([]GuildSettings, error)
}
