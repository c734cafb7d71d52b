package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id   INTEGER PRIMARY KEY,
	channel_id INTEGER NOT NULL,
	message_id INTEGER NOT NULL
);`

// SQLiteSettingsStore persists per-guild channel wiring in SQLite.
// Only channel wiring is stored; queue state and stream URLs never are.
type SQLiteSettingsStore struct {
	db *sql.DB
}

// OpenSettingsStore opens (and migrates) the settings database at path.
func OpenSettingsStore(path string) (*SQLiteSettingsStore, error) {
	// WAL mode allows multiple readers and one writer.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}

	if _, err := db.Exec(settingsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating settings database: %w", err)
	}
	return &SQLiteSettingsStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteSettingsStore) Close() error {
	return s.db.Close()
}

// Get returns the guild's settings, or ports.ErrNotConfigured.
func (s *SQLiteSettingsStore) Get(
	ctx context.Context,
	guildID snowflake.ID,
) (*ports.GuildSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, message_id FROM guild_settings WHERE guild_id = ?`,
		int64(guildID))

	var channelID, messageID int64
	if err := row.Scan(&channelID, &messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotConfigured
		}
		return nil, fmt.Errorf("reading settings for guild %d: %w", guildID, err)
	}
	return &ports.GuildSettings{
		GuildID:   guildID,
		ChannelID: snowflake.ID(channelID),
		MessageID: snowflake.ID(messageID),
	}, nil
}

// Put inserts or replaces the guild's settings.
func (s *SQLiteSettingsStore) Put(ctx context.Context, settings ports.GuildSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, channel_id, message_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET
		 	channel_id = excluded.channel_id,
		 	message_id = excluded.message_id`,
		int64(settings.GuildID), int64(settings.ChannelID), int64(settings.MessageID))
	if err != nil {
		return fmt.Errorf("storing settings for guild %d: %w", settings.GuildID, err)
	}
	return nil
}

// Delete removes the guild's settings. Deleting an unknown guild is not
// an error.
func (s *SQLiteSettingsStore) Delete(ctx context.Context, guildID snowflake.ID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_settings WHERE guild_id = ?`, int64(guildID))
	if err != nil {
		return fmt.Errorf("deleting settings for guild %d: %w", guildID, err)
	}
	return nil
}

// List returns the settings of every configured guild.
func (s *SQLiteSettingsStore) List(ctx context.Context) ([]ports.GuildSettings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guild_id, channel_id, message_id FROM guild_settings`)
	if err != nil {
		return nil, fmt.Errorf("listing guild settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []ports.GuildSettings
	for rows.Next() {
		var guildID, channelID, messageID int64
		if err := rows.Scan(&guildID, &channelID, &messageID); err != nil {
			return nil, fmt.Errorf("scanning guild settings: %w", err)
		}
		result = append(result, ports.GuildSettings{
			GuildID:   snowflake.ID(guildID),
			ChannelID: snowflake.ID(channelID),
			MessageID: snowflake.ID(messageID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating guild settings: %w", err)
	}
	return result, nil
}

// Ensure SQLiteSettingsStore implements ports.SettingsStore.
var _ ports.SettingsStore = (*SQLiteSettingsStore)(nil)
