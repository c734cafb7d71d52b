package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

func newTestStore(t *testing.T) *SQLiteSettingsStore {
	t.Helper()
	store, err := OpenSettingsStore(":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSettingsStorePutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stored := ports.GuildSettings{GuildID: 1, ChannelID: 2, MessageID: 3}
	if err := store.Put(ctx, stored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, snowflake.ID(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != stored {
		t.Errorf("expected %+v, got %+v", stored, *got)
	}
}

func TestSettingsStoreGetNotConfigured(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), snowflake.ID(404))
	if !errors.Is(err, ports.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSettingsStorePutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, ports.GuildSettings{GuildID: 1, ChannelID: 2, MessageID: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated := ports.GuildSettings{GuildID: 1, ChannelID: 20, MessageID: 30}
	if err := store.Put(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, snowflake.ID(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != updated {
		t.Errorf("expected %+v, got %+v", updated, *got)
	}
}

func TestSettingsStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, ports.GuildSettings{GuildID: 1, ChannelID: 2, MessageID: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, snowflake.ID(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Get(ctx, snowflake.ID(1)); !errors.Is(err, ports.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured after delete, got %v", err)
	}

	// Deleting an unknown guild is a no-op.
	if err := store.Delete(ctx, snowflake.ID(404)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSettingsStoreList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	guilds := []ports.GuildSettings{
		{GuildID: 1, ChannelID: 2, MessageID: 3},
		{GuildID: 4, ChannelID: 5, MessageID: 6},
	}
	for _, g := range guilds {
		if err := store.Put(ctx, g); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 guilds, got %d", len(listed))
	}

	byGuild := make(map[snowflake.ID]ports.GuildSettings, len(listed))
	for _, g := range listed {
		byGuild[g.GuildID] = g
	}
	for _, want := range guilds {
		if got, ok := byGuild[want.GuildID]; !ok || got != want {
			t.Errorf("expected %+v in listing, got %+v", want, got)
		}
	}
}
