package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

// StatusNotifier renders player state into the guild's live status message
// and posts short-lived notices. Render errors (including rate limits) are
// returned so the refresher can back off; they must never panic.
type StatusNotifier interface {
	// PublishStatus rewrites the status message from the snapshot.
	PublishStatus(
		ctx context.Context,
		channelID, messageID snowflake.ID,
		snap domain.Snapshot,
		connected bool,
	) error

	// SendNotice posts a short-lived message to the channel. Delivery is
	// best effort; failures are logged, not returned.
	SendNotice(ctx context.Context, channelID snowflake.ID, text string)

	// CreateStatusMessage posts a fresh status message and returns its ID.
	CreateStatusMessage(ctx context.Context, channelID snowflake.ID) (snowflake.ID, error)

	// EnsureReachable verifies the channel and message still exist and are
	// editable. Controllers refuse to start for unreachable UI.
	EnsureReachable(ctx context.Context, channelID, messageID snowflake.ID) error

	// DeleteMessage removes a message, e.g. the request the user typed.
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
}
