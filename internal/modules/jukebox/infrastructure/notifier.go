package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

// Component custom IDs on the status message.
const (
	CustomIDSkip   = "jukebox:skip"
	CustomIDStop   = "jukebox:stop"
	CustomIDRemove = "jukebox:remove"
)

// Embed colors.
const (
	colorPlaying = 0x2ECC71
	colorIdle    = 0x95A5A6
)

// noticeLifetime is how long short-lived notices stay before deletion.
const noticeLifetime = 10 * time.Second

// maxQueueLines bounds the queue listing rendered into the embed.
const maxQueueLines = 10

// maxRemoveOptions is the Discord select menu option limit.
const maxRemoveOptions = 25

// StatusNotifier renders player state into each guild's pinned status
// message and posts short-lived notices.
type StatusNotifier struct {
	session *discordgo.Session
}

// NewStatusNotifier creates a new StatusNotifier.
func NewStatusNotifier(session *discordgo.Session) *StatusNotifier {
	return &StatusNotifier{session: session}
}

// PublishStatus rewrites the status message from the snapshot.
func (n *StatusNotifier) PublishStatus(
	ctx context.Context,
	channelID, messageID snowflake.ID,
	snap domain.Snapshot,
	connected bool,
) error {
	embed := statusEmbed(snap, connected)
	components := statusComponents(snap)

	edit := discordgo.NewMessageEdit(channelID.String(), messageID.String())
	edit.SetEmbed(embed)
	edit.Components = &components

	_, err := n.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing status message: %w", err)
	}
	return nil
}

// SendNotice posts a short-lived message. It deletes itself after a few
// seconds so the request channel stays clean.
func (n *StatusNotifier) SendNotice(ctx context.Context, channelID snowflake.ID, text string) {
	msg, err := n.session.ChannelMessageSend(channelID.String(), text, discordgo.WithContext(ctx))
	if err != nil {
		slog.Warn("failed to send notice", "channel", channelID, "error", err)
		return
	}

	time.AfterFunc(noticeLifetime, func() {
		if err := n.session.ChannelMessageDelete(channelID.String(), msg.ID); err != nil {
			slog.Debug("failed to delete notice", "channel", channelID, "error", err)
		}
	})
}

// CreateStatusMessage posts a fresh status message and returns its ID.
func (n *StatusNotifier) CreateStatusMessage(
	ctx context.Context,
	channelID snowflake.ID,
) (snowflake.ID, error) {
	embed := statusEmbed(domain.Snapshot{}, false)

	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("creating status message: %w", err)
	}
	return snowflake.Parse(msg.ID)
}

// EnsureReachable verifies the channel and status message still exist.
func (n *StatusNotifier) EnsureReachable(
	ctx context.Context,
	channelID, messageID snowflake.ID,
) error {
	if _, err := n.session.ChannelMessage(
		channelID.String(), messageID.String(), discordgo.WithContext(ctx),
	); err != nil {
		return fmt.Errorf("status message %d in channel %d: %w", messageID, channelID, err)
	}
	return nil
}

// DeleteMessage removes a message from the channel.
func (n *StatusNotifier) DeleteMessage(
	ctx context.Context,
	channelID, messageID snowflake.ID,
) error {
	return n.session.ChannelMessageDelete(
		channelID.String(), messageID.String(), discordgo.WithContext(ctx),
	)
}

func statusEmbed(snap domain.Snapshot, connected bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "Jukebox"},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Type a song name or link in this channel to add it to the queue.",
		},
	}

	if snap.Current != nil {
		embed.Color = colorPlaying
		embed.Title = snap.Current.Title()
		embed.URL = snap.Current.SourceURL()
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{
				Name:   "Duration",
				Value:  snap.Current.FormattedDuration(),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name:   "Requested by",
				Value:  fmt.Sprintf("<@%d>", snap.Current.RequestedBy()),
				Inline: true,
			},
		)
		if thumbnail := snap.Current.ThumbnailURL(); thumbnail != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: thumbnail}
		}
	} else {
		embed.Color = colorIdle
		embed.Title = "Nothing playing"
		if !connected {
			embed.Description = "Join a voice channel and request a song to get started."
		}
	}

	if snap.PendingCount > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("Queue — %d track(s), %s total",
				snap.PendingCount, formatTotal(snap.TotalPending)),
			Value: queueListing(snap.Pending),
		})
	}

	return embed
}

func queueListing(pending []*domain.Track) string {
	var b strings.Builder
	for i, track := range pending {
		if i >= maxQueueLines {
			fmt.Fprintf(&b, "… and %d more", len(pending)-maxQueueLines)
			break
		}
		if track.IsReady() {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, track.Title(), track.FormattedDuration())
		} else {
			fmt.Fprintf(&b, "%d. ⏳ %s\n", i+1, track.Title())
		}
	}
	return b.String()
}

func formatTotal(total time.Duration) string {
	total = total.Round(time.Second)
	hours := int(total.Hours())
	minutes := int(total.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
	return fmt.Sprintf("%dm%02ds", minutes, int(total.Seconds())%60)
}

func statusComponents(snap domain.Snapshot) []discordgo.MessageComponent {
	if snap.Current == nil && snap.PendingCount == 0 {
		return []discordgo.MessageComponent{}
	}

	buttons := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Skip",
				Style:    discordgo.SecondaryButton,
				CustomID: CustomIDSkip,
				Emoji:    &discordgo.ComponentEmoji{Name: "⏭️"},
			},
			discordgo.Button{
				Label:    "Stop",
				Style:    discordgo.DangerButton,
				CustomID: CustomIDStop,
				Emoji:    &discordgo.ComponentEmoji{Name: "⏹️"},
			},
		},
	}
	components := []discordgo.MessageComponent{buttons}

	if options := removeOptions(snap.Pending); len(options) > 0 {
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    CustomIDRemove,
					Placeholder: "Remove a track from the queue",
					Options:     options,
				},
			},
		})
	}

	return components
}

// removeOptions builds the removal dropdown. Option values carry the
// queue index at render time; removal revalidates against the live queue.
func removeOptions(pending []*domain.Track) []discordgo.SelectMenuOption {
	options := make([]discordgo.SelectMenuOption, 0, maxRemoveOptions)
	for i, track := range pending {
		if i >= maxRemoveOptions {
			break
		}
		label := track.Title()
		if runes := []rune(label); len(runes) > 95 {
			label = string(runes[:92]) + "..."
		}
		description := "Resolving…"
		if track.IsReady() {
			description = track.FormattedDuration()
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       fmt.Sprintf("%d. %s", i+1, label),
			Value:       fmt.Sprint(i),
			Description: description,
		})
	}
	return options
}

// Ensure StatusNotifier implements ports.StatusNotifier.
var _ ports.StatusNotifier = (*StatusNotifier)(nil)
