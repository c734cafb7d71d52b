package infrastructure

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"layeh.com/gopus"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
)

// Opus framing for Discord voice: 48kHz stereo, 20ms frames.
const (
	sampleRate   = 48000
	channelCount = 2
	frameSize    = 960
	maxOpusBytes = 4000
)

// streamUserAgent is sent to the CDN; stream URLs are issued against a
// browser-like client and some edges reject the ffmpeg default.
const streamUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DiscordVoice owns the gateway voice connections and the ffmpeg-to-opus
// pipeline feeding them. One connection and at most one active playback
// per guild.
type DiscordVoice struct {
	session *discordgo.Session

	mu     sync.Mutex
	guilds map[snowflake.ID]*guildVoice
}

type guildVoice struct {
	conn     *discordgo.VoiceConnection
	playback *playbackSession
}

type playbackSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDiscordVoice creates a new DiscordVoice.
func NewDiscordVoice(session *discordgo.Session) *DiscordVoice {
	return &DiscordVoice{
		session: session,
		guilds:  make(map[snowflake.ID]*guildVoice),
	}
}

// Join connects to (or moves into) the given voice channel.
func (v *DiscordVoice) Join(_ context.Context, guildID, channelID snowflake.ID) error {
	v.mu.Lock()
	gv, ok := v.guilds[guildID]
	if ok && gv.conn != nil && gv.conn.ChannelID == channelID.String() {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	conn, err := v.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("joining voice channel %d: %w", channelID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gv, ok := v.guilds[guildID]; ok {
		gv.conn = conn
		return nil
	}
	v.guilds[guildID] = &guildVoice{conn: conn}
	return nil
}

// Leave disconnects the guild's voice connection, if any. Active playback
// is aborted first.
func (v *DiscordVoice) Leave(_ context.Context, guildID snowflake.ID) error {
	v.stopPlayback(guildID, true)

	v.mu.Lock()
	gv, ok := v.guilds[guildID]
	delete(v.guilds, guildID)
	v.mu.Unlock()

	if !ok || gv.conn == nil {
		return nil
	}
	if err := gv.conn.Disconnect(); err != nil {
		return fmt.Errorf("disconnecting from voice in guild %d: %w", guildID, err)
	}
	return nil
}

// Connected reports whether the guild has an open voice connection.
func (v *DiscordVoice) Connected(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	gv, ok := v.guilds[guildID]
	return ok && gv.conn != nil
}

// IsPlaying reports whether audio is currently being sent.
func (v *DiscordVoice) IsPlaying(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	gv, ok := v.guilds[guildID]
	return ok && gv.playback != nil
}

// Play starts streaming the URL into the guild's voice connection. onEnd
// fires exactly once from the pipeline goroutine when playback finishes,
// fails, or is stopped.
func (v *DiscordVoice) Play(
	_ context.Context,
	guildID snowflake.ID,
	streamURL string,
	onEnd func(error),
) error {
	v.mu.Lock()
	gv, ok := v.guilds[guildID]
	if !ok || gv.conn == nil {
		v.mu.Unlock()
		return fmt.Errorf("no voice connection for guild %d", guildID)
	}
	if gv.playback != nil {
		v.mu.Unlock()
		return fmt.Errorf("guild %d is already playing", guildID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &playbackSession{cancel: cancel, done: make(chan struct{})}
	gv.playback = session
	conn := gv.conn
	v.mu.Unlock()

	go func() {
		defer close(session.done)
		err := v.stream(ctx, conn, streamURL)

		v.mu.Lock()
		if gv, ok := v.guilds[guildID]; ok && gv.playback == session {
			gv.playback = nil
		}
		v.mu.Unlock()

		// A cancelled pipeline is a deliberate stop, not a failure.
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		onEnd(err)
	}()
	return nil
}

// Stop aborts the current playback, if any. The pipeline goroutine still
// runs its end callback.
func (v *DiscordVoice) Stop(guildID snowflake.ID) bool {
	return v.stopPlayback(guildID, false)
}

func (v *DiscordVoice) stopPlayback(guildID snowflake.ID, wait bool) bool {
	v.mu.Lock()
	gv, ok := v.guilds[guildID]
	var session *playbackSession
	if ok {
		session = gv.playback
	}
	v.mu.Unlock()

	if session == nil {
		return false
	}
	session.cancel()
	if wait {
		<-session.done
	}
	return true
}

// HumanCount returns the number of non-bot members sharing the bot's
// voice channel.
func (v *DiscordVoice) HumanCount(guildID snowflake.ID) (int, error) {
	v.mu.Lock()
	gv, ok := v.guilds[guildID]
	channelID := ""
	if ok && gv.conn != nil {
		channelID = gv.conn.ChannelID
	}
	v.mu.Unlock()

	if channelID == "" {
		return 0, fmt.Errorf("no voice connection for guild %d", guildID)
	}

	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0, fmt.Errorf("guild %d not in state: %w", guildID, err)
	}

	v.session.State.RLock()
	states := make([]*discordgo.VoiceState, len(guild.VoiceStates))
	copy(states, guild.VoiceStates)
	v.session.State.RUnlock()

	count := 0
	for _, vs := range states {
		if vs.ChannelID != channelID || vs.UserID == v.session.State.User.ID {
			continue
		}
		if member, err := v.session.State.Member(guildID.String(), vs.UserID); err == nil {
			if member.User != nil && member.User.Bot {
				continue
			}
		}
		count++
	}
	return count, nil
}

// stream decodes the URL with ffmpeg and feeds 20ms opus frames into the
// voice connection until EOF, error, or cancellation.
func (v *DiscordVoice) stream(
	ctx context.Context,
	conn *discordgo.VoiceConnection,
	streamURL string,
) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-user_agent", streamUserAgent,
		"-i", streamURL,
		"-f", "s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channelCount),
		"-loglevel", "error",
		"pipe:1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	defer func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Debug("ffmpeg exited with error", "error", err)
		}
	}()

	encoder, err := gopus.NewEncoder(sampleRate, channelCount, gopus.Audio)
	if err != nil {
		return fmt.Errorf("creating opus encoder: %w", err)
	}

	if err := conn.Speaking(true); err != nil {
		slog.Warn("failed to set speaking state", "error", err)
	}
	defer func() {
		if err := conn.Speaking(false); err != nil {
			slog.Debug("failed to clear speaking state", "error", err)
		}
	}()

	reader := bufio.NewReaderSize(stdout, 16384)
	raw := make([]byte, frameSize*channelCount*2)
	pcm := make([]int16, frameSize*channelCount)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := io.ReadFull(reader, raw)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading pcm stream: %w", err)
		}

		for i := range pcm {
			pcm[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
		}

		frame, err := encoder.Encode(pcm, frameSize, maxOpusBytes)
		if err != nil {
			return fmt.Errorf("encoding opus frame: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case conn.OpusSend <- frame:
		}
	}
}

// Ensure DiscordVoice implements ports.VoiceGateway.
var _ ports.VoiceGateway = (*DiscordVoice)(nil)
