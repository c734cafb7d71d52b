package jukebox

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"

	"github.com/soramiya/jukebox/internal/bot"
	"github.com/soramiya/jukebox/internal/modules/jukebox/application/usecases"
	"github.com/soramiya/jukebox/internal/modules/jukebox/infrastructure"
	"github.com/soramiya/jukebox/internal/modules/jukebox/presentation"
)

func init() {
	bot.Register(&JukeboxModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*JukeboxModule)(nil)

// JukeboxModule provides a per-guild music request channel: a pinned
// status message, free-text track requests, and voice playback.
type JukeboxModule struct {
	config *Config

	store     *infrastructure.SQLiteSettingsStore
	manager   *usecases.Manager
	scheduler *usecases.Scheduler

	commandHandlers   *presentation.CommandHandlers
	eventHandlers     *presentation.EventHandlers
	componentHandlers *presentation.ComponentHandlers

	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *JukeboxModule) Name() string {
	return "jukebox"
}

// Commands returns the slash commands for this module.
func (m *JukeboxModule) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *JukeboxModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"setup":    m.commandHandlers.HandleSetup,
		"teardown": m.commandHandlers.HandleTeardown,
		"info":     m.commandHandlers.HandleInfo,
		"mix":      m.commandHandlers.HandleMix,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *JukeboxModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.MessageCreate) {
			m.eventHandlers.HandleMessageCreate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.GuildDelete) {
			m.eventHandlers.HandleGuildDelete(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.eventHandlers.HandleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.componentHandlers.HandleInteraction(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *JukeboxModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *JukeboxModule) Init(deps bot.ModuleDependencies) error {
	dbPath := m.config.DatabasePath
	if deps.Session == nil {
		// Loaded without a live session (tests); keep everything local.
		dbPath = ":memory:"
	}

	store, err := infrastructure.OpenSettingsStore(dbPath)
	if err != nil {
		return err
	}
	m.store = store

	search := infrastructure.NewYouTubeSearch()
	extractor := infrastructure.NewYtdlpExtractor()
	voice := infrastructure.NewDiscordVoice(deps.Session)
	notifier := infrastructure.NewStatusNotifier(deps.Session)
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)

	resolver := usecases.NewResolver(
		search, extractor, m.config.SearchTimeout, m.config.ExtractTimeout)
	expander := usecases.NewMixExpander(extractor, usecases.MixExpanderConfig{
		RelatedTimeout:   m.config.RelatedTimeout,
		ExtractTimeout:   m.config.ExtractTimeout,
		MinTrackDuration: m.config.MinTrackDuration,
		MaxTrackDuration: m.config.MaxTrackDuration,
	})

	m.manager = usecases.NewManager(store, voice, notifier, resolver, expander,
		usecases.ControllerConfig{
			ResolveWorkers: m.config.ResolveWorkers,
			Refresher: usecases.RefresherConfig{
				IdleInterval:    m.config.IdleRefreshInterval,
				PlayingInterval: m.config.PlayingRefreshInterval,
				BackoffBase:     m.config.RefreshBackoffBase,
				BackoffMax:      m.config.RefreshBackoffMax,
			},
		})

	m.commandHandlers = presentation.NewCommandHandlers(m.manager, store, notifier, voiceState)
	m.eventHandlers = presentation.NewEventHandlers(m.manager, store, notifier, voiceState)
	m.componentHandlers = presentation.NewComponentHandlers(m.manager, voiceState, voice)

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.scheduler = usecases.NewScheduler(m.manager, usecases.SchedulerConfig{
		TickInterval: m.config.TickInterval,
		GracePeriod:  m.config.GracePeriod,
	})
	go m.scheduler.Run(m.ctx)

	if deps.Session != nil {
		m.restoreGuilds()
	}

	slog.Info("jukebox module initialized", "database", dbPath)
	return nil
}

// restoreGuilds recreates controllers for guilds configured before the
// last restart. A guild whose channel or status message went away is
// skipped; it simply needs a new /setup.
func (m *JukeboxModule) restoreGuilds() {
	settings, err := m.store.List(m.ctx)
	if err != nil {
		slog.Error("failed to list stored guild settings", "error", err)
		return
	}

	restored := 0
	for _, s := range settings {
		if _, err := m.manager.GetOrCreate(m.ctx, s.GuildID); err != nil {
			slog.Warn("skipping guild restore", "guild", s.GuildID, "error", err)
			continue
		}
		restored++
	}
	if restored > 0 {
		slog.Info("restored guild controllers", "count", restored)
	}
}

// Shutdown cleans up module resources.
func (m *JukeboxModule) Shutdown() error {
	if m.cancel != nil {
		m.cancel()
		<-m.scheduler.Done()
	}
	if m.manager != nil {
		m.manager.ShutdownAll(context.Background())
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
