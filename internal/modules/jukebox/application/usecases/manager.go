package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

// Manager owns every guild controller. It is the only process-wide
// mutable registry: all lookups go through an explicit Manager instance,
// and controllers are reached by guild ID, never by long-lived references.
type Manager struct {
	settings ports.SettingsStore
	voice    ports.VoiceGateway
	notifier ports.StatusNotifier
	resolver *Resolver
	expander *MixExpander
	cfg      ControllerConfig

	mu          sync.RWMutex
	controllers map[snowflake.ID]*Controller
}

// NewManager creates an empty Manager.
func NewManager(
	settings ports.SettingsStore,
	voice ports.VoiceGateway,
	notifier ports.StatusNotifier,
	resolver *Resolver,
	expander *MixExpander,
	cfg ControllerConfig,
) *Manager {
	return &Manager{
		settings:    settings,
		voice:       voice,
		notifier:    notifier,
		resolver:    resolver,
		expander:    expander,
		cfg:         cfg,
		controllers: make(map[snowflake.ID]*Controller),
	}
}

// Get returns the guild's controller, if one is active.
func (m *Manager) Get(guildID snowflake.ID) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.controllers[guildID]
	return ctrl, ok
}

// GetOrCreate returns the guild's controller, creating it from stored
// settings on first use. Creation requires the configured channel and
// status message to be reachable; when they are not, the error is
// recoverable: the guild simply has no active controller.
func (m *Manager) GetOrCreate(ctx context.Context, guildID snowflake.ID) (*Controller, error) {
	if ctrl, ok := m.Get(guildID); ok {
		return ctrl, nil
	}

	settings, err := m.settings.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("loading settings for guild %d: %w", guildID, err)
	}

	if err := m.notifier.EnsureReachable(ctx, settings.ChannelID, settings.MessageID); err != nil {
		return nil, fmt.Errorf("guild %d status message unreachable: %w", guildID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctrl, ok := m.controllers[guildID]; ok {
		return ctrl, nil
	}

	player := domain.NewPlayer(guildID, settings.ChannelID, settings.MessageID)
	ctrl := NewController(player, m.voice, m.notifier, m.resolver, m.expander, m.cfg)
	m.controllers[guildID] = ctrl

	slog.Info("guild controller created",
		"guild", guildID, "channel", settings.ChannelID)
	return ctrl, nil
}

// Register installs a controller built from freshly created settings
// (the setup command path, where reachability was just established).
func (m *Manager) Register(settings ports.GuildSettings) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.controllers[settings.GuildID]; ok {
		// Replaced by a new setup; tear the old one down detached so the
		// registry lock is not held across voice teardown.
		go old.Close(context.Background())
	}

	player := domain.NewPlayer(settings.GuildID, settings.ChannelID, settings.MessageID)
	ctrl := NewController(player, m.voice, m.notifier, m.resolver, m.expander, m.cfg)
	m.controllers[settings.GuildID] = ctrl
	return ctrl
}

// Remove tears down and forgets the guild's controller. The voice
// connection is drained and released before the controller is dropped.
func (m *Manager) Remove(ctx context.Context, guildID snowflake.ID) {
	m.mu.Lock()
	ctrl, ok := m.controllers[guildID]
	delete(m.controllers, guildID)
	m.mu.Unlock()

	if !ok {
		return
	}
	ctrl.Close(ctx)
	slog.Info("guild controller removed", "guild", guildID)
}

// Controllers returns a snapshot of all active controllers for the
// scheduler to iterate. Guilds are independent; no ordering is implied.
func (m *Manager) Controllers() []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		result = append(result, ctrl)
	}
	return result
}

// ShutdownAll tears down every controller. Called on process shutdown.
func (m *Manager) ShutdownAll(ctx context.Context) {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[snowflake.ID]*Controller)
	m.mu.Unlock()

	for guildID, ctrl := range controllers {
		ctrl.Close(ctx)
		slog.Debug("guild controller shut down", "guild", guildID)
	}
}
