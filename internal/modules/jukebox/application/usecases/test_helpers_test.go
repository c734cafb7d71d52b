package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

func testRefresherConfig() RefresherConfig {
	return RefresherConfig{
		IdleInterval:    time.Millisecond,
		PlayingInterval: 2 * time.Millisecond,
		BackoffBase:     time.Millisecond,
		BackoffMax:      10 * time.Millisecond,
	}
}

func testControllerConfig() ControllerConfig {
	return ControllerConfig{
		ResolveWorkers: 2,
		Refresher:      testRefresherConfig(),
	}
}

// waitFor polls cond until it holds or the deadline passes. Background
// resolutions are detached goroutines, so tests observe their effects
// rather than joining them.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached: " + msg)
}

func extractedTrack(id string, duration time.Duration) *ports.ExtractedTrack {
	return &ports.ExtractedTrack{
		Title:      "Track " + id,
		Duration:   duration,
		ExternalID: id,
		SourceURL:  WatchURL(id),
		StreamURL:  "https://cdn.example/" + id,
	}
}

func mustReadyTrack(t *testing.T, id string) *domain.Track {
	t.Helper()
	track, err := domain.NewReadyTrack(
		"Track "+id, 3*time.Minute, snowflake.ID(1),
		id, WatchURL(id), "https://cdn.example/"+id, domain.OriginUserRequest,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return track
}

type mockSearch struct {
	mu         sync.Mutex
	candidates []ports.SearchCandidate
	err        error
	calls      int
	lastQuery  string
}

func (m *mockSearch) Search(
	_ context.Context, query string, _ int,
) ([]ports.SearchCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

type mockExtractor struct {
	mu           sync.Mutex
	tracks       map[string]*ports.ExtractedTrack // keyed by URL
	extractErr   error
	related      []ports.RelatedEntry
	relatedErr   error
	extractCalls int
	relatedCalls int
	extractDelay time.Duration
}

func (m *mockExtractor) Extract(ctx context.Context, url string) (*ports.ExtractedTrack, error) {
	m.mu.Lock()
	m.extractCalls++
	delay := m.extractDelay
	err := m.extractErr
	track := m.tracks[url]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, ports.ErrNoCandidates
	}
	return track, nil
}

func (m *mockExtractor) Related(
	_ context.Context, _ string, _ int,
) ([]ports.RelatedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relatedCalls++
	if m.relatedErr != nil {
		return nil, m.relatedErr
	}
	return m.related, nil
}

// mockVoice is a controllable VoiceGateway. Playback is ended manually
// via endPlayback, mirroring the platform's end-of-playback callback.
type mockVoice struct {
	mu        sync.Mutex
	connected map[snowflake.ID]bool
	playing   map[snowflake.ID]bool
	humans    map[snowflake.ID]int
	onEnd     map[snowflake.ID]func(error)
	played    []string // stream URLs in play order
	joinErr   error
	playErr   error
	leaves    int
}

func newMockVoice() *mockVoice {
	return &mockVoice{
		connected: make(map[snowflake.ID]bool),
		playing:   make(map[snowflake.ID]bool),
		humans:    make(map[snowflake.ID]int),
		onEnd:     make(map[snowflake.ID]func(error)),
	}
}

func (m *mockVoice) Join(_ context.Context, guildID, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.connected[guildID] = true
	return nil
}

func (m *mockVoice) Leave(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves++
	delete(m.connected, guildID)
	delete(m.playing, guildID)
	return nil
}

func (m *mockVoice) Connected(guildID snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected[guildID]
}

func (m *mockVoice) IsPlaying(guildID snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing[guildID]
}

func (m *mockVoice) Play(
	_ context.Context, guildID snowflake.ID, streamURL string, onEnd func(error),
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing[guildID] = true
	m.onEnd[guildID] = onEnd
	m.played = append(m.played, streamURL)
	return nil
}

func (m *mockVoice) Stop(guildID snowflake.ID) bool {
	m.mu.Lock()
	wasPlaying := m.playing[guildID]
	end := m.onEnd[guildID]
	delete(m.playing, guildID)
	delete(m.onEnd, guildID)
	m.mu.Unlock()

	if wasPlaying && end != nil {
		end(nil)
	}
	return wasPlaying
}

func (m *mockVoice) HumanCount(guildID snowflake.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.humans[guildID], nil
}

func (m *mockVoice) setHumans(guildID snowflake.ID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.humans[guildID] = n
}

// endPlayback simulates the platform's natural end-of-track callback.
func (m *mockVoice) endPlayback(guildID snowflake.ID, err error) {
	m.mu.Lock()
	end := m.onEnd[guildID]
	delete(m.playing, guildID)
	delete(m.onEnd, guildID)
	m.mu.Unlock()

	if end != nil {
		end(err)
	}
}

func (m *mockVoice) playedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.played))
	copy(result, m.played)
	return result
}

type mockNotifier struct {
	mu         sync.Mutex
	statuses   []domain.Snapshot
	notices    []string
	publishErr error
	reachErr   error
	createdID  snowflake.ID
}

func (m *mockNotifier) PublishStatus(
	_ context.Context, _, _ snowflake.ID, snap domain.Snapshot, _ bool,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.statuses = append(m.statuses, snap)
	return nil
}

func (m *mockNotifier) SendNotice(_ context.Context, _ snowflake.ID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, text)
}

func (m *mockNotifier) CreateStatusMessage(
	_ context.Context, _ snowflake.ID,
) (snowflake.ID, error) {
	return m.createdID, nil
}

func (m *mockNotifier) EnsureReachable(_ context.Context, _, _ snowflake.ID) error {
	return m.reachErr
}

func (m *mockNotifier) DeleteMessage(_ context.Context, _, _ snowflake.ID) error {
	return nil
}

func (m *mockNotifier) noticeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notices)
}

func (m *mockNotifier) lastNotice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.notices) == 0 {
		return ""
	}
	return m.notices[len(m.notices)-1]
}

type mockSettings struct {
	mu       sync.Mutex
	settings map[snowflake.ID]ports.GuildSettings
	getErr   error
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: make(map[snowflake.ID]ports.GuildSettings)}
}

func (m *mockSettings) Get(_ context.Context, guildID snowflake.ID) (*ports.GuildSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.settings[guildID]
	if !ok {
		return nil, ports.ErrNotConfigured
	}
	return &s, nil
}

func (m *mockSettings) Put(_ context.Context, s ports.GuildSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.GuildID] = s
	return nil
}

func (m *mockSettings) Delete(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, guildID)
	return nil
}

func (m *mockSettings) List(_ context.Context) ([]ports.GuildSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ports.GuildSettings, 0, len(m.settings))
	for _, s := range m.settings {
		result = append(result, s)
	}
	return result, nil
}

// Interface checks for the mocks.
var (
	_ ports.SearchProvider = (*mockSearch)(nil)
	_ ports.Extractor      = (*mockExtractor)(nil)
	_ ports.VoiceGateway   = (*mockVoice)(nil)
	_ ports.StatusNotifier = (*mockNotifier)(nil)
	_ ports.SettingsStore  = (*mockSettings)(nil)
)
