package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/soramiya/jukebox/internal/modules/jukebox/application/ports"
	"github.com/soramiya/jukebox/internal/modules/jukebox/domain"
)

const (
	// MaxExpansionCount caps how many tracks one expansion may add.
	MaxExpansionCount = 30

	// relatedPageSize bounds the related-tracks listing fetch.
	relatedPageSize = 35

	// enqueueBatchSize controls how many resolved tracks are appended per
	// queue mutation, so the UI can show progress on long expansions.
	enqueueBatchSize = 5

	// relatedCacheSize bounds the per-process related-listing cache.
	relatedCacheSize = 16
)

// MixExpanderConfig holds the expansion tunables.
type MixExpanderConfig struct {
	// RelatedTimeout bounds the bulk related-listing fetch.
	RelatedTimeout time.Duration

	// ExtractTimeout bounds each single-track extraction.
	ExtractTimeout time.Duration

	// MinTrackDuration and MaxTrackDuration delimit the sane duration
	// band: shorts and hour-long mixes are both filtered out.
	MinTrackDuration time.Duration
	MaxTrackDuration time.Duration
}

// MixExpander bulk-enqueues tracks related to a seed. At most one
// expansion runs per seed at a time; expansions for different seeds run
// concurrently.
type MixExpander struct {
	extractor ports.Extractor
	cfg       MixExpanderConfig

	mu       sync.Mutex
	inflight map[string]struct{}
	cache    *relatedCache
}

// NewMixExpander creates a MixExpander.
func NewMixExpander(extractor ports.Extractor, cfg MixExpanderConfig) *MixExpander {
	return &MixExpander{
		extractor: extractor,
		cfg:       cfg,
		inflight:  make(map[string]struct{}),
		cache:     newRelatedCache(relatedCacheSize),
	}
}

// Expand fetches tracks related to seedID, filters and samples them, and
// appends resolved tracks to the player's queue in small batches. refresh
// is invoked after each batch. Playback start is left to the scheduler.
func (e *MixExpander) Expand(
	ctx context.Context,
	player *domain.Player,
	seedID string,
	count int,
	requestedBy snowflake.ID,
	refresh func(),
) (int, error) {
	if seedID == "" {
		return 0, ErrSeedNotFound
	}
	if count < 1 {
		count = 1
	}
	if count > MaxExpansionCount {
		count = MaxExpansionCount
	}

	if !e.acquire(seedID) {
		return 0, ErrExpansionInProgress
	}
	defer e.release(seedID)

	entries, err := e.related(ctx, seedID)
	if err != nil {
		return 0, err
	}

	candidates := e.filter(player, seedID, entries)
	if len(candidates) == 0 {
		return 0, ErrNothingToAdd
	}
	picked := splitSample(candidates, count)

	added := 0
	batch := make([]*domain.Track, 0, enqueueBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		added += player.EnqueueReady(batch...)
		batch = batch[:0]
		refresh()
	}

	for _, entry := range picked {
		track, err := e.resolveEntry(ctx, entry, requestedBy)
		if err != nil {
			slog.Warn("skipping related track",
				"guild", player.GuildID(), "video", entry.ExternalID, "error", err)
			continue
		}
		batch = append(batch, track)
		if len(batch) >= enqueueBatchSize {
			flush()
		}
	}
	flush()

	if added == 0 {
		return 0, ErrNothingToAdd
	}
	return added, nil
}

func (e *MixExpander) acquire(seedID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[seedID]; busy {
		return false
	}
	e.inflight[seedID] = struct{}{}
	return true
}

func (e *MixExpander) release(seedID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, seedID)
}

// related returns the related-track listing for the seed, served from the
// bounded cache when the seed was fetched recently. The cache only saves
// network round trips; it is never authoritative and holds no stream URLs.
func (e *MixExpander) related(ctx context.Context, seedID string) ([]ports.RelatedEntry, error) {
	if entries, ok := e.cache.get(seedID); ok {
		return entries, nil
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RelatedTimeout)
	defer cancel()

	entries, err := e.extractor.Related(rctx, seedID, relatedPageSize)
	if err != nil {
		if errors.Is(err, ports.ErrNoCandidates) {
			return nil, ErrNothingToAdd
		}
		return nil, fmt.Errorf("related listing for %s: %w", seedID, err)
	}
	if len(entries) == 0 {
		return nil, ErrNothingToAdd
	}

	e.cache.put(seedID, entries)
	return entries, nil
}

// filter drops the seed itself, anything already pending or playing, and
// durations outside the sane band.
func (e *MixExpander) filter(
	player *domain.Player,
	seedID string,
	entries []ports.RelatedEntry,
) []ports.RelatedEntry {
	currentID := ""
	if current := player.Current(); current != nil {
		currentID = current.ExternalID()
	}

	kept := make([]ports.RelatedEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ExternalID == "" || entry.ExternalID == seedID || entry.ExternalID == currentID {
			continue
		}
		if entry.Duration <= e.cfg.MinTrackDuration || entry.Duration >= e.cfg.MaxTrackDuration {
			continue
		}
		if player.HasPendingByExternalID(entry.ExternalID) {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

func (e *MixExpander) resolveEntry(
	ctx context.Context,
	entry ports.RelatedEntry,
	requestedBy snowflake.ID,
) (*domain.Track, error) {
	ectx, cancel := context.WithTimeout(ctx, e.cfg.ExtractTimeout)
	defer cancel()

	extracted, err := e.extractor.Extract(ectx, WatchURL(entry.ExternalID))
	if err != nil {
		return nil, err
	}
	return domain.NewReadyTrack(
		extracted.Title,
		extracted.Duration,
		requestedBy,
		extracted.ExternalID,
		extracted.SourceURL,
		extracted.StreamURL,
		domain.OriginMixExpansion,
	)
}

// splitSample picks up to count entries without replacement, drawing from
// the front and back halves of the listing separately. Related listings
// cluster near-identical recommendations at the top; splitting keeps the
// selection diverse.
func splitSample(entries []ports.RelatedEntry, count int) []ports.RelatedEntry {
	if len(entries) <= count {
		picked := make([]ports.RelatedEntry, len(entries))
		copy(picked, entries)
		rand.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
		return picked
	}

	mid := len(entries) / 2
	front := shuffled(entries[:mid])
	back := shuffled(entries[mid:])

	picked := make([]ports.RelatedEntry, 0, count)
	for len(picked) < count {
		if len(front) > 0 {
			picked = append(picked, front[0])
			front = front[1:]
		}
		if len(picked) >= count {
			break
		}
		if len(back) > 0 {
			picked = append(picked, back[0])
			back = back[1:]
		}
		if len(front) == 0 && len(back) == 0 {
			break
		}
	}
	return picked
}

func shuffled(entries []ports.RelatedEntry) []ports.RelatedEntry {
	result := make([]ports.RelatedEntry, len(entries))
	copy(result, entries)
	rand.Shuffle(len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})
	return result
}

// relatedCache is a bounded seed-to-listing map with oldest-first
// eviction.
type relatedCache struct {
	mu      sync.Mutex
	maxSize int
	order   []string
	entries map[string][]ports.RelatedEntry
}

func newRelatedCache(maxSize int) *relatedCache {
	return &relatedCache{
		maxSize: maxSize,
		entries: make(map[string][]ports.RelatedEntry),
	}
}

func (c *relatedCache) get(seedID string) ([]ports.RelatedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[seedID]
	return entries, ok
}

func (c *relatedCache) put(seedID string, entries []ports.RelatedEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[seedID]; !exists {
		c.order = append(c.order, seedID)
		if len(c.order) > c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[seedID] = entries
}
