package jukebox

import "time"

// Config holds the jukebox module configuration.
type Config struct {
	// DatabasePath is where per-guild channel wiring is persisted.
	DatabasePath string `env:"JUKEBOX_DATABASE_PATH" envDefault:"jukebox.db"`

	// SearchTimeout bounds each text search.
	SearchTimeout time.Duration `env:"JUKEBOX_SEARCH_TIMEOUT" envDefault:"10s"`

	// ExtractTimeout bounds each single-track extraction.
	ExtractTimeout time.Duration `env:"JUKEBOX_EXTRACT_TIMEOUT" envDefault:"15s"`

	// RelatedTimeout bounds the bulk related-tracks listing fetch.
	RelatedTimeout time.Duration `env:"JUKEBOX_RELATED_TIMEOUT" envDefault:"60s"`

	// ResolveWorkers bounds concurrent resolutions per guild.
	ResolveWorkers int `env:"JUKEBOX_RESOLVE_WORKERS" envDefault:"2"`

	// TickInterval is the playback loop polling period.
	TickInterval time.Duration `env:"JUKEBOX_TICK_INTERVAL" envDefault:"1s"`

	// GracePeriod is how long an empty voice channel is tolerated before
	// the bot disconnects.
	GracePeriod time.Duration `env:"JUKEBOX_GRACE_PERIOD" envDefault:"300s"`

	// MinTrackDuration and MaxTrackDuration delimit the duration band for
	// mix expansion candidates.
	MinTrackDuration time.Duration `env:"JUKEBOX_MIN_TRACK_DURATION" envDefault:"30s"`
	MaxTrackDuration time.Duration `env:"JUKEBOX_MAX_TRACK_DURATION" envDefault:"20m"`

	// IdleRefreshInterval and PlayingRefreshInterval pace status message
	// rewrites in each playback state.
	IdleRefreshInterval    time.Duration `env:"JUKEBOX_IDLE_REFRESH_INTERVAL" envDefault:"3s"`
	PlayingRefreshInterval time.Duration `env:"JUKEBOX_PLAYING_REFRESH_INTERVAL" envDefault:"10s"`

	// RefreshBackoffBase and RefreshBackoffMax delimit the backoff after
	// failed status rewrites.
	RefreshBackoffBase time.Duration `env:"JUKEBOX_REFRESH_BACKOFF_BASE" envDefault:"2s"`
	RefreshBackoffMax  time.Duration `env:"JUKEBOX_REFRESH_BACKOFF_MAX" envDefault:"60s"`
}
