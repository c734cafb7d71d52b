package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RefresherConfig holds the UI refresh pacing knobs.
type RefresherConfig struct {
	// IdleInterval is the minimum gap between status renders while
	// nothing is playing.
	IdleInterval time.Duration

	// PlayingInterval is the minimum gap while a track is playing. It is
	// longer so refreshes don't compete with playback for rate-limited
	// API capacity.
	PlayingInterval time.Duration

	// BackoffBase and BackoffMax delimit the exponential backoff applied
	// after render failures (including platform rate-limit responses).
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Refresher coalesces bursts of state changes into single rendered status
// updates. Schedule never blocks; a dedicated goroutine performs renders,
// paced by per-state rate limiters and an error backoff.
type Refresher struct {
	render  func(ctx context.Context) error
	playing func() bool
	cfg     RefresherConfig

	idleLimiter    *rate.Limiter
	playingLimiter *rate.Limiter

	mu          sync.Mutex
	pending     bool
	backoff     time.Duration
	nextAllowed time.Time

	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRefresher creates a Refresher around a render function. playing
// selects which pacing limiter applies.
func NewRefresher(
	render func(ctx context.Context) error,
	playing func() bool,
	cfg RefresherConfig,
) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		render:         render,
		playing:        playing,
		cfg:            cfg,
		idleLimiter:    rate.NewLimiter(rate.Every(cfg.IdleInterval), 1),
		playingLimiter: rate.NewLimiter(rate.Every(cfg.PlayingInterval), 1),
		wake:           make(chan struct{}, 1),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start launches the render loop.
func (r *Refresher) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Schedule requests a refresh. Multiple calls within one pacing window
// collapse into a single render of the latest state.
func (r *Refresher) Schedule() {
	r.mu.Lock()
	r.pending = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close stops the render loop and waits for it to exit.
func (r *Refresher) Close() {
	r.stopOnce.Do(func() {
		r.cancel()
		<-r.done
	})
}

func (r *Refresher) run() {
	defer close(r.done)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		}

		for r.takePending() {
			if err := r.waitTurn(); err != nil {
				return
			}
			r.observe(r.render(r.ctx))
		}
	}
}

func (r *Refresher) takePending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return false
	}
	r.pending = false
	return true
}

// waitTurn blocks until both the pacing limiter and the error backoff
// allow a render. Returns an error only when the refresher is closing.
func (r *Refresher) waitTurn() error {
	limiter := r.idleLimiter
	if r.playing() {
		limiter = r.playingLimiter
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()

	r.mu.Lock()
	if wait := time.Until(r.nextAllowed); wait > delay {
		delay = wait
	}
	r.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-r.ctx.Done():
		reservation.Cancel()
		return r.ctx.Err()
	case <-timer.C:
		return nil
	}
}

// observe feeds a render result into the backoff state: failures double
// the cooldown up to the cap, success resets it.
func (r *Refresher) observe(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		r.backoff = 0
		r.nextAllowed = time.Time{}
		return
	}

	if r.backoff == 0 {
		r.backoff = r.cfg.BackoffBase
	} else {
		r.backoff *= 2
		if r.backoff > r.cfg.BackoffMax {
			r.backoff = r.cfg.BackoffMax
		}
	}
	r.nextAllowed = time.Now().Add(r.backoff)
	// Render again once the cooldown passes; the state change that
	// triggered the failed render is still unrendered.
	r.pending = true
	select {
	case r.wake <- struct{}{}:
	default:
	}

	slog.Warn("status render failed, backing off",
		"backoff", r.backoff, "error", err)
}
