// Package interval provides a tick scheduler anchored to a fixed start time.
// Unlike time.Ticker it keeps a monotonically increasing tick sequence and
// emits catch-up ticks for cadences missed while the process was busy.
package interval

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LocalRunner implements Runner using local time.
// A tick fires at anchor + K * interval, for K = 0,1,2,...
type LocalRunner struct {
	// Log and lifecycle
	log     zerolog.Logger
	cancel  context.CancelFunc
	started bool
	// Handler
	handler TickCallback
	// Time management
	interval time.Duration
	now      func() time.Time
	anchor   time.Time
}

// NewLocalRunner constructs a LocalRunner.
// If cfg.Handler is nil, SetHandler must be called before Start.
func NewLocalRunner(cfg Config) Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	return &LocalRunner{
		handler:  cfg.Handler,
		interval: cfg.Interval,
		now:      cfg.Now,
		anchor:   cfg.Anchor,
		log:      cfg.Logger,
	}
}

// SetHandler sets the handler to be called on every tick.
// It should be called before Start; otherwise Start will panic.
func (r *LocalRunner) SetHandler(handler TickCallback) {
	r.handler = handler
}

// Start begins emitting ticks until the context is canceled or Stop is called.
func (r *LocalRunner) Start(ctx context.Context) error {
	if r.handler == nil {
		panic("interval: LocalRunner requires a handler to start")
	}

	if r.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true

	if r.anchor.IsZero() {
		r.anchor = r.now()
	}

	go r.run(runCtx)
	return nil
}

// Stop halts the runner.
func (r *LocalRunner) Stop(context.Context) error {
	if !r.started {
		return nil
	}

	r.started = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return nil
}

// run is invoked in Start and calls the handler whenever a tick is due.
// Track lastEmitted to ensure all missed ticks are emitted up to the latest one.
func (r *LocalRunner) run(ctx context.Context) {
	now := r.now()
	var lastEmitted uint64
	hasEmitted := false

	// Compute the next tick time
	var nextStart time.Time
	if now.Before(r.anchor) {
		nextStart = r.anchor
	} else {
		currentSeq, tickStart := r.TickForTime(now)
		if err := r.emit(ctx, currentSeq, tickStart); err != nil {
			return
		}
		lastEmitted = currentSeq
		hasEmitted = true
		nextStart = r.tickStart(currentSeq + 1)
	}

	// Set up timer for next tick
	delay := nextStart.Sub(now)
	if delay < 0 {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			now = r.now()
			// Compute next tick time
			if now.Before(r.anchor) {
				nextStart = r.anchor
			} else {
				// Emit events for all missed ticks
				currentSeq, _ := r.TickForTime(now)
				startSeq := currentSeq
				if hasEmitted {
					startSeq = lastEmitted + 1
				}
				for seq := startSeq; seq <= currentSeq; seq++ {
					start := r.tickStart(seq)
					if err := r.emit(ctx, seq, start); err != nil {
						return
					}
					lastEmitted = seq
					hasEmitted = true
				}
				nextStart = r.tickStart(lastEmitted + 1)
			}
			// Set timer for next tick
			delay = nextStart.Sub(r.now())
			if delay < 0 {
				delay = 0
			}
			timer.Reset(delay)
		}
	}
}

// emit triggers the handler with the provided Tick.
func (r *LocalRunner) emit(ctx context.Context, seq uint64, startedAt time.Time) error {
	tick := Tick{
		Seq:       seq,
		StartedAt: startedAt,
		Interval:  r.interval,
	}

	if err := r.handler(ctx, tick); err != nil {
		r.log.Error().Err(err).Uint64("tick_seq", seq).Msg("tick handler returned error")
		return err
	}
	return nil
}

// TickForTime returns the tick sequence and the corresponding tick start time for the given timestamp.
func (r *LocalRunner) TickForTime(t time.Time) (uint64, time.Time) {
	if t.Before(r.anchor) {
		return 0, r.anchor
	}

	elapsed := t.Sub(r.anchor)
	currentSeq := uint64(elapsed / r.interval)
	start := r.tickStart(currentSeq)
	return currentSeq, start
}

// tickStart returns the start time for the given tick sequence.
func (r *LocalRunner) tickStart(seq uint64) time.Time {
	return r.anchor.Add(time.Duration(seq) * r.interval)
}
