package interval

import (
	"context"
	"time"
)

// Runner invokes the handler on a fixed cadence anchored to a start time.
type Runner interface {
	SetHandler(TickCallback)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// TickForTime returns the tick sequence and the tick start time for the given timestamp.
	TickForTime(t time.Time) (seq uint64, tickStart time.Time)
}

// TickCallback is the hook invoked by Runner for each tick.
type TickCallback func(context.Context, Tick) error

// Tick identifies one firing of the runner and is provided as the argument to the TickCallback hook.
type Tick struct {
	Seq       uint64
	StartedAt time.Time
	Interval  time.Duration
}
