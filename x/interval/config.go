package interval

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = 30 * time.Second

// Config configures a Runner.
type Config struct {
	// Handler is the function invoked on every tick.
	Handler TickCallback
	// Interval is the cadence between ticks.
	Interval time.Duration
	// Anchor is the timestamp at which tick 0 fires. Zero means "when Start is called".
	Anchor time.Time
	// Now returns the current time. Useful for deterministic tests. Defaults to time.Now if nil.
	Now    func() time.Time
	Logger zerolog.Logger
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(logger zerolog.Logger) Config {
	return Config{
		Handler:  nil, // Set later by an upper layer
		Interval: DefaultInterval,
		Now:      time.Now,
		Logger:   logger.With().Str("component", "interval-runner").Logger(),
	}
}

// IsEmpty returns true if all fields are at their zero values.
func (c *Config) IsEmpty() bool {
	return c.Handler == nil &&
		c.Interval == 0 &&
		c.Anchor.IsZero() &&
		c.Now == nil &&
		c.Logger.GetLevel() == zerolog.NoLevel
}
