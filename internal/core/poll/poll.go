package poll

import (
	"context"
	"errors"
	"time"
)

// Defaults match how long the server typically needs to start synthesis
const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 500 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

// ErrTimeout is returned when the artifact never appeared
var ErrTimeout = errors.New("artifact not ready before timeout")

// Config controls a single wait
type Config struct {
	InitialDelay time.Duration // Before the first check
	Interval     time.Duration // Between checks
	Timeout      time.Duration // Measured from the end of InitialDelay
}

// DefaultConfig returns the standard 2s / 500ms / 30s schedule
func DefaultConfig() Config {
	return Config{
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
		Timeout:      DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// CheckFunc reports whether the artifact exists. Errors count as "not yet".
type CheckFunc func(ctx context.Context) (bool, error)

// Wait blocks until check succeeds, the timeout elapses, or ctx is done.
//
// The first check runs one Interval after InitialDelay. It returns nil on
// success, ErrTimeout on timeout, and ctx.Err() on cancellation. A slow check
// never delays the timeout: at most one check is in flight, its context ends
// at the poll deadline, and ticks that arrive while it runs are skipped. No
// check starts after Wait returns and the one in flight is cancelled.
func Wait(ctx context.Context, cfg Config, check CheckFunc) error {
	cfg = cfg.withDefaults()

	if cfg.InitialDelay > 0 {
		delay := time.NewTimer(cfg.InitialDelay)
		select {
		case <-ctx.Done():
			delay.Stop()
			return ctx.Err()
		case <-delay.C:
		}
	}

	deadline := time.NewTimer(cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	results := make(chan bool, 1)
	inFlight := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrTimeout
		case ok := <-results:
			inFlight = false
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ok {
				return nil
			}
		case <-ticker.C:
			// Deadline wins a tie with a tick
			select {
			case <-deadline.C:
				return ErrTimeout
			default:
			}
			if inFlight {
				continue
			}
			inFlight = true
			go func() {
				ok, err := check(checkCtx)
				results <- err == nil && ok
			}()
		}
	}
}
