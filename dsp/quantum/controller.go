package quantum

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPumpInterval = 10 * time.Millisecond

// Controller drives a Processor whose callback runs on its own thread.
//
// Send prepares events on the calling goroutine, including every
// allocation an Initialize needs, and queues the result for the callback.
// Run pumps callback notifications to the notifier and releases sessions
// the callback has retired.
type Controller struct {
	p        *Processor
	interval time.Duration

	mu sync.Mutex
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPumpInterval sets how often Run drains notifications.
func WithPumpInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewController attaches a controller to p. It must be called before the
// callback starts running, and at most once per processor.
func NewController(p *Processor, opts ...ControllerOption) (*Controller, error) {
	if p == nil {
		return nil, errors.New("quantum: nil processor")
	}
	if p.threaded {
		return nil, ErrControllerAttached
	}
	p.threaded = true

	c := &Controller{p: p, interval: defaultPumpInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Processor returns the controlled processor.
func (c *Controller) Processor() *Processor {
	return c.p
}

// Send prepares ev and queues it for the next callback. It is safe for
// concurrent use. Errors are the same as for Processor.OnControlEvent, plus
// ErrMailboxFull.
func (c *Controller) Send(ev ControlEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.p.handle(ev, c.p.enqueue)
}

// Pump delivers pending notifications and releases retired sessions once.
// It is called by Run and must not be called concurrently with it.
func (c *Controller) Pump() int {
	n := c.p.Poll(nil)
	c.p.collectRetired()
	return n
}

// Run pumps until ctx is done, then pumps a final time.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var dropped, leaked uint64
	for {
		select {
		case <-ctx.Done():
			c.Pump()
			return nil
		case <-ticker.C:
			c.Pump()

			if d := c.p.dropped.Load(); d != dropped {
				c.p.logger.Warn("notifications dropped", zap.Uint64("total", d), zap.Uint64("new", d-dropped))
				dropped = d
			}
			if l := c.p.leaked.Load(); l != leaked {
				c.p.logger.Warn("retired sessions not released", zap.Uint64("total", l))
				leaked = l
			}
		}
	}
}
