// Package interrupt turns user interrupts into a two-level stop request.
//
// The first request is soft: the running encoder is asked to quit and the
// run winds down after cleanup. A second request inside the escalation
// window, or an explicit Hard call, kills the encoder immediately.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"
)

// DefaultWindow is how close two requests must be for the second to escalate.
const DefaultWindow = 2 * time.Second

// Level is how forcefully the run was asked to stop.
type Level int

const (
	None Level = iota
	Soft
	Hard
)

func (l Level) String() string {
	switch l {
	case Soft:
		return "soft"
	case Hard:
		return "hard"
	}
	return "none"
}

// Controller owns the stop state shared between the signal handler, the UI,
// and the scheduler.
type Controller struct {
	window time.Duration
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	force  chan struct{}

	mu    sync.Mutex
	level Level
	last  time.Time
}

// New returns a Controller whose Context is cancelled on the first request.
func New(window time.Duration) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		window: window,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		force:  make(chan struct{}),
	}
}

// Context is done once any stop was requested.
func (c *Controller) Context() context.Context { return c.ctx }

// Force is closed on a hard stop.
func (c *Controller) Force() <-chan struct{} { return c.force }

// Level returns the strongest request seen so far.
func (c *Controller) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Soft requests a graceful stop. It never downgrades a hard stop.
func (c *Controller) Soft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.now()
	c.softLocked()
}

// Hard requests an immediate stop.
func (c *Controller) Hard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.now()
	c.hardLocked()
}

// Cancel is what interactive interrupts call: the first one is soft, a
// second within the window is hard. It returns the resulting level.
func (c *Controller) Cancel() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	switch {
	case c.level == None:
		c.softLocked()
	case c.level == Soft && now.Sub(c.last) <= c.window:
		c.hardLocked()
	}
	c.last = now
	return c.level
}

func (c *Controller) softLocked() {
	if c.level >= Soft {
		return
	}
	c.level = Soft
	c.cancel()
}

func (c *Controller) hardLocked() {
	if c.level == Hard {
		return
	}
	c.softLocked()
	c.level = Hard
	close(c.force)
}

// Notify routes the given signals to Cancel until the returned stop func is called.
func (c *Controller) Notify(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ch:
				c.Cancel()
			case <-quit:
				return
			}
		}
	}()
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}

type ctxKey struct{}

// NewContext attaches c to ctx.
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the Controller attached to ctx, if any.
func FromContext(ctx context.Context) (*Controller, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Controller)
	return c, ok
}
