// Package coalesce bounds model evaluations to one call in flight while
// keeping the most recent request of a scrub.
package coalesce

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/metrics"
)

// Evaluator runs one model evaluation
type Evaluator interface {
	EvalModelForCrystal(ctx context.Context, req dspacex.EvalRequest) (*dspacex.EvalResult, error)
}

// ApplyFunc receives each successful result, in dispatch order
type ApplyFunc func(req dspacex.EvalRequest, res *dspacex.EvalResult)

// Stats counts what happened to submitted requests
type Stats struct {
	Submitted  int
	Dispatched int
	Superseded int
	Failed     int
	Applied    int
}

// Option configures a Coalescer
type Option func(*Coalescer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coalescer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records into m
func WithMetrics(m *metrics.Eval) Option {
	return func(c *Coalescer) {
		c.metrics = m
	}
}

// Coalescer is one coalescing session. A new selection gets a new
// Coalescer; the old one is closed so its late results are dropped.
type Coalescer struct {
	ctx     context.Context
	eval    Evaluator
	apply   ApplyFunc
	logger  *slog.Logger
	metrics *metrics.Eval

	mu     sync.Mutex
	slots  Slots
	closed bool
	stats  Stats
	idle   chan struct{}
}

// New creates a session. Evaluations run with ctx.
func New(ctx context.Context, eval Evaluator, apply ApplyFunc, opts ...Option) *Coalescer {
	c := &Coalescer{
		ctx:    ctx,
		eval:   eval,
		apply:  apply,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		idle:   make(chan struct{}),
	}
	close(c.idle)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit dispatches req right away when nothing is in flight, otherwise it
// becomes the pending request and replaces any older pending one. Submit
// never blocks on the evaluation.
func (c *Coalescer) Submit(req dspacex.EvalRequest) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	wasIdle := c.slots.Idle()
	next, dispatch, superseded := c.slots.Submit(req)
	c.slots = next
	c.stats.Submitted++
	if superseded != nil {
		c.stats.Superseded++
	}
	if dispatch != nil {
		c.stats.Dispatched++
	}
	if wasIdle {
		c.idle = make(chan struct{})
	}
	c.mu.Unlock()

	c.metrics.Submitted()
	if superseded != nil {
		c.metrics.Superseded()
		c.logger.Debug("pending evaluation superseded",
			"crystal", superseded.Crystal, "percent", superseded.Percent)
	}
	if dispatch != nil {
		c.dispatch(*dispatch)
	}
}

func (c *Coalescer) dispatch(req dspacex.EvalRequest) {
	c.metrics.Dispatched()
	go func() {
		start := time.Now()
		res, err := c.eval.EvalModelForCrystal(c.ctx, req)
		c.metrics.Completed(time.Since(start), err != nil)
		c.complete(req, res, err)
	}()
}

// complete applies the result of req and then dispatches the pending
// request, so results are applied in dispatch order
func (c *Coalescer) complete(req dspacex.EvalRequest, res *dspacex.EvalResult, err error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	switch {
	case err != nil:
		c.logger.Warn("model evaluation failed",
			"crystal", req.Crystal, "percent", req.Percent, "error", err)
	case closed:
		c.logger.Debug("dropping evaluation of closed session", "crystal", req.Crystal)
	case res != nil && c.apply != nil:
		c.apply(req, res)
	}

	c.mu.Lock()
	if err != nil {
		c.stats.Failed++
	} else if !closed {
		c.stats.Applied++
	}
	next, dispatch := c.slots.Complete()
	if c.closed {
		next, dispatch = Slots{}, nil
	}
	c.slots = next
	if dispatch != nil {
		c.stats.Dispatched++
	} else {
		close(c.idle)
	}
	c.mu.Unlock()

	if dispatch != nil {
		c.dispatch(*dispatch)
	}
}

// Close ends the session: the pending request is dropped and a late result
// of the in-flight call is ignored
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.slots.Pending = nil
}

// Slots returns a copy of the current slots
func (c *Coalescer) Slots() Slots {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots
}

// Stats returns the counters of this session
func (c *Coalescer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Wait blocks until nothing is in flight or pending
func (c *Coalescer) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
