// Package app is the Morse-Smale window controller. One event loop owns the
// scene, the camera rig, the pick state and the evaluation session; every
// mutation, including network completions, runs on that loop.
package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/dspacex/msview/internal/coalesce"
	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/logging"
	"github.com/dspacex/msview/internal/metrics"
	"github.com/dspacex/msview/internal/picking"
	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/geometry"
	"github.com/dspacex/msview/pkg/viewer"
)

// ErrStopped is returned by calls made after the event loop ended
var ErrStopped = errors.New("window stopped")

// Handlers are the notifications the window sends to its container. They
// are called on the event loop and must not block.
type Handlers struct {
	// OnCrystalSelection receives the samples of a newly picked crystal
	OnCrystalSelection func(crystal scene.CrystalID, samples []int)
	// OnSample receives the image of a single-sample evaluation
	OnSample func(crystal scene.CrystalID, percent float64, img image.Image)
	// OnDrawerUpdate receives the thumbnails of a batch evaluation
	OnDrawerUpdate func(crystal scene.CrystalID, thumbnails []dspacex.Thumbnail)
	// OnChange is called with the new snapshot after every event
	OnChange func(*Snapshot)
}

// Options configures a Window
type Options struct {
	Service dspacex.Service
	Logger  *slog.Logger
	Metrics *metrics.Collectors

	Camera        viewer.CameraMode
	Width, Height float64

	// SampleCount is the batch size of a drawer evaluation
	SampleCount int
	// ScrubSampleCount is the number of samples per scrub evaluation
	ScrubSampleCount int
	Validate         bool

	Handlers Handlers
}

// Window is the Morse-Smale viewer state
type Window struct {
	svc      dspacex.Service
	logger   *slog.Logger
	metrics  *metrics.Collectors
	opts     Options
	handlers Handlers

	events   chan func()
	done     chan struct{}
	snapshot atomic.Pointer[Snapshot]

	// owned by the event loop
	ctx        context.Context
	descriptor scene.Descriptor
	// shown is the descriptor the current scene was built from
	shown      scene.Descriptor
	generation uint64
	loading    bool
	scene      *scene.Scene
	rig        *viewer.Rig
	canvas     geometry.Rect
	pick       picking.State
	session    *coalesce.Coalescer
}

// New creates a window. Nothing happens until Run is called.
func New(opts Options) *Window {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = &metrics.Collectors{}
	}
	if opts.SampleCount < 1 {
		opts.SampleCount = 50
	}
	if opts.ScrubSampleCount < 1 {
		opts.ScrubSampleCount = 1
	}
	if !(opts.Width > 0) || !(opts.Height > 0) {
		opts.Width, opts.Height = 1, 1
	}

	w := &Window{
		svc:      opts.Service,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		opts:     opts,
		handlers: opts.Handlers,
		events:   make(chan func(), 256),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		scene:    scene.New(),
		rig:      viewer.NewRig(opts.Camera, opts.Width, opts.Height),
		canvas:   geometry.Rect{Width: opts.Width, Height: opts.Height},
	}
	w.publish()
	return w
}

// Run processes events until ctx is done
func (w *Window) Run(ctx context.Context) error {
	w.ctx = ctx
	defer func() {
		if w.session != nil {
			w.session.Close()
		}
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-w.events:
			fn()
			w.publish()
		}
	}
}

// post queues fn on the event loop. It never runs fn after the loop ended.
func (w *Window) post(fn func()) bool {
	select {
	case w.events <- fn:
		return true
	case <-w.done:
		return false
	}
}

// Sync waits until every event posted before it has been handled
func (w *Window) Sync(ctx context.Context) error {
	handled := make(chan struct{})
	if !w.post(func() { close(handled) }) {
		return ErrStopped
	}
	select {
	case <-handled:
		return nil
	case <-w.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state after the last handled event
func (w *Window) Snapshot() *Snapshot {
	return w.snapshot.Load()
}

func (w *Window) publish() {
	s := w.buildSnapshot()
	w.snapshot.Store(s)
	if w.handlers.OnChange != nil {
		w.handlers.OnChange(s)
	}
}
