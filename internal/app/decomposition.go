package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/scene"
)

// SetDescriptor shows the decomposition d. A descriptor equal to the
// current one is ignored. Any other descriptor drops the selection at once
// and fetches the new curves and extrema; the current scene stays until the
// fetch succeeds and is kept if it fails.
func (w *Window) SetDescriptor(d scene.Descriptor) {
	w.post(func() {
		if d.Equal(w.descriptor) {
			w.logger.Debug("decomposition unchanged", "decomposition", d.String())
			return
		}
		w.descriptor = d
		w.rebuild()
	})
}

// Reload fetches the current decomposition again
func (w *Window) Reload() {
	w.post(func() {
		if w.descriptor.IsZero() {
			return
		}
		w.rebuild()
	})
}

// Descriptor returns the decomposition of the last handled event
func (w *Window) Descriptor() scene.Descriptor {
	return w.Snapshot().Descriptor
}

func (w *Window) rebuild() {
	w.generation++
	w.resetPick()
	if w.descriptor.IsZero() {
		w.scene = scene.New()
		w.shown = scene.Descriptor{}
		w.loading = false
		return
	}

	ctx, gen, d := w.ctx, w.generation, w.descriptor
	w.loading = true
	w.logger.Info("fetching decomposition", "decomposition", d.String())

	go func() {
		regression, extrema, err := w.fetchDecomposition(ctx, d)
		w.post(func() {
			w.applyDecomposition(gen, d, regression, extrema, err)
		})
	}()
}

func (w *Window) fetchDecomposition(ctx context.Context, d scene.Descriptor) (*dspacex.RegressionCurves, *dspacex.Extrema, error) {
	q := d.Query()
	var (
		regression *dspacex.RegressionCurves
		extrema    *dspacex.Extrema
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := w.svc.FetchRegressionCurves(gctx, q)
		if err != nil {
			return fmt.Errorf("fetch regression curves: %w", err)
		}
		regression = r
		return nil
	})
	g.Go(func() error {
		e, err := w.svc.FetchExtrema(gctx, q)
		if err != nil {
			return fmt.Errorf("fetch extrema: %w", err)
		}
		extrema = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return regression, extrema, nil
}

func (w *Window) applyDecomposition(gen uint64, d scene.Descriptor, regression *dspacex.RegressionCurves, extrema *dspacex.Extrema, err error) {
	if gen != w.generation {
		w.logger.Debug("dropping superseded decomposition", "decomposition", d.String())
		return
	}
	w.loading = false

	next := scene.New()
	if err == nil {
		err = next.Build(regression, extrema)
	}
	if err != nil {
		w.metrics.Scene.FetchFailed()
		w.logger.Warn("keeping previous scene",
			"dataset", d.DatasetID,
			"category", d.Category,
			"field", d.Field,
			"k", d.K,
			"persistence_level", d.PersistenceLevel,
			"error", err)
		return
	}

	// a selection made on the previous scene during the fetch does not
	// carry over
	w.resetPick()
	w.scene = next
	w.shown = d
	w.metrics.Scene.Rebuilt()
	if w.rig.Rehome(next.Bounds()) {
		w.rig.Reset()
	}
	w.logger.Info("decomposition loaded",
		"decomposition", d.String(),
		"crystals", next.Len(),
		"extrema", len(next.Extrema()))
}
