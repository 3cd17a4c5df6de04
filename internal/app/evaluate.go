package app

import (
	"github.com/dspacex/msview/internal/coalesce"
	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/scene"
)

// openSession starts a fresh coalescing session for a new selection. The
// previous session is closed so its late results never show.
func (w *Window) openSession() {
	w.closeSession()
	var session *coalesce.Coalescer
	// results are posted in dispatch order because the coalescer dispatches
	// the next request only after apply returns
	apply := func(req dspacex.EvalRequest, res *dspacex.EvalResult) {
		w.post(func() {
			w.applyEval(session, req, res)
		})
	}
	session = coalesce.New(w.ctx, w.svc, apply,
		coalesce.WithLogger(w.logger),
		coalesce.WithMetrics(w.metrics.Eval))
	w.session = session
}

func (w *Window) closeSession() {
	if w.session == nil {
		return
	}
	w.session.Close()
	w.session = nil
}

func (w *Window) evaluate(id scene.CrystalID, percent float64, batch bool) {
	if w.session == nil {
		w.openSession()
	}
	d := w.shown
	req := dspacex.EvalRequest{
		DatasetID:        d.DatasetID,
		Category:         d.Category,
		Field:            d.Field,
		PersistenceLevel: d.PersistenceLevel,
		Crystal:          int(id),
		SampleCount:      w.opts.ScrubSampleCount,
		Validate:         w.opts.Validate,
		Percent:          percent,
	}
	if batch {
		req.SampleCount = w.opts.SampleCount
		req.ShowOriginal = true
	}
	w.session.Submit(req)
}

func (w *Window) applyEval(session *coalesce.Coalescer, req dspacex.EvalRequest, res *dspacex.EvalResult) {
	id := scene.CrystalID(req.Crystal)
	if session != w.session || !w.pick.HasSelection() || w.pick.Crystal != id {
		w.logger.Debug("discarding stale evaluation", "crystal", req.Crystal, "percent", req.Percent)
		return
	}
	if len(res.Thumbnails) == 0 {
		w.logger.Debug("evaluation returned no samples", "crystal", req.Crystal, "msg", res.Msg)
		return
	}

	if req.SampleCount > 1 {
		w.logger.Info("drawer updated", "crystal", req.Crystal, "samples", len(res.Thumbnails), "msg", res.Msg)
		if w.handlers.OnDrawerUpdate != nil {
			w.handlers.OnDrawerUpdate(id, res.Thumbnails)
		}
		return
	}

	img, err := res.Thumbnails[0].Decode()
	if err != nil {
		w.logger.Warn("cannot decode sample", "crystal", req.Crystal, "error", err)
		return
	}
	if w.handlers.OnSample != nil {
		w.handlers.OnSample(id, req.Percent, img)
	}
}

func (w *Window) queryPartition(id scene.CrystalID) {
	ctx, gen, d := w.ctx, w.generation, w.shown
	go func() {
		p, err := w.svc.FetchCrystalPartition(ctx, d.DatasetID, d.PersistenceLevel, int(id))
		w.post(func() {
			if err != nil {
				w.logger.Warn("fetch crystal partition failed", "crystal", id, "error", err)
				return
			}
			if gen != w.generation || w.pick.Crystal != id || !w.pick.HasSelection() {
				return
			}
			if w.handlers.OnCrystalSelection != nil {
				w.handlers.OnCrystalSelection(id, p.CrystalSamples)
			}
		})
	}()
}
