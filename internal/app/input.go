package app

import (
	"github.com/dspacex/msview/internal/picking"
	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/geometry"
	"github.com/dspacex/msview/pkg/viewer"
)

var _ viewer.PointerHandler = (*Window)(nil)

// Resize updates both cameras for a canvas of the given size in pixels
func (w *Window) Resize(width, height float64) {
	w.post(func() {
		w.canvas.Width, w.canvas.Height = width, height
		w.rig.Resize(width, height)
	})
}

// ToggleCamera switches between the orthographic and perspective camera.
// The selection and its highlight are kept.
func (w *Window) ToggleCamera() {
	w.post(func() {
		mode := w.rig.Toggle()
		w.logger.Debug("camera toggled", "camera", mode.String())
	})
}

// SetCamera activates the camera for mode
func (w *Window) SetCamera(mode viewer.CameraMode) {
	w.post(func() {
		if w.rig.Mode() != mode {
			w.rig.Toggle()
		}
	})
}

// ResetCamera restores the active camera to its home pose
func (w *Window) ResetCamera() {
	w.post(func() {
		w.rig.Reset()
	})
}

// Rotate orbits the camera by a pointer delta in pixels. It is ignored while
// the controls are disabled by a scrub.
func (w *Window) Rotate(dx, dy float64) {
	w.post(func() {
		w.rig.Rotate(dx, dy)
	})
}

// Zoom applies a scroll delta
func (w *Window) Zoom(delta float64) {
	w.post(func() {
		w.rig.Zoom(delta)
	})
}

// Pan moves the camera by a pointer delta in pixels
func (w *Window) Pan(dx, dy float64) {
	w.post(func() {
		w.rig.Pan(dx, dy)
	})
}

// PointerDown handles a press at pixel position (x, y) of the canvas. Ctrl
// asks a new selection for a drawer batch that includes the original
// samples of the crystal.
func (w *Window) PointerDown(x, y float64, mods viewer.Modifiers) {
	w.post(func() {
		ndc := geometry.PointerToNormalized(x, y, w.canvas)
		hit := w.scene.Pick(w.rig.Active().Ray(ndc))

		next, effects := w.pick.PointerDown(hit, projector{w})
		w.transition(next, effects, mods)
	})
}

// PointerMove handles pointer motion. During a scrub the marker follows
// the pointer and an evaluation is submitted without waiting for the
// previous one.
func (w *Window) PointerMove(x, y float64) {
	w.post(func() {
		ndc := geometry.PointerToNormalized(x, y, w.canvas)
		next, effects := w.pick.PointerMove(ndc)
		w.transition(next, effects, viewer.Modifiers{})
	})
}

// PointerUp ends a scrub
func (w *Window) PointerUp() {
	w.post(func() {
		next, effects := w.pick.PointerUp(projector{w})
		w.transition(next, effects, viewer.Modifiers{})
	})
}

func (w *Window) resetPick() {
	next, effects := w.pick.Reset()
	w.transition(next, effects, viewer.Modifiers{})
	w.closeSession()
}

func (w *Window) transition(next picking.State, effects []picking.Effect, mods viewer.Modifiers) {
	prev := w.pick
	w.pick = next
	if prev.Phase != next.Phase {
		w.logger.Debug("pick state changed",
			"from", prev.Phase.String(), "to", next.Phase.String(), "crystal", next.Crystal)
	}

	batch := false
	for _, e := range effects {
		switch e.Kind {
		case picking.EffectSelect:
			w.scene.SetVisual(e.Crystal, scene.Selected)
			w.openSession()
			// ctrl-click asks a new selection for a drawer batch
			batch = mods.Ctrl
		case picking.EffectDeselect:
			w.scene.SetVisual(e.Crystal, scene.Unselected)
		case picking.EffectControls:
			w.rig.SetControlsEnabled(e.Enabled)
		case picking.EffectMoveMarker:
			w.scene.PlaceMarker(e.Crystal, e.Percent)
		case picking.EffectHideMarker:
			w.scene.HideMarker()
		case picking.EffectEvaluate:
			w.evaluate(e.Crystal, e.Percent, batch)
		case picking.EffectQueryPartition:
			w.queryPartition(e.Crystal)
		}
	}
}

// projector projects crystal endpoints with the active camera
type projector struct {
	w *Window
}

func (p projector) Endpoints(id scene.CrystalID) (geometry.Vector2, geometry.Vector2, bool) {
	c, ok := p.w.scene.Crystal(id)
	if !ok {
		return geometry.Vector2{}, geometry.Vector2{}, false
	}
	e0, e1 := c.Endpoints(p.w.rig.Active().ViewProjection())
	return e0, e1, true
}
