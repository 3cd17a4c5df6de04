package app

import (
	"image/color"

	"github.com/dspacex/msview/internal/picking"
	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/geometry"
	"github.com/dspacex/msview/pkg/viewer"
)

// CrystalView is a crystal ready to be drawn. Points are in world space and
// Colors has one entry per point.
type CrystalView struct {
	ID     scene.CrystalID
	Points []geometry.Vector3
	Colors []color.NRGBA
	Visual scene.Visual
}

// Snapshot is an immutable copy of the window state
type Snapshot struct {
	Descriptor scene.Descriptor
	Shown      scene.Descriptor
	Generation uint64
	Loading    bool
	Crystals   []CrystalView
	Extrema    []scene.Extremum
	Marker     scene.Marker
	Camera     viewer.CameraState
	Canvas     geometry.Rect
	Pick       picking.State
}

// Crystal returns the view of a crystal
func (s *Snapshot) Crystal(id scene.CrystalID) (CrystalView, bool) {
	for _, c := range s.Crystals {
		if c.ID == id {
			return c, true
		}
	}
	return CrystalView{}, false
}

func (w *Window) buildSnapshot() *Snapshot {
	crystals := w.scene.Crystals()
	s := &Snapshot{
		Descriptor: w.descriptor,
		Shown:      w.shown,
		Generation: w.generation,
		Loading:    w.loading,
		Crystals:   make([]CrystalView, 0, len(crystals)),
		Extrema:    append([]scene.Extremum(nil), w.scene.Extrema()...),
		Marker:     w.scene.Marker(),
		Camera:     w.rig.Active(),
		Canvas:     w.canvas,
		Pick:       w.pick,
	}

	for _, c := range crystals {
		pts := c.Curve.Points
		view := CrystalView{
			ID:     c.ID,
			Points: make([]geometry.Vector3, len(pts)),
			Colors: make([]color.NRGBA, len(pts)),
			Visual: c.Visual,
		}
		for i, p := range pts {
			view.Points[i] = c.Model.TransformPoint(p)
			u := 0.0
			if len(pts) > 1 {
				u = float64(i) / float64(len(pts)-1)
			}
			view.Colors[i] = c.ColorAt(u)
		}
		s.Crystals = append(s.Crystals, view)
	}
	return s
}

var markerColor = color.NRGBA{R: 20, G: 20, B: 20, A: 255}

// Frame converts the snapshot into something the view can draw
func (s *Snapshot) Frame() viewer.Frame {
	f := viewer.Frame{
		Camera:     s.Camera,
		Background: viewer.Background,
	}
	for _, c := range s.Crystals {
		f.Strokes = append(f.Strokes, viewer.Stroke{
			Points:  c.Points,
			Colors:  c.Colors,
			Opacity: c.Visual.Opacity(),
			Width:   3,
			Outline: c.Visual == scene.Selected,
		})
	}
	for _, e := range s.Extrema {
		f.Dots = append(f.Dots, viewer.Dot{Center: e.Position, Radius: scene.ExtremumRadius, Color: e.Color})
	}
	if s.Marker.Visible {
		f.Dots = append(f.Dots, viewer.Dot{
			Center: s.Marker.Position,
			Radius: scene.MarkerRadius,
			Color:  markerColor,
			Ring:   true,
		})
	}
	return f
}
