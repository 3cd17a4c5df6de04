// Package scene keeps the renderable state of one decomposition: crystals
// keyed by their id, extrema and the position marker. It knows nothing about
// the renderer; picking works on crystal ids.
package scene

import (
	"image/color"
	"math"
	"sort"
	"strconv"

	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/pkg/geometry"
)

// CrystalID is the stable id of a crystal within one decomposition
type CrystalID int

// Visual is the highlight state of a crystal
type Visual int

const (
	Unselected Visual = iota
	Selected
)

// Opacity returns the opacity used to draw a crystal in this state
func (v Visual) Opacity() float64 {
	if v == Selected {
		return 1.0
	}
	return 0.75
}

// Geometry of the drawn objects in world units
const (
	TubeRadius     = 0.02
	ExtremumRadius = 0.05
	MarkerRadius   = 0.04
	// CurveSegments is the number of samples along each regression curve
	CurveSegments = 50
	// DefaultPickRadius is how close a ray has to pass a curve to hit it
	DefaultPickRadius = 0.05
)

// Crystal is one cell of the decomposition drawn as a regression curve
type Crystal struct {
	ID   CrystalID
	Name string
	// Control holds the regression points sent by the server
	Control []geometry.Vector3
	Colors  []color.NRGBA
	Curve   geometry.Polyline
	Model   geometry.Matrix4
	Visual  Visual
}

// PointAt returns the world position at fraction u along the crystal
func (c *Crystal) PointAt(u float64) geometry.Vector3 {
	return c.Model.TransformPoint(c.Curve.PointAt(u))
}

// ColorAt returns the color of the regression point nearest to fraction u
func (c *Crystal) ColorAt(u float64) color.NRGBA {
	if len(c.Colors) == 0 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	idx := int(math.Round(geometry.Clamp01(u) * float64(len(c.Colors)-1)))
	return c.Colors[idx]
}

// Endpoints returns the projected start and end of the crystal in NDC
func (c *Crystal) Endpoints(viewProjection geometry.Matrix4) (geometry.Vector2, geometry.Vector2) {
	e0 := geometry.ProjectPoint(c.Curve.Start(), c.Model, viewProjection)
	e1 := geometry.ProjectPoint(c.Curve.End(), c.Model, viewProjection)
	return e0, e1
}

// Extremum is a critical point marker. Extrema are decoration and cannot be
// picked.
type Extremum struct {
	Position geometry.Vector3
	Color    color.NRGBA
}

// Marker shows the scrub position on the selected crystal
type Marker struct {
	Visible  bool
	Crystal  CrystalID
	Percent  float64
	Position geometry.Vector3
}

// Scene holds the objects of one decomposition
type Scene struct {
	crystals map[CrystalID]*Crystal
	order    []CrystalID
	extrema  []Extremum
	marker   Marker
	bounds   geometry.BoundingBox

	// PickRadius is the hit tolerance around crystal curves
	PickRadius float64
}

// New creates an empty scene
func New() *Scene {
	return &Scene{
		crystals:   make(map[CrystalID]*Crystal),
		bounds:     geometry.NewBoundingBox(),
		PickRadius: DefaultPickRadius,
	}
}

// Clear removes every crystal, extremum and the marker
func (s *Scene) Clear() {
	s.crystals = make(map[CrystalID]*Crystal)
	s.order = nil
	s.extrema = nil
	s.marker = Marker{}
	s.bounds = geometry.NewBoundingBox()
}

// Build replaces the scene contents with the given curves and extrema.
// Crystal ids are the curve indices.
func (s *Scene) Build(regression *dspacex.RegressionCurves, extrema *dspacex.Extrema) error {
	if regression == nil {
		return dspacex.ErrNoCurves
	}
	s.Clear()

	for i, rc := range regression.Curves {
		id := CrystalID(i)
		c := &Crystal{
			ID:      id,
			Name:    strconv.Itoa(i),
			Control: make([]geometry.Vector3, len(rc.Points)),
			Colors:  make([]color.NRGBA, len(rc.Colors)),
			Model:   geometry.Identity(),
			Visual:  Unselected,
		}
		for j, p := range rc.Points {
			c.Control[j] = geometry.NewVector3(p[0], p[1], p[2])
		}
		for j, col := range rc.Colors {
			c.Colors[j] = toNRGBA(col)
		}
		c.Curve = geometry.CatmullRom(c.Control, CurveSegments)

		s.crystals[id] = c
		s.order = append(s.order, id)
		s.bounds.Union(c.Curve.Bounds())
	}

	if extrema != nil {
		for _, e := range extrema.Extrema {
			pos := geometry.NewVector3(e.Position[0], e.Position[1], e.Position[2])
			s.extrema = append(s.extrema, Extremum{Position: pos, Color: toNRGBA(e.Color)})
			s.bounds.Extend(pos)
		}
	}
	return nil
}

func toNRGBA(c [3]float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(math.Round(geometry.Clamp01(c[0]) * 255)),
		G: uint8(math.Round(geometry.Clamp01(c[1]) * 255)),
		B: uint8(math.Round(geometry.Clamp01(c[2]) * 255)),
		A: 255,
	}
}

// Len returns the number of crystals
func (s *Scene) Len() int {
	return len(s.order)
}

// Crystal returns the crystal with the given id
func (s *Scene) Crystal(id CrystalID) (*Crystal, bool) {
	c, ok := s.crystals[id]
	return c, ok
}

// Crystals returns all crystals ordered by id
func (s *Scene) Crystals() []*Crystal {
	out := make([]*Crystal, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.crystals[id])
	}
	return out
}

// Extrema returns the extrema markers
func (s *Scene) Extrema() []Extremum {
	return s.extrema
}

// Bounds returns the bounding box of all objects
func (s *Scene) Bounds() geometry.BoundingBox {
	return s.bounds
}

// SetVisual changes the highlight state of a crystal
func (s *Scene) SetVisual(id CrystalID, v Visual) bool {
	c, ok := s.crystals[id]
	if !ok {
		return false
	}
	c.Visual = v
	return true
}

// PlaceMarker shows the marker at fraction percent along a crystal
func (s *Scene) PlaceMarker(id CrystalID, percent float64) bool {
	c, ok := s.crystals[id]
	if !ok {
		return false
	}
	percent = geometry.Clamp01(percent)
	s.marker = Marker{
		Visible:  true,
		Crystal:  id,
		Percent:  percent,
		Position: c.PointAt(percent),
	}
	return true
}

// HideMarker removes the marker from the scene
func (s *Scene) HideMarker() {
	s.marker = Marker{}
}

// Marker returns the current marker
func (s *Scene) Marker() Marker {
	return s.marker
}

// HitKind tells what a pick ray hit
type HitKind int

const (
	HitNone HitKind = iota
	HitCrystal
	HitMarker
)

// Hit is the result of a pick
type Hit struct {
	Kind     HitKind
	Crystal  CrystalID
	Distance float64
}

// Pick returns the object nearest to the ray origin. Crystals without a
// name and extrema are never hit. The marker counts as a hit on its crystal
// with kind HitMarker.
func (s *Scene) Pick(ray geometry.Ray) Hit {
	var hits []Hit

	for _, id := range s.order {
		c := s.crystals[id]
		// unnamed crystals are decoration added by callers
		if c.Name == "" {
			continue
		}
		if d, ok := s.hitCurve(ray, c); ok {
			hits = append(hits, Hit{Kind: HitCrystal, Crystal: id, Distance: d})
		}
	}

	if s.marker.Visible {
		if d, ok := ray.IntersectSphere(s.marker.Position, MarkerRadius); ok {
			hits = append(hits, Hit{Kind: HitMarker, Crystal: s.marker.Crystal, Distance: d})
		}
	}

	if len(hits) == 0 {
		return Hit{Kind: HitNone}
	}
	// nearest intersection to the camera wins
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits[0]
}

func (s *Scene) hitCurve(ray geometry.Ray, c *Crystal) (float64, bool) {
	pts := c.Curve.Points
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		a := c.Model.TransformPoint(pts[i-1])
		b := c.Model.TransformPoint(pts[i])
		dist, along := ray.ClosestToSegment(a, b)
		if dist <= s.PickRadius && along < best {
			best = along
		}
	}
	return best, !math.IsInf(best, 1)
}
