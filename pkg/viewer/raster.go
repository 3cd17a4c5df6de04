package viewer

import (
	"image"
	"image/color"
	"math"

	"github.com/dspacex/msview/pkg/geometry"
)

// Stroke is a polyline drawn with per-point colors
type Stroke struct {
	Points  []geometry.Vector3
	Colors  []color.NRGBA
	Opacity float64
	// Width in pixels
	Width float64
	// Outline draws a white halo around the stroke
	Outline bool
}

// Dot is a sphere drawn as a screen-space disc
type Dot struct {
	Center geometry.Vector3
	// Radius in world units
	Radius float64
	Color  color.NRGBA
	// Ring draws only the rim
	Ring bool
}

// Frame is everything needed to draw one picture of the scene
type Frame struct {
	Camera     CameraState
	Strokes    []Stroke
	Dots       []Dot
	Background color.NRGBA
}

// Raster is a color image with a depth buffer. Depth is NDC z; smaller is
// closer to the camera.
type Raster struct {
	Image *image.NRGBA
	depth []float64
}

// NewRaster creates a raster cleared to bg
func NewRaster(width, height int, bg color.NRGBA) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	r := &Raster{
		Image: image.NewNRGBA(image.Rect(0, 0, width, height)),
		depth: make([]float64, width*height),
	}
	r.Clear(bg)
	return r
}

// Clear fills the image with bg and resets depth
func (r *Raster) Clear(bg color.NRGBA) {
	b := r.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r.Image.SetNRGBA(x, y, bg)
		}
	}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
}

// plot blends col over the pixel when z passes the depth test
func (r *Raster) plot(x, y int, z float64, col color.NRGBA, opacity float64) {
	b := r.Image.Bounds()
	if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
		return
	}
	idx := y*b.Dx() + x
	if z > r.depth[idx] {
		return
	}
	if opacity >= 1 {
		r.depth[idx] = z
		r.Image.SetNRGBA(x, y, col)
		return
	}
	// translucent pixels blend but do not occlude
	dst := r.Image.NRGBAAt(x, y)
	a := opacity * float64(col.A) / 255
	blend := func(s, d uint8) uint8 {
		return uint8(math.Round(float64(s)*a + float64(d)*(1-a)))
	}
	r.Image.SetNRGBA(x, y, color.NRGBA{
		R: blend(col.R, dst.R),
		G: blend(col.G, dst.G),
		B: blend(col.B, dst.B),
		A: 255,
	})
}

// DrawLine draws a line between two points in pixel space with depth,
// interpolating color along the line
func (r *Raster) DrawLine(p0, p1 geometry.Vector3, c0, c1 color.NRGBA, width, opacity float64) {
	dx := p1.X - p0.X
	dy := p1.Y - p0.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps < 1 {
		steps = 1
	}
	half := int(math.Max(0, math.Round((width-1)/2)))

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(p0.X + t*dx))
		y := int(math.Round(p0.Y + t*dy))
		z := p0.Z + t*(p1.Z-p0.Z)
		col := lerpColor(c0, c1, t)
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				r.plot(x+ox, y+oy, z, col, opacity)
			}
		}
	}
}

// FillDisc draws a filled disc, or only its rim when ring is set
func (r *Raster) FillDisc(center geometry.Vector3, radius float64, col color.NRGBA, ring bool) {
	rad := int(math.Ceil(radius))
	inner := (radius - 2) * (radius - 2)
	outer := radius * radius
	cx := int(math.Round(center.X))
	cy := int(math.Round(center.Y))
	for y := -rad; y <= rad; y++ {
		for x := -rad; x <= rad; x++ {
			d := float64(x*x + y*y)
			if d > outer || (ring && d < inner) {
				continue
			}
			r.plot(cx+x, cy+y, center.Z, col, 1)
		}
	}
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// toPixel projects a world point into pixel space keeping NDC depth
func toPixel(p geometry.Vector3, viewProjection geometry.Matrix4, bounds geometry.Rect) (geometry.Vector3, bool) {
	ndc, ok := geometry.ProjectPointDepth(p, geometry.Identity(), viewProjection)
	if !ok || ndc.Z < -1 || ndc.Z > 1 {
		return geometry.Vector3{}, false
	}
	px := geometry.NormalizedToPixel(geometry.Vector2{X: ndc.X, Y: ndc.Y}, bounds)
	return geometry.NewVector3(px.X, px.Y, ndc.Z), true
}

// pixelRadius converts a world radius at p to pixels
func pixelRadius(p geometry.Vector3, radius float64, cam CameraState, bounds geometry.Rect) float64 {
	_, _, up := cam.basis()
	vp := cam.ViewProjection()
	a, okA := toPixel(p, vp, bounds)
	b, okB := toPixel(p.Add(up.Mul(radius)), vp, bounds)
	if !okA || !okB {
		return 0
	}
	return math.Max(1.5, math.Hypot(b.X-a.X, b.Y-a.Y))
}

// Render draws f into a new image of the given size
func Render(f Frame, width, height int) *image.NRGBA {
	r := NewRaster(width, height, f.Background)
	if width == 0 || height == 0 {
		return r.Image
	}
	bounds := geometry.Rect{Width: float64(width), Height: float64(height)}
	vp := f.Camera.ViewProjection()

	// opaque geometry first so translucent strokes blend over it
	for _, d := range f.Dots {
		c, ok := toPixel(d.Center, vp, bounds)
		if !ok {
			continue
		}
		r.FillDisc(c, pixelRadius(d.Center, d.Radius, f.Camera, bounds), d.Color, d.Ring)
	}
	for _, s := range sortedStrokes(f.Strokes) {
		drawStroke(r, s, vp, bounds)
	}
	return r.Image
}

// sortedStrokes puts opaque strokes before translucent ones
func sortedStrokes(strokes []Stroke) []Stroke {
	out := make([]Stroke, 0, len(strokes))
	for _, s := range strokes {
		if s.Opacity >= 1 {
			out = append(out, s)
		}
	}
	for _, s := range strokes {
		if s.Opacity < 1 {
			out = append(out, s)
		}
	}
	return out
}

var outlineColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func drawStroke(r *Raster, s Stroke, vp geometry.Matrix4, bounds geometry.Rect) {
	colorAt := func(i int) color.NRGBA {
		if i < len(s.Colors) {
			return s.Colors[i]
		}
		return outlineColor
	}
	for i := 1; i < len(s.Points); i++ {
		p0, ok0 := toPixel(s.Points[i-1], vp, bounds)
		p1, ok1 := toPixel(s.Points[i], vp, bounds)
		if !ok0 || !ok1 {
			continue
		}
		if s.Outline {
			r.DrawLine(p0, p1, outlineColor, outlineColor, s.Width+4, s.Opacity)
		}
		r.DrawLine(p0, p1, colorAt(i-1), colorAt(i), s.Width, s.Opacity)
	}
}
