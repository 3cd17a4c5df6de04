package viewer

import (
	"math"

	"github.com/dspacex/msview/pkg/geometry"
)

// CameraMode selects one of the two cameras of a Rig
type CameraMode int

const (
	Orthographic CameraMode = iota
	Perspective
)

func (m CameraMode) String() string {
	switch m {
	case Orthographic:
		return "orthographic"
	case Perspective:
		return "perspective"
	}
	return "unknown"
}

// ParseCameraMode parses "orthographic" or "perspective"
func ParseCameraMode(s string) (CameraMode, bool) {
	switch s {
	case "orthographic", "ortho":
		return Orthographic, true
	case "perspective", "persp":
		return Perspective, true
	}
	return Orthographic, false
}

// Default framing of the decomposition. Field values are normalized to
// [0,1] on Z while X/Y come from the layout, hence the Z-up view at z=0.5.
const (
	orthoHalfExtent = 4.0
	orthoNear       = -16.0
	orthoFar        = 16.0
	orthoZoom       = 2.5
	perspectiveFOV  = math.Pi / 4
	perspectiveNear = 0.01
	perspectiveFar  = 100.0
	minDistance     = 0.1
	maxPolarAngle   = math.Pi - 0.01
	minPolarAngle   = 0.01
)

var (
	defaultTarget = geometry.NewVector3(0, 0, 0.5)
	defaultUp     = geometry.NewVector3(0, 0, 1)
	viewDirection = geometry.NewVector3(0, 1, 0)
)

// Pose is the placement of a camera
type Pose struct {
	Position geometry.Vector3
	Target   geometry.Vector3
	Up       geometry.Vector3
	Zoom     float64
}

// OrbitControls turns pointer drags into camera rotation, zoom and pan.
// A disabled controls object ignores all input.
type OrbitControls struct {
	Enabled     bool
	RotateSpeed float64
	ZoomSpeed   float64
	PanSpeed    float64
	// Updates counts how many times the controls were synced to the camera
	Updates int
}

// CameraState is one camera of the rig
type CameraState struct {
	Mode     CameraMode
	Pose     Pose
	Home     Pose
	Controls OrbitControls

	// Perspective parameters
	FOV float64

	// Frustum; for the orthographic camera these are the unzoomed extents
	Left, Right, Top, Bottom float64
	Near, Far                float64
	Aspect                   float64

	projection geometry.Matrix4
}

func newCameraState(mode CameraMode) CameraState {
	c := CameraState{
		Mode: mode,
		Controls: OrbitControls{
			RotateSpeed: 0.01,
			ZoomSpeed:   0.001,
			PanSpeed:    0.001,
		},
		FOV:    perspectiveFOV,
		Aspect: 1,
	}

	switch mode {
	case Orthographic:
		c.Near, c.Far = orthoNear, orthoFar
		c.Home = Pose{
			Position: defaultTarget.Sub(viewDirection),
			Target:   defaultTarget,
			Up:       defaultUp,
			Zoom:     orthoZoom,
		}
	case Perspective:
		c.Near, c.Far = perspectiveNear, perspectiveFar
		// frame the same half-height the orthographic camera shows
		distance := orthoHalfExtent / orthoZoom / math.Tan(perspectiveFOV/2)
		c.Home = Pose{
			Position: defaultTarget.Sub(viewDirection.Mul(distance)),
			Target:   defaultTarget,
			Up:       defaultUp,
			Zoom:     1,
		}
	}
	c.Pose = c.Home
	c.updateProjection()
	return c
}

// setAspect recomputes the frustum for a canvas of the given size
func (c *CameraState) setAspect(width, height float64) {
	sx, sy := 1.0, 1.0
	if width > height {
		sx = width / height
	} else {
		sy = height / width
	}
	c.Aspect = width / height
	c.Left = -orthoHalfExtent * sx
	c.Right = orthoHalfExtent * sx
	c.Top = orthoHalfExtent * sy
	c.Bottom = -orthoHalfExtent * sy
	c.updateProjection()
}

func (c *CameraState) updateProjection() {
	switch c.Mode {
	case Orthographic:
		zoom := c.zoom()
		c.projection = geometry.Orthographic(c.Left/zoom, c.Right/zoom, c.Bottom/zoom, c.Top/zoom, c.Near, c.Far)
	case Perspective:
		c.projection = geometry.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
	}
}

func (c *CameraState) zoom() float64 {
	if c.Pose.Zoom <= 0 {
		return 1
	}
	return c.Pose.Zoom
}

// Projection returns the projection matrix
func (c CameraState) Projection() geometry.Matrix4 {
	return c.projection
}

// View returns the view matrix
func (c CameraState) View() geometry.Matrix4 {
	return geometry.LookAt(c.Pose.Position, c.Pose.Target, c.Pose.Up)
}

// ViewProjection returns projection * view
func (c CameraState) ViewProjection() geometry.Matrix4 {
	return c.projection.Mul(c.View())
}

// basis returns the camera forward, right and up vectors
func (c CameraState) basis() (forward, right, up geometry.Vector3) {
	forward = c.Pose.Target.Sub(c.Pose.Position).Normalize()
	right = forward.Cross(c.Pose.Up).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// Ray converts a position in normalized device coordinates to a world-space
// picking ray
func (c CameraState) Ray(ndc geometry.Vector2) geometry.Ray {
	forward, right, up := c.basis()

	if c.Mode == Orthographic {
		zoom := c.zoom()
		halfW := (c.Right - c.Left) / 2 / zoom
		halfH := (c.Top - c.Bottom) / 2 / zoom
		origin := c.Pose.Position.
			Add(right.Mul(ndc.X * halfW)).
			Add(up.Mul(ndc.Y * halfH)).
			Add(forward.Mul(c.Near))
		return geometry.NewRay(origin, forward)
	}

	halfH := math.Tan(c.FOV / 2)
	halfW := halfH * c.Aspect
	direction := forward.Add(right.Mul(ndc.X * halfW)).Add(up.Mul(ndc.Y * halfH))
	return geometry.NewRay(c.Pose.Position, direction)
}

// Rotate orbits the camera around its target. deltaX/deltaY are pointer
// deltas in pixels.
func (c *CameraState) Rotate(deltaX, deltaY float64) {
	offset := c.Pose.Position.Sub(c.Pose.Target)
	radius := offset.Length()
	if radius == 0 {
		return
	}

	cosPhi := math.Max(-1, math.Min(1, offset.Z/radius))
	theta := math.Atan2(offset.Y, offset.X) - deltaX*c.Controls.RotateSpeed
	phi := math.Acos(cosPhi) - deltaY*c.Controls.RotateSpeed

	// Clamp polar angle to prevent flipping over the pole
	phi = math.Max(minPolarAngle, math.Min(maxPolarAngle, phi))

	offset = geometry.NewVector3(
		radius*math.Sin(phi)*math.Cos(theta),
		radius*math.Sin(phi)*math.Sin(theta),
		radius*math.Cos(phi),
	)
	c.Pose.Position = c.Pose.Target.Add(offset)
}

// Zoom dollies the perspective camera or scales the orthographic zoom
func (c *CameraState) Zoom(delta float64) {
	scale := 1.0 + delta*c.Controls.ZoomSpeed
	if scale <= 0 {
		return
	}

	if c.Mode == Orthographic {
		c.Pose.Zoom = c.zoom() / scale
		c.updateProjection()
		return
	}

	offset := c.Pose.Position.Sub(c.Pose.Target)
	distance := offset.Length() * scale
	if distance < minDistance {
		distance = minDistance
	}
	c.Pose.Position = c.Pose.Target.Add(offset.Normalize().Mul(distance))
}

// Pan moves camera and target in the view plane
func (c *CameraState) Pan(deltaX, deltaY float64) {
	_, right, up := c.basis()

	speed := c.Controls.PanSpeed
	if c.Mode == Perspective {
		speed *= c.Pose.Position.Distance(c.Pose.Target)
	} else {
		speed *= (c.Top - c.Bottom) / c.zoom()
	}

	move := right.Mul(-deltaX * speed).Add(up.Mul(deltaY * speed))
	c.Pose.Position = c.Pose.Position.Add(move)
	c.Pose.Target = c.Pose.Target.Add(move)
}

// Rig owns an orthographic and a perspective camera; exactly one is active
type Rig struct {
	cameras [2]CameraState
	active  CameraMode

	// OnChange is called whenever the active camera moved or its projection
	// changed
	OnChange func(CameraState)
}

// NewRig creates a rig with the given camera active and its controls enabled
func NewRig(mode CameraMode, width, height float64) *Rig {
	r := &Rig{
		cameras: [2]CameraState{newCameraState(Orthographic), newCameraState(Perspective)},
		active:  mode,
	}
	r.cameras[mode].Controls.Enabled = true
	r.Resize(width, height)
	return r
}

// Mode returns which camera is active
func (r *Rig) Mode() CameraMode {
	return r.active
}

// Active returns a copy of the active camera
func (r *Rig) Active() CameraState {
	return r.cameras[r.active]
}

// Camera returns a copy of the camera for mode
func (r *Rig) Camera(mode CameraMode) CameraState {
	return r.cameras[mode]
}

func (r *Rig) current() *CameraState {
	return &r.cameras[r.active]
}

func (r *Rig) notify() {
	c := r.current()
	c.Controls.Updates++
	if r.OnChange != nil {
		r.OnChange(*c)
	}
}

// Toggle switches the active camera. The old controls are disabled before
// the new ones take over, so input is never handled twice. The enabled
// state carries over so a toggle during a scrub keeps the controls off.
func (r *Rig) Toggle() CameraMode {
	old := r.current()
	enabled := old.Controls.Enabled
	old.Controls.Enabled = false

	if r.active == Orthographic {
		r.active = Perspective
	} else {
		r.active = Orthographic
	}
	r.current().Controls.Enabled = enabled
	r.notify()
	return r.active
}

// SetControlsEnabled enables or disables the active camera's controls
func (r *Rig) SetControlsEnabled(enabled bool) {
	r.current().Controls.Enabled = enabled
}

// ControlsEnabled reports whether the active controls accept input
func (r *Rig) ControlsEnabled() bool {
	return r.current().Controls.Enabled
}

// Reset restores the active camera to its home pose
func (r *Rig) Reset() {
	c := r.current()
	c.Pose = c.Home
	c.updateProjection()
	r.notify()
}

// Resize recomputes both projections for the new canvas size. The active
// camera keeps its current orientation.
func (r *Rig) Resize(width, height float64) {
	if !(width > 0) || !(height > 0) {
		return
	}
	for i := range r.cameras {
		r.cameras[i].setAspect(width, height)
	}
	r.notify()
}

// Rehome moves both home poses so they frame bounds. Homes only move when
// the bounds centre moved by more than a tenth of the bounds diagonal;
// the return value tells whether that happened.
func (r *Rig) Rehome(bounds geometry.BoundingBox) bool {
	if bounds.IsEmpty() {
		return false
	}
	center := bounds.Center()
	threshold := 0.1 * bounds.Diagonal()

	home := r.current().Home.Target
	shift := center.Sub(home)
	if shift.Length() <= threshold {
		return false
	}
	for i := range r.cameras {
		h := &r.cameras[i].Home
		h.Target = h.Target.Add(shift)
		h.Position = h.Position.Add(shift)
	}
	return true
}

// Rotate applies a drag to the active camera when its controls are enabled
func (r *Rig) Rotate(deltaX, deltaY float64) bool {
	c := r.current()
	if !c.Controls.Enabled {
		return false
	}
	c.Rotate(deltaX, deltaY)
	r.notify()
	return true
}

// Zoom applies a scroll to the active camera when its controls are enabled
func (r *Rig) Zoom(delta float64) bool {
	c := r.current()
	if !c.Controls.Enabled {
		return false
	}
	c.Zoom(delta)
	r.notify()
	return true
}

// Pan applies a pan drag to the active camera when its controls are enabled
func (r *Rig) Pan(deltaX, deltaY float64) bool {
	c := r.current()
	if !c.Controls.Enabled {
		return false
	}
	c.Pan(deltaX, deltaY)
	r.notify()
	return true
}
