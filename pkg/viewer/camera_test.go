package viewer

import (
	"math"
	"testing"

	"github.com/dspacex/msview/pkg/geometry"
)

func TestNewRigDefaults(t *testing.T) {
	r := NewRig(Orthographic, 800, 400)

	if r.Mode() != Orthographic {
		t.Fatalf("Mode failed: expected orthographic, got %v", r.Mode())
	}
	c := r.Active()
	if !c.Controls.Enabled {
		t.Error("active controls should be enabled")
	}
	if r.Camera(Perspective).Controls.Enabled {
		t.Error("inactive controls should be disabled")
	}
	if c.Right != 8 || c.Left != -8 || c.Top != 4 || c.Bottom != -4 {
		t.Errorf("frustum failed: got l=%v r=%v t=%v b=%v", c.Left, c.Right, c.Top, c.Bottom)
	}
	if c.Pose.Zoom != 2.5 {
		t.Errorf("zoom failed: expected 2.5, got %v", c.Pose.Zoom)
	}
	want := geometry.NewVector3(0, -1, 0.5)
	if c.Pose.Position.Distance(want) > 1e-9 {
		t.Errorf("position failed: expected %v, got %v", want, c.Pose.Position)
	}
}

func TestToggleHandsOverControls(t *testing.T) {
	r := NewRig(Orthographic, 400, 400)
	var notified []CameraMode
	r.OnChange = func(c CameraState) { notified = append(notified, c.Mode) }

	if got := r.Toggle(); got != Perspective {
		t.Fatalf("Toggle failed: expected perspective, got %v", got)
	}
	if r.Camera(Orthographic).Controls.Enabled {
		t.Error("old controls still enabled after toggle")
	}
	if !r.Active().Controls.Enabled {
		t.Error("new controls not enabled after toggle")
	}
	if len(notified) != 1 || notified[0] != Perspective {
		t.Errorf("OnChange failed: got %v", notified)
	}

	// a toggle during a scrub keeps the controls off
	r.SetControlsEnabled(false)
	r.Toggle()
	if r.ControlsEnabled() {
		t.Error("controls re-enabled by toggle during scrub")
	}
}

func TestResetRestoresHome(t *testing.T) {
	r := NewRig(Perspective, 400, 400)
	home := r.Active().Pose

	r.Rotate(50, 20)
	r.Zoom(300)
	if r.Active().Pose == home {
		t.Fatal("controls did not move the camera")
	}

	before := r.Active().Controls.Updates
	r.Reset()
	if r.Active().Pose != home {
		t.Errorf("Reset failed: expected %v, got %v", home, r.Active().Pose)
	}
	if r.Active().Controls.Updates != before+1 {
		t.Error("Reset did not notify the controls")
	}
}

func TestResizeKeepsOrientation(t *testing.T) {
	r := NewRig(Orthographic, 400, 400)
	r.Rotate(30, 0)
	pose := r.Active().Pose

	r.Resize(1000, 500)
	if r.Active().Pose != pose {
		t.Error("Resize changed the camera pose")
	}
	if got := r.Camera(Perspective).Aspect; got != 2 {
		t.Errorf("inactive camera aspect failed: expected 2, got %v", got)
	}
	if got := r.Active().Right; got != 8 {
		t.Errorf("ortho extent failed: expected 8, got %v", got)
	}

	// empty canvases are ignored
	r.Resize(0, 100)
	if got := r.Active().Aspect; got != 2 {
		t.Errorf("zero resize changed aspect to %v", got)
	}
}

func TestDisabledControlsIgnoreInput(t *testing.T) {
	r := NewRig(Orthographic, 400, 400)
	r.SetControlsEnabled(false)
	pose := r.Active().Pose

	if r.Rotate(10, 10) || r.Zoom(100) || r.Pan(5, 5) {
		t.Error("disabled controls accepted input")
	}
	if r.Active().Pose != pose {
		t.Error("disabled controls moved the camera")
	}
}

func TestRehome(t *testing.T) {
	r := NewRig(Orthographic, 400, 400)

	small := geometry.NewBoundingBox()
	small.Extend(geometry.NewVector3(-1, -1, 0))
	small.Extend(geometry.NewVector3(1, 1, 1.02))
	if r.Rehome(small) {
		t.Error("Rehome moved homes for an unchanged centre")
	}

	moved := geometry.NewBoundingBox()
	moved.Extend(geometry.NewVector3(4, 4, 0))
	moved.Extend(geometry.NewVector3(6, 6, 1))
	if !r.Rehome(moved) {
		t.Fatal("Rehome ignored a moved centre")
	}
	r.Reset()
	if got := r.Active().Pose.Target; got.Distance(geometry.NewVector3(5, 5, 0.5)) > 1e-9 {
		t.Errorf("home target failed: got %v", got)
	}
	if got := r.Camera(Perspective).Home.Target; got.Distance(geometry.NewVector3(5, 5, 0.5)) > 1e-9 {
		t.Errorf("perspective home failed: got %v", got)
	}

	if r.Rehome(geometry.NewBoundingBox()) {
		t.Error("Rehome accepted empty bounds")
	}
}

func TestOrthographicRayIsParallel(t *testing.T) {
	r := NewRig(Orthographic, 400, 400)
	c := r.Active()

	a := c.Ray(geometry.NewVector2(0, 0))
	b := c.Ray(geometry.NewVector2(0.5, -0.5))
	if a.Direction.Distance(b.Direction) > 1e-9 {
		t.Errorf("ortho rays not parallel: %v vs %v", a.Direction, b.Direction)
	}
	// NDC 0.5 is half the zoomed half-width of 1.6
	if math.Abs(b.Origin.X-0.8) > 1e-9 || math.Abs(b.Origin.Z-(0.5-0.8)) > 1e-9 {
		t.Errorf("ortho ray origin failed: got %v", b.Origin)
	}
}

func TestPerspectiveRayFromEye(t *testing.T) {
	r := NewRig(Perspective, 400, 400)
	c := r.Active()

	ray := c.Ray(geometry.NewVector2(0, 0))
	if ray.Origin != c.Pose.Position {
		t.Errorf("perspective ray origin failed: got %v", ray.Origin)
	}
	forward := c.Pose.Target.Sub(c.Pose.Position).Normalize()
	if ray.Direction.Distance(forward) > 1e-9 {
		t.Errorf("centre ray failed: expected %v, got %v", forward, ray.Direction)
	}

	// a point on the centre ray projects to the NDC origin
	p := ray.At(3)
	ndc := geometry.ProjectPoint(p, geometry.Identity(), c.ViewProjection())
	if ndc.Length() > 1e-9 {
		t.Errorf("projection failed: expected origin, got %v", ndc)
	}
}

func TestParseCameraMode(t *testing.T) {
	if m, ok := ParseCameraMode("persp"); !ok || m != Perspective {
		t.Errorf("ParseCameraMode failed for persp")
	}
	if _, ok := ParseCameraMode("fisheye"); ok {
		t.Errorf("ParseCameraMode accepted fisheye")
	}
}
