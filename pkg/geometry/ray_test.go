package geometry

import (
	"math"
	"testing"
)

func TestRayClosestToSegment(t *testing.T) {
	r := NewRay(NewVector3(0, 0, 10), NewVector3(0, 0, -1))

	dist, along := r.ClosestToSegment(NewVector3(-1, 0.5, 0), NewVector3(1, 0.5, 0))
	if math.Abs(dist-0.5) > 1e-12 {
		t.Errorf("distance failed: expected 0.5, got %v", dist)
	}
	if math.Abs(along-10) > 1e-12 {
		t.Errorf("along failed: expected 10, got %v", along)
	}

	// closest point clamped to the segment end
	dist, _ = r.ClosestToSegment(NewVector3(2, 0, 0), NewVector3(5, 0, 0))
	if math.Abs(dist-2) > 1e-12 {
		t.Errorf("clamped distance failed: expected 2, got %v", dist)
	}

	// segment behind the origin is measured from the origin
	dist, along = r.ClosestToSegment(NewVector3(-1, 0, 20), NewVector3(1, 0, 20))
	if along != 0 || math.Abs(dist-10) > 1e-12 {
		t.Errorf("behind failed: expected (10, 0), got (%v, %v)", dist, along)
	}
}

func TestRayIntersectSphere(t *testing.T) {
	r := NewRay(NewVector3(0, 0, 10), NewVector3(0, 0, -2))

	hit, ok := r.IntersectSphere(NewVector3(0, 0, 0), 1)
	if !ok || math.Abs(hit-9) > 1e-12 {
		t.Errorf("expected hit at 9, got %v (%v)", hit, ok)
	}
	if _, ok := r.IntersectSphere(NewVector3(3, 0, 0), 1); ok {
		t.Errorf("expected miss")
	}
	if _, ok := r.IntersectSphere(NewVector3(0, 0, 20), 1); ok {
		t.Errorf("expected miss behind the ray")
	}
}

func TestLookAtMapsTargetToAxis(t *testing.T) {
	view := LookAt(NewVector3(0, -1, 0.5), NewVector3(0, 0, 0.5), NewVector3(0, 0, 1))
	p := view.TransformPoint(NewVector3(0, 0, 0.5))
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y) > 1e-12 || math.Abs(p.Z+1) > 1e-12 {
		t.Errorf("LookAt failed: expected (0,0,-1), got %v", p)
	}
	up := view.TransformPoint(NewVector3(0, 0, 1.5))
	if math.Abs(up.Y-1) > 1e-12 {
		t.Errorf("LookAt up failed: expected y=1, got %v", up)
	}
}
