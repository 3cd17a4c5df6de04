package geometry

import "math"

// Ray is a half-line with a normalized direction
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// NewRay creates a ray, normalizing the direction
func NewRay(origin, direction Vector3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray
func (r Ray) At(t float64) Vector3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ClosestToSegment returns the shortest distance between the ray and the
// segment a-b, and the distance along the ray where it occurs
func (r Ray) ClosestToSegment(a, b Vector3) (dist, along float64) {
	d1 := r.Direction
	d2 := b.Sub(a)
	w := r.Origin.Sub(a)

	aa := d1.Dot(d1)
	bb := d1.Dot(d2)
	cc := d2.Dot(d2)
	dd := d1.Dot(w)
	ee := d2.Dot(w)
	denom := aa*cc - bb*bb

	var s, t float64
	if cc < 1e-18 {
		// segment collapsed to a point
		s = math.Max(0, -dd/aa)
		t = 0
	} else {
		if denom > 1e-18 {
			s = (bb*ee - cc*dd) / denom
		}
		if s < 0 {
			s = 0
		}
		t = (bb*s + ee) / cc
		if t < 0 || t > 1 {
			t = Clamp01(t)
			s = math.Max(0, (bb*t-dd)/aa)
		}
	}

	closestRay := r.Origin.Add(d1.Mul(s))
	closestSeg := a.Add(d2.Mul(t))
	return closestRay.Distance(closestSeg), s
}

// IntersectSphere returns the nearest non-negative distance at which the ray
// enters the sphere
func (r Ray) IntersectSphere(center Vector3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
