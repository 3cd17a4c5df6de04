package geometry

// Polyline is an ordered sequence of points forming a path
type Polyline struct {
	Points []Vector3
}

// Length returns the total arc length of the polyline
func (pl Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(pl.Points); i++ {
		total += pl.Points[i-1].Distance(pl.Points[i])
	}
	return total
}

// Start returns the first point, or the zero vector for an empty polyline
func (pl Polyline) Start() Vector3 {
	if len(pl.Points) == 0 {
		return Vector3{}
	}
	return pl.Points[0]
}

// End returns the last point, or the zero vector for an empty polyline
func (pl Polyline) End() Vector3 {
	if len(pl.Points) == 0 {
		return Vector3{}
	}
	return pl.Points[len(pl.Points)-1]
}

// PointAt returns the point at fraction u in [0,1] of the polyline length
func (pl Polyline) PointAt(u float64) Vector3 {
	if len(pl.Points) == 0 {
		return Vector3{}
	}
	if len(pl.Points) == 1 || !(u > 0) {
		return pl.Points[0]
	}
	if u >= 1 {
		return pl.End()
	}

	target := u * pl.Length()
	walked := 0.0
	for i := 1; i < len(pl.Points); i++ {
		segLen := pl.Points[i-1].Distance(pl.Points[i])
		if segLen > 0 && walked+segLen >= target {
			return pl.Points[i-1].Lerp(pl.Points[i], (target-walked)/segLen)
		}
		walked += segLen
	}
	return pl.End()
}

// Bounds returns the bounding box of all points
func (pl Polyline) Bounds() BoundingBox {
	b := NewBoundingBox()
	for _, p := range pl.Points {
		b.Extend(p)
	}
	return b
}

// CatmullRom samples a uniform Catmull-Rom spline through the control points.
// segments is the total number of samples intervals along the whole curve.
func CatmullRom(control []Vector3, segments int) Polyline {
	n := len(control)
	switch {
	case n == 0:
		return Polyline{}
	case n == 1:
		return Polyline{Points: []Vector3{control[0]}}
	}
	if segments < n-1 {
		segments = n - 1
	}

	// phantom endpoints reflect the first and last segments
	ext := make([]Vector3, n+2)
	ext[0] = control[0].Add(control[0].Sub(control[1]))
	copy(ext[1:], control)
	ext[n+1] = control[n-1].Add(control[n-1].Sub(control[n-2]))

	pts := make([]Vector3, 0, segments+1)
	for i := 0; i < segments; i++ {
		u := float64(i) / float64(segments) * float64(n-1)
		seg := int(u)
		if seg > n-2 {
			seg = n - 2
		}
		pts = append(pts, catmullRomPoint(ext[seg], ext[seg+1], ext[seg+2], ext[seg+3], u-float64(seg)))
	}
	pts = append(pts, control[n-1])
	return Polyline{Points: pts}
}

func catmullRomPoint(p0, p1, p2, p3 Vector3, t float64) Vector3 {
	t2 := t * t
	t3 := t2 * t
	// 0.5 * (2p1 + (-p0+p2)t + (2p0-5p1+4p2-p3)t² + (-p0+3p1-3p2+p3)t³)
	a := p1.Mul(2)
	b := p2.Sub(p0).Mul(t)
	c := p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(t2)
	d := p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(t3)
	return a.Add(b).Add(c).Add(d).Mul(0.5)
}
