package geometry

// degenerateLengthSq is the squared NDC length below which a projected curve
// is treated as a single point
const degenerateLengthSq = 1e-12

// EstimateParameter returns the position in [0,1] along the segment e0->e1
// closest to pick, measured in screen space. It projects (pick-e0) onto
// (e1-e0) and normalizes by the segment length, which approximates the arc
// length position on the 3D curve whose projected endpoints are e0 and e1.
// A degenerate segment or non-finite input yields 0.
func EstimateParameter(pick, e0, e1 Vector2) float64 {
	axis := e1.Sub(e0)
	lengthSq := axis.Dot(axis)
	if !isFinite(lengthSq) || lengthSq < degenerateLengthSq {
		return 0
	}

	t := pick.Sub(e0).Dot(axis) / lengthSq
	if !isFinite(t) {
		return 0
	}
	return Clamp01(t)
}

// Clamp01 clamps v to [0,1]; NaN maps to 0
func Clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
