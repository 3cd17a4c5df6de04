package geometry

// Rect is a canvas rectangle in pixels
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// PointerToNormalized maps a pointer position in pixels to normalized device
// coordinates in [-1,1]x[-1,1]. Screen Y grows downward and NDC Y grows
// upward, so Y is flipped. An empty canvas maps every pointer to the origin.
func PointerToNormalized(px, py float64, bounds Rect) Vector2 {
	if !(bounds.Width > 0) || !(bounds.Height > 0) {
		return Vector2{}
	}
	ndc := Vector2{
		X: ((px-bounds.Left)/bounds.Width)*2 - 1,
		Y: ((py-bounds.Top)/bounds.Height)*-2 + 1,
	}
	if !ndc.IsFinite() {
		return Vector2{}
	}
	return ndc
}

// ProjectPoint applies the object's model transform followed by the camera's
// view-projection transform and returns the NDC position, discarding depth.
// Points that cannot be projected (w of zero, non-finite input) map to the
// origin.
func ProjectPoint(point Vector3, model, viewProjection Matrix4) Vector2 {
	ndc, ok := ProjectPointDepth(point, model, viewProjection)
	if !ok {
		return Vector2{}
	}
	return Vector2{X: ndc.X, Y: ndc.Y}
}

// ProjectPointDepth is ProjectPoint keeping the NDC depth; ok is false when
// the point cannot be projected
func ProjectPointDepth(point Vector3, model, viewProjection Matrix4) (Vector3, bool) {
	clip, w := viewProjection.Mul(model).Transform(point)
	if w == 0 || !isFinite(w) {
		return Vector3{}, false
	}
	ndc := clip.Mul(1 / w)
	if !ndc.IsFinite() {
		return Vector3{}, false
	}
	return ndc, true
}

// NormalizedToPixel maps NDC back to pixel coordinates inside bounds
func NormalizedToPixel(ndc Vector2, bounds Rect) Vector2 {
	return Vector2{
		X: bounds.Left + (ndc.X+1)/2*bounds.Width,
		Y: bounds.Top + (1-ndc.Y)/2*bounds.Height,
	}
}
