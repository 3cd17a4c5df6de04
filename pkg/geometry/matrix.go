package geometry

import "math"

// Matrix4 is a 4x4 transform stored in column-major order, following the
// OpenGL clip-space conventions (right-handed, NDC z in [-1, 1])
type Matrix4 [16]float64

// Identity returns the identity matrix
func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix translating by v
func Translation(v Vector3) Matrix4 {
	m := Identity()
	m[12] = v.X
	m[13] = v.Y
	m[14] = v.Z
	return m
}

// Mul returns m * other (other is applied first)
func (m Matrix4) Mul(other Matrix4) Matrix4 {
	var r Matrix4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// Transform applies the matrix to a point (w=1) and returns the resulting
// xyz together with the homogeneous w component
func (m Matrix4) Transform(p Vector3) (Vector3, float64) {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	return Vector3{X: x, Y: y, Z: z}, w
}

// TransformPoint applies the matrix to a point including the perspective divide
func (m Matrix4) TransformPoint(p Vector3) Vector3 {
	v, w := m.Transform(p)
	if w == 0 || w == 1 {
		return v
	}
	return v.Mul(1 / w)
}

// LookAt builds a view matrix for an eye looking at target
func LookAt(eye, target, up Vector3) Matrix4 {
	f := target.Sub(eye).Normalize()
	if f == (Vector3{}) {
		f = Vector3{Z: -1}
	}
	s := f.Cross(up)
	if s.Length() < 1e-12 {
		// up is parallel to the view direction, pick any perpendicular
		alt := Vector3{Y: 1}
		if math.Abs(f.Y) > 0.9 {
			alt = Vector3{X: 1}
		}
		s = f.Cross(alt)
	}
	s = s.Normalize()
	u := s.Cross(f)

	return Matrix4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Orthographic builds an orthographic projection matrix
func Orthographic(left, right, bottom, top, near, far float64) Matrix4 {
	m := Identity()
	if right != left {
		m[0] = 2 / (right - left)
		m[12] = -(right + left) / (right - left)
	}
	if top != bottom {
		m[5] = 2 / (top - bottom)
		m[13] = -(top + bottom) / (top - bottom)
	}
	if far != near {
		m[10] = -2 / (far - near)
		m[14] = -(far + near) / (far - near)
	}
	return m
}

// Perspective builds a perspective projection matrix; fovY is in radians
func Perspective(fovY, aspect, near, far float64) Matrix4 {
	if aspect <= 0 || !isFinite(aspect) {
		aspect = 1
	}
	f := 1 / math.Tan(fovY/2)
	var m Matrix4
	m[0] = f / aspect
	m[5] = f
	m[11] = -1
	if near != far {
		m[10] = (far + near) / (near - far)
		m[14] = 2 * far * near / (near - far)
	}
	return m
}
