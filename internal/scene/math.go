package scene

import "math"

type (
	V2f     [2]float32
	V3f     [3]float32
	V3d     [3]float64
	Color3f [3]float32
	// M44d is a row-major 4x4 matrix applied to row vectors (translation in row 3).
	M44d [4][4]float64
)

// Identity returns the identity matrix.
func Identity() M44d {
	return M44d{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Translate returns a translation matrix.
func Translate(x, y, z float64) M44d {
	m := Identity()
	m[3][0], m[3][1], m[3][2] = x, y, z
	return m
}

// MultVecMatrix transforms point v by m.
func (m M44d) MultVecMatrix(v V3d) V3d {
	var out V3d
	for c := 0; c < 3; c++ {
		out[c] = v[0]*m[0][c] + v[1]*m[1][c] + v[2]*m[2][c] + m[3][c]
	}
	w := v[0]*m[0][3] + v[1]*m[1][3] + v[2]*m[2][3] + m[3][3]
	if w != 0 && w != 1 {
		for c := range out {
			out[c] /= w
		}
	}
	return out
}

// Box3d is an axis aligned bound. Min > Max on any axis means empty.
type Box3d struct {
	Min, Max V3d
}

// EmptyBox returns a bound containing nothing.
func EmptyBox() Box3d {
	inf := math.Inf(1)
	return Box3d{Min: V3d{inf, inf, inf}, Max: V3d{-inf, -inf, -inf}}
}

// IsEmpty reports whether b contains nothing.
func (b Box3d) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// ExtendBy grows b to include p.
func (b Box3d) ExtendBy(p V3d) Box3d {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union grows b to include o.
func (b Box3d) Union(o Box3d) Box3d {
	if o.IsEmpty() {
		return b
	}
	return b.ExtendBy(o.Min).ExtendBy(o.Max)
}

// Transform returns the bound of b's corners under m.
func (b Box3d) Transform(m M44d) Box3d {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		corner := V3d{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.ExtendBy(m.MultVecMatrix(corner))
	}
	return out
}
