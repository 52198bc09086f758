package scene

import "sort"

// Object type names, as used in ObjectType tags.
const (
	TypeMesh   = "MeshPrimitive"
	TypePoints = "PointsPrimitive"
	TypeCurves = "CurvesPrimitive"
	TypeCamera = "Camera"
)

// Object is the payload stored at a location.
type Object interface {
	TypeName() string
}

// Primitive is an object carrying primitive variables.
type Primitive interface {
	Object
	Variables() map[string]PrimitiveVariable
	// VariableSize is the element count a variable of interpolation must hold.
	VariableSize(interpolation Interpolation) int
}

// SortedVariableNames returns the variable names of p in lexical order.
func SortedVariableNames(p Primitive) []string {
	vars := p.Variables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bound returns the bound of a primitive's "P" variable, or an empty bound.
func Bound(p Primitive) Box3d {
	b := EmptyBox()
	pv, ok := p.Variables()["P"]
	if !ok {
		return b
	}
	pts, ok := pv.Data.(V3fVectorData)
	if !ok {
		return b
	}
	for _, v := range pts.Values {
		b = b.ExtendBy(V3d{float64(v[0]), float64(v[1]), float64(v[2])})
	}
	return b
}

// MeshPrimitive is a polygon mesh with optional subdivision corners and creases.
type MeshPrimitive struct {
	VerticesPerFace   IntVectorData
	VertexIDs         IntVectorData
	CornerIDs         IntVectorData
	CornerSharpnesses FloatVectorData
	CreaseLengths     IntVectorData
	CreaseIDs         IntVectorData
	CreaseSharpnesses FloatVectorData
	// Interpolation is the subdivision scheme: "linear" or "catmullClark".
	Interpolation string
	Vars          map[string]PrimitiveVariable
}

func (*MeshPrimitive) TypeName() string { return TypeMesh }

func (m *MeshPrimitive) Variables() map[string]PrimitiveVariable {
	if m.Vars == nil {
		m.Vars = map[string]PrimitiveVariable{}
	}
	return m.Vars
}

// NumVertices is one past the largest vertex id.
func (m *MeshPrimitive) NumVertices() int {
	n := 0
	for _, id := range m.VertexIDs {
		if int(id)+1 > n {
			n = int(id) + 1
		}
	}
	return n
}

func (m *MeshPrimitive) VariableSize(interpolation Interpolation) int {
	switch interpolation {
	case InterpolationConstant:
		return 1
	case InterpolationUniform:
		return len(m.VerticesPerFace)
	case InterpolationVertex, InterpolationVarying:
		return m.NumVertices()
	case InterpolationFaceVarying:
		return len(m.VertexIDs)
	default:
		return 0
	}
}

// PointsPrimitive is a point cloud.
type PointsPrimitive struct {
	NumPoints int
	Vars      map[string]PrimitiveVariable
}

func (*PointsPrimitive) TypeName() string { return TypePoints }

func (p *PointsPrimitive) Variables() map[string]PrimitiveVariable {
	if p.Vars == nil {
		p.Vars = map[string]PrimitiveVariable{}
	}
	return p.Vars
}

func (p *PointsPrimitive) VariableSize(interpolation Interpolation) int {
	switch interpolation {
	case InterpolationConstant:
		return 1
	case InterpolationInvalid:
		return 0
	default:
		return p.NumPoints
	}
}

// CubicBasis identifies a curve basis.
type CubicBasis int

const (
	BasisLinear CubicBasis = iota
	BasisBezier
	BasisBSpline
	BasisCatmullRom
	// BasisCustom is any basis matrix without a standard name.
	BasisCustom
)

func (b CubicBasis) String() string {
	switch b {
	case BasisLinear:
		return "linear"
	case BasisBezier:
		return "bezier"
	case BasisBSpline:
		return "bSpline"
	case BasisCatmullRom:
		return "catmullRom"
	default:
		return "custom"
	}
}

// Step is the number of vertices advanced per segment.
func (b CubicBasis) Step() int {
	if b == BasisBezier {
		return 3
	}
	return 1
}

// CurvesPrimitive is a set of linear or cubic curves.
type CurvesPrimitive struct {
	VerticesPerCurve IntVectorData
	Basis            CubicBasis
	Periodic         bool
	Vars             map[string]PrimitiveVariable
}

func (*CurvesPrimitive) TypeName() string { return TypeCurves }

func (c *CurvesPrimitive) Variables() map[string]PrimitiveVariable {
	if c.Vars == nil {
		c.Vars = map[string]PrimitiveVariable{}
	}
	return c.Vars
}

// NumSegments returns the segment count of a curve with numVerts vertices.
func (c *CurvesPrimitive) NumSegments(numVerts int) int {
	if c.Basis == BasisLinear {
		if c.Periodic {
			return numVerts
		}
		return numVerts - 1
	}
	step := c.Basis.Step()
	if c.Periodic {
		return numVerts / step
	}
	return (numVerts-4)/step + 1
}

func (c *CurvesPrimitive) VariableSize(interpolation Interpolation) int {
	switch interpolation {
	case InterpolationConstant:
		return 1
	case InterpolationUniform:
		return len(c.VerticesPerCurve)
	case InterpolationVertex:
		n := 0
		for _, v := range c.VerticesPerCurve {
			n += int(v)
		}
		return n
	case InterpolationVarying, InterpolationFaceVarying:
		n := 0
		for _, v := range c.VerticesPerCurve {
			n += c.NumSegments(int(v))
			if !c.Periodic {
				n++
			}
		}
		return n
	default:
		return 0
	}
}

// Camera holds intrinsic camera parameters. Lengths are in millimetres
// scaled by FocalLengthWorldScale.
type Camera struct {
	FocalLength           float32
	Aperture              V2f
	ApertureOffset        V2f
	FocalLengthWorldScale float32
	ClippingPlanes        V2f
	Projection            string
}

// NewCamera returns a camera with a 35mm default setup.
func NewCamera() *Camera {
	return &Camera{
		FocalLength:           35,
		Aperture:              V2f{36, 24},
		FocalLengthWorldScale: 0.1,
		ClippingPlanes:        V2f{0.01, 100000},
		Projection:            "perspective",
	}
}

func (*Camera) TypeName() string { return TypeCamera }
