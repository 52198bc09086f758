package scene

import "fmt"

// Interpolation says how a primitive variable maps onto a primitive's topology.
type Interpolation int

const (
	InterpolationInvalid Interpolation = iota
	InterpolationConstant
	InterpolationUniform
	InterpolationVertex
	InterpolationVarying
	InterpolationFaceVarying
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationConstant:
		return "Constant"
	case InterpolationUniform:
		return "Uniform"
	case InterpolationVertex:
		return "Vertex"
	case InterpolationVarying:
		return "Varying"
	case InterpolationFaceVarying:
		return "FaceVarying"
	default:
		return "Invalid"
	}
}

// PrimitiveVariable is per-element data on a primitive. Indices is nil unless
// the data is indexed.
type PrimitiveVariable struct {
	Interpolation Interpolation
	Data          Data
	Indices       IntVectorData
}

// IsIndexed reports whether the variable carries an explicit index array.
func (v PrimitiveVariable) IsIndexed() bool {
	return v.Indices != nil
}

// Expanded returns the data with indices applied.
func (v PrimitiveVariable) Expanded() (Data, error) {
	if v.Indices == nil {
		return v.Data, nil
	}
	vec, ok := v.Data.(VectorData)
	if !ok {
		return nil, fmt.Errorf("indexed primitive variable holds non-vector %s", v.Data.TypeName())
	}
	return vec.Gather(v.Indices)
}

// IdentityIndices returns [0, n).
func IdentityIndices(n int) IntVectorData {
	out := make(IntVectorData, n)
	for i := range out {
		out[i] = int32(i)
	}
	return out
}
