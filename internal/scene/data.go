package scene

import "fmt"

// Interpretation gives geometric meaning to vector data.
type Interpretation int

const (
	InterpretationNone Interpretation = iota
	InterpretationPoint
	InterpretationNormal
	InterpretationVector
	InterpretationColor
	InterpretationUV
)

// Data is a typed attribute or primitive variable value. TypeName is the
// storage tag, e.g. "V3fVectorData".
type Data interface {
	TypeName() string
}

// GeometricData is data carrying an Interpretation.
type GeometricData interface {
	Data
	GeometricInterpretation() Interpretation
}

// VectorData is array data that can be reindexed.
type VectorData interface {
	Data
	Len() int
	// Gather returns the elements at indices, in order.
	Gather(indices []int32) (VectorData, error)
}

type (
	BoolData                 bool
	IntData                  int32
	FloatData                float32
	DoubleData               float64
	StringData               string
	Color3fData              Color3f
	M44dData                 M44d
	IntVectorData            []int32
	FloatVectorData          []float32
	DoubleVectorData         []float64
	StringVectorData         []string
	InternedStringVectorData []string
	Color3fVectorData        []Color3f
)

// V3fData is a single 3-vector.
type V3fData struct {
	Value          V3f
	Interpretation Interpretation
}

// V2fVectorData holds 2-vectors, typically texture coordinates.
type V2fVectorData struct {
	Values         []V2f
	Interpretation Interpretation
}

// V3fVectorData holds 3-vectors: positions, normals, velocities.
type V3fVectorData struct {
	Values         []V3f
	Interpretation Interpretation
}

func (BoolData) TypeName() string                 { return "BoolData" }
func (IntData) TypeName() string                  { return "IntData" }
func (FloatData) TypeName() string                { return "FloatData" }
func (DoubleData) TypeName() string               { return "DoubleData" }
func (StringData) TypeName() string               { return "StringData" }
func (Color3fData) TypeName() string              { return "Color3fData" }
func (M44dData) TypeName() string                 { return "M44dData" }
func (V3fData) TypeName() string                  { return "V3fData" }
func (IntVectorData) TypeName() string            { return "IntVectorData" }
func (FloatVectorData) TypeName() string          { return "FloatVectorData" }
func (DoubleVectorData) TypeName() string         { return "DoubleVectorData" }
func (StringVectorData) TypeName() string         { return "StringVectorData" }
func (InternedStringVectorData) TypeName() string { return "InternedStringVectorData" }
func (Color3fVectorData) TypeName() string        { return "Color3fVectorData" }
func (V2fVectorData) TypeName() string            { return "V2fVectorData" }
func (V3fVectorData) TypeName() string            { return "V3fVectorData" }

func (d V3fData) GeometricInterpretation() Interpretation       { return d.Interpretation }
func (d V2fVectorData) GeometricInterpretation() Interpretation { return d.Interpretation }
func (d V3fVectorData) GeometricInterpretation() Interpretation { return d.Interpretation }

func (d IntVectorData) Len() int            { return len(d) }
func (d FloatVectorData) Len() int          { return len(d) }
func (d DoubleVectorData) Len() int         { return len(d) }
func (d StringVectorData) Len() int         { return len(d) }
func (d InternedStringVectorData) Len() int { return len(d) }
func (d Color3fVectorData) Len() int        { return len(d) }
func (d V2fVectorData) Len() int            { return len(d.Values) }
func (d V3fVectorData) Len() int            { return len(d.Values) }

func gather[T any](values []T, indices []int32) ([]T, error) {
	out := make([]T, len(indices))
	for i, idx := range indices {
		if idx < 0 || int(idx) >= len(values) {
			return nil, fmt.Errorf("index %d out of range [0,%d)", idx, len(values))
		}
		out[i] = values[idx]
	}
	return out, nil
}

func (d IntVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return IntVectorData(v), err
}

func (d FloatVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return FloatVectorData(v), err
}

func (d DoubleVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return DoubleVectorData(v), err
}

func (d StringVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return StringVectorData(v), err
}

func (d InternedStringVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return InternedStringVectorData(v), err
}

func (d Color3fVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d, indices)
	return Color3fVectorData(v), err
}

func (d V2fVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d.Values, indices)
	return V2fVectorData{Values: v, Interpretation: d.Interpretation}, err
}

func (d V3fVectorData) Gather(indices []int32) (VectorData, error) {
	v, err := gather(d.Values, indices)
	return V3fVectorData{Values: v, Interpretation: d.Interpretation}, err
}
