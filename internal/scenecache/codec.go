package scenecache

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/scenebridge/internal/scene"
)

// dataRecord is the stored form of scene.Data: a type tag plus the value.
type dataRecord struct {
	Type           string               `json:"type"`
	Interpretation scene.Interpretation `json:"interpretation,omitempty"`
	Value          json.RawMessage      `json:"value"`
}

type variableRecord struct {
	Interpolation scene.Interpolation `json:"interpolation"`
	Data          *dataRecord         `json:"data"`
	Indices       []int32             `json:"indices"`
}

type meshRecord struct {
	VerticesPerFace   []int32   `json:"verticesPerFace"`
	VertexIDs         []int32   `json:"vertexIds"`
	CornerIDs         []int32   `json:"cornerIds,omitempty"`
	CornerSharpnesses []float32 `json:"cornerSharpnesses,omitempty"`
	CreaseLengths     []int32   `json:"creaseLengths,omitempty"`
	CreaseIDs         []int32   `json:"creaseIds,omitempty"`
	CreaseSharpnesses []float32 `json:"creaseSharpnesses,omitempty"`
	Interpolation     string    `json:"interpolation,omitempty"`
}

type curvesRecord struct {
	VerticesPerCurve []int32          `json:"verticesPerCurve"`
	Basis            scene.CubicBasis `json:"basis"`
	Periodic         bool             `json:"periodic"`
}

type objectRecord struct {
	Type      string                    `json:"type"`
	Mesh      *meshRecord               `json:"mesh,omitempty"`
	NumPoints int                       `json:"numPoints,omitempty"`
	Curves    *curvesRecord             `json:"curves,omitempty"`
	Camera    *scene.Camera             `json:"camera,omitempty"`
	Variables map[string]variableRecord `json:"variables,omitempty"`
}

func encodeData(d scene.Data) (*dataRecord, error) {
	if d == nil {
		return nil, fmt.Errorf("encode nil data")
	}
	rec := &dataRecord{Type: d.TypeName()}
	if g, ok := d.(scene.GeometricData); ok {
		rec.Interpretation = g.GeometricInterpretation()
	}

	var v any
	switch x := d.(type) {
	case scene.V3fData:
		v = x.Value
	case scene.V2fVectorData:
		v = x.Values
	case scene.V3fVectorData:
		v = x.Values
	default:
		v = x
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Type, err)
	}
	rec.Value = raw
	return rec, nil
}

func decodeInto[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

func decodeData(rec *dataRecord) (scene.Data, error) {
	if rec == nil {
		return nil, fmt.Errorf("decode missing data")
	}
	var (
		d   scene.Data
		err error
	)
	switch rec.Type {
	case "BoolData":
		d, err = decodeInto[scene.BoolData](rec.Value)
	case "IntData":
		d, err = decodeInto[scene.IntData](rec.Value)
	case "FloatData":
		d, err = decodeInto[scene.FloatData](rec.Value)
	case "DoubleData":
		d, err = decodeInto[scene.DoubleData](rec.Value)
	case "StringData":
		d, err = decodeInto[scene.StringData](rec.Value)
	case "Color3fData":
		d, err = decodeInto[scene.Color3fData](rec.Value)
	case "M44dData":
		d, err = decodeInto[scene.M44dData](rec.Value)
	case "IntVectorData":
		d, err = decodeInto[scene.IntVectorData](rec.Value)
	case "FloatVectorData":
		d, err = decodeInto[scene.FloatVectorData](rec.Value)
	case "DoubleVectorData":
		d, err = decodeInto[scene.DoubleVectorData](rec.Value)
	case "StringVectorData":
		d, err = decodeInto[scene.StringVectorData](rec.Value)
	case "InternedStringVectorData":
		d, err = decodeInto[scene.InternedStringVectorData](rec.Value)
	case "Color3fVectorData":
		d, err = decodeInto[scene.Color3fVectorData](rec.Value)
	case "V3fData":
		var v scene.V3f
		v, err = decodeInto[scene.V3f](rec.Value)
		d = scene.V3fData{Value: v, Interpretation: rec.Interpretation}
	case "V2fVectorData":
		var v []scene.V2f
		v, err = decodeInto[[]scene.V2f](rec.Value)
		d = scene.V2fVectorData{Values: v, Interpretation: rec.Interpretation}
	case "V3fVectorData":
		var v []scene.V3f
		v, err = decodeInto[[]scene.V3f](rec.Value)
		d = scene.V3fVectorData{Values: v, Interpretation: rec.Interpretation}
	default:
		return nil, fmt.Errorf("unknown data type %q", rec.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rec.Type, err)
	}
	return d, nil
}

func encodeVariables(vars map[string]scene.PrimitiveVariable) (map[string]variableRecord, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]variableRecord, len(vars))
	for name, pv := range vars {
		data, err := encodeData(pv.Data)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		out[name] = variableRecord{Interpolation: pv.Interpolation, Data: data, Indices: pv.Indices}
	}
	return out, nil
}

func decodeVariables(recs map[string]variableRecord) (map[string]scene.PrimitiveVariable, error) {
	out := make(map[string]scene.PrimitiveVariable, len(recs))
	for name, rec := range recs {
		data, err := decodeData(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		pv := scene.PrimitiveVariable{Interpolation: rec.Interpolation, Data: data}
		if rec.Indices != nil {
			pv.Indices = scene.IntVectorData(rec.Indices)
		}
		out[name] = pv
	}
	return out, nil
}

func encodeObject(o scene.Object) ([]byte, error) {
	rec := objectRecord{Type: o.TypeName()}
	var err error
	switch x := o.(type) {
	case *scene.MeshPrimitive:
		rec.Mesh = &meshRecord{
			VerticesPerFace:   x.VerticesPerFace,
			VertexIDs:         x.VertexIDs,
			CornerIDs:         x.CornerIDs,
			CornerSharpnesses: x.CornerSharpnesses,
			CreaseLengths:     x.CreaseLengths,
			CreaseIDs:         x.CreaseIDs,
			CreaseSharpnesses: x.CreaseSharpnesses,
			Interpolation:     x.Interpolation,
		}
		rec.Variables, err = encodeVariables(x.Vars)
	case *scene.PointsPrimitive:
		rec.NumPoints = x.NumPoints
		rec.Variables, err = encodeVariables(x.Vars)
	case *scene.CurvesPrimitive:
		rec.Curves = &curvesRecord{VerticesPerCurve: x.VerticesPerCurve, Basis: x.Basis, Periodic: x.Periodic}
		rec.Variables, err = encodeVariables(x.Vars)
	case *scene.Camera:
		rec.Camera = x
	default:
		return nil, fmt.Errorf("unsupported object type %s", o.TypeName())
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func decodeObject(payload []byte) (scene.Object, error) {
	var rec objectRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	vars, err := decodeVariables(rec.Variables)
	if err != nil {
		return nil, err
	}
	switch rec.Type {
	case scene.TypeMesh:
		if rec.Mesh == nil {
			return nil, fmt.Errorf("mesh record without topology")
		}
		return &scene.MeshPrimitive{
			VerticesPerFace:   rec.Mesh.VerticesPerFace,
			VertexIDs:         rec.Mesh.VertexIDs,
			CornerIDs:         rec.Mesh.CornerIDs,
			CornerSharpnesses: rec.Mesh.CornerSharpnesses,
			CreaseLengths:     rec.Mesh.CreaseLengths,
			CreaseIDs:         rec.Mesh.CreaseIDs,
			CreaseSharpnesses: rec.Mesh.CreaseSharpnesses,
			Interpolation:     rec.Mesh.Interpolation,
			Vars:              vars,
		}, nil
	case scene.TypePoints:
		return &scene.PointsPrimitive{NumPoints: rec.NumPoints, Vars: vars}, nil
	case scene.TypeCurves:
		if rec.Curves == nil {
			return nil, fmt.Errorf("curves record without topology")
		}
		return &scene.CurvesPrimitive{
			VerticesPerCurve: rec.Curves.VerticesPerCurve,
			Basis:            rec.Curves.Basis,
			Periodic:         rec.Curves.Periodic,
			Vars:             vars,
		}, nil
	case scene.TypeCamera:
		if rec.Camera == nil {
			return nil, fmt.Errorf("camera record without parameters")
		}
		return rec.Camera, nil
	default:
		return nil, fmt.Errorf("unknown object type %q", rec.Type)
	}
}
