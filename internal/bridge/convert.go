package bridge

import (
	"strings"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// ValueTypeName returns the host type of a stored data type tag with its
// geometric interpretation. It reports false for types with no equivalent.
func ValueTypeName(dataType string, interp scene.Interpretation) (sdf.ValueTypeName, bool) {
	switch dataType {
	case "BoolData":
		return sdf.TypeNameBool, true
	case "IntData":
		return sdf.TypeNameInt, true
	case "FloatData":
		return sdf.TypeNameFloat, true
	case "DoubleData":
		return sdf.TypeNameDouble, true
	case "StringData":
		return sdf.TypeNameString, true
	case "Color3fData":
		return sdf.TypeNameColor3f, true
	case "M44dData":
		return sdf.TypeNameMatrix4d, true
	case "V3fData":
		return vec3TypeName(interp, false), true
	case "IntVectorData":
		return sdf.TypeNameIntArray, true
	case "FloatVectorData":
		return sdf.TypeNameFloatArray, true
	case "DoubleVectorData":
		return sdf.TypeNameDoubleArray, true
	case "StringVectorData":
		return sdf.TypeNameStringArray, true
	case "InternedStringVectorData":
		return sdf.TypeNameTokenArray, true
	case "Color3fVectorData":
		return sdf.TypeNameColor3fArray, true
	case "V2fVectorData":
		if interp == scene.InterpretationUV {
			return sdf.TypeNameTexCoord2fArray, true
		}
		return sdf.TypeNameFloat2Array, true
	case "V3fVectorData":
		return vec3TypeName(interp, true), true
	default:
		return "", false
	}
}

func vec3TypeName(interp scene.Interpretation, array bool) sdf.ValueTypeName {
	var name sdf.ValueTypeName
	switch interp {
	case scene.InterpretationPoint:
		name = sdf.TypeNamePoint3f
	case scene.InterpretationNormal:
		name = sdf.TypeNameNormal3f
	case scene.InterpretationVector:
		name = sdf.TypeNameVector3f
	case scene.InterpretationColor:
		name = sdf.TypeNameColor3f
	default:
		name = sdf.TypeNameFloat3
	}
	if array {
		name += "[]"
	}
	return name
}

// InterpolationToken maps a primitive variable interpolation onto its host token.
func InterpolationToken(i scene.Interpolation) (sdf.Token, bool) {
	switch i {
	case scene.InterpolationConstant:
		return sdf.TokenConstant, true
	case scene.InterpolationUniform:
		return sdf.TokenUniform, true
	case scene.InterpolationVertex:
		return sdf.TokenVertex, true
	case scene.InterpolationVarying:
		return sdf.TokenVarying, true
	case scene.InterpolationFaceVarying:
		return sdf.TokenFaceVarying, true
	default:
		return "", false
	}
}

// InterpolationFromToken is the inverse of InterpolationToken.
func InterpolationFromToken(t sdf.Token) (scene.Interpolation, bool) {
	switch t {
	case sdf.TokenConstant:
		return scene.InterpolationConstant, true
	case sdf.TokenUniform:
		return scene.InterpolationUniform, true
	case sdf.TokenVertex:
		return scene.InterpolationVertex, true
	case sdf.TokenVarying:
		return scene.InterpolationVarying, true
	case sdf.TokenFaceVarying:
		return scene.InterpolationFaceVarying, true
	default:
		return scene.InterpolationInvalid, false
	}
}

// interpretation recovers the geometric interpretation carried by a type name.
func interpretation(typeName sdf.ValueTypeName) scene.Interpretation {
	switch strings.TrimSuffix(string(typeName), "[]") {
	case string(sdf.TypeNamePoint3f):
		return scene.InterpretationPoint
	case string(sdf.TypeNameNormal3f):
		return scene.InterpretationNormal
	case string(sdf.TypeNameVector3f):
		return scene.InterpretationVector
	case string(sdf.TypeNameColor3f):
		return scene.InterpretationColor
	case string(sdf.TypeNameTexCoord2f):
		return scene.InterpretationUV
	default:
		return scene.InterpretationNone
	}
}

// FromValue converts a host value declared as typeName back to source data.
// It is the inverse of the conversion applied on resolution.
func FromValue(v any, typeName sdf.ValueTypeName) (scene.Data, bool) {
	interp := interpretation(typeName)
	switch x := v.(type) {
	case bool:
		return scene.BoolData(x), true
	case int32:
		return scene.IntData(x), true
	case float32:
		return scene.FloatData(x), true
	case float64:
		return scene.DoubleData(x), true
	case string:
		return scene.StringData(x), true
	case sdf.Matrix4d:
		return scene.M44dData(x), true
	case sdf.Vec3f:
		if interp == scene.InterpretationColor {
			return scene.Color3fData(x), true
		}
		return scene.V3fData{Value: scene.V3f(x), Interpretation: interp}, true
	case []int32:
		return scene.IntVectorData(append([]int32(nil), x...)), true
	case []float32:
		return scene.FloatVectorData(append([]float32(nil), x...)), true
	case []float64:
		return scene.DoubleVectorData(append([]float64(nil), x...)), true
	case []string:
		return scene.StringVectorData(append([]string(nil), x...)), true
	case []sdf.Token:
		out := make(scene.InternedStringVectorData, len(x))
		for i, t := range x {
			out[i] = string(t)
		}
		return out, true
	case []sdf.Vec2f:
		out := make([]scene.V2f, len(x))
		for i, v := range x {
			out[i] = scene.V2f(v)
		}
		return scene.V2fVectorData{Values: out, Interpretation: interp}, true
	case []sdf.Vec3f:
		if interp == scene.InterpretationColor {
			out := make(scene.Color3fVectorData, len(x))
			for i, v := range x {
				out[i] = scene.Color3f(v)
			}
			return out, true
		}
		out := make([]scene.V3f, len(x))
		for i, v := range x {
			out[i] = scene.V3f(v)
		}
		return scene.V3fVectorData{Values: out, Interpretation: interp}, true
	default:
		return nil, false
	}
}

// toValue converts source data to the host value it is exposed as.
func toValue(d scene.Data) (any, bool) {
	switch x := d.(type) {
	case scene.BoolData:
		return bool(x), true
	case scene.IntData:
		return int32(x), true
	case scene.FloatData:
		return float32(x), true
	case scene.DoubleData:
		return float64(x), true
	case scene.StringData:
		return string(x), true
	case scene.Color3fData:
		return sdf.Vec3f(x), true
	case scene.M44dData:
		return sdf.Matrix4d(x), true
	case scene.V3fData:
		return sdf.Vec3f(x.Value), true
	case scene.IntVectorData:
		return append([]int32(nil), x...), true
	case scene.FloatVectorData:
		return append([]float32(nil), x...), true
	case scene.DoubleVectorData:
		return append([]float64(nil), x...), true
	case scene.StringVectorData:
		return append([]string(nil), x...), true
	case scene.InternedStringVectorData:
		out := make([]sdf.Token, len(x))
		for i, s := range x {
			out[i] = sdf.Token(s)
		}
		return out, true
	case scene.Color3fVectorData:
		out := make([]sdf.Vec3f, len(x))
		for i, c := range x {
			out[i] = sdf.Vec3f(c)
		}
		return out, true
	case scene.V2fVectorData:
		out := make([]sdf.Vec2f, len(x.Values))
		for i, v := range x.Values {
			out[i] = sdf.Vec2f(v)
		}
		return out, true
	case scene.V3fVectorData:
		out := make([]sdf.Vec3f, len(x.Values))
		for i, v := range x.Values {
			out[i] = sdf.Vec3f(v)
		}
		return out, true
	default:
		return nil, false
	}
}

func extentValue(b scene.Box3d) []sdf.Vec3f {
	return []sdf.Vec3f{
		{float32(b.Min[0]), float32(b.Min[1]), float32(b.Min[2])},
		{float32(b.Max[0]), float32(b.Max[1]), float32(b.Max[2])},
	}
}
