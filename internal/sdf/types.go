package sdf

// SpecType is the kind of a spec.
type SpecType int

const (
	SpecTypeUnknown SpecType = iota
	SpecTypePseudoRoot
	SpecTypePrim
	SpecTypeAttribute
	SpecTypeRelationship
	SpecTypeRelationshipTarget
)

func (t SpecType) String() string {
	switch t {
	case SpecTypePseudoRoot:
		return "PseudoRoot"
	case SpecTypePrim:
		return "Prim"
	case SpecTypeAttribute:
		return "Attribute"
	case SpecTypeRelationship:
		return "Relationship"
	case SpecTypeRelationshipTarget:
		return "RelationshipTarget"
	default:
		return "Unknown"
	}
}

// Specifier says how a prim spec is consumed by composition.
type Specifier int

const (
	SpecifierDef Specifier = iota
	SpecifierOver
	SpecifierClass
)

func (s Specifier) String() string {
	switch s {
	case SpecifierOver:
		return "over"
	case SpecifierClass:
		return "class"
	default:
		return "def"
	}
}

// Variability of an attribute.
type Variability int

const (
	VariabilityVarying Variability = iota
	VariabilityUniform
)

func (v Variability) String() string {
	if v == VariabilityUniform {
		return "uniform"
	}
	return "varying"
}

// Token is an interned identifier value.
type Token string

// Value types carried in fields and samples.
type (
	Vec2f    [2]float32
	Vec3f    [3]float32
	Vec2d    [2]float64
	Vec3d    [3]float64
	Matrix4d [4][4]float64

	// AssetPath names an external document.
	AssetPath string

	// Dictionary is a nested string-keyed value map.
	Dictionary map[string]any
)

// IdentityMatrix returns the 4x4 identity.
func IdentityMatrix() Matrix4d {
	return Matrix4d{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Reference is a composition arc onto a prim in another document.
type Reference struct {
	AssetPath string
	PrimPath  Path
}

// ValueTypeName is the externally visible attribute type, e.g. "point3f[]".
type ValueTypeName string

const (
	TypeNameToken           ValueTypeName = "token"
	TypeNameTokenArray      ValueTypeName = "token[]"
	TypeNameBool            ValueTypeName = "bool"
	TypeNameInt             ValueTypeName = "int"
	TypeNameIntArray        ValueTypeName = "int[]"
	TypeNameFloat           ValueTypeName = "float"
	TypeNameFloatArray      ValueTypeName = "float[]"
	TypeNameDouble          ValueTypeName = "double"
	TypeNameDoubleArray     ValueTypeName = "double[]"
	TypeNameString          ValueTypeName = "string"
	TypeNameStringArray     ValueTypeName = "string[]"
	TypeNameFloat2          ValueTypeName = "float2"
	TypeNameFloat2Array     ValueTypeName = "float2[]"
	TypeNameFloat3          ValueTypeName = "float3"
	TypeNameFloat3Array     ValueTypeName = "float3[]"
	TypeNamePoint3f         ValueTypeName = "point3f"
	TypeNamePoint3fArray    ValueTypeName = "point3f[]"
	TypeNameNormal3f        ValueTypeName = "normal3f"
	TypeNameNormal3fArray   ValueTypeName = "normal3f[]"
	TypeNameVector3f        ValueTypeName = "vector3f"
	TypeNameVector3fArray   ValueTypeName = "vector3f[]"
	TypeNameColor3f         ValueTypeName = "color3f"
	TypeNameColor3fArray    ValueTypeName = "color3f[]"
	TypeNameTexCoord2f      ValueTypeName = "texCoord2f"
	TypeNameTexCoord2fArray ValueTypeName = "texCoord2f[]"
	TypeNameMatrix4d        ValueTypeName = "matrix4d"
)

// IsArray reports whether the type name denotes an array type.
func (n ValueTypeName) IsArray() bool {
	return len(n) > 2 && n[len(n)-2:] == "[]"
}

// Field keys.
const (
	FieldSpecifier          = "specifier"
	FieldTypeName           = "typeName"
	FieldPrimChildren       = "primChildren"
	FieldPropertyChildren   = "properties"
	FieldVariability        = "variability"
	FieldDefault            = "default"
	FieldInterpolation      = "interpolation"
	FieldTimeSamples        = "timeSamples"
	FieldCustom             = "custom"
	FieldReferences         = "references"
	FieldClips              = "clips"
	FieldAPISchemas         = "apiSchemas"
	FieldTargetPaths        = "targetPaths"
	FieldTargetChildren     = "targetChildren"
	FieldDefaultPrim        = "defaultPrim"
	FieldTimeCodesPerSecond = "timeCodesPerSecond"
	FieldStartTimeCode      = "startTimeCode"
	FieldEndTimeCode        = "endTimeCode"
)

// Value clip dictionary keys.
const (
	ClipSetDefault    = "default"
	ClipKeyPrimPath   = "primPath"
	ClipKeyAssetPaths = "assetPaths"
	ClipKeyTimes      = "times"
	ClipKeyActive     = "active"
)
