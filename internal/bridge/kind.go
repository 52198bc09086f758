package bridge

import (
	"strings"

	"github.com/agentic-research/scenebridge/internal/sdf"
)

// PropertyKind classifies a property name for declaration and resolution.
type PropertyKind int

const (
	KindUnknown PropertyKind = iota
	KindTransform
	KindExtent
	KindVisibility

	// Mesh and curves topology.
	KindFaceVertexCounts
	KindFaceVertexIndices
	KindCornerIndices
	KindCornerSharpnesses
	KindCreaseIndices
	KindCreaseLengths
	KindCreaseSharpnesses
	KindCurveVertexCounts
	KindCurveType
	KindCurveBasis

	// Camera intrinsics.
	KindFocalLength
	KindHorizontalAperture
	KindVerticalAperture
	KindHorizontalApertureOffset
	KindVerticalApertureOffset

	// Primitive variables mapped onto reserved names.
	KindPoints
	KindNormals
	KindNormalsIndices
	KindWidths
	KindST
	KindSTIndices
	KindAccelerations
	KindVelocities

	// KindCustomPrimvar is any other "primvars:" name, with or without
	// the ":indices" suffix.
	KindCustomPrimvar
)

var kindNames = [...]string{
	KindUnknown:                  "unknown",
	KindTransform:                "transform",
	KindExtent:                   "extent",
	KindVisibility:               "visibility",
	KindFaceVertexCounts:         "faceVertexCounts",
	KindFaceVertexIndices:        "faceVertexIndices",
	KindCornerIndices:            "cornerIndices",
	KindCornerSharpnesses:        "cornerSharpnesses",
	KindCreaseIndices:            "creaseIndices",
	KindCreaseLengths:            "creaseLengths",
	KindCreaseSharpnesses:        "creaseSharpnesses",
	KindCurveVertexCounts:        "curveVertexCounts",
	KindCurveType:                "curveType",
	KindCurveBasis:               "curveBasis",
	KindFocalLength:              "focalLength",
	KindHorizontalAperture:       "horizontalAperture",
	KindVerticalAperture:         "verticalAperture",
	KindHorizontalApertureOffset: "horizontalApertureOffset",
	KindVerticalApertureOffset:   "verticalApertureOffset",
	KindPoints:                   "points",
	KindNormals:                  "normals",
	KindNormalsIndices:           "normalsIndices",
	KindWidths:                   "widths",
	KindST:                       "st",
	KindSTIndices:                "stIndices",
	KindAccelerations:            "accelerations",
	KindVelocities:               "velocities",
	KindCustomPrimvar:            "customPrimvar",
}

func (k PropertyKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

var kindsByName = map[string]PropertyKind{
	sdf.PropXformTransform:           KindTransform,
	sdf.PropExtent:                   KindExtent,
	sdf.PropVisibility:               KindVisibility,
	sdf.PropFaceVertexCounts:         KindFaceVertexCounts,
	sdf.PropFaceVertexIndices:        KindFaceVertexIndices,
	sdf.PropCornerIndices:            KindCornerIndices,
	sdf.PropCornerSharpnesses:        KindCornerSharpnesses,
	sdf.PropCreaseIndices:            KindCreaseIndices,
	sdf.PropCreaseLengths:            KindCreaseLengths,
	sdf.PropCreaseSharpnesses:        KindCreaseSharpnesses,
	sdf.PropCurveVertexCounts:        KindCurveVertexCounts,
	sdf.PropCurveType:                KindCurveType,
	sdf.PropBasis:                    KindCurveBasis,
	sdf.PropFocalLength:              KindFocalLength,
	sdf.PropHorizontalAperture:       KindHorizontalAperture,
	sdf.PropVerticalAperture:         KindVerticalAperture,
	sdf.PropHorizontalApertureOffset: KindHorizontalApertureOffset,
	sdf.PropVerticalApertureOffset:   KindVerticalApertureOffset,
	sdf.PropPoints:                   KindPoints,
	sdf.PropNormals:                  KindNormals,
	sdf.PropNormalsIndices:           KindNormalsIndices,
	sdf.PropWidths:                   KindWidths,
	sdf.PropST:                       KindST,
	sdf.PropSTIndices:                KindSTIndices,
	sdf.PropAccelerations:            KindAccelerations,
	sdf.PropVelocities:               KindVelocities,
}

// propertyRef is a classified property name. For primvar kinds, variable is
// the source primitive variable name.
type propertyRef struct {
	kind     PropertyKind
	variable string
	indices  bool
}

// Source variable names of the reserved primvars.
const (
	varPoints  = "P"
	varNormals = "N"
	varWidth   = "width"
	varUV      = "uv"
)

// classify maps a property name onto its kind.
func classify(name string) propertyRef {
	if k, ok := kindsByName[name]; ok {
		ref := propertyRef{kind: k}
		switch k {
		case KindPoints:
			ref.variable = varPoints
		case KindNormals:
			ref.variable = varNormals
		case KindNormalsIndices:
			ref.variable, ref.indices = varNormals, true
		case KindWidths:
			ref.variable = varWidth
		case KindST:
			ref.variable = varUV
		case KindSTIndices:
			ref.variable, ref.indices = varUV, true
		case KindAccelerations, KindVelocities:
			ref.variable = name
		}
		return ref
	}
	if rest, ok := strings.CutPrefix(name, sdf.PrimvarPrefix); ok && rest != "" {
		variable, indices := strings.CutSuffix(rest, sdf.IndicesSuffix)
		return propertyRef{kind: KindCustomPrimvar, variable: variable, indices: indices}
	}
	return propertyRef{kind: KindUnknown}
}

// sampleSource says which source channel supplies a property's sample times.
type sampleSource int

const (
	samplesNone sampleSource = iota
	samplesTransform
	samplesBound
	samplesVisibility
	samplesObject
)

// samples returns the sample channel of kind k. Primvars read object samples.
func (k PropertyKind) samples() sampleSource {
	switch k {
	case KindTransform:
		return samplesTransform
	case KindExtent:
		return samplesBound
	case KindVisibility:
		return samplesVisibility
	case KindUnknown:
		return samplesNone
	default:
		return samplesObject
	}
}
