package sdf

// Prim type names.
const (
	PrimTypeXform       Token = "Xform"
	PrimTypeMesh        Token = "Mesh"
	PrimTypePoints      Token = "Points"
	PrimTypeBasisCurves Token = "BasisCurves"
	PrimTypeCamera      Token = "Camera"
)

// Geometry property names.
const (
	PropVisibility               = "visibility"
	PropExtent                   = "extent"
	PropXformOpOrder             = "xformOpOrder"
	PropXformTransform           = "xformOp:transform"
	PropOrientation              = "orientation"
	PropPoints                   = "points"
	PropNormals                  = "normals"
	PropNormalsIndices           = "normals:indices"
	PropWidths                   = "widths"
	PropAccelerations            = "accelerations"
	PropVelocities               = "velocities"
	PropST                       = "primvars:st"
	PropSTIndices                = "primvars:st:indices"
	PropFaceVertexCounts         = "faceVertexCounts"
	PropFaceVertexIndices        = "faceVertexIndices"
	PropCornerIndices            = "cornerIndices"
	PropCornerSharpnesses        = "cornerSharpnesses"
	PropCreaseIndices            = "creaseIndices"
	PropCreaseLengths            = "creaseLengths"
	PropCreaseSharpnesses        = "creaseSharpnesses"
	PropCurveVertexCounts        = "curveVertexCounts"
	PropCurveType                = "type"
	PropBasis                    = "basis"
	PropWrap                     = "wrap"
	PropFocalLength              = "focalLength"
	PropHorizontalAperture       = "horizontalAperture"
	PropVerticalAperture         = "verticalAperture"
	PropHorizontalApertureOffset = "horizontalApertureOffset"
	PropVerticalApertureOffset   = "verticalApertureOffset"
)

// PrimvarPrefix namespaces custom primitive variables.
const PrimvarPrefix = "primvars:"

// IndicesSuffix marks the index array paired with a primvar.
const IndicesSuffix = ":indices"

// Token values.
const (
	TokenInherited     Token = "inherited"
	TokenInvisible     Token = "invisible"
	TokenRightHanded   Token = "rightHanded"
	TokenNonperiodic   Token = "nonperiodic"
	TokenPeriodic      Token = "periodic"
	TokenLinear        Token = "linear"
	TokenCubic         Token = "cubic"
	TokenBezier        Token = "bezier"
	TokenBspline       Token = "bspline"
	TokenCatmullRom    Token = "catmullRom"
	TokenConstant      Token = "constant"
	TokenUniform       Token = "uniform"
	TokenVertex        Token = "vertex"
	TokenVarying       Token = "varying"
	TokenFaceVarying   Token = "faceVarying"
	TokenExplicitOnly  Token = "explicitOnly"
	TokenCollectionAPI Token = "CollectionAPI"
)

// Collection property naming: collection:<name>:expansionRule and collection:<name>:includes.
const (
	CollectionPrefix        = "collection:"
	CollectionExpansionRule = "expansionRule"
	CollectionIncludes      = "includes"
)
