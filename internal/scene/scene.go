// Package scene defines the hierarchical scene cache interfaces the bridge
// consumes: a location tree with sampled transforms, bounds, attributes,
// tags and at most one object per location.
package scene

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("scene: not found")

// Path is a location address as a list of names from the root.
type Path []string

// RootPath is the root location.
var RootPath = Path{}

func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Child returns p extended by name.
func (p Path) Child(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// Equal reports element-wise equality.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParsePath splits a "/a/b" string into a Path.
func ParsePath(s string) Path {
	s = strings.Trim(s, "/")
	if s == "" {
		return RootPath
	}
	return strings.Split(s, "/")
}

// Reserved attribute names.
const (
	VisibilityAttribute   = "scene:visible"
	LinkAttribute         = "sceneInterface:link"
	LinkFileNameAttribute = "sceneInterface:link.fileName"
	LinkRootAttribute     = "sceneInterface:link.root"
	LinkTimeAttribute     = "sceneInterface:link.time"
)

// ObjectTypeTagPrefix prefixes the tags a writer adds for each object type.
const ObjectTypeTagPrefix = "ObjectType:"

// ObjectTypeTag returns the tag marking a location holding an object of typeName.
func ObjectTypeTag(typeName string) string {
	return ObjectTypeTagPrefix + typeName
}

// IsObjectTypeTag reports whether tag was generated from an object type.
func IsObjectTypeTag(tag string) bool {
	return strings.HasPrefix(tag, ObjectTypeTagPrefix)
}

// Reader is a read-only view of one location.
type Reader interface {
	FileName() string
	Name() string
	Path() Path
	ChildNames() ([]string, error)
	Child(name string) (Reader, error)
	// Scene resolves path from the root; it reports false when missing.
	Scene(path Path) (Reader, bool)

	HasObject() bool
	ReadObject(t float64) (Object, error)
	ReadTransformAsMatrix(t float64) (M44d, error)
	ReadBound(t float64) (Box3d, error)

	HasAttribute(name string) bool
	AttributeNames() ([]string, error)
	ReadAttribute(name string, t float64) (Data, error)

	HasTag(tag string) bool
	// ReadTags returns the user tags local to the location, without object type tags.
	ReadTags() ([]string, error)
}

// SampledReader exposes the stored sample times of a location. The bridge
// uses them to declare properties without reading values.
type SampledReader interface {
	Reader
	TransformSampleTimes() []float64
	BoundSampleTimes() []float64
	ObjectSampleTimes() []float64
	AttributeSampleTimes(name string) []float64
	// ObjectVariables describes the primitive variables of the first object sample.
	ObjectVariables() []VariableInfo
}

// Header carries file level metadata.
type Header interface {
	// FrameRate returns the frame rate recorded by the producing application.
	FrameRate() (float64, bool)
	// SampleTimeLists returns every distinct list of sample times in the file.
	SampleTimeLists() ([][]float64, error)
}

// Writer writes one location of a new cache. Child creates missing locations.
type Writer interface {
	Name() string
	Path() Path
	Child(name string) (Writer, error)
	WriteTransform(m M44d, t float64) error
	WriteBound(b Box3d, t float64) error
	WriteObject(o Object, t float64) error
	WriteAttribute(name string, d Data, t float64) error
	WriteTags(tags []string) error
	// WriteLink links the location to root inside fileName.
	WriteLink(fileName string, root Path) error
	// WriteLinkAt writes link data sampled at t, reading fileName at linkTime.
	WriteLinkAt(fileName string, root Path, linkTime, t float64) error
}

// VariableInfo describes a stored primitive variable without its values.
// Interpolation is InterpolationInvalid and DataType empty when unknown.
type VariableInfo struct {
	Name              string
	Interpolation     Interpolation
	DataType          string
	Interpretation    Interpretation
	HasInterpretation bool
	HasIndices        bool
}
