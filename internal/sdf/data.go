// Package sdf holds the vocabulary of the host scene-description data model:
// paths, spec types, field keys, value types, list ops, time sample maps and
// the AbstractData storage protocol a layer backend implements.
package sdf

import "errors"

var (
	ErrSpecNotFound    = errors.New("spec not found")
	ErrSpecExists      = errors.New("spec already exists")
	ErrInvalidSpecType = errors.New("invalid spec type")
)

// FieldValuePair is one populated field of a spec.
type FieldValuePair struct {
	Key   string
	Value any
}

// AbstractData is the storage protocol a layer backend implements. Lookups
// of missing data report false; structural misuse returns an error.
type AbstractData interface {
	// StreamsData reports whether values are produced on demand rather than
	// held in memory.
	StreamsData() bool

	HasSpec(path Path) bool
	GetSpecType(path Path) SpecType
	CreateSpec(path Path, specType SpecType) error
	EraseSpec(path Path) error
	MoveSpec(oldPath, newPath Path) error
	// VisitSpecs calls fn for each spec until fn returns false.
	VisitSpecs(fn func(path Path) bool)

	Has(path Path, field string) (any, bool)
	HasSpecAndField(path Path, field string) (any, SpecType, bool)
	Get(path Path, field string) any
	// Set stores value; a nil value erases the field.
	Set(path Path, field string, value any) error
	Erase(path Path, field string)
	List(path Path) []string

	ListAllTimeSamples() []float64
	ListTimeSamplesForPath(path Path) []float64
	GetBracketingTimeSamples(t float64) (lower, upper float64, ok bool)
	GetNumTimeSamplesForPath(path Path) int
	GetBracketingTimeSamplesForPath(path Path, t float64) (lower, upper float64, ok bool)
	QueryTimeSample(path Path, t float64) (any, bool)
	// SetTimeSample stores value at t; a nil value erases the sample.
	SetTimeSample(path Path, t float64, value any) error
	EraseTimeSample(path Path, t float64)
}
