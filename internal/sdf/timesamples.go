package sdf

import (
	"math"
	"sort"
)

// TimeTolerance is the distance under which a requested time is treated as
// landing exactly on a sample.
const TimeTolerance = 0.001

// Sample is a time sample entry: a Placeholder whose value is computed on
// demand, or a Resolved literal.
type Sample interface {
	isSample()
}

// Placeholder marks a sample whose value is computed on demand.
type Placeholder struct{}

// Resolved holds a literal sample value.
type Resolved struct {
	Value any
}

func (Placeholder) isSample() {}
func (Resolved) isSample()    {}

// TimeSample is one entry of a TimeSampleMap.
type TimeSample struct {
	Time   float64
	Sample Sample
}

// TimeSampleMap is an ordered map from time to Sample. Keys are strictly
// increasing. The zero value is an empty map.
type TimeSampleMap struct {
	entries []TimeSample
}

// NewTimeSampleMap returns a map with one placeholder per time.
func NewTimeSampleMap(times ...float64) *TimeSampleMap {
	m := &TimeSampleMap{}
	for _, t := range times {
		m.Set(t, Placeholder{})
	}
	return m
}

func (m *TimeSampleMap) search(t float64) int {
	return sort.Search(len(m.entries), func(i int) bool { return m.entries[i].Time >= t })
}

// Len returns the number of samples.
func (m *TimeSampleMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Set inserts or replaces the sample at t.
func (m *TimeSampleMap) Set(t float64, s Sample) {
	if s == nil {
		s = Placeholder{}
	}
	i := m.search(t)
	if i < len(m.entries) && m.entries[i].Time == t {
		m.entries[i].Sample = s
		return
	}
	m.entries = append(m.entries, TimeSample{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = TimeSample{Time: t, Sample: s}
}

// Find returns the sample stored exactly at t.
func (m *TimeSampleMap) Find(t float64) (Sample, bool) {
	if m == nil {
		return nil, false
	}
	i := m.search(t)
	if i < len(m.entries) && m.entries[i].Time == t {
		return m.entries[i].Sample, true
	}
	return nil, false
}

// FindNear returns the sample whose time is within TimeTolerance of t.
func (m *TimeSampleMap) FindNear(t float64) (TimeSample, bool) {
	if m == nil || len(m.entries) == 0 {
		return TimeSample{}, false
	}
	i := m.search(t)
	for _, j := range []int{i, i - 1} {
		if j >= 0 && j < len(m.entries) && math.Abs(m.entries[j].Time-t) <= TimeTolerance {
			return m.entries[j], true
		}
	}
	return TimeSample{}, false
}

// Erase removes the sample at t, reporting whether one existed.
func (m *TimeSampleMap) Erase(t float64) bool {
	if m == nil {
		return false
	}
	i := m.search(t)
	if i < len(m.entries) && m.entries[i].Time == t {
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
		return true
	}
	return false
}

// Times returns the sample times in ascending order.
func (m *TimeSampleMap) Times() []float64 {
	if m == nil {
		return nil
	}
	out := make([]float64, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Time
	}
	return out
}

// Entries returns a copy of the entries in ascending time order.
func (m *TimeSampleMap) Entries() []TimeSample {
	if m == nil {
		return nil
	}
	return append([]TimeSample(nil), m.entries...)
}

// Clone returns an independent copy.
func (m *TimeSampleMap) Clone() *TimeSampleMap {
	if m == nil {
		return nil
	}
	return &TimeSampleMap{entries: append([]TimeSample(nil), m.entries...)}
}

// Bracket returns the bracketing sample times around t. Keys are enough, so
// maps holding only placeholders bracket correctly.
func (m *TimeSampleMap) Bracket(t float64) (lower, upper float64, ok bool) {
	return BracketingTimeSamples(m.Times(), t)
}

// BracketingTimeSamples implements interpolation bracketing over ascending
// times: clamp below the first and above the last sample, collapse to one
// sample within TimeTolerance, otherwise return the enclosing pair.
func BracketingTimeSamples(times []float64, t float64) (lower, upper float64, ok bool) {
	n := len(times)
	switch {
	case n == 0:
		return 0, 0, false
	case t <= times[0]:
		return times[0], times[0], true
	case t >= times[n-1]:
		return times[n-1], times[n-1], true
	}
	i := sort.SearchFloat64s(times, t)
	if math.Abs(times[i]-t) <= TimeTolerance {
		return times[i], times[i], true
	}
	return times[i-1], times[i], true
}
