// Package timecode converts between scene cache time (seconds) and host frame codes.
package timecode

import "math"

// DefaultFPS is used when a cache header carries no frame rate.
const DefaultFPS = 24.0

// precision is the decimal scale frames are rounded to, so that times stored
// as floating point seconds land on exact integer frames.
const precision = 1.0e10

// Mapper converts times for one frame rate. The zero value is not usable; use New.
type Mapper struct {
	fps float64
}

// New returns a Mapper for fps. Non-positive rates fall back to DefaultFPS.
func New(fps float64) Mapper {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	return Mapper{fps: fps}
}

// FPS returns the frame rate of the mapper.
func (m Mapper) FPS() float64 {
	return m.fps
}

// TimeToFrame converts seconds to a frame code rounded to ten decimal places.
func (m Mapper) TimeToFrame(t float64) float64 {
	return math.Round(precision*(t*m.fps)) / precision
}

// FrameToTime converts a frame code to seconds.
//
// The division is left unrounded: rounding here would push f/fps off the
// double nearest to the true quotient and TimeToFrame(FrameToTime(f)) could
// miss f by 1e-10.
func (m Mapper) FrameToTime(f float64) float64 {
	return f / m.fps
}
