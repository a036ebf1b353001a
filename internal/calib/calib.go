// Package calib turns raw integer axis readings into calibrated floats.
//
// Every axis calibration is a single affine form, (value + bias) *
// multiplier, computed in float64 and truncated to float32 at the end.
// The bias/multiplier pair is solved once per axis from the range the
// hardware declares, then applied per reading on the hot path.
package calib

import (
	"errors"
	"math"

	"github.com/gogpu/pen"
)

// ErrDegenerate reports an axis whose declared range cannot be mapped:
// zero width, or metrics that are not finite. Such an axis is present
// in the wire format (its words must still be consumed to keep packet
// alignment) but is unreportable.
var ErrDegenerate = errors.New("calib: degenerate axis range")

// Tau is the largest float32 strictly below 2*pi. Circular axes
// normalize onto [0, Tau] so that a full revolution never quantizes up
// to the excluded endpoint.
var Tau = math.Float32frombits(0x40c90fda)

// Scaler is a solved affine calibration.
type Scaler struct {
	Bias     int32
	Multiply float64
}

// Apply calibrates one raw reading. Returns false when the result is
// not finite; such readings report nothing.
func (s Scaler) Apply(raw int64) (float32, bool) {
	v := float64(raw+int64(s.Bias)) * s.Multiply
	f := float32(v)
	if math.IsNaN(v) || math.IsInf(float64(f), 0) {
		return 0, false
	}
	return f, true
}

// Solve derives the scaler mapping the declared range src onto the
// canonical range dst, so that src.Min maps to dst.Min and src.Max to
// dst.Max. The bias is an integer, so ranges whose solution is
// fractional land within half a hardware step of the canonical
// endpoints. Fails with ErrDegenerate when src has zero width or
// either range is not finite.
func Solve(src, dst pen.Limits) (Scaler, error) {
	srcMin, srcMax := float64(src.Min), float64(src.Max)
	dstMin, dstMax := float64(dst.Min), float64(dst.Max)

	width := srcMax - srcMin
	multiply := (dstMax - dstMin) / width
	bias := dstMin/multiply - srcMin
	if !isFinite(multiply) || !isFinite(bias) || multiply == 0 {
		return Scaler{}, ErrDegenerate
	}
	return Scaler{Bias: int32(math.Round(bias)), Multiply: multiply}, nil
}

// Linear derives a scaler that only rescales by factor with no range
// mapping, for axes already in a physical unit. Fails when factor is
// zero or not finite.
func Linear(factor float64) (Scaler, error) {
	if !isFinite(factor) || factor == 0 {
		return Scaler{}, ErrDegenerate
	}
	return Scaler{Multiply: factor}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GranularityOf is the number of integer steps across a declared range,
// saturating at the uint32 ceiling. Zero-width ranges report one step.
func GranularityOf(min, max int64) pen.Granularity {
	d := max - min
	if d < 0 {
		d = -d
	}
	if d >= math.MaxUint32 {
		return math.MaxUint32
	}
	return pen.Granularity(d + 1)
}

// FilterState classifies how an axis behaves in a packet stream.
type FilterState uint8

const (
	// FilterOmitted: the axis is not in the wire format at all.
	FilterOmitted FilterState = iota
	// FilterMalformed: the axis occupies a word in the wire format
	// but its metrics are unusable. The word is consumed and nothing
	// is reported.
	FilterMalformed
	// FilterScale: the axis is present and calibrates through Scale.
	FilterScale
)

// Filter is the per-axis decode decision for a packet layout.
type Filter struct {
	State FilterState
	Scale Scaler
}

// Read consumes one raw word according to the filter. The bool is false
// when nothing should be reported.
func (f Filter) Read(raw int64) (float32, bool) {
	if f.State != FilterScale {
		return 0, false
	}
	return f.Scale.Apply(raw)
}

// WrapDelta returns the angular motion from one absolute reading to the
// next, choosing the nearest image: the result is in (-pi, pi]. A ring
// crossing its zero point moves a small negative amount, not almost a
// full turn.
func WrapDelta(from, to float32) float32 {
	d := math.Mod(float64(to)-float64(from), 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return float32(d)
}

// FromFixed converts a signed 24.8 fixed point value (the Wayland wire
// format for fractional numbers) to float32.
func FromFixed(v int32) float32 {
	return float32(v) / 256
}

// Degrees converts degrees to radians.
func Degrees(deg float64) float32 {
	return float32(deg * math.Pi / 180)
}
