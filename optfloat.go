package pen

import (
	"fmt"
	"math"
)

// OptFloat is an optional float32 that occupies no more space than a
// plain float32: the NaN bit patterns are the "absent" state. Every
// scalar axis a Pose carries is an OptFloat, so a present value is
// guaranteed to never be NaN.
//
// The zero OptFloat is absent. Bits are stored complemented so that the
// all-zero struct decodes to a NaN pattern rather than to 0.0.
type OptFloat struct {
	notBits uint32
}

// SomeFloat wraps a value. NaN inputs collapse to the absent state, so
// code reading hardware values never has to NaN-check twice.
func SomeFloat(v float32) OptFloat {
	return OptFloat{notBits: ^math.Float32bits(v)}
}

// NoFloat returns the absent value.
func NoFloat() OptFloat {
	return OptFloat{}
}

func (o OptFloat) value() float32 {
	return math.Float32frombits(^o.notBits)
}

// Get returns the value and whether it is present. A present value is
// never NaN.
func (o OptFloat) Get() (float32, bool) {
	if o.IsNone() {
		return 0, false
	}
	return o.value(), true
}

// Or returns the value, or def when absent.
func (o OptFloat) Or(def float32) float32 {
	if o.IsNone() {
		return def
	}
	return o.value()
}

// IsSome reports whether a value is present.
func (o OptFloat) IsSome() bool { return !o.IsNone() }

// IsNone reports whether the value is absent.
func (o OptFloat) IsNone() bool {
	return math.IsNaN(float64(o.value()))
}

// Equal compares two optional values. Absent compares equal to absent.
// Prefer this over ==; the absent state has many bit patterns.
func (o OptFloat) Equal(p OptFloat) bool {
	if o.IsNone() || p.IsNone() {
		return o.IsNone() == p.IsNone()
	}
	return o.value() == p.value()
}

// String formats as the value or "none".
func (o OptFloat) String() string {
	if o.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%g", o.value())
}
