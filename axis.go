package pen

import "strings"

// Axis names a single reportable capability of a tool. Not every tool
// reports every axis, and hardware is known to lie in both directions:
// advertised axes may never arrive and unadvertised ones may.
type Axis uint8

const (
	// AxisPressure is perpendicular contact force, normalized 0..1.
	AxisPressure Axis = iota
	// AxisTilt is the angle from perpendicular in the X and Y
	// directions, in radians. Always reported as a pair.
	AxisTilt
	// AxisDistance is the height above the pad surface. See the axis
	// info Unit for interpretation: normalized 0..1 or centimeters.
	AxisDistance
	// AxisRoll is rotation about the tool's own long axis, radians in
	// [0, 2pi).
	AxisRoll
	// AxisWheel is a scroll wheel on the tool, reporting a relative
	// angle in radians plus discrete click steps.
	AxisWheel
	// AxisSlider is a linear control along the barrel, normalized
	// -1..1 with 0 the natural rest position.
	AxisSlider
	// AxisButtonPressure is the analog force on a pressure-sensitive
	// barrel button, normalized 0..1.
	AxisButtonPressure
	// AxisContactSize is the width and height of the contact ellipse.
	// Always reported as a pair. See the axis info Unit.
	AxisContactSize

	// NumAxes is the number of distinct axes.
	NumAxes = iota
)

var axisNames = [NumAxes]string{
	"Pressure", "Tilt", "Distance", "Roll", "Wheel", "Slider",
	"ButtonPressure", "ContactSize",
}

func (a Axis) String() string {
	if int(a) < len(axisNames) {
		return axisNames[a]
	}
	return "Axis(?)"
}

// AxisSet is a bitset of axes.
type AxisSet uint16

// NewAxisSet returns an AxisSet containing the given axes.
func NewAxisSet(axes ...Axis) AxisSet {
	var s AxisSet
	for _, a := range axes {
		s = s.With(a)
	}
	return s
}

// With returns the set with a added.
func (s AxisSet) With(a Axis) AxisSet { return s | 1<<a }

// Has reports whether a is in the set.
func (s AxisSet) Has(a Axis) bool { return s&(1<<a) != 0 }

// Axes lists the members in ascending Axis order.
func (s AxisSet) Axes() []Axis {
	out := make([]Axis, 0, NumAxes)
	for a := Axis(0); a < NumAxes; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s AxisSet) String() string {
	names := make([]string, 0, NumAxes)
	for _, a := range s.Axes() {
		names = append(names, a.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Limits is the inclusive value range of an axis after calibration.
type Limits struct {
	Min, Max float32
}

// Union widens the range to cover both l and o. Used when one logical
// axis is backed by several hardware valuators (tilt X and Y).
func (l Limits) Union(o Limits) Limits {
	if o.Min < l.Min {
		l.Min = o.Min
	}
	if o.Max > l.Max {
		l.Max = o.Max
	}
	return l
}

// Granularity is the number of unique values an axis can report across
// its range, when known. For example pressure with granularity 32768 has
// 32768 distinct steps between 0 and 1. Zero means unknown.
type Granularity uint32

// Unit describes how to interpret calibrated values of an axis.
type Unit uint8

const (
	// UnitNormalized is a dimensionless value in the axis's canonical
	// range (0..1, -1..1, and so on; see the Axis constants).
	UnitNormalized Unit = iota
	// UnitCentimeters is a physical length.
	UnitCentimeters
	// UnitRadians is an angle.
	UnitRadians
)

func (u Unit) String() string {
	switch u {
	case UnitCentimeters:
		return "cm"
	case UnitRadians:
		return "rad"
	default:
		return "normalized"
	}
}

// AxisInfo describes one axis of one tool: its unit, value range and
// step count, as far as the platform reports them.
type AxisInfo struct {
	Unit        Unit
	Limits      Limits
	HasLimits   bool
	Granularity Granularity
}
