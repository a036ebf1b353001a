package ink

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
	"github.com/gogpu/pen/internal/quirks"
)

// metricUnit mirrors the TabletPropertyMetricUnit values the stylus API
// reports per packet property.
type metricUnit int32

const (
	unitDefault     metricUnit = 0
	unitInches      metricUnit = 1
	unitCentimeters metricUnit = 2
	unitDegrees     metricUnit = 3
	unitRadians     metricUnit = 4
	unitSeconds     metricUnit = 5
	unitPounds      metricUnit = 6
	unitGrams       metricUnit = 7
)

// himetricPerInch is the HIMETRIC unit the stylus reports coordinates
// in: hundredths of a millimeter, 2540 per inch.
const himetricPerInch = 2540

// himetricToPixel is the coordinate scale for a window rendered at the
// given dots per inch.
func himetricToPixel(dpi float32) float32 {
	return dpi / himetricPerInch
}

// propertyMetric is one packet property as GetPacketDescriptionData
// reports it: the role name from the quirks table it matched, the raw
// integer range and the declared unit.
type propertyMetric struct {
	Name       string
	Min, Max   int32
	Unit       metricUnit
	Resolution float32
}

type slotKind uint8

const (
	slotX slotKind = iota
	slotY
	slotPressure
	slotTiltX
	slotTiltY
	slotDistance
	slotTwist
	slotButtonPressure
	slotWidth
	slotHeight
	slotTimer
	// slotIgnore consumes a word the quirks table has no role for,
	// keeping the rest of the packet aligned.
	slotIgnore
)

type slot struct {
	kind   slotKind
	filter calib.Filter
}

type axisCap struct {
	axis pen.Axis
	info pen.AxisInfo
}

// interpreter decodes the fixed per-tablet packet layout into poses.
// One word per reported property, in the quirks table order, with the
// status word always last.
type interpreter struct {
	slots []slot
	// words is the full packet width including the status word.
	words int
	timer bool

	// axes are the tool capabilities this tablet's packets can back.
	// They spread to tools on first interaction.
	axes []axisCap

	// degenerate names properties whose metrics could not be
	// calibrated; their words are consumed and never reported.
	degenerate []string
}

// packet is one decoded hardware report.
type packet struct {
	pose    pen.Pose
	status  uint32
	time    pen.FrameTimestamp
	hasTime bool
}

// newInterpreter builds a packet decoder from the property metrics one
// tablet reports. Metrics must appear in the quirks table order with x
// and y first; the trailing status metric is optional in the input but
// its word is always present on the wire.
func newInterpreter(metrics []propertyMetric) (*interpreter, error) {
	table := quirks.Ink()
	if n := len(metrics); n > 0 && metrics[n-1].Name == "status" {
		metrics = metrics[:n-1]
	}
	if len(metrics) < 2 || metrics[0].Name != "x" || metrics[1].Name != "y" {
		return nil, fmt.Errorf("ink: packet description does not start with x, y")
	}

	in := &interpreter{}
	prev := -1
	for _, m := range metrics {
		if m.Name == "" {
			in.slots = append(in.slots, slot{kind: slotIgnore})
			continue
		}
		idx, _, ok := table.Find(m.Name)
		if !ok {
			return nil, fmt.Errorf("ink: unknown packet property %q", m.Name)
		}
		if idx <= prev {
			return nil, fmt.Errorf("ink: packet property %q out of order", m.Name)
		}
		prev = idx

		switch m.Name {
		case "x":
			in.slots = append(in.slots, slot{kind: slotX})
		case "y":
			in.slots = append(in.slots, slot{kind: slotY})
		case "pressure":
			in.normalized(slotPressure, m, pen.AxisPressure, pen.Limits{Min: 0, Max: 1})
		case "button_pressure":
			in.normalized(slotButtonPressure, m, pen.AxisButtonPressure, pen.Limits{Min: 0, Max: 1})
		case "tilt_x":
			in.angle(slotTiltX, m)
		case "tilt_y":
			in.angle(slotTiltY, m)
		case "z":
			in.length(slotDistance, m, pen.AxisDistance)
		case "twist":
			in.normalized(slotTwist, m, pen.AxisRoll, pen.Limits{Min: 0, Max: calib.Tau})
		case "width":
			in.length(slotWidth, m, pen.AxisContactSize)
		case "height":
			in.length(slotHeight, m, pen.AxisContactSize)
		case "timer":
			in.timer = true
			in.slots = append(in.slots, slot{kind: slotTimer})
		default:
			return nil, fmt.Errorf("ink: packet property %q has no decoder", m.Name)
		}
	}
	in.words = len(in.slots) + 1
	return in, nil
}

// normalized maps the raw range onto dst. Roll and twist land on
// [0, Tau], pressures on [0, 1].
func (in *interpreter) normalized(k slotKind, m propertyMetric, axis pen.Axis, dst pen.Limits) {
	sc, err := calib.Solve(pen.Limits{Min: float32(m.Min), Max: float32(m.Max)}, dst)
	if err != nil {
		in.malformed(k, m)
		return
	}
	unit := pen.UnitNormalized
	if axis == pen.AxisRoll {
		unit = pen.UnitRadians
	}
	in.slots = append(in.slots, slot{kind: k, filter: calib.Filter{State: calib.FilterScale, Scale: sc}})
	in.axes = append(in.axes, axisCap{axis: axis, info: pen.AxisInfo{
		Unit:        unit,
		Limits:      dst,
		HasLimits:   true,
		Granularity: calib.GranularityOf(int64(m.Min), int64(m.Max)),
	}})
}

// angle maps a tilt property to radians. A declared angular unit scales
// directly; anything else normalizes the raw range onto a half turn
// either way.
func (in *interpreter) angle(k slotKind, m propertyMetric) {
	res := float64(m.Resolution)
	if !(res > 0) || math.IsInf(res, 0) {
		res = 1
	}
	var sc calib.Scaler
	var err error
	switch m.Unit {
	case unitRadians:
		sc, err = calib.Linear(1 / res)
	case unitDegrees:
		sc, err = calib.Linear(math.Pi / 180 / res)
	case unitSeconds:
		// Arcseconds.
		sc, err = calib.Linear(math.Pi / (180 * 3600) / res)
	default:
		sc, err = calib.Solve(
			pen.Limits{Min: float32(m.Min), Max: float32(m.Max)},
			pen.Limits{Min: -math.Pi, Max: math.Pi},
		)
	}
	if err != nil {
		in.malformed(k, m)
		return
	}
	lo, okLo := sc.Apply(int64(m.Min))
	hi, okHi := sc.Apply(int64(m.Max))
	if !okLo || !okHi {
		in.malformed(k, m)
		return
	}
	in.slots = append(in.slots, slot{kind: k, filter: calib.Filter{State: calib.FilterScale, Scale: sc}})
	in.axes = append(in.axes, axisCap{axis: pen.AxisTilt, info: pen.AxisInfo{
		Unit:        pen.UnitRadians,
		Limits:      pen.Limits{Min: lo, Max: hi},
		HasLimits:   true,
		Granularity: calib.GranularityOf(int64(m.Min), int64(m.Max)),
	}})
}

// length maps a distance or contact-size property to centimeters when
// the hardware declares a physical unit, else normalizes to [0, 1].
func (in *interpreter) length(k slotKind, m propertyMetric, axis pen.Axis) {
	res := float64(m.Resolution)
	if !(res > 0) || math.IsInf(res, 0) {
		res = 1
	}
	switch m.Unit {
	case unitCentimeters, unitInches:
		factor := 1 / res
		if m.Unit == unitInches {
			factor = 2.54 / res
		}
		sc, err := calib.Linear(factor)
		if err != nil {
			in.malformed(k, m)
			return
		}
		lo, okLo := sc.Apply(int64(m.Min))
		hi, okHi := sc.Apply(int64(m.Max))
		if !okLo || !okHi {
			in.malformed(k, m)
			return
		}
		in.slots = append(in.slots, slot{kind: k, filter: calib.Filter{State: calib.FilterScale, Scale: sc}})
		in.axes = append(in.axes, axisCap{axis: axis, info: pen.AxisInfo{
			Unit:        pen.UnitCentimeters,
			Limits:      pen.Limits{Min: lo, Max: hi},
			HasLimits:   true,
			Granularity: calib.GranularityOf(int64(m.Min), int64(m.Max)),
		}})
	default:
		in.normalized(k, m, axis, pen.Limits{Min: 0, Max: 1})
	}
}

// malformed records a property whose word must be consumed but whose
// metrics cannot back an axis.
func (in *interpreter) malformed(k slotKind, m propertyMetric) {
	in.slots = append(in.slots, slot{kind: k, filter: calib.Filter{State: calib.FilterMalformed}})
	in.degenerate = append(in.degenerate, m.Name)
}

// apply spreads the tablet's axis capabilities onto a tool. Width and
// height both feed contact size; SetAxis unions their limits.
func (in *interpreter) apply(t *pen.Tool) {
	for _, c := range in.axes {
		t.SetAxis(c.axis, c.info)
	}
}

// interpret decodes one packet. words must be exactly in.words long.
func (in *interpreter) interpret(words []int32, scale float32) packet {
	var p packet
	var tiltX, tiltY, width, height float32
	var hasTilt, hasSize bool
	for i, s := range in.slots {
		raw := words[i]
		switch s.kind {
		case slotX:
			p.pose.Position[0] = float32(raw) * scale
		case slotY:
			p.pose.Position[1] = float32(raw) * scale
		case slotTimer:
			p.time = pen.FrameTimestamp(time.Duration(raw) * time.Millisecond)
			p.hasTime = true
		case slotPressure:
			if v, ok := s.filter.Read(int64(raw)); ok {
				p.pose.Pressure = pen.SomeFloat(v)
			}
		case slotButtonPressure:
			if v, ok := s.filter.Read(int64(raw)); ok {
				p.pose.ButtonPressure = pen.SomeFloat(v)
			}
		case slotDistance:
			if v, ok := s.filter.Read(int64(raw)); ok {
				p.pose.Distance = pen.SomeFloat(v)
			}
		case slotTwist:
			if v, ok := s.filter.Read(int64(raw)); ok {
				p.pose.Roll = pen.SomeFloat(v)
			}
		case slotTiltX:
			if v, ok := s.filter.Read(int64(raw)); ok {
				tiltX, hasTilt = v, true
			}
		case slotTiltY:
			if v, ok := s.filter.Read(int64(raw)); ok {
				tiltY, hasTilt = v, true
			}
		case slotWidth:
			if v, ok := s.filter.Read(int64(raw)); ok {
				width, hasSize = v, true
			}
		case slotHeight:
			if v, ok := s.filter.Read(int64(raw)); ok {
				height, hasSize = v, true
			}
		}
	}
	// A lone tilt component reports with the other at zero, matching
	// hardware that only senses one direction.
	if hasTilt {
		p.pose.Tilt = [2]float32{tiltX, tiltY}
		p.pose.HasTilt = true
	}
	if hasSize {
		p.pose.ContactSize = [2]float32{width, height}
		p.pose.HasContactSize = true
	}
	p.status = uint32(words[len(in.slots)])
	return p
}

// decode splits a packet buffer into decoded packets. The buffer is
// trimmed to whole packets; a trailing partial packet means the stream
// is corrupt, so everything after the last whole packet is dropped.
func (in *interpreter) decode(words []int32, scale float32) []packet {
	n := len(words) / in.words
	if n == 0 {
		return nil
	}
	out := make([]packet, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, in.interpret(words[i*in.words:(i+1)*in.words], scale))
	}
	return out
}
