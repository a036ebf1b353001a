package xinput2

import (
	"math"
	"strings"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
	"github.com/gogpu/pen/internal/quirks"
)

// Entity tags for ids derived from an X device.
const (
	entityTablet uint8 = 1 + iota
	entityGroup
	entityRing
)

// role names what a valuator contributes once its label is resolved.
type role uint8

const (
	roleNone role = iota
	rolePressure
	roleTiltX
	roleTiltY
	roleDistance
	roleSlider
	roleRoll
)

// valuatorInfo is one valuator class from an XIQueryDevice reply.
type valuatorInfo struct {
	number     uint16
	label      uint32
	min, max   float64
	resolution uint32
	mode       uint8
}

// deviceInfo is one device from an XIQueryDevice reply.
type deviceInfo struct {
	id         uint16
	use        uint16
	attachment uint16
	enabled    bool
	name       string
	numButtons int
	valuators  []valuatorInfo
}

// parseDeviceInfos decodes an XIQueryDevice reply. Unknown class types
// are skipped by their declared length.
func parseDeviceInfos(m *message) ([]deviceInfo, error) {
	c := m.args(8)
	n := int(c.Uint16())
	c.Skip(22)

	infos := make([]deviceInfo, 0, n)
	for i := 0; i < n; i++ {
		var d deviceInfo
		d.id = c.Uint16()
		d.use = c.Uint16()
		d.attachment = c.Uint16()
		numClasses := int(c.Uint16())
		nameLen := int(c.Uint16())
		d.enabled = c.Uint8() != 0
		c.Skip(1)
		d.name = c.String(nameLen)
		c.Skip(pad4(nameLen) - nameLen)

		for j := 0; j < numClasses; j++ {
			start := c.Pos()
			typ := c.Uint16()
			length := int(c.Uint16()) * 4
			c.Skip(2) // source device
			switch typ {
			case classButton:
				d.numButtons = int(c.Uint16())
			case classValuator:
				v := valuatorInfo{
					number: c.Uint16(),
					label:  c.Uint32(),
					min:    c.FP3232(),
					max:    c.FP3232(),
				}
				c.Skip(8) // current value
				v.resolution = c.Uint32()
				v.mode = c.Uint8()
				d.valuators = append(d.valuators, v)
			}
			c.Seek(start + length)
		}
		if err := c.Err(); err != nil {
			return nil, err
		}
		infos = append(infos, d)
	}
	return infos, nil
}

// pointerDevice reports whether the device can deliver tablet input:
// an enabled slave or floating pointer.
func (d *deviceInfo) pointerDevice() bool {
	return d.enabled && (d.use == useSlavePointer || d.use == useFloatingSlave)
}

// classify decides what kind of tablet device a name describes. The
// xwayland name table wins, then the wacom driver's own tool type
// property, then the naming conventions of the evdev and libinput
// drivers. Devices matching nothing are not tablets.
func classify(name string, wacom quirks.DeviceClass) quirks.DeviceClass {
	if class, _, ok := quirks.XWayland().Match(name); ok {
		return class
	}
	if wacom != "" {
		return wacom
	}
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "eraser"):
		return quirks.ClassEraser
	case strings.HasSuffix(n, "pad"):
		return quirks.ClassPad
	case strings.Contains(n, "cursor"):
		return quirks.ClassCursor
	case strings.Contains(n, "touch"), strings.Contains(n, "finger"):
		return quirks.ClassTouch
	case strings.Contains(n, "stylus"), strings.Contains(n, "pen"):
		return quirks.ClassStylus
	}
	return ""
}

// toolTypeFor maps a device class onto the tool taxonomy, refining the
// stylus class by the marketing names drivers put in device names.
func toolTypeFor(class quirks.DeviceClass, name string) pen.ToolType {
	switch class {
	case quirks.ClassEraser:
		return pen.ToolTypeEraser
	case quirks.ClassCursor:
		return pen.ToolTypeMouse
	case quirks.ClassTouch:
		return pen.ToolTypeFinger
	}
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "airbrush"):
		return pen.ToolTypeAirbrush
	case strings.Contains(n, "pencil"):
		return pen.ToolTypePencil
	}
	return pen.ToolTypePen
}

// valuatorRole is the runtime decode decision for one valuator number.
type valuatorRole struct {
	role   role
	filter calib.Filter
}

// device is the runtime state for one X device across a generation.
type device struct {
	xid   uint16
	class quirks.DeviceClass
	name  string

	// id is the tool id for stylus-like devices and the pad id for
	// pads. tablet and ring are the derived entities, when present.
	id     pen.ID
	tablet pen.ID
	ring   pen.ID

	valuators map[uint16]valuatorRole

	// Tilt components arrive as separate valuators but report as a
	// pair; the last seen values persist here.
	tiltX, tiltY float32

	inProx       bool
	lastTime     uint32
	framePending bool
}

// newToolDevice builds the runtime state and the hardware description
// for a stylus-like device. Valuators whose range cannot be calibrated
// stay in the decode map as malformed so their words are consumed, but
// contribute no axis.
func newToolDevice(info *deviceInfo, class quirks.DeviceClass, labels map[uint32]role, gen uint32) (*device, *pen.Tool) {
	d := &device{
		xid:       info.id,
		class:     class,
		name:      info.name,
		id:        pen.XInput2ID(info.id, gen),
		tablet:    pen.XInput2Derived(info.id, entityTablet, gen),
		valuators: map[uint16]valuatorRole{},
	}
	tool := &pen.Tool{
		ID:   d.id,
		Type: toolTypeFor(class, info.name),
	}
	for _, v := range info.valuators {
		r := labels[v.label]
		if r == roleNone || v.mode != 1 {
			continue
		}
		vr := valuatorRole{role: r}
		axis, axisInfo, scaler, err := solveAxis(r, v)
		if err != nil {
			pen.Logger().Warn("xinput2: unreportable axis",
				"device", info.name, "valuator", v.number, "error", err)
			vr.filter = calib.Filter{State: calib.FilterMalformed}
			d.valuators[v.number] = vr
			continue
		}
		vr.filter = calib.Filter{State: calib.FilterScale, Scale: scaler}
		d.valuators[v.number] = vr
		tool.SetAxis(axis, axisInfo)
	}
	return d, tool
}

// solveAxis derives the calibration and the public description for one
// labeled valuator.
func solveAxis(r role, v valuatorInfo) (pen.Axis, pen.AxisInfo, calib.Scaler, error) {
	src := pen.Limits{Min: float32(v.min), Max: float32(v.max)}
	gran := calib.GranularityOf(int64(v.min), int64(v.max))

	var (
		axis   pen.Axis
		dst    pen.Limits
		unit   pen.Unit
		scaler calib.Scaler
		err    error
	)
	switch r {
	case rolePressure:
		axis, unit = pen.AxisPressure, pen.UnitNormalized
		dst = pen.Limits{Min: 0, Max: 1}
		scaler, err = calib.Solve(src, dst)
	case roleTiltX, roleTiltY:
		// The evdev and wacom drivers report tilt in degrees.
		axis, unit = pen.AxisTilt, pen.UnitRadians
		dst = pen.Limits{Min: calib.Degrees(v.min), Max: calib.Degrees(v.max)}
		scaler, err = calib.Linear(math.Pi / 180)
	case roleDistance:
		axis, unit = pen.AxisDistance, pen.UnitNormalized
		dst = pen.Limits{Min: 0, Max: 1}
		scaler, err = calib.Solve(src, dst)
	case roleSlider:
		axis, unit = pen.AxisSlider, pen.UnitNormalized
		dst = pen.Limits{Min: -1, Max: 1}
		scaler, err = calib.Solve(src, dst)
	case roleRoll:
		axis, unit = pen.AxisRoll, pen.UnitRadians
		dst = pen.Limits{Min: 0, Max: calib.Tau}
		scaler, err = calib.Solve(src, dst)
	default:
		err = calib.ErrDegenerate
	}
	if err != nil {
		return 0, pen.AxisInfo{}, calib.Scaler{}, err
	}
	return axis, pen.AxisInfo{
		Unit:        unit,
		Limits:      dst,
		HasLimits:   true,
		Granularity: gran,
	}, scaler, nil
}

// newPadDevice builds the runtime state and the pad description for a
// pad device. All buttons land in one group; a wheel valuator becomes
// the group's ring.
func newPadDevice(info *deviceInfo, labels map[uint32]role, gen uint32) (*device, *pen.Pad) {
	d := &device{
		xid:       info.id,
		class:     quirks.ClassPad,
		name:      info.name,
		id:        pen.XInput2ID(info.id, gen),
		valuators: map[uint16]valuatorRole{},
	}
	group := &pen.Group{
		ID:      pen.XInput2Derived(info.id, entityGroup, gen),
		Buttons: make([]uint32, info.numButtons),
	}
	for i := range group.Buttons {
		group.Buttons[i] = uint32(i)
	}
	for _, v := range info.valuators {
		if labels[v.label] != roleSlider || v.mode != 1 {
			continue
		}
		src := pen.Limits{Min: float32(v.min), Max: float32(v.max)}
		scaler, err := calib.Solve(src, pen.Limits{Min: 0, Max: calib.Tau})
		if err != nil {
			pen.Logger().Warn("xinput2: unreportable pad ring",
				"device", info.name, "valuator", v.number, "error", err)
			d.valuators[v.number] = valuatorRole{role: roleSlider,
				filter: calib.Filter{State: calib.FilterMalformed}}
			continue
		}
		d.ring = pen.XInput2Derived(info.id, entityRing, gen)
		d.valuators[v.number] = valuatorRole{role: roleSlider,
			filter: calib.Filter{State: calib.FilterScale, Scale: scaler}}
		group.Rings = append(group.Rings, &pen.Ring{
			ID:          d.ring,
			Granularity: calib.GranularityOf(int64(v.min), int64(v.max)),
		})
		break
	}
	pad := &pen.Pad{
		ID:      d.id,
		Buttons: uint32(info.numButtons),
		Groups:  []*pen.Group{group},
	}
	return d, pad
}
