package xinput2

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
	"github.com/gogpu/pen/internal/quirks"
)

// Label atoms used by fabricated devices. Values are arbitrary; only
// identity matters.
const (
	atomPressure uint32 = 100 + iota
	atomTiltX
	atomTiltY
	atomDistance
	atomWheel
)

func testLabels() map[uint32]role {
	return map[uint32]role{
		atomPressure: rolePressure,
		atomTiltX:    roleTiltX,
		atomTiltY:    roleTiltY,
		atomDistance: roleDistance,
		atomWheel:    roleSlider,
	}
}

// valuatorClass assembles one valuator class in wire form.
func valuatorClass(number uint16, label uint32, min, max int32, resolution uint32, mode uint8) []byte {
	r := &request{}
	r.Uint16(classValuator).Uint16(11).Uint16(0)
	r.Uint16(number).Uint32(label)
	r.Uint32(uint32(min)).Uint32(0)
	r.Uint32(uint32(max)).Uint32(0)
	r.Uint32(0).Uint32(0) // current value
	r.Uint32(resolution)
	r.Uint8(mode).Pad(3)
	return r.buf
}

// buttonClass assembles one button class in wire form.
func buttonClass(buttons int) []byte {
	words := (buttons + 31) / 32
	r := &request{}
	r.Uint16(classButton).Uint16(uint16((8 + words*4 + buttons*4) / 4)).Uint16(0)
	r.Uint16(uint16(buttons))
	r.Pad(words * 4)
	for i := 0; i < buttons; i++ {
		r.Uint32(0) // label
	}
	return r.buf
}

// deviceInfoBytes assembles one XIDeviceInfo in wire form.
func deviceInfoBytes(id, use uint16, name string, classes ...[]byte) []byte {
	r := &request{}
	r.Uint16(id).Uint16(use).Uint16(2)
	r.Uint16(uint16(len(classes)))
	r.Uint16(uint16(len(name)))
	r.Uint8(1).Pad(1)
	r.String(name)
	for _, c := range classes {
		r.buf = append(r.buf, c...)
	}
	return r.buf
}

// deviceReply wraps device infos into an XIQueryDevice reply message.
func deviceReply(seq uint16, infos ...[]byte) message {
	var body []byte
	for _, i := range infos {
		body = append(body, i...)
	}
	buf := make([]byte, messageSize+len(body))
	buf[0] = msgReply
	order.PutUint16(buf[2:], seq)
	order.PutUint32(buf[4:], uint32(len(body)/4))
	order.PutUint16(buf[8:], uint16(len(infos)))
	copy(buf[messageSize:], body)
	return message{kind: msgReply, seq: seq, data: buf}
}

func TestParseDeviceInfos(t *testing.T) {
	m := deviceReply(1,
		deviceInfoBytes(7, useSlavePointer, "Test Tablet stylus",
			valuatorClass(0, atomPressure, 0, 65535, 1, 1),
			valuatorClass(1, atomTiltX, -64, 63, 1, 1)),
		deviceInfoBytes(8, useSlavePointer, "Test Tablet pad",
			buttonClass(4)),
	)
	infos, err := parseDeviceInfos(&m)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	stylus := infos[0]
	require.Equal(t, uint16(7), stylus.id)
	require.Equal(t, "Test Tablet stylus", stylus.name)
	require.True(t, stylus.pointerDevice())
	require.Len(t, stylus.valuators, 2)
	require.Equal(t, float64(65535), stylus.valuators[0].max)
	require.Equal(t, float64(-64), stylus.valuators[1].min)

	pad := infos[1]
	require.Equal(t, "Test Tablet pad", pad.name)
	require.Equal(t, 4, pad.numButtons)
	require.Empty(t, pad.valuators)
}

func TestParseDeviceInfosSkipsUnknownClasses(t *testing.T) {
	exotic := (&request{}).Uint16(9).Uint16(3).Uint16(0).Pad(6).buf
	m := deviceReply(1,
		deviceInfoBytes(7, useSlavePointer, "dev",
			exotic,
			valuatorClass(0, atomPressure, 0, 1023, 1, 1)),
	)
	infos, err := parseDeviceInfos(&m)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Len(t, infos[0].valuators, 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		wacom quirks.DeviceClass
		want  quirks.DeviceClass
	}{
		{"xwayland-tablet stylus:33", "", quirks.ClassStylus},
		{"xwayland-tablet-pad:33", "", quirks.ClassPad},
		{"Wacom Intuos Pro M Pen stylus", "", quirks.ClassStylus},
		{"Wacom Intuos Pro M Pen eraser", "", quirks.ClassEraser},
		{"Wacom Intuos Pro M Pad pad", "", quirks.ClassPad},
		{"Wacom Intuos Pro M Finger touch", "", quirks.ClassTouch},
		{"Some Device", quirks.ClassEraser, quirks.ClassEraser},
		{"Logitech USB Mouse", "", ""},
	}
	for _, tt := range tests {
		got := classify(tt.name, tt.wacom)
		require.Equal(t, tt.want, got, "classify(%q)", tt.name)
	}
}

func TestToolTypeFor(t *testing.T) {
	require.Equal(t, pen.ToolTypeEraser, toolTypeFor(quirks.ClassEraser, "x eraser"))
	require.Equal(t, pen.ToolTypeMouse, toolTypeFor(quirks.ClassCursor, "x cursor"))
	require.Equal(t, pen.ToolTypeFinger, toolTypeFor(quirks.ClassTouch, "x touch"))
	require.Equal(t, pen.ToolTypeAirbrush, toolTypeFor(quirks.ClassStylus, "Wacom Airbrush stylus"))
	require.Equal(t, pen.ToolTypePen, toolTypeFor(quirks.ClassStylus, "x stylus"))
}

func TestNewToolDeviceAxes(t *testing.T) {
	info := deviceInfo{
		id:   7,
		name: "Test Tablet stylus",
		valuators: []valuatorInfo{
			{number: 2, label: atomPressure, min: 0, max: 65535},
			{number: 3, label: atomTiltX, min: -64, max: 63},
			{number: 4, label: atomTiltY, min: -64, max: 63},
			{number: 5, label: atomWheel, min: 0, max: 2047},
		},
	}
	for i := range info.valuators {
		info.valuators[i].mode = 1
	}
	d, tool := newToolDevice(&info, quirks.ClassStylus, testLabels(), 3)

	require.Equal(t, pen.XInput2ID(7, 3), tool.ID)
	require.Equal(t, pen.XInput2Derived(7, entityTablet, 3), d.tablet)

	pressure, ok := tool.Axis(pen.AxisPressure)
	require.True(t, ok)
	require.Equal(t, pen.Limits{Min: 0, Max: 1}, pressure.Limits)
	require.Equal(t, pen.Granularity(65536), pressure.Granularity)

	tilt, ok := tool.Axis(pen.AxisTilt)
	require.True(t, ok)
	require.Equal(t, pen.UnitRadians, tilt.Unit)
	require.InDelta(t, -1.117, tilt.Limits.Min, 1e-3)

	slider, ok := tool.Axis(pen.AxisSlider)
	require.True(t, ok)
	require.Equal(t, pen.Limits{Min: -1, Max: 1}, slider.Limits, "sliders rest at zero")

	v, ok := d.valuators[2].filter.Read(32767)
	require.True(t, ok)
	require.InDelta(t, 0.49999, v, 1e-4)

	v, ok = d.valuators[5].filter.Read(0)
	require.True(t, ok)
	require.InDelta(t, -1, v, 1e-6)
}

func TestNewToolDeviceDegenerateAxis(t *testing.T) {
	info := deviceInfo{
		id:   7,
		name: "stylus",
		valuators: []valuatorInfo{
			{number: 2, label: atomDistance, min: 100, max: 100, mode: 1},
		},
	}
	_, tool := newToolDevice(&info, quirks.ClassStylus, testLabels(), 1)
	_, ok := tool.Axis(pen.AxisDistance)
	require.False(t, ok, "zero-width ranges are unreportable")
}

func TestNewToolDeviceIgnoresRelativeValuators(t *testing.T) {
	info := deviceInfo{
		id:   7,
		name: "stylus",
		valuators: []valuatorInfo{
			{number: 2, label: atomPressure, min: 0, max: 65535, mode: 0},
		},
	}
	d, tool := newToolDevice(&info, quirks.ClassStylus, testLabels(), 1)
	_, ok := tool.Axis(pen.AxisPressure)
	require.False(t, ok)
	require.Empty(t, d.valuators)
}

func TestNewPadDevice(t *testing.T) {
	info := deviceInfo{
		id:         8,
		name:       "Test Tablet pad",
		numButtons: 6,
		valuators: []valuatorInfo{
			{number: 0, label: atomWheel, min: 0, max: 71, mode: 1},
		},
	}
	d, pad := newPadDevice(&info, testLabels(), 2)

	require.Equal(t, pen.XInput2ID(8, 2), pad.ID)
	require.Equal(t, uint32(6), pad.Buttons)
	require.Len(t, pad.Groups, 1)
	g := pad.Groups[0]
	require.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, g.Buttons)
	require.Len(t, g.Rings, 1)
	require.Equal(t, pen.Granularity(72), g.Rings[0].Granularity)
	require.Equal(t, d.ring, g.Rings[0].ID)

	// Full travel lands just below a full turn.
	v, ok := d.valuators[0].filter.Read(71)
	require.True(t, ok)
	require.InDelta(t, float64(calib.Tau), v, 1e-4)
}
