package xinput2

import (
	"math"
	"time"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/quirks"
)

// handle dispatches one queued server message. Only generic events
// from the input extension matter; everything else is drained.
func (b *Backend) handle(m *message) error {
	switch m.kind {
	case msgGenericEvent:
		if m.detail != b.xiOpcode {
			return nil
		}
		evtype := m.args(8).Uint16()
		switch evtype {
		case xiHierarchyChanged, xiDeviceChanged:
			return b.rescan()
		case xiMotion, xiButtonPress, xiButtonRelease:
			b.deviceEvent(evtype, m)
		case xiPropertyEvent:
			// Property churn is frequent and carries no state we
			// track after enumeration.
		}
	case msgError:
		pen.Logger().Debug("xinput2: async protocol error",
			"code", m.detail, "sequence", m.seq)
	}
	return nil
}

// deviceEvent decodes an XIDeviceEvent and feeds it to the device's
// accumulator, synthesizing frame boundaries whenever the server
// timestamp advances.
func (b *Backend) deviceEvent(evtype uint16, m *message) {
	c := m.args(10)
	dev := c.Uint16()
	stamp := c.Uint32()
	detail := c.Uint32()
	c.Skip(12) // root, event and child windows
	c.Skip(8)  // root coordinates
	x := c.FP1616()
	y := c.FP1616()
	buttonsLen := int(c.Uint16())
	valuatorsLen := int(c.Uint16())
	c.Skip(28) // source, flags, modifiers, group
	c.Skip(buttonsLen * 4)

	mask := make([]uint32, valuatorsLen)
	for i := range mask {
		mask[i] = c.Uint32()
	}
	var values []reading
	for word, bits := range mask {
		for bit := 0; bit < 32; bit++ {
			if bits&(1<<bit) == 0 {
				continue
			}
			values = append(values, reading{
				number: uint16(word*32 + bit),
				value:  c.FP3232(),
			})
		}
	}
	if err := c.Err(); err != nil {
		pen.Logger().Debug("xinput2: discarding malformed device event", "error", err)
		return
	}

	d, ok := b.devices[dev]
	if !ok {
		pen.Logger().Debug("xinput2: dropping event for unknown device", "device", dev)
		return
	}

	if d.class == quirks.ClassPad {
		b.padEvent(d, evtype, detail, stamp, values)
		return
	}

	if d.framePending && stamp != d.lastTime {
		b.flushDevice(d)
	}
	acc := b.assembler.Get(d.id)
	if !d.inProx {
		acc.In(d.tablet)
		d.inProx = true
	}
	acc.SetPosition(x, y)
	switch evtype {
	case xiButtonPress:
		if detail == 1 {
			acc.Down()
		} else {
			acc.Button(detail, true)
		}
	case xiButtonRelease:
		if detail == 1 {
			acc.Up()
		} else {
			acc.Button(detail, false)
		}
	}
	for _, rd := range values {
		vr, ok := d.valuators[rd.number]
		if !ok {
			continue
		}
		f, ok := vr.filter.Read(int64(math.Round(rd.value)))
		if !ok {
			continue
		}
		switch vr.role {
		case rolePressure:
			acc.SetPressure(f)
		case roleTiltX:
			d.tiltX = f
			acc.SetTilt(d.tiltX, d.tiltY)
		case roleTiltY:
			d.tiltY = f
			acc.SetTilt(d.tiltX, d.tiltY)
		case roleDistance:
			acc.SetDistance(f)
		case roleSlider:
			acc.SetSlider(f)
		case roleRoll:
			acc.SetRoll(f)
		}
	}
	d.lastTime = stamp
	d.framePending = true
}

// reading is one decoded valuator sample from a device event.
type reading struct {
	number uint16
	value  float64
}

// padEvent emits pad button and ring activity directly; pads carry no
// pose and need no assembly.
func (b *Backend) padEvent(d *device, evtype uint16, detail, stamp uint32, values []reading) {
	ts := pen.FrameTimestamp(time.Duration(stamp) * time.Millisecond)
	switch evtype {
	case xiButtonPress, xiButtonRelease:
		if detail == 0 {
			return
		}
		b.events = append(b.events, pen.RawEvent{
			Kind:    pen.RawPadButton,
			ID:      d.id,
			Button:  detail - 1,
			Pressed: evtype == xiButtonPress,
			Time:    ts,
			HasTime: true,
		})
	case xiMotion:
		for _, rd := range values {
			vr, ok := d.valuators[rd.number]
			if !ok {
				continue
			}
			f, ok := vr.filter.Read(int64(math.Round(rd.value)))
			if !ok {
				continue
			}
			b.events = append(b.events,
				pen.RawEvent{Kind: pen.RawRingPose, ID: d.ring, Position: f},
				pen.RawEvent{Kind: pen.RawRingFrame, ID: d.ring, Time: ts, HasTime: true})
		}
	}
}

// flushDevice closes the open frame for one tool device.
func (b *Backend) flushDevice(d *device) {
	ts := pen.FrameTimestamp(time.Duration(d.lastTime) * time.Millisecond)
	b.events = b.assembler.Flush(b.events, d.id, ts, true)
	d.framePending = false
}

// flushFrames closes every frame still open at the end of a pump, in
// device order.
func (b *Backend) flushFrames() {
	for _, d := range b.sortedDevices() {
		if d.framePending {
			b.flushDevice(d)
		}
	}
}
