package wayland

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
)

// dispatch routes one compositor event. Events for objects or devices
// this backend does not know are swallowed at debug level: a racing or
// buggy compositor must not take the session down.
func (b *Backend) dispatch(m *message) error {
	switch b.objects[m.object] {
	case ifDisplay:
		return b.onDisplay(m)
	case ifSeat:
		// Capability and name events carry nothing we use.
		return nil
	case ifTabletSeat:
		return b.onTabletSeat(m)
	case ifTablet:
		return b.onTablet(m)
	case ifTool:
		return b.onTool(m)
	case ifPad:
		return b.onPad(m)
	case ifGroup:
		return b.onGroup(m)
	case ifRing:
		return b.onDial(m, true)
	case ifStrip:
		return b.onDial(m, false)
	default:
		pen.Logger().Debug("event for unknown object",
			"backend", "wayland", "object", m.object, "opcode", m.opcode)
		return nil
	}
}

func (b *Backend) onDisplay(m *message) error {
	args := m.args()
	switch m.opcode {
	case evtDisplayError:
		object := args.Uint32()
		code := args.Uint32()
		text := args.String()
		return fmt.Errorf("wayland: protocol error on object %d: %s (code %d)", object, text, code)
	case evtDisplayDeleteID:
		delete(b.objects, args.Uint32())
	}
	return args.Err()
}

func (b *Backend) onTabletSeat(m *message) error {
	args := m.args()
	obj := args.Uint32()
	if err := args.Err(); err != nil {
		return err
	}
	id := pen.WaylandID(obj)
	switch m.opcode {
	case evtSeatTabletAdded:
		b.objects[obj] = ifTablet
		_, err := b.tablets.BeginOrGet(id, func() *pen.Tablet {
			return &pen.Tablet{ID: id}
		})
		b.swallow(err, id)
	case evtSeatToolAdded:
		b.objects[obj] = ifTool
		_, err := b.tools.BeginOrGet(id, func() *pen.Tool {
			return &pen.Tool{ID: id}
		})
		b.swallow(err, id)
	case evtSeatPadAdded:
		b.objects[obj] = ifPad
		_, err := b.pads.BeginOrGet(id, func() *padPartial {
			return &padPartial{pad: &pen.Pad{ID: id}}
		})
		b.swallow(err, id)
	}
	return nil
}

// swallow logs construction protocol violations without failing the
// pump. Defensive: compositors have re-announced live ids in the wild.
func (b *Backend) swallow(err error, id pen.ID) {
	if err != nil {
		pen.Logger().Debug("swallowed construction message",
			"backend", "wayland", "id", id, "err", err)
	}
}

func (b *Backend) onTablet(m *message) error {
	id := pen.WaylandID(m.object)
	args := m.args()
	switch m.opcode {
	case evtTabletName:
		name := args.String()
		if t, ok := b.tablets.Get(id); ok {
			t.Name = name
		}
	case evtTabletID:
		vid := args.Uint32()
		pid := args.Uint32()
		if t, ok := b.tablets.Get(id); ok {
			t.USB = pen.USBID{Vendor: uint16(vid), Product: uint16(pid)}
			t.HasUSB = true
		}
	case evtTabletPath:
		_ = args.String()
	case evtTabletDone:
		if err := b.tablets.Finalize(id); err != nil {
			pen.Logger().Warn("tablet discarded", "backend", "wayland", "err", err)
			return nil
		}
		b.listsStale = true
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawTabletAdded, ID: id})
	case evtTabletRemoved:
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawTabletRemoved, ID: id})
		b.removeNext = append(b.removeNext, id)
		delete(b.objects, m.object)
	}
	return args.Err()
}

func (b *Backend) onTool(m *message) error {
	id := pen.WaylandID(m.object)
	args := m.args()
	switch m.opcode {
	case evtToolType:
		kind := args.Uint32()
		if t, ok := b.tools.Get(id); ok {
			t.Type = toolType(kind)
		}
	case evtToolHardwareSerial:
		hi := args.Uint32()
		lo := args.Uint32()
		if t, ok := b.tools.Get(id); ok {
			t.HardwareID = uint64(hi)<<32 | uint64(lo)
			t.HasHardwareID = true
		}
	case evtToolHardwareWacom:
		hi := args.Uint32()
		lo := args.Uint32()
		if t, ok := b.tools.Get(id); ok {
			t.WacomID = uint64(hi)<<32 | uint64(lo)
			t.HasWacomID = true
		}
	case evtToolCapability:
		capability := args.Uint32()
		if t, ok := b.tools.Get(id); ok {
			setCapability(t, capability)
		}
	case evtToolDone:
		if err := b.tools.Finalize(id); err != nil {
			pen.Logger().Warn("tool discarded", "backend", "wayland", "err", err)
			return nil
		}
		b.listsStale = true
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawToolAdded, ID: id})
	case evtToolRemoved:
		// Removal is logical: the tool stays in the report so past
		// events keep resolving. Only interaction state dies.
		b.assembler.Drop(id)
		if _, ok := b.tools.FindFinished(id); ok {
			b.events = append(b.events, pen.RawEvent{Kind: pen.RawToolRemoved, ID: id})
		} else {
			b.tools.Destroy(id)
		}
		delete(b.objects, m.object)

	case evtToolProximityIn:
		args.Uint32() // serial
		tablet := args.Uint32()
		args.Uint32() // surface
		b.assembler.Get(id).In(pen.WaylandID(tablet))
	case evtToolProximityOut:
		b.assembler.Get(id).Out()
	case evtToolDown:
		args.Uint32() // serial
		b.assembler.Get(id).Down()
	case evtToolUp:
		b.assembler.Get(id).Up()
	case evtToolMotion:
		x := args.Fixed()
		y := args.Fixed()
		b.assembler.Get(id).SetPosition(x, y)
	case evtToolPressure:
		b.assembler.Get(id).SetPressure(norm16(args.Uint32()))
	case evtToolDistance:
		b.assembler.Get(id).SetDistance(norm16(args.Uint32()))
	case evtToolTilt:
		x := args.Fixed()
		y := args.Fixed()
		b.assembler.Get(id).SetTilt(calib.Degrees(float64(x)), calib.Degrees(float64(y)))
	case evtToolRotation:
		deg := args.Fixed()
		b.assembler.Get(id).SetRoll(wrapTurn(calib.Degrees(float64(deg))))
	case evtToolSlider:
		b.assembler.Get(id).SetSlider(normSlider(args.Int32()))
	case evtToolWheel:
		deg := args.Fixed()
		clicks := args.Int32()
		b.assembler.Get(id).SetWheel(calib.Degrees(float64(deg)), clicks)
	case evtToolButton:
		args.Uint32() // serial
		button := args.Uint32()
		state := args.Uint32()
		b.assembler.Get(id).Button(button, state == 1)
	case evtToolFrame:
		ms := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		ts := pen.FrameTimestamp(time.Duration(ms) * time.Millisecond)
		b.events = b.assembler.Flush(b.events, id, ts, true)
	}
	return args.Err()
}

func (b *Backend) onPad(m *message) error {
	id := pen.WaylandID(m.object)
	args := m.args()
	switch m.opcode {
	case evtPadGroup:
		obj := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		b.objects[obj] = ifGroup
		gid := pen.WaylandID(obj)
		if p, ok := b.pads.Get(id); ok {
			b.groupOwner[gid] = id
			p.building = append(p.building, &groupPartial{
				id:    gid,
				group: &pen.Group{ID: gid},
			})
		}
	case evtPadPath:
		_ = args.String()
	case evtPadButtons:
		n := args.Uint32()
		if p, ok := b.pads.Get(id); ok {
			p.pad.Buttons = n
		}
	case evtPadDone:
		if err := b.pads.Finalize(id); err != nil {
			pen.Logger().Warn("pad discarded", "backend", "wayland", "err", err)
			return nil
		}
		b.listsStale = true
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawPadAdded, ID: id})
	case evtPadButton:
		args.Uint32() // time
		button := args.Uint32()
		state := args.Uint32()
		b.events = append(b.events, pen.RawEvent{
			Kind: pen.RawPadButton, ID: id, Button: button, Pressed: state == 1,
		})
	case evtPadEnter:
		args.Uint32() // serial
		tablet := args.Uint32()
		args.Uint32() // surface
		b.events = append(b.events, pen.RawEvent{
			Kind: pen.RawPadEnter, ID: id, Tablet: pen.WaylandID(tablet),
		})
	case evtPadLeave:
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawPadExit, ID: id})
	case evtPadRemoved:
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawPadRemoved, ID: id})
		b.removeNext = append(b.removeNext, id)
		delete(b.objects, m.object)
	}
	return args.Err()
}

// padOf finds the pad owning a group, looking through construction and
// finished tables both: group description can trickle in after pad
// done.
func (b *Backend) padOf(gid pen.ID) (*padPartial, *groupPartial) {
	pid, ok := b.groupOwner[gid]
	if !ok {
		return nil, nil
	}
	p, ok := b.pads.Get(pid)
	if !ok {
		if p, ok = b.pads.FindFinished(pid); !ok {
			return nil, nil
		}
	}
	for _, g := range p.building {
		if g.id == gid {
			return p, g
		}
	}
	return p, nil
}

func (b *Backend) onGroup(m *message) error {
	gid := pen.WaylandID(m.object)
	args := m.args()
	switch m.opcode {
	case evtGroupButtons:
		raw := args.Array()
		if err := args.Err(); err != nil {
			return err
		}
		if _, g := b.padOf(gid); g != nil {
			g.group.Buttons = decodeButtons(raw)
		}
	case evtGroupRing:
		obj := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		b.objects[obj] = ifRing
		rid := pen.WaylandID(obj)
		if _, g := b.padOf(gid); g != nil {
			b.dialOwner[rid] = gid
			g.group.Rings = append(g.group.Rings, &pen.Ring{ID: rid})
			b.dials[rid] = &dialState{ring: true}
		}
	case evtGroupStrip:
		obj := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		b.objects[obj] = ifStrip
		sid := pen.WaylandID(obj)
		if _, g := b.padOf(gid); g != nil {
			b.dialOwner[sid] = gid
			g.group.Strips = append(g.group.Strips, &pen.Strip{ID: sid})
			b.dials[sid] = &dialState{}
		}
	case evtGroupModes:
		n := args.Uint32()
		if _, g := b.padOf(gid); g != nil {
			g.group.Modes = n
		}
	case evtGroupDone:
		p, g := b.padOf(gid)
		if p == nil || g == nil {
			return nil
		}
		// Replace an existing group with the same id, else append.
		// Compositors may re-describe a group in place.
		done := false
		for i, existing := range p.pad.Groups {
			if existing.ID == gid {
				p.pad.Groups[i] = g.group
				done = true
				break
			}
		}
		if !done {
			p.pad.Groups = append(p.pad.Groups, g.group)
		}
		for i, bg := range p.building {
			if bg.id == gid {
				p.building = append(p.building[:i], p.building[i+1:]...)
				break
			}
		}
	case evtGroupModeSwitch:
		args.Uint32() // time
		args.Uint32() // serial
		mode := args.Uint32()
		b.events = append(b.events, pen.RawEvent{
			Kind: pen.RawGroupMode, ID: gid, Mode: mode,
		})
	}
	return args.Err()
}

func (b *Backend) onDial(m *message, ring bool) error {
	id := pen.WaylandID(m.object)
	d, ok := b.dials[id]
	if !ok {
		pen.Logger().Debug("event for unknown dial", "backend", "wayland", "id", id)
		return nil
	}
	args := m.args()
	switch m.opcode {
	case evtDialSource:
		src := args.Uint32()
		d.hasSource = true
		d.source = pen.SourceUnknown
		if src == wlSourceFinger {
			d.source = pen.SourceFinger
		}
	case evtDialValue:
		if ring {
			deg := args.Fixed()
			v := wrapTurn(calib.Degrees(float64(deg)))
			if !isNaN32(v) {
				d.value = v
				d.hasValue = true
			}
		} else {
			d.value = norm16(uint32(args.Int32()))
			d.hasValue = true
		}
	case evtDialStop:
		d.stop = true
	case evtDialFrame:
		ms := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		b.flushDial(id, d, pen.FrameTimestamp(time.Duration(ms)*time.Millisecond))
	}
	return args.Err()
}

// flushDial emits a ring or strip frame: source, pose, up, marker.
func (b *Backend) flushDial(id pen.ID, d *dialState, ts pen.FrameTimestamp) {
	kinds := stripKinds
	if d.ring {
		kinds = ringKinds
	}
	if d.hasSource {
		b.events = append(b.events, pen.RawEvent{Kind: kinds.source, ID: id, Source: d.source})
	}
	if d.hasValue {
		b.events = append(b.events, pen.RawEvent{Kind: kinds.pose, ID: id, Position: d.value})
	}
	if d.stop {
		b.events = append(b.events, pen.RawEvent{Kind: kinds.up, ID: id})
	}
	b.events = append(b.events, pen.RawEvent{Kind: kinds.frame, ID: id, Time: ts, HasTime: true})
	d.hasSource = false
	d.hasValue = false
	d.stop = false
}

type dialKinds struct {
	source, pose, up, frame pen.RawKind
}

var (
	ringKinds  = dialKinds{pen.RawRingSource, pen.RawRingPose, pen.RawRingUp, pen.RawRingFrame}
	stripKinds = dialKinds{pen.RawStripSource, pen.RawStripPose, pen.RawStripUp, pen.RawStripFrame}
)

// decodeButtons unpacks the group button membership array: packed
// 32-bit indices, returned sorted and deduplicated so lookups can
// binary search.
func decodeButtons(raw []byte) []uint32 {
	out := make([]uint32, 0, len(raw)/4)
	for len(raw) >= 4 {
		out = append(out, binary.LittleEndian.Uint32(raw))
		raw = raw[4:]
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func toolType(wire uint32) pen.ToolType {
	switch wire {
	case wlToolPen:
		return pen.ToolTypePen
	case wlToolEraser:
		return pen.ToolTypeEraser
	case wlToolBrush:
		return pen.ToolTypeBrush
	case wlToolPencil:
		return pen.ToolTypePencil
	case wlToolAirbrush:
		return pen.ToolTypeAirbrush
	case wlToolFinger:
		return pen.ToolTypeFinger
	case wlToolMouse:
		return pen.ToolTypeMouse
	case wlToolLens:
		return pen.ToolTypeLens
	default:
		return pen.ToolTypeUnknown
	}
}

// setCapability records an advertised axis. The protocol promises the
// canonical ranges directly, so limits are known even though no
// granularity is.
func setCapability(t *pen.Tool, capability uint32) {
	switch capability {
	case wlCapPressure:
		t.SetAxis(pen.AxisPressure, pen.AxisInfo{
			Unit: pen.UnitNormalized, Limits: pen.Limits{Min: 0, Max: 1}, HasLimits: true,
		})
	case wlCapDistance:
		t.SetAxis(pen.AxisDistance, pen.AxisInfo{
			Unit: pen.UnitNormalized, Limits: pen.Limits{Min: 0, Max: 1}, HasLimits: true,
		})
	case wlCapTilt:
		t.SetAxis(pen.AxisTilt, pen.AxisInfo{Unit: pen.UnitRadians})
	case wlCapRotation:
		t.SetAxis(pen.AxisRoll, pen.AxisInfo{
			Unit: pen.UnitRadians, Limits: pen.Limits{Min: 0, Max: calib.Tau}, HasLimits: true,
		})
	case wlCapSlider:
		t.SetAxis(pen.AxisSlider, pen.AxisInfo{
			Unit: pen.UnitNormalized, Limits: pen.Limits{Min: -1, Max: 1}, HasLimits: true,
		})
	case wlCapWheel:
		t.SetAxis(pen.AxisWheel, pen.AxisInfo{Unit: pen.UnitRadians})
	default:
		pen.Logger().Debug("unknown tool capability", "backend", "wayland", "capability", capability)
	}
}

// norm16 maps the 16-bit wire range onto 0..1, saturating out-of-range
// values.
func norm16(v uint32) float32 {
	if v > axis16 {
		v = axis16
	}
	return float32(v) / axis16
}

// normSlider maps the signed slider wire range onto -1..1, saturating
// out-of-range values. Zero is the slider's resting position.
func normSlider(v int32) float32 {
	if v > axis16 {
		v = axis16
	}
	if v < -axis16 {
		v = -axis16
	}
	return float32(v) / axis16
}

// wrapTurn normalizes an angle into [0, 2pi).
func wrapTurn(r float32) float32 {
	v := math.Mod(float64(r), 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}
	f := float32(v)
	if f > calib.Tau {
		f = calib.Tau
	}
	return f
}

func isNaN32(v float32) bool { return v != v }
