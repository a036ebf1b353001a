// Package xinput2 ingests tablet input from an X server through the
// XInput extension, version 2.2 or later.
//
// The backend speaks the X11 wire protocol directly on the display
// socket: it negotiates the extension, enumerates devices with
// XIQueryDevice and classifies them by their valuator labels, driver
// properties and names. The server recycles small integer device ids,
// so every hierarchy change triggers a full re-enumeration under a new
// id generation; identifiers captured before the rescan never resolve
// afterwards. Importing the package registers it with pen under the
// name pen.BackendXInput2.
package xinput2

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/frame"
	"github.com/gogpu/pen/internal/quirks"
)

// xconn is the display socket plus readiness polling, so Pump can
// drain pending messages without blocking.
type xconn interface {
	io.ReadWriteCloser
	Readable() (bool, error)
}

// Backend implements pen.Backend over an X display connection.
type Backend struct {
	conn   xconn
	root   uint32
	window uint32
	// xiOpcode routes generic events to the input extension.
	xiOpcode byte
	// seq counts requests; replies and errors carry its low 16 bits.
	seq uint16
	// pending queues messages read while waiting for a reply, and
	// messages pulled off the socket during Pump.
	pending []message

	// atoms caches interned name to atom mappings.
	atoms map[string]uint32
	// labels maps valuator label atoms to their decode role.
	labels map[uint32]role

	// gen is the device id generation, bumped on every rescan.
	gen uint32
	// devices holds the current generation keyed by X device id.
	devices map[uint16]*device

	tools   []*pen.Tool
	tablets []*pen.Tablet
	pads    []*pen.Pad
	// removeNext holds tablet/pad ids whose Removed event was emitted
	// last pump; the hardware records go away at the start of this one.
	removeNext []pen.ID

	assembler frame.Assembler
	events    []pen.RawEvent
	// delivered flags that a pump has exposed the current event queue,
	// so the next pump may discard it.
	delivered bool
}

func init() {
	pen.RegisterBackend(pen.BackendXInput2, New)
}

// New connects to the display named by cfg.Display (or $DISPLAY) and
// negotiates XInput 2.2. Returns pen.ErrUnsupported when no display is
// reachable or the server's extension is too old.
func New(cfg *pen.Config) (pen.Backend, error) {
	conn, authName, authData, err := dial(cfg.Display)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pen.ErrUnsupported, err)
	}
	b := newBackend(conn)
	b.window = uint32(cfg.WindowHandle)
	if err := b.setup(authName, authData); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// newBackend wraps an established connection. Split from New so tests
// can drive the state machine over a pipe.
func newBackend(conn xconn) *Backend {
	return &Backend{
		conn:    conn,
		atoms:   map[string]uint32{},
		labels:  map[uint32]role{},
		devices: map[uint16]*device{},
	}
}

// setup performs the handshake, extension negotiation, event selection
// and the initial device scan.
func (b *Backend) setup(authName string, authData []byte) error {
	if _, err := b.conn.Write(setupRequest(authName, authData)); err != nil {
		return err
	}
	info, err := readSetup(b.conn)
	if err != nil {
		return fmt.Errorf("%w: %v", pen.ErrUnsupported, err)
	}
	b.root = info.root
	if b.window == 0 {
		b.window = b.root
	}

	m, err := b.roundtrip(newRequest(opQueryExtension, 0).
		Uint16(uint16(len(extName))).Uint16(0).String(extName))
	if err != nil {
		return err
	}
	args := m.args(8)
	present := args.Uint8() != 0
	b.xiOpcode = args.Uint8()
	if err := args.Err(); err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("%w: server lacks %s", pen.ErrUnsupported, extName)
	}

	m, err = b.roundtrip(newExtRequest(b.xiOpcode, xiQueryVersion).
		Uint16(2).Uint16(2))
	if err != nil {
		return err
	}
	args = m.args(8)
	major := args.Uint16()
	minor := args.Uint16()
	if err := args.Err(); err != nil {
		return err
	}
	if major < 2 {
		return fmt.Errorf("%w: server speaks XInput %d.%d, need 2.2",
			pen.ErrUnsupported, major, minor)
	}

	if err := b.internAtoms(); err != nil {
		return err
	}
	if err := b.selectEvents(); err != nil {
		return err
	}
	return b.rescan()
}

// internAtoms resolves every label and property name the backend
// compares against. Interning is existence-only; a label no driver
// uses simply never matches.
func (b *Backend) internAtoms() error {
	names := []string{
		labelPressure, labelTiltX, labelTiltY,
		labelDistance, labelWheel, labelRotationZ,
		propWacomToolType, propProductID,
		wacomTypeStylus, wacomTypeEraser, wacomTypeCursor,
		wacomTypePad, wacomTypeTouch,
	}
	for _, name := range names {
		m, err := b.roundtrip(newRequest(opInternAtom, 1).
			Uint16(uint16(len(name))).Uint16(0).String(name))
		if err != nil {
			return err
		}
		args := m.args(8)
		atom := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		if atom != 0 {
			b.atoms[name] = atom
		}
	}
	for name, r := range map[string]role{
		labelPressure:  rolePressure,
		labelTiltX:     roleTiltX,
		labelTiltY:     roleTiltY,
		labelDistance:  roleDistance,
		labelWheel:     roleSlider,
		labelRotationZ: roleRoll,
	} {
		if atom, ok := b.atoms[name]; ok {
			b.labels[atom] = r
		}
	}
	return nil
}

// selectEvents subscribes to hierarchy changes on the root window and
// device events on the configured window.
func (b *Backend) selectEvents() error {
	structural := uint32(1<<xiHierarchyChanged | 1<<xiDeviceChanged | 1<<xiPropertyEvent)
	input := uint32(1<<xiMotion | 1<<xiButtonPress | 1<<xiButtonRelease)

	if b.window == b.root {
		return b.send(selectRequest(b.xiOpcode, b.root, structural|input))
	}
	if err := b.send(selectRequest(b.xiOpcode, b.root, structural)); err != nil {
		return err
	}
	return b.send(selectRequest(b.xiOpcode, b.window, input))
}

func selectRequest(opcode byte, window, mask uint32) *request {
	return newExtRequest(opcode, xiSelectEvents).
		Uint32(window).
		Uint16(1).Uint16(0).
		Uint16(xiAllDevices).Uint16(1).
		Uint32(mask)
}

// Name implements pen.Backend.
func (b *Backend) Name() string { return pen.BackendXInput2 }

// Pump implements pen.Backend: every protocol message already pending
// on the socket is dispatched, without blocking for more. The first
// pump keeps the events of the initial device scan, so consumers see
// the initial hardware arrive as events.
func (b *Backend) Pump() error {
	if b.delivered {
		b.beginPump()
	}
	b.delivered = true
	for {
		if len(b.pending) > 0 {
			m := b.pending[0]
			b.pending = b.pending[1:]
			if err := b.handle(&m); err != nil {
				return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
			}
			continue
		}
		ready, err := b.conn.Readable()
		if err != nil {
			return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
		}
		if !ready {
			break
		}
		m, err := readMessage(b.conn)
		if err != nil {
			return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
		}
		b.pending = append(b.pending, m)
	}
	b.flushFrames()
	return nil
}

// beginPump discards last pump's events and runs the removals deferred
// there, now that consumers had a full pump to observe the hardware.
func (b *Backend) beginPump() {
	b.events = b.events[:0]
	for _, id := range b.removeNext {
		b.tablets = deleteByID(b.tablets, id, func(t *pen.Tablet) pen.ID { return t.ID })
		b.pads = deleteByID(b.pads, id, func(p *pen.Pad) pen.ID { return p.ID })
	}
	b.removeNext = b.removeNext[:0]
}

func deleteByID[T any](list []T, id pen.ID, key func(T) pen.ID) []T {
	for i, v := range list {
		if key(v) == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Tools implements pen.Backend. Tools from retired generations stay
// listed; removal is a logical state so that late events still resolve.
func (b *Backend) Tools() []*pen.Tool { return b.tools }

// Tablets implements pen.Backend.
func (b *Backend) Tablets() []*pen.Tablet { return b.tablets }

// Pads implements pen.Backend.
func (b *Backend) Pads() []*pen.Pad { return b.pads }

// RawEvents implements pen.Backend.
func (b *Backend) RawEvents() []pen.RawEvent { return b.events }

// TimestampGranularity implements pen.Backend. Server timestamps are
// milliseconds.
func (b *Backend) TimestampGranularity() (time.Duration, bool) {
	return time.Millisecond, true
}

// Close implements pen.Backend.
func (b *Backend) Close() error { return b.conn.Close() }

func (b *Backend) send(r *request) error {
	buf, err := r.bytes()
	if err != nil {
		return err
	}
	if _, err := b.conn.Write(buf); err != nil {
		return err
	}
	b.seq++
	return nil
}

// roundtrip sends a request and blocks for its reply. Events arriving
// first are queued for the next Pump; errors for earlier requests are
// logged and dropped.
func (b *Backend) roundtrip(r *request) (message, error) {
	if err := b.send(r); err != nil {
		return message{}, err
	}
	want := b.seq
	for {
		m, err := readMessage(b.conn)
		if err != nil {
			return message{}, err
		}
		switch m.kind {
		case msgReply:
			if m.seq == want {
				return m, nil
			}
		case msgError:
			if m.seq == want {
				return message{}, fmt.Errorf("xinput2: request failed with error code %d", m.detail)
			}
			pen.Logger().Debug("xinput2: async protocol error",
				"code", m.detail, "sequence", m.seq)
		default:
			b.pending = append(b.pending, m)
		}
	}
}

// rescan retires the current device generation and enumerates the next
// one. Interactions in flight are closed out first so consumers see
// every tool leave before its hardware disappears.
func (b *Backend) rescan() error {
	for _, d := range b.sortedDevices() {
		if d.class == quirks.ClassPad {
			b.events = append(b.events, pen.RawEvent{Kind: pen.RawPadRemoved, ID: d.id})
			b.removeNext = append(b.removeNext, d.id)
			continue
		}
		if d.inProx {
			if acc, ok := b.assembler.Peek(d.id); ok {
				acc.Out()
			}
			b.flushDevice(d)
		}
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawToolRemoved, ID: d.id})
		b.events = append(b.events, pen.RawEvent{Kind: pen.RawTabletRemoved, ID: d.tablet})
		b.removeNext = append(b.removeNext, d.tablet)
	}
	b.devices = map[uint16]*device{}
	b.gen++

	m, err := b.roundtrip(newExtRequest(b.xiOpcode, xiQueryDevice).
		Uint16(xiAllDevices).Uint16(0))
	if err != nil {
		return err
	}
	infos, err := parseDeviceInfos(&m)
	if err != nil {
		return err
	}
	for i := range infos {
		info := &infos[i]
		if !info.pointerDevice() {
			continue
		}
		class := classify(info.name, b.wacomClass(info.id))
		switch class {
		case "":
			continue
		case quirks.ClassPad:
			d, pad := newPadDevice(info, b.labels, b.gen)
			b.devices[d.xid] = d
			b.pads = append(b.pads, pad)
			b.events = append(b.events, pen.RawEvent{Kind: pen.RawPadAdded, ID: d.id})
		default:
			d, tool := newToolDevice(info, class, b.labels, b.gen)
			b.devices[d.xid] = d
			b.tools = append(b.tools, tool)
			b.tablets = append(b.tablets, b.newTablet(info, d.tablet))
			b.events = append(b.events,
				pen.RawEvent{Kind: pen.RawTabletAdded, ID: d.tablet},
				pen.RawEvent{Kind: pen.RawToolAdded, ID: d.id, Tablet: d.tablet})
		}
	}
	pen.Logger().Info("xinput2: device scan complete",
		"generation", b.gen, "devices", len(b.devices))
	return nil
}

// newTablet synthesizes the tablet record backing a tool device,
// picking up the USB identity the drivers expose as a property.
func (b *Backend) newTablet(info *deviceInfo, id pen.ID) *pen.Tablet {
	t := &pen.Tablet{ID: id, Name: info.name}
	if atom, ok := b.atoms[propProductID]; ok {
		_, format, data, err := b.getDeviceProperty(info.id, atom)
		if err == nil && format == 32 && len(data) >= 8 {
			t.USB = pen.USBID{
				Vendor:  uint16(order.Uint32(data)),
				Product: uint16(order.Uint32(data[4:])),
			}
			t.HasUSB = true
		}
	}
	return t
}

// wacomClass reads the wacom driver's tool type property, when the
// driver and the property exist.
func (b *Backend) wacomClass(dev uint16) quirks.DeviceClass {
	atom, ok := b.atoms[propWacomToolType]
	if !ok {
		return ""
	}
	_, format, data, err := b.getDeviceProperty(dev, atom)
	if err != nil || format != 32 || len(data) < 4 {
		return ""
	}
	value := order.Uint32(data)
	if value == 0 {
		return ""
	}
	switch value {
	case b.atoms[wacomTypeStylus]:
		return quirks.ClassStylus
	case b.atoms[wacomTypeEraser]:
		return quirks.ClassEraser
	case b.atoms[wacomTypeCursor]:
		return quirks.ClassCursor
	case b.atoms[wacomTypePad]:
		return quirks.ClassPad
	case b.atoms[wacomTypeTouch]:
		return quirks.ClassTouch
	}
	return ""
}

// getDeviceProperty fetches one device property in full.
func (b *Backend) getDeviceProperty(dev uint16, prop uint32) (typ uint32, format byte, data []byte, err error) {
	m, err := b.roundtrip(newExtRequest(b.xiOpcode, xiGetProperty).
		Uint16(dev).Uint8(0).Pad(1).
		Uint32(prop).Uint32(0).
		Uint32(0).Uint32(0x1000))
	if err != nil {
		return 0, 0, nil, err
	}
	args := m.args(8)
	typ = args.Uint32()
	args.Skip(4) // bytes after
	items := int(args.Uint32())
	format = args.Uint8()
	args.Skip(11)
	data = args.take(items * int(format) / 8)
	if err := args.Err(); err != nil {
		return 0, 0, nil, err
	}
	return typ, format, data, nil
}

// sortedDevices returns the current devices in id order, for
// deterministic event emission.
func (b *Backend) sortedDevices() []*device {
	out := make([]*device, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].xid < out[j].xid })
	return out
}
