// Package wayland ingests tablet input from a Wayland compositor over
// the tablet-unstable-v2 protocol.
//
// The backend speaks the wire protocol directly on the compositor
// socket: it binds wl_seat and zwp_tablet_manager_v2 from the registry,
// requests the tablet seat, and dispatches the construction bursts and
// interaction frames the seat delivers. Importing the package registers
// it with pen under the name pen.BackendWayland.
package wayland

import (
	"fmt"
	"io"
	"time"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/construct"
	"github.com/gogpu/pen/internal/frame"
)

// axis16 is the wire range of pressure, distance and slider values.
const axis16 = 65535

// wconn is the compositor socket plus readiness polling, so Pump can
// drain pending messages without blocking.
type wconn interface {
	io.ReadWriteCloser
	Readable() (bool, error)
}

// Backend implements pen.Backend over a compositor connection.
type Backend struct {
	conn   wconn
	nextID uint32
	// objects maps live protocol object ids to their interface name.
	// Server-created objects (tablets, tools, pads, ...) are added as
	// their announcement events arrive.
	objects map[uint32]string

	seat       uint32
	tabletMgr  uint32
	tabletSeat uint32

	tablets construct.Set[*pen.Tablet]
	tools   construct.Set[*pen.Tool]
	pads    construct.Set[*padPartial]

	// groupOwner maps a group object to its owning pad, dialOwner a
	// ring or strip to its owning group. Associations are known from
	// the announcement event, before construction finishes.
	groupOwner map[pen.ID]pen.ID
	dialOwner  map[pen.ID]pen.ID

	assembler frame.Assembler
	dials     map[pen.ID]*dialState

	events []pen.RawEvent
	// delivered flags that a pump has exposed the current event queue,
	// so the next pump may discard it.
	delivered bool
	// removeNext holds tablet/pad ids whose Removed event was emitted
	// last pump; the hardware records go away at the start of this
	// one, after consumers had a full pump to look at them.
	removeNext []pen.ID

	toolList   []*pen.Tool
	tabletList []*pen.Tablet
	padList    []*pen.Pad
	listsStale bool
}

// padPartial accumulates a pad description until its done marker.
type padPartial struct {
	pad *pen.Pad
	// groups under construction, keyed by object id. A group done
	// moves the group onto pad.Groups.
	building []*groupPartial
}

type groupPartial struct {
	id    pen.ID
	group *pen.Group
}

// Validate implements construct.Validator: a pad with no groups is a
// protocol violation and never becomes visible.
func (p *padPartial) Validate() error {
	if len(p.pad.Groups) == 0 {
		return fmt.Errorf("wayland: pad %v finalized with no groups", p.pad.ID)
	}
	return nil
}

// dialState buffers one ring or strip between its frame markers.
type dialState struct {
	ring      bool
	value     float32
	hasValue  bool
	source    pen.InteractionSource
	hasSource bool
	stop      bool
}

func init() {
	pen.RegisterBackend(pen.BackendWayland, New)
}

// New connects to the compositor named by cfg.Display (or
// $WAYLAND_DISPLAY) and negotiates the tablet protocol. Returns
// pen.ErrUnsupported when no compositor is reachable or it lacks
// tablet-unstable-v2.
func New(cfg *pen.Config) (pen.Backend, error) {
	conn, err := dial(cfg.Display)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pen.ErrUnsupported, err)
	}
	b := newBackend(conn)
	if err := b.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// newBackend wraps an established connection. Split from New so tests
// can drive the state machine over a pipe.
func newBackend(conn wconn) *Backend {
	return &Backend{
		conn:       conn,
		nextID:     2, // 1 is wl_display
		objects:    map[uint32]string{displayObject: ifDisplay},
		groupOwner: map[pen.ID]pen.ID{},
		dialOwner:  map[pen.ID]pen.ID{},
		dials:      map[pen.ID]*dialState{},
	}
}

// setup performs the binding handshake: registry, globals, tablet seat.
func (b *Backend) setup() error {
	registry := b.newObject(ifRegistry)
	if err := b.send(newRequest(displayObject, reqDisplayGetRegistry).Uint32(registry)); err != nil {
		return err
	}
	type global struct {
		name    uint32
		version uint32
	}
	var seatG, mgrG *global
	err := b.roundtrip(func(m *message) error {
		if b.objects[m.object] != ifRegistry || m.opcode != evtRegistryGlobal {
			return b.dispatch(m)
		}
		args := m.args()
		name := args.Uint32()
		iface := args.String()
		version := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		switch iface {
		case ifSeat:
			if seatG == nil {
				seatG = &global{name, min(version, 5)}
			}
		case ifTabletMgr:
			mgrG = &global{name, min(version, 1)}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if seatG == nil || mgrG == nil {
		return fmt.Errorf("%w: compositor lacks zwp_tablet_manager_v2", pen.ErrUnsupported)
	}

	b.seat = b.newObject(ifSeat)
	if err := b.send(newRequest(registry, reqRegistryBind).
		Uint32(seatG.name).String(ifSeat).Uint32(seatG.version).Uint32(b.seat)); err != nil {
		return err
	}
	b.tabletMgr = b.newObject(ifTabletMgr)
	if err := b.send(newRequest(registry, reqRegistryBind).
		Uint32(mgrG.name).String(ifTabletMgr).Uint32(mgrG.version).Uint32(b.tabletMgr)); err != nil {
		return err
	}
	b.tabletSeat = b.newObject(ifTabletSeat)
	if err := b.send(newRequest(b.tabletMgr, reqMgrGetTabletSeat).
		Uint32(b.tabletSeat).Uint32(b.seat)); err != nil {
		return err
	}
	// Collect the initial announcement burst.
	return b.roundtrip(b.dispatch)
}

// Name implements pen.Backend.
func (b *Backend) Name() string { return pen.BackendWayland }

// Pump implements pen.Backend: every compositor message already
// pending on the socket is dispatched into the hardware tables and the
// event queue, without blocking for more. The first pump keeps the
// announcement burst collected during setup, so consumers see the
// initial hardware arrive as events.
func (b *Backend) Pump() error {
	if b.delivered {
		b.beginPump()
	}
	b.delivered = true
	for {
		ready, err := b.conn.Readable()
		if err != nil {
			return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
		}
		if !ready {
			return nil
		}
		m, err := readMessage(b.conn)
		if err != nil {
			return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
		}
		if err := b.dispatch(&m); err != nil {
			return fmt.Errorf("%w: %v", pen.ErrDisconnected, err)
		}
	}
}

// beginPump discards last pump's events and runs the removals deferred
// there, now that consumers had a full pump to observe the hardware.
func (b *Backend) beginPump() {
	b.events = b.events[:0]
	for _, id := range b.removeNext {
		b.tablets.Destroy(id)
		b.pads.Destroy(id)
		b.listsStale = true
	}
	b.removeNext = b.removeNext[:0]
}

// Tools implements pen.Backend. Removed tools stay listed; removal is
// a logical state so that late events still resolve.
func (b *Backend) Tools() []*pen.Tool {
	b.refreshLists()
	return b.toolList
}

// Tablets implements pen.Backend.
func (b *Backend) Tablets() []*pen.Tablet {
	b.refreshLists()
	return b.tabletList
}

// Pads implements pen.Backend.
func (b *Backend) Pads() []*pen.Pad {
	b.refreshLists()
	return b.padList
}

func (b *Backend) refreshLists() {
	if !b.listsStale && b.toolList != nil {
		return
	}
	b.toolList = b.tools.Finished()
	b.tabletList = b.tablets.Finished()
	partials := b.pads.Finished()
	b.padList = make([]*pen.Pad, len(partials))
	for i, p := range partials {
		b.padList[i] = p.pad
	}
	b.listsStale = false
}

// RawEvents implements pen.Backend.
func (b *Backend) RawEvents() []pen.RawEvent { return b.events }

// TimestampGranularity implements pen.Backend. The compositor stamps
// frames in milliseconds.
func (b *Backend) TimestampGranularity() (time.Duration, bool) {
	return time.Millisecond, true
}

// Close implements pen.Backend.
func (b *Backend) Close() error { return b.conn.Close() }

func (b *Backend) newObject(iface string) uint32 {
	id := b.nextID
	b.nextID++
	b.objects[id] = iface
	return id
}

func (b *Backend) send(r *request) error {
	buf, err := r.bytes()
	if err != nil {
		return err
	}
	_, err = b.conn.Write(buf)
	return err
}

// roundtrip issues a wl_display.sync and feeds every message to handle
// until the sync callback fires, guaranteeing all prior events were
// seen. Only setup may use it; Pump must never wait on the compositor.
func (b *Backend) roundtrip(handle func(*message) error) error {
	cb := b.newObject(ifCallback)
	if err := b.send(newRequest(displayObject, reqDisplaySync).Uint32(cb)); err != nil {
		return err
	}
	for {
		m, err := readMessage(b.conn)
		if err != nil {
			return err
		}
		if m.object == cb && m.opcode == evtCallbackDone {
			delete(b.objects, cb)
			return nil
		}
		if err := handle(&m); err != nil {
			return err
		}
	}
}
