package wayland

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/pen"
)

// evt fabricates a decoded compositor event.
func evt(object uint32, opcode uint16, build func(*request)) *message {
	r := newRequest(object, opcode)
	if build != nil {
		build(r)
	}
	return &message{object: object, opcode: opcode, data: r.buf[headerSize:]}
}

func feed(t *testing.T, b *Backend, msgs ...*message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, b.dispatch(m))
	}
}

// announceTablet walks a minimal tablet construction burst.
func announceTablet(t *testing.T, b *Backend, obj uint32, name string) {
	t.Helper()
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatTabletAdded, func(r *request) { r.Uint32(obj) }),
		evt(obj, evtTabletName, func(r *request) { r.String(name) }),
		evt(obj, evtTabletID, func(r *request) { r.Uint32(0x056a).Uint32(0x0357) }),
		evt(obj, evtTabletDone, nil),
	)
}

func TestTabletConstruction(t *testing.T) {
	b := newBackend(nil)
	announceTablet(t, b, 100, "Wacom Intuos Pro M")

	tablets := b.Tablets()
	require.Len(t, tablets, 1)
	require.Equal(t, "Wacom Intuos Pro M", tablets[0].Name)
	require.True(t, tablets[0].HasUSB)
	require.Equal(t, uint16(0x056a), tablets[0].USB.Vendor)
	require.Equal(t, pen.WaylandID(100), tablets[0].ID)

	require.Len(t, b.events, 1)
	require.Equal(t, pen.RawTabletAdded, b.events[0].Kind)
}

func TestTabletInvisibleBeforeDone(t *testing.T) {
	b := newBackend(nil)
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatTabletAdded, func(r *request) { r.Uint32(100) }),
		evt(100, evtTabletName, func(r *request) { r.String("partial") }),
	)
	require.Empty(t, b.Tablets())
	require.Empty(t, b.events)
}

func announceTool(t *testing.T, b *Backend, obj uint32) {
	t.Helper()
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatToolAdded, func(r *request) { r.Uint32(obj) }),
		evt(obj, evtToolType, func(r *request) { r.Uint32(wlToolPen) }),
		evt(obj, evtToolHardwareSerial, func(r *request) { r.Uint32(0).Uint32(0xdeadbeef) }),
		evt(obj, evtToolCapability, func(r *request) { r.Uint32(wlCapPressure) }),
		evt(obj, evtToolCapability, func(r *request) { r.Uint32(wlCapTilt) }),
		evt(obj, evtToolDone, nil),
	)
}

func TestToolConstruction(t *testing.T) {
	b := newBackend(nil)
	announceTool(t, b, 101)

	tools := b.Tools()
	require.Len(t, tools, 1)
	tool := tools[0]
	require.Equal(t, pen.ToolTypePen, tool.Type)
	require.True(t, tool.HasHardwareID)
	require.Equal(t, uint64(0xdeadbeef), tool.HardwareID)

	info, ok := tool.Axis(pen.AxisPressure)
	require.True(t, ok)
	require.True(t, info.HasLimits)
	require.Equal(t, pen.Limits{Min: 0, Max: 1}, info.Limits)
	_, ok = tool.Axis(pen.AxisRoll)
	require.False(t, ok)
}

func TestInteractionFrames(t *testing.T) {
	b := newBackend(nil)
	announceTablet(t, b, 100, "tablet")
	announceTool(t, b, 101)
	b.beginPump()

	feed(t, b,
		evt(101, evtToolProximityIn, func(r *request) { r.Uint32(1).Uint32(100).Uint32(50) }),
		evt(101, evtToolMotion, func(r *request) { r.Int32(10 * 256).Int32(20 * 256) }),
		evt(101, evtToolPressure, func(r *request) { r.Uint32(32767) }),
		evt(101, evtToolFrame, func(r *request) { r.Uint32(5) }),
		evt(101, evtToolDown, func(r *request) { r.Uint32(2) }),
		evt(101, evtToolButton, func(r *request) { r.Uint32(3).Uint32(0x14b).Uint32(1) }),
		evt(101, evtToolFrame, func(r *request) { r.Uint32(6) }),
		evt(101, evtToolUp, nil),
		evt(101, evtToolProximityOut, nil),
		evt(101, evtToolFrame, func(r *request) { r.Uint32(7) }),
	)

	want := []pen.RawKind{
		pen.RawToolIn, pen.RawToolPose, pen.RawToolFrame,
		pen.RawToolDown, pen.RawToolButton, pen.RawToolFrame,
		pen.RawToolUp, pen.RawToolOut, pen.RawToolFrame,
	}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}

	pose := b.events[1].Pose
	require.Equal(t, [2]float32{10, 20}, pose.Position)
	require.InDelta(t, 0.49999, pose.Pressure.Or(-1), 1e-4)

	require.Equal(t, pen.WaylandID(100), b.events[0].Tablet)
	require.Equal(t, pen.WaylandID(100), b.events[7].Tablet)
	require.Equal(t, pen.FrameTimestamp(5*time.Millisecond), b.events[2].Time)
	require.True(t, b.events[2].HasTime)
}

func TestPadConstructionAndDials(t *testing.T) {
	b := newBackend(nil)
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatPadAdded, func(r *request) { r.Uint32(102) }),
		evt(102, evtPadGroup, func(r *request) { r.Uint32(103) }),
		evt(102, evtPadButtons, func(r *request) { r.Uint32(4) }),
		// Buttons 1 and 0, unsorted and with a duplicate on the wire.
		evt(103, evtGroupButtons, func(r *request) {
			r.Uint32(12).Uint32(1).Uint32(0).Uint32(1)
		}),
		evt(103, evtGroupRing, func(r *request) { r.Uint32(104) }),
		evt(103, evtGroupModes, func(r *request) { r.Uint32(2) }),
		evt(103, evtGroupDone, nil),
		evt(102, evtPadDone, nil),
	)

	pads := b.Pads()
	require.Len(t, pads, 1)
	pad := pads[0]
	require.Equal(t, uint32(4), pad.Buttons)
	require.Len(t, pad.Groups, 1)
	g := pad.Groups[0]
	require.Equal(t, []uint32{0, 1}, g.Buttons)
	require.Equal(t, uint32(2), g.Modes)
	require.Len(t, g.Rings, 1)

	b.beginPump()
	feed(t, b,
		evt(104, evtDialSource, func(r *request) { r.Uint32(wlSourceFinger) }),
		// 90 degrees in 24.8 fixed.
		evt(104, evtDialValue, func(r *request) { r.Int32(90 * 256) }),
		evt(104, evtDialFrame, func(r *request) { r.Uint32(30) }),
		evt(104, evtDialStop, nil),
		evt(104, evtDialFrame, func(r *request) { r.Uint32(31) }),
		evt(103, evtGroupModeSwitch, func(r *request) { r.Uint32(32).Uint32(9).Uint32(1) }),
	)

	want := []pen.RawKind{
		pen.RawRingSource, pen.RawRingPose, pen.RawRingFrame,
		pen.RawRingUp, pen.RawRingFrame,
		pen.RawGroupMode,
	}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}
	require.Equal(t, pen.SourceFinger, b.events[0].Source)
	require.InDelta(t, 1.5708, b.events[1].Position, 1e-3)
	require.Equal(t, uint32(1), b.events[5].Mode)
}

func TestPadWithoutGroupsDiscarded(t *testing.T) {
	b := newBackend(nil)
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatPadAdded, func(r *request) { r.Uint32(102) }),
		evt(102, evtPadButtons, func(r *request) { r.Uint32(4) }),
		evt(102, evtPadDone, nil),
	)
	require.Empty(t, b.Pads())
	require.Empty(t, b.events)
}

func TestDeferredTabletRemoval(t *testing.T) {
	b := newBackend(nil)
	announceTablet(t, b, 100, "tablet")
	b.beginPump()

	feed(t, b, evt(100, evtTabletRemoved, nil))
	require.Len(t, b.events, 1)
	require.Equal(t, pen.RawTabletRemoved, b.events[0].Kind)
	// Still listed this pump so the Removed event can resolve.
	require.Len(t, b.Tablets(), 1)

	b.beginPump()
	require.Empty(t, b.Tablets())
}

func TestToolRemovalIsLogical(t *testing.T) {
	b := newBackend(nil)
	announceTool(t, b, 101)
	b.beginPump()

	feed(t, b, evt(101, evtToolRemoved, nil))
	require.Len(t, b.events, 1)
	require.Equal(t, pen.RawToolRemoved, b.events[0].Kind)

	b.beginPump()
	require.Len(t, b.Tools(), 1, "removed tools stay referenceable")
}

func TestSliderRange(t *testing.T) {
	b := newBackend(nil)
	b.objects[999] = ifTabletSeat
	feed(t, b,
		evt(999, evtSeatToolAdded, func(r *request) { r.Uint32(101) }),
		evt(101, evtToolType, func(r *request) { r.Uint32(wlToolAirbrush) }),
		evt(101, evtToolCapability, func(r *request) { r.Uint32(wlCapSlider) }),
		evt(101, evtToolDone, nil),
	)
	info, ok := b.Tools()[0].Axis(pen.AxisSlider)
	require.True(t, ok)
	require.True(t, info.HasLimits)
	require.Equal(t, pen.Limits{Min: -1, Max: 1}, info.Limits)

	b.beginPump()
	feed(t, b,
		evt(101, evtToolProximityIn, func(r *request) { r.Uint32(1).Uint32(100).Uint32(50) }),
		evt(101, evtToolMotion, func(r *request) { r.Int32(0).Int32(0) }),
		evt(101, evtToolSlider, func(r *request) { r.Int32(-65535) }),
		evt(101, evtToolFrame, func(r *request) { r.Uint32(5) }),
		evt(101, evtToolSlider, func(r *request) { r.Int32(32767) }),
		evt(101, evtToolFrame, func(r *request) { r.Uint32(6) }),
	)

	require.Equal(t, pen.RawToolPose, b.events[1].Kind)
	require.InDelta(t, -1, b.events[1].Pose.Slider.Or(9), 1e-6)
	require.Equal(t, pen.RawToolPose, b.events[3].Kind)
	require.InDelta(t, 0.49999, b.events[3].Pose.Slider.Or(9), 1e-4)
}

// stallConn serves pre-encoded messages; once drained, reads block
// until the connection is closed, like a socket under a quiet
// compositor.
type stallConn struct {
	buf   bytes.Buffer
	stall chan struct{}
}

func newStallConn() *stallConn { return &stallConn{stall: make(chan struct{})} }

func (c *stallConn) Read(p []byte) (int, error) {
	if c.buf.Len() == 0 {
		<-c.stall
	}
	return c.buf.Read(p)
}

func (c *stallConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *stallConn) Close() error                { close(c.stall); return nil }
func (c *stallConn) Readable() (bool, error)     { return c.buf.Len() > 0, nil }

func (c *stallConn) queue(t *testing.T, object uint32, opcode uint16, build func(*request)) {
	t.Helper()
	r := newRequest(object, opcode)
	if build != nil {
		build(r)
	}
	buf, err := r.bytes()
	require.NoError(t, err)
	c.buf.Write(buf)
}

// pump runs one Pump with a deadline, so a pump that waits on the
// compositor fails the test instead of hanging it.
func pump(t *testing.T, b *Backend) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- b.Pump() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump blocked with no buffered messages")
	}
}

func TestPumpDrainsOnlyBufferedMessages(t *testing.T) {
	conn := newStallConn()
	defer conn.Close()
	b := newBackend(conn)
	b.objects[999] = ifTabletSeat

	// Nothing buffered: the pump returns at once, empty handed.
	pump(t, b)
	require.Empty(t, b.events)

	conn.queue(t, 999, evtSeatTabletAdded, func(r *request) { r.Uint32(100) })
	conn.queue(t, 100, evtTabletName, func(r *request) { r.String("tablet") })
	conn.queue(t, 100, evtTabletDone, nil)
	pump(t, b)
	require.Len(t, b.Tablets(), 1)
	require.Len(t, b.events, 1)
	require.Equal(t, pen.RawTabletAdded, b.events[0].Kind)

	// Quiet again: only the already-drained queue is discarded.
	pump(t, b)
	require.Empty(t, b.events)
	require.Len(t, b.Tablets(), 1)
}

func TestStrayMessagesSwallowed(t *testing.T) {
	b := newBackend(nil)
	b.objects[999] = ifTabletSeat
	// Frame for a tool that was never announced, removal of an
	// unknown tablet, event on an unknown object.
	b.objects[101] = ifTool
	b.objects[100] = ifTablet
	feed(t, b,
		evt(101, evtToolFrame, func(r *request) { r.Uint32(1) }),
		evt(100, evtTabletRemoved, nil),
		evt(77, 3, nil),
	)
	require.Empty(t, b.Tools())
}
