package xinput2

import (
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
	"github.com/gogpu/pen/internal/quirks"
)

const testOpcode byte = 131

// fakeConn scripts the server side of the wire: preloaded replies are
// read back, written requests accumulate for inspection.
type fakeConn struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (c *fakeConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *fakeConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *fakeConn) Readable() (bool, error)     { return c.in.Len() > 0, nil }
func (c *fakeConn) Close() error                { return nil }

// deviceEventMsg fabricates an XIDeviceEvent as queued by Pump.
func deviceEventMsg(evtype, dev uint16, stamp, detail uint32, x, y float32, vals map[uint16]float64) *message {
	buf := make([]byte, 80)
	buf[0] = msgGenericEvent
	buf[1] = testOpcode
	order.PutUint16(buf[8:], evtype)
	order.PutUint16(buf[10:], dev)
	order.PutUint32(buf[12:], stamp)
	order.PutUint32(buf[16:], detail)
	order.PutUint32(buf[40:], uint32(int32(x*65536)))
	order.PutUint32(buf[44:], uint32(int32(y*65536)))

	nums := make([]uint16, 0, len(vals))
	var mask uint32
	for n := range vals {
		nums = append(nums, n)
		mask |= 1 << n
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	if mask != 0 {
		order.PutUint16(buf[50:], 1)
		buf = order.AppendUint32(buf, mask)
		for _, n := range nums {
			buf = order.AppendUint32(buf, uint32(int32(vals[n])))
			buf = order.AppendUint32(buf, 0)
		}
	}
	order.PutUint32(buf[4:], uint32((len(buf)-messageSize)/4))
	return &message{kind: msgGenericEvent, detail: testOpcode, data: buf}
}

func hierarchyMsg() *message {
	buf := make([]byte, messageSize)
	buf[0] = msgGenericEvent
	buf[1] = testOpcode
	order.PutUint16(buf[8:], xiHierarchyChanged)
	return &message{kind: msgGenericEvent, detail: testOpcode, data: buf}
}

// testStylus installs a stylus device with a calibrated pressure
// valuator on number 2.
func testStylus(t *testing.T, b *Backend, gen uint32) *device {
	t.Helper()
	scale, err := calib.Solve(pen.Limits{Min: 0, Max: 65535}, pen.Limits{Min: 0, Max: 1})
	require.NoError(t, err)
	d := &device{
		xid:    7,
		class:  quirks.ClassStylus,
		name:   "stylus",
		id:     pen.XInput2ID(7, gen),
		tablet: pen.XInput2Derived(7, entityTablet, gen),
		valuators: map[uint16]valuatorRole{
			2: {role: rolePressure, filter: calib.Filter{State: calib.FilterScale, Scale: scale}},
		},
	}
	b.devices[7] = d
	return d
}

func TestMotionAssemblesFrames(t *testing.T) {
	b := newBackend(nil)
	b.xiOpcode = testOpcode
	testStylus(t, b, 1)

	require.NoError(t, b.handle(deviceEventMsg(xiMotion, 7, 100, 0, 10.5, 20.25,
		map[uint16]float64{2: 32767})))
	require.NoError(t, b.handle(deviceEventMsg(xiButtonPress, 7, 100, 1, 10.5, 20.25, nil)))
	require.NoError(t, b.handle(deviceEventMsg(xiMotion, 7, 101, 0, 11, 21, nil)))
	b.flushFrames()

	want := []pen.RawKind{
		pen.RawToolIn, pen.RawToolDown, pen.RawToolPose, pen.RawToolFrame,
		pen.RawToolPose, pen.RawToolFrame,
	}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}

	require.Equal(t, pen.XInput2Derived(7, entityTablet, 1), b.events[0].Tablet)
	pose := b.events[2].Pose
	require.Equal(t, [2]float32{10.5, 20.25}, pose.Position)
	require.InDelta(t, 0.49999, pose.Pressure.Or(-1), 1e-4)
	require.Equal(t, pen.FrameTimestamp(100*time.Millisecond), b.events[3].Time)
	require.True(t, b.events[3].HasTime)

	// Pressure persists into the next frame even though only the
	// position moved.
	pose = b.events[4].Pose
	require.Equal(t, [2]float32{11, 21}, pose.Position)
	require.InDelta(t, 0.49999, pose.Pressure.Or(-1), 1e-4)
	require.Equal(t, pen.FrameTimestamp(101*time.Millisecond), b.events[5].Time)
}

func TestBarrelButtonsKeepTheirCode(t *testing.T) {
	b := newBackend(nil)
	b.xiOpcode = testOpcode
	testStylus(t, b, 1)

	require.NoError(t, b.handle(deviceEventMsg(xiButtonPress, 7, 50, 3, 1, 1, nil)))
	b.flushFrames()

	want := []pen.RawKind{pen.RawToolIn, pen.RawToolPose, pen.RawToolButton, pen.RawToolFrame}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}
	require.Equal(t, uint32(3), b.events[2].Button)
	require.True(t, b.events[2].Pressed)
}

func TestUnknownDeviceDropped(t *testing.T) {
	b := newBackend(nil)
	b.xiOpcode = testOpcode
	require.NoError(t, b.handle(deviceEventMsg(xiMotion, 9, 100, 0, 1, 1, nil)))
	b.flushFrames()
	require.Empty(t, b.events)
}

func TestForeignExtensionEventIgnored(t *testing.T) {
	b := newBackend(nil)
	b.xiOpcode = testOpcode
	m := deviceEventMsg(xiMotion, 7, 100, 0, 1, 1, nil)
	m.detail = testOpcode + 1
	m.data[1] = testOpcode + 1
	require.NoError(t, b.handle(m))
	require.Empty(t, b.events)
}

func TestPadButtonsAndRing(t *testing.T) {
	b := newBackend(nil)
	b.xiOpcode = testOpcode
	scale, err := calib.Solve(pen.Limits{Min: 0, Max: 71}, pen.Limits{Min: 0, Max: calib.Tau})
	require.NoError(t, err)
	d := &device{
		xid:   8,
		class: quirks.ClassPad,
		id:    pen.XInput2ID(8, 1),
		ring:  pen.XInput2Derived(8, entityRing, 1),
		valuators: map[uint16]valuatorRole{
			0: {role: roleSlider, filter: calib.Filter{State: calib.FilterScale, Scale: scale}},
		},
	}
	b.devices[8] = d

	require.NoError(t, b.handle(deviceEventMsg(xiButtonPress, 8, 60, 3, 0, 0, nil)))
	require.NoError(t, b.handle(deviceEventMsg(xiMotion, 8, 61, 0, 0, 0,
		map[uint16]float64{0: 18})))
	require.NoError(t, b.handle(deviceEventMsg(xiButtonRelease, 8, 62, 3, 0, 0, nil)))
	b.flushFrames()

	want := []pen.RawKind{
		pen.RawPadButton, pen.RawRingPose, pen.RawRingFrame, pen.RawPadButton,
	}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}
	require.Equal(t, uint32(2), b.events[0].Button, "pad indices are zero based")
	require.True(t, b.events[0].Pressed)
	require.Equal(t, d.ring, b.events[1].ID)
	// A quarter of the travel is a quarter turn.
	require.InDelta(t, float64(calib.Tau)/4, b.events[1].Position, 1e-3)
	require.False(t, b.events[3].Pressed)
}

func TestHierarchyRescanBumpsGeneration(t *testing.T) {
	fake := &fakeConn{}
	b := newBackend(fake)
	b.xiOpcode = testOpcode
	b.gen = 1
	b.labels = testLabels()
	old := testStylus(t, b, 1)
	old.inProx = true
	b.assembler.Get(old.id) // an interaction is in flight

	reply := deviceReply(1,
		deviceInfoBytes(7, useSlavePointer, "Test Tablet stylus",
			valuatorClass(2, atomPressure, 0, 65535, 1, 1)))
	fake.in.Write(reply.data)

	require.NoError(t, b.handle(hierarchyMsg()))

	require.Equal(t, uint32(2), b.gen)
	require.Equal(t, pen.XInput2ID(7, 2), b.devices[7].id)
	require.NotEqual(t, old.id, b.devices[7].id,
		"recycled device numbers must not produce equal ids across a rescan")

	want := []pen.RawKind{
		pen.RawToolOut, pen.RawToolFrame,
		pen.RawToolRemoved, pen.RawTabletRemoved,
		pen.RawTabletAdded, pen.RawToolAdded,
	}
	require.Len(t, b.events, len(want))
	for i, k := range want {
		require.Equal(t, k, b.events[i].Kind, "event %d", i)
	}
	require.Equal(t, old.id, b.events[0].ID)
	require.Equal(t, pen.XInput2ID(7, 2), b.events[5].ID)

	require.Len(t, b.tools, 1)
	_, ok := b.tools[0].Axis(pen.AxisPressure)
	require.True(t, ok)
}

func TestDeferredRemovalAcrossPumps(t *testing.T) {
	fake := &fakeConn{}
	b := newBackend(fake)
	b.xiOpcode = testOpcode
	b.gen = 1
	d := testStylus(t, b, 1)
	b.tablets = append(b.tablets, &pen.Tablet{ID: d.tablet, Name: "stylus"})

	// Empty scan: the device is gone.
	fake.in.Write(deviceReply(1).data)
	require.NoError(t, b.handle(hierarchyMsg()))

	// Still listed until the next pump boundary.
	require.Len(t, b.Tablets(), 1)
	b.beginPump()
	require.Empty(t, b.Tablets())
}
