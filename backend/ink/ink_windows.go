//go:build windows

package ink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/google/uuid"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/frame"
	"github.com/gogpu/pen/internal/quirks"
)

// phase tracks where a tool is relative to the surface. RTS reports it
// implicitly through which packet callback fires.
type phase uint8

const (
	phaseOut phase = iota
	phaseAir
	phaseTouched
)

// tabletContext is one attached digitizer: its context id and the
// packet decoder built from the properties it reports.
type tabletContext struct {
	tcid   uint32
	id     pen.ID
	interp *interpreter
}

// toolState is the per-tool interaction state between pumps.
type toolState struct {
	id     pen.ID
	sid    uint32
	tablet pen.ID
	phase  phase
	barrel bool
}

// Backend ingests the RealTimeStylus. Callbacks from the stylus thread
// write under mu; Pump clones everything into caller-owned snapshots so
// accessors never contend with the driver.
type Backend struct {
	rts    *realTimeStylus
	plugin *plugin
	hwnd   uintptr

	poisoned atomic.Bool

	mu         sync.Mutex
	scale      float32
	contexts   []*tabletContext
	tools      []*pen.Tool
	tablets    []*pen.Tablet
	states     map[pen.ID]*toolState
	assembler  frame.Assembler
	queue      []pen.RawEvent
	timer      bool
	removeNow  []pen.ID
	removeNext []pen.ID

	// Caller-owned snapshots, replaced by Pump.
	events     []pen.RawEvent
	outTools   []*pen.Tool
	outTablets []*pen.Tablet
	outTimer   bool
}

func newPlatform(cfg *pen.Config) (pen.Backend, error) {
	if cfg.WindowHandle == 0 {
		return nil, fmt.Errorf("%w: the ink backend needs a window handle", pen.ErrUnsupported)
	}
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		// S_FALSE: the thread already initialized COM, which is fine.
		if !errors.As(err, &oleErr) || oleErr.Code() != 1 {
			return nil, fmt.Errorf("%w: COM unavailable: %v", pen.ErrUnsupported, err)
		}
	}
	rts, err := createRealTimeStylus()
	if err != nil {
		return nil, fmt.Errorf("%w: no RealTimeStylus service: %v", pen.ErrUnsupported, err)
	}

	b := &Backend{
		rts:    rts,
		hwnd:   cfg.WindowHandle,
		scale:  himetricToPixel(windowDPI(cfg.WindowHandle)),
		states: make(map[pen.ID]*toolState),
	}
	if err := b.setup(cfg); err != nil {
		rts.release()
		return nil, err
	}
	return b, nil
}

func (b *Backend) setup(cfg *pen.Config) error {
	if err := b.rts.putHWND(b.hwnd); err != nil {
		return fmt.Errorf("ink: attaching to window: %w", err)
	}
	if err := b.rts.setDesiredPacketDescription(desiredGUIDs()); err != nil {
		return fmt.Errorf("ink: requesting packet layout: %w", err)
	}
	p, err := newPlugin(b)
	if err != nil {
		return fmt.Errorf("ink: creating stylus plugin: %w", err)
	}
	b.plugin = p
	if err := b.rts.addAsyncPlugin(0, p.comPointer()); err != nil {
		return fmt.Errorf("ink: registering stylus plugin: %w", err)
	}
	if err := b.rts.setAllTabletsMode(cfg.MouseEmulation); err != nil {
		return fmt.Errorf("ink: enabling tablets: %w", err)
	}
	if err := b.rts.putEnabled(true); err != nil {
		return fmt.Errorf("ink: enabling stylus: %w", err)
	}

	// The enabled callback also announces contexts; addTablet is
	// idempotent, so enumerating here just covers a quiet start.
	tcids, err := b.rts.tabletContextIDs()
	if err != nil {
		pen.Logger().Warn("ink: tablet enumeration failed", "err", err)
		return nil
	}
	b.mu.Lock()
	for _, tcid := range tcids {
		b.addTablet(tcid)
	}
	b.mu.Unlock()
	return nil
}

func (b *Backend) Name() string { return pen.BackendInk }

// Pump publishes everything the stylus thread collected since the last
// call. It never blocks on the driver beyond the shared-state lock.
func (b *Backend) Pump() error {
	if b.poisoned.Load() {
		// A poisoned backend serves nothing: the shared state may be
		// half-written, so the accessors go empty until a rebuild.
		b.events = nil
		b.outTools = nil
		b.outTablets = nil
		b.outTimer = false
		return fmt.Errorf("%w: ink stylus thread", pen.ErrPoisoned)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	// Tablets whose Removed event went out last pump leave the table
	// now, so the event resolved while consumers iterated it.
	for _, id := range b.removeNow {
		for i, t := range b.tablets {
			if t.ID == id {
				b.tablets = append(b.tablets[:i], b.tablets[i+1:]...)
				break
			}
		}
	}
	b.removeNow = append(b.removeNow[:0], b.removeNext...)
	b.removeNext = b.removeNext[:0]

	b.events = append(b.events[:0], b.queue...)
	b.queue = b.queue[:0]
	b.outTools = append(b.outTools[:0], b.tools...)
	b.outTablets = append(b.outTablets[:0], b.tablets...)
	b.outTimer = b.timer
	return nil
}

func (b *Backend) Tools() []*pen.Tool        { return b.outTools }
func (b *Backend) Tablets() []*pen.Tablet    { return b.outTablets }
func (b *Backend) Pads() []*pen.Pad          { return nil }
func (b *Backend) RawEvents() []pen.RawEvent { return b.events }

func (b *Backend) TimestampGranularity() (time.Duration, bool) {
	return time.Millisecond, b.outTimer
}

func (b *Backend) Close() error {
	if b.rts != nil {
		if err := b.rts.putEnabled(false); err != nil {
			pen.Logger().Debug("ink: disable on close failed", "err", err)
		}
		b.rts.release()
		b.rts = nil
	}
	if b.plugin != nil {
		pluginRelease(b.plugin)
		b.plugin = nil
	}
	ole.CoUninitialize()
	return nil
}

// recoverPoison is deferred at every COM callback boundary: a panic
// must not unwind into the stylus thread, so it flags the backend dead
// instead.
func (b *Backend) recoverPoison() {
	if r := recover(); r != nil {
		b.poisoned.Store(true)
		pen.Logger().Error("ink: panic on the stylus thread", "panic", r)
	}
}

// addTablet builds the context for a digitizer. Idempotent; both the
// enabled callback and setup enumeration announce the same contexts.
// Callers hold mu.
func (b *Backend) addTablet(tcid uint32) {
	for _, tc := range b.contexts {
		if tc.tcid == tcid {
			return
		}
	}
	props, err := b.rts.packetDescription(tcid)
	if err != nil {
		pen.Logger().Warn("ink: no packet description", "tcid", tcid, "err", err)
		return
	}
	names := guidNames()
	metrics := make([]propertyMetric, 0, len(props))
	for _, p := range props {
		metrics = append(metrics, propertyMetric{
			Name:       names[p.GUID],
			Min:        p.Metrics.LogicalMin,
			Max:        p.Metrics.LogicalMax,
			Unit:       metricUnit(p.Metrics.Units),
			Resolution: p.Metrics.Resolution,
		})
	}
	in, err := newInterpreter(metrics)
	if err != nil {
		pen.Logger().Warn("ink: tablet discarded", "tcid", tcid, "err", err)
		return
	}
	for _, name := range in.degenerate {
		pen.Logger().Warn("ink: unreportable axis", "tcid", tcid, "property", name)
	}

	tablet := &pen.Tablet{ID: pen.InkTabletID(tcid)}
	b.describeTablet(tcid, tablet)
	tc := &tabletContext{tcid: tcid, id: tablet.ID, interp: in}
	b.contexts = append(b.contexts, tc)
	b.tablets = append(b.tablets, tablet)
	b.timer = b.timer || in.timer
	b.queue = append(b.queue, pen.RawEvent{Kind: pen.RawTabletAdded, ID: tablet.ID})
	pen.Logger().Info("ink: tablet attached",
		"tcid", tcid, "name", tablet.Name, "words", in.words)
}

// describeTablet fills name and USB identity from the IInkTablet
// automation properties. Best effort; tablets work without either.
func (b *Backend) describeTablet(tcid uint32, t *pen.Tablet) {
	disp, err := b.rts.tablet(tcid)
	if err != nil {
		pen.Logger().Debug("ink: tablet description unavailable", "tcid", tcid, "err", err)
		return
	}
	defer disp.Release()
	if v, err := oleutil.GetProperty(disp, "Name"); err == nil {
		t.Name = v.ToString()
		v.Clear()
	}
	if v, err := oleutil.GetProperty(disp, "PlugAndPlayId"); err == nil {
		if usb, ok := parsePnPID(v.ToString()); ok {
			t.USB = usb
			t.HasUSB = true
		}
		v.Clear()
	}
}

// removeTablet queues the removal of the context at the given position
// in arrival order. RTS reports removals by index, which matches our
// ordered context list because both sides append on arrival.
func (b *Backend) removeTablet(i int) {
	tc := b.contexts[i]
	b.contexts = append(b.contexts[:i], b.contexts[i+1:]...)
	// Any tool over this tablet leaves proximity first.
	for _, st := range b.states {
		if st.tablet == tc.id && st.phase != phaseOut {
			if acc, ok := b.assembler.Peek(st.id); ok {
				acc.Out()
				b.queue = b.assembler.Flush(b.queue, st.id, 0, false)
			}
			st.phase = phaseOut
		}
	}
	b.queue = append(b.queue, pen.RawEvent{Kind: pen.RawTabletRemoved, ID: tc.id})
	b.removeNext = append(b.removeNext, tc.id)
}

func (b *Backend) stylusEnabled(tcids []uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tcid := range tcids {
		b.addTablet(tcid)
	}
}

func (b *Backend) stylusDisabled() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.contexts) > 0 {
		b.removeTablet(len(b.contexts) - 1)
	}
}

func (b *Backend) tabletAdded(tablet *ole.IUnknown) {
	if tablet == nil || b.rts == nil {
		return
	}
	var tcid uint32
	err := b.rts.call(b.rts.vtbl().GetTabletContextIDFromTablet,
		uintptr(unsafe.Pointer(tablet)), uintptr(unsafe.Pointer(&tcid)))
	if err != nil {
		pen.Logger().Warn("ink: new tablet has no context", "err", err)
		return
	}
	b.mu.Lock()
	b.addTablet(tcid)
	b.mu.Unlock()
}

func (b *Backend) tabletRemoved(index int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || int(index) >= len(b.contexts) {
		pen.Logger().Debug("ink: removal for unknown tablet", "index", index)
		return
	}
	b.removeTablet(int(index))
}

func (b *Backend) contextFor(tcid uint32) *tabletContext {
	for _, tc := range b.contexts {
		if tc.tcid == tcid {
			return tc
		}
	}
	return nil
}

// ensureTool returns the state for the stylus in si, creating the tool
// on first sight. The inverted cursor is a distinct tool (the eraser),
// and tablet axis capabilities spread to the tool here. Callers hold mu.
func (b *Backend) ensureTool(si stylusInfo, tc *tabletContext) *toolState {
	inverted := si.Inverted != 0
	var cursor uint32
	if inverted {
		cursor = 1
	}
	id := pen.InkStylusID(si.CID, cursor)
	if st, ok := b.states[id]; ok {
		return st
	}
	for _, t := range b.tools {
		if t.ID == id {
			st := &toolState{id: id, sid: si.CID}
			b.states[id] = st
			return st
		}
	}
	typ := pen.ToolTypePen
	if inverted {
		typ = pen.ToolTypeEraser
	}
	tool := &pen.Tool{
		ID: id, Type: typ,
		HardwareID: uint64(si.CID), HasHardwareID: true,
	}
	tc.interp.apply(tool)
	b.tools = append(b.tools, tool)
	b.queue = append(b.queue, pen.RawEvent{Kind: pen.RawToolAdded, ID: id})
	st := &toolState{id: id, sid: si.CID}
	b.states[id] = st
	return st
}

// handlePackets decodes a packet burst and feeds the frame assembler.
// touched distinguishes the Packets callback from InAirPackets; the
// first contact packet synthesizes In before Down when the tool went
// straight to the surface without a hover.
func (b *Backend) handlePackets(si stylusInfo, words []int32, touched bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tc := b.contextFor(si.TCID)
	if tc == nil {
		pen.Logger().Debug("ink: packets for unknown tablet", "tcid", si.TCID)
		return
	}
	pkts := tc.interp.decode(words, b.scale)
	if len(pkts) == 0 {
		return
	}
	st := b.ensureTool(si, tc)
	status := quirks.Ink().Status

	for _, pkt := range pkts {
		acc := b.assembler.Get(st.id)
		if st.phase == phaseOut {
			acc.In(tc.id)
			st.tablet = tc.id
		}
		if touched && st.phase != phaseTouched {
			acc.Down()
		} else if !touched && st.phase == phaseTouched {
			acc.Up()
		}
		if touched {
			st.phase = phaseTouched
		} else {
			st.phase = phaseAir
		}

		if barrel := pkt.status&status.Barrel != 0; barrel != st.barrel {
			acc.Button(status.Barrel, barrel)
			st.barrel = barrel
		}

		acc.SetPosition(pkt.pose.Position[0], pkt.pose.Position[1])
		if v, ok := pkt.pose.Pressure.Get(); ok {
			acc.SetPressure(v)
		}
		if v, ok := pkt.pose.ButtonPressure.Get(); ok {
			acc.SetButtonPressure(v)
		}
		if v, ok := pkt.pose.Distance.Get(); ok {
			acc.SetDistance(v)
		}
		if v, ok := pkt.pose.Roll.Get(); ok {
			acc.SetRoll(v)
		}
		if pkt.pose.HasTilt {
			acc.SetTilt(pkt.pose.Tilt[0], pkt.pose.Tilt[1])
		}
		if pkt.pose.HasContactSize {
			acc.SetContactSize(pkt.pose.ContactSize[0], pkt.pose.ContactSize[1])
		}
		b.queue = b.assembler.Flush(b.queue, st.id, pkt.time, pkt.hasTime)
	}
}

func (b *Backend) handleStylusUp(si stylusInfo, words []int32) {
	b.handlePackets(si, words, false)
}

// stylusOutOfRange ends the interaction for every tool backed by the
// stylus id; the tip and eraser share one.
func (b *Backend) stylusOutOfRange(tcid, sid uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, st := range b.states {
		if st.sid != sid || st.phase == phaseOut {
			continue
		}
		if acc, ok := b.assembler.Peek(id); ok {
			if st.phase == phaseTouched {
				acc.Up()
			}
			acc.Out()
			b.queue = b.assembler.Flush(b.queue, id, 0, false)
		}
		st.phase = phaseOut
		st.barrel = false
	}
}

// stylusButton is informational only: barrel state is derived from the
// packet status word, which stays frame-aligned with the pose.
func (b *Backend) stylusButton(sid uint32, pressed bool) {
	pen.Logger().Debug("ink: stylus button", "sid", sid, "pressed", pressed)
}

func (b *Backend) stylusError(hr int32) {
	pen.Logger().Warn("ink: stylus plugin error", "hresult", fmt.Sprintf("%#x", uint32(hr)))
}

// updateMapping re-reads the window DPI; the stylus fires it when the
// window moves between monitors.
func (b *Backend) updateMapping() {
	b.mu.Lock()
	b.scale = himetricToPixel(windowDPI(b.hwnd))
	b.mu.Unlock()
}

// oleGUID converts the quirks table GUID (RFC 4122 byte order) to the
// mixed-endian COM layout.
func oleGUID(u uuid.UUID) ole.GUID {
	return ole.GUID{
		Data1: binary.BigEndian.Uint32(u[0:4]),
		Data2: binary.BigEndian.Uint16(u[4:6]),
		Data3: binary.BigEndian.Uint16(u[6:8]),
		Data4: [8]byte(u[8:16]),
	}
}

func desiredGUIDs() []ole.GUID {
	t := quirks.Ink()
	out := make([]ole.GUID, len(t.Properties))
	for i, p := range t.Properties {
		out[i] = oleGUID(p.GUID.UUID)
	}
	return out
}

func guidNames() map[ole.GUID]string {
	t := quirks.Ink()
	out := make(map[ole.GUID]string, len(t.Properties))
	for _, p := range t.Properties {
		out[oleGUID(p.GUID.UUID)] = p.Name
	}
	return out
}
