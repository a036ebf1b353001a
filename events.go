package pen

import "time"

// FrameTimestamp is an opaque monotonic timestamp with an unspecified
// epoch. Subtract two timestamps to get the duration between them; the
// absolute value is meaningless. Precision is given by
// [Manager.TimestampGranularity].
type FrameTimestamp time.Duration

// Sub returns the duration elapsed from o to t.
func (t FrameTimestamp) Sub(o FrameTimestamp) time.Duration {
	return time.Duration(t - o)
}

// InteractionSource is the kind of input that drove a ring or strip.
type InteractionSource uint8

const (
	SourceUnknown InteractionSource = iota
	SourceFinger
)

// Event is a resolved input event. The concrete types are ToolEvent,
// TabletEvent and PadEvent; switch on them.
//
// Events are logically grouped into frames: everything between two
// frame markers happened simultaneously, in arbitrary order.
type Event interface {
	event()
}

// ToolEventKind discriminates ToolEvent.
type ToolEventKind uint8

const (
	// ToolAdded announces a tool, either enumerated at startup or
	// immediately before its first use.
	ToolAdded ToolEventKind = iota + 1
	// ToolRemoved means the tool will send no more events. It may be
	// added again before next use; re-associate through HardwareID.
	ToolRemoved
	// ToolIn means the tool entered sensing range over a tablet.
	ToolIn
	// ToolDown means the tool is logically pressed: surface contact
	// for a pen, a button for an airbrush or lens.
	ToolDown
	// ToolButton is a button state change on the tool barrel.
	ToolButton
	// ToolPose is a snapshot of the tool's axes.
	ToolPose
	// ToolFrame closes a group of preceding events, stamping them
	// with a shared time.
	ToolFrame
	// ToolUp means the tool is no longer pressed.
	ToolUp
	// ToolOut means the tool left sensing range over a tablet. Axis
	// state accumulated so far is discarded.
	ToolOut
)

var toolEventNames = [...]string{
	ToolAdded: "Added", ToolRemoved: "Removed", ToolIn: "In",
	ToolDown: "Down", ToolButton: "Button", ToolPose: "Pose",
	ToolFrame: "Frame", ToolUp: "Up", ToolOut: "Out",
}

func (k ToolEventKind) String() string {
	if int(k) < len(toolEventNames) && toolEventNames[k] != "" {
		return toolEventNames[k]
	}
	return "ToolEventKind(?)"
}

// ToolEvent is an event on a specific tool.
type ToolEvent struct {
	Tool *Tool
	Kind ToolEventKind

	// Tablet the tool entered or left. Set for In and Out.
	Tablet *Tablet

	// Button identity and state. Set for Button.
	Button  uint32
	Pressed bool

	// Pose snapshot. Set for Pose.
	Pose Pose

	// Time of the frame. Set for Frame when HasTime; platforms without
	// timestamps deliver frames with HasTime false.
	Time    FrameTimestamp
	HasTime bool
}

func (ToolEvent) event() {}

// TabletEventKind discriminates TabletEvent.
type TabletEventKind uint8

const (
	// TabletAdded announces a tablet: enumerated at startup, newly
	// plugged in, or sent immediately before first use.
	TabletAdded TabletEventKind = iota + 1
	// TabletRemoved means the tablet was unplugged. It leaves the
	// hardware report on the pump after this event is observed.
	TabletRemoved
)

func (k TabletEventKind) String() string {
	switch k {
	case TabletAdded:
		return "Added"
	case TabletRemoved:
		return "Removed"
	default:
		return "TabletEventKind(?)"
	}
}

// TabletEvent is an event on a specific tablet.
type TabletEvent struct {
	Tablet *Tablet
	Kind   TabletEventKind
}

func (TabletEvent) event() {}

// PadEventKind discriminates PadEvent.
type PadEventKind uint8

const (
	PadAdded PadEventKind = iota + 1
	// PadRemoved means the pad was unplugged. It leaves the hardware
	// report on the pump after this event is observed.
	PadRemoved
	// PadEnter means the pad became associated with a tablet.
	PadEnter
	// PadExit means the pad left its tablet.
	PadExit
	// PadButton is a pad button state change. Group is the owning
	// group, nil for buttons belonging to the pad itself.
	PadButton
	// PadGroupMode means the group switched to a new mode.
	PadGroupMode
	// PadRingPose is an absolute ring angle, radians clockwise from
	// logical north.
	PadRingPose
	// PadRingSource announces what is driving the ring for the
	// current interaction.
	PadRingSource
	// PadRingFrame closes a group of ring events.
	PadRingFrame
	// PadRingUp means the interaction with the ring ended.
	PadRingUp
	// PadStripPose is an absolute strip position, 0..1.
	PadStripPose
	// PadStripSource announces what is driving the strip.
	PadStripSource
	// PadStripFrame closes a group of strip events.
	PadStripFrame
	// PadStripUp means the interaction with the strip ended.
	PadStripUp
)

var padEventNames = [...]string{
	PadAdded: "Added", PadRemoved: "Removed", PadEnter: "Enter",
	PadExit: "Exit", PadButton: "Button", PadGroupMode: "GroupMode",
	PadRingPose: "RingPose", PadRingSource: "RingSource",
	PadRingFrame: "RingFrame", PadRingUp: "RingUp",
	PadStripPose: "StripPose", PadStripSource: "StripSource",
	PadStripFrame: "StripFrame", PadStripUp: "StripUp",
}

func (k PadEventKind) String() string {
	if int(k) < len(padEventNames) && padEventNames[k] != "" {
		return padEventNames[k]
	}
	return "PadEventKind(?)"
}

// PadEvent is an event on a specific pad or one of its controls.
type PadEvent struct {
	Pad  *Pad
	Kind PadEventKind

	// Tablet the pad attached to. Set for Enter.
	Tablet *Tablet

	// Group concerned by the event. Set for GroupMode and all ring
	// and strip kinds; set for Button when the button belongs to a
	// group.
	Group *Group

	// Ring concerned by ring kinds.
	Ring *Ring

	// Strip concerned by strip kinds.
	Strip *Strip

	// Button is the pad-global button index. Set for Button.
	Button  uint32
	Pressed bool

	// Mode the group switched to. Set for GroupMode.
	Mode uint32

	// Position is the ring angle in radians or the strip position in
	// 0..1. Set for RingPose and StripPose.
	Position float32

	// Source of the interaction. Set for RingSource and StripSource.
	Source InteractionSource

	// Time of the frame. Set for RingFrame and StripFrame when
	// HasTime.
	Time    FrameTimestamp
	HasTime bool
}

func (PadEvent) event() {}
