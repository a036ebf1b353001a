package pen

// RawKind discriminates RawEvent. The values mirror the public event
// kinds, but subjects are IDs instead of resolved device pointers.
type RawKind uint8

const (
	RawToolAdded RawKind = iota + 1
	RawToolRemoved
	RawToolIn
	RawToolDown
	RawToolButton
	RawToolPose
	RawToolFrame
	RawToolUp
	RawToolOut

	RawTabletAdded
	RawTabletRemoved

	RawPadAdded
	RawPadRemoved
	RawPadEnter
	RawPadExit
	RawPadButton
	RawGroupMode
	RawRingPose
	RawRingSource
	RawRingFrame
	RawRingUp
	RawStripPose
	RawStripSource
	RawStripFrame
	RawStripUp
)

// RawEvent is an unresolved event as emitted by a backend: subjects are
// IDs that the Manager resolves against the hardware tables when the
// consumer iterates. Events whose IDs fail to resolve (the device
// vanished between emission and iteration, or an id generation was
// bumped) are silently dropped.
type RawEvent struct {
	Kind RawKind

	// ID of the subject: the tool, tablet, pad, group, ring or strip
	// the event is about, depending on Kind.
	ID ID

	// Tablet entered or left. Set for RawToolIn, RawToolOut and
	// RawPadEnter.
	Tablet ID

	// Button identity and state. For RawToolButton this is a
	// platform button code; for RawPadButton a pad-global index.
	Button  uint32
	Pressed bool

	// Pose snapshot. Set for RawToolPose.
	Pose Pose

	// Mode for RawGroupMode.
	Mode uint32

	// Position for RawRingPose (radians) and RawStripPose (0..1).
	Position float32

	// Source for RawRingSource and RawStripSource.
	Source InteractionSource

	// Time for frame kinds, when HasTime.
	Time    FrameTimestamp
	HasTime bool
}
