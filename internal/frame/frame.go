// Package frame assembles per-tool interaction state into ordered event
// frames.
//
// Platforms deliver axis updates, buttons and proximity transitions
// piecemeal; consumers want them grouped and ordered. An Accumulator
// buffers everything reported for one tool since the last frame marker,
// then flushes it in canonical order: proximity in, contact down, pose,
// buttons, contact up, proximity out, frame marker.
//
// Axis state persists across frames so that platforms reporting
// differentially (only the axes that moved) still yield complete poses.
// Leaving proximity discards the accumulator; stale axes from a past
// interaction never leak into the next one.
package frame

import (
	"math"

	"github.com/gogpu/pen"
)

type buttonPress struct {
	code    uint32
	pressed bool
}

// Accumulator buffers one tool's state between frame markers.
type Accumulator struct {
	tool pen.ID

	// tablet is the surface the tool entered over. It persists until
	// the accumulator is spent so that the leave event can name it.
	tablet pen.ID

	// Pending proximity transition. A frame carries at most one of
	// in/out and at most one of down/up.
	pendIn   bool
	pendOut  bool
	pendDown bool
	pendUp   bool

	// pose persists across frames; dirty marks that something was
	// reported since the last flush.
	pose        pen.Pose
	hasPosition bool
	dirty       bool

	buttons []buttonPress
}

// NewAccumulator returns an empty accumulator for the given tool.
func NewAccumulator(tool pen.ID) *Accumulator {
	return &Accumulator{tool: tool}
}

// Tool returns the id the accumulator assembles for.
func (a *Accumulator) Tool() pen.ID { return a.tool }

// In buffers a proximity-enter over the given tablet.
func (a *Accumulator) In(tablet pen.ID) {
	a.pendIn = true
	a.tablet = tablet
}

// Out buffers a proximity-leave. The accumulator is discarded on the
// next flush.
func (a *Accumulator) Out() {
	a.pendOut = true
}

// Down buffers a logical press.
func (a *Accumulator) Down() {
	a.pendDown = true
	a.pendUp = false
}

// Up buffers a logical release.
func (a *Accumulator) Up() {
	a.pendUp = true
	a.pendDown = false
}

// Button buffers a barrel button change. Order of arrival is preserved
// within the frame.
func (a *Accumulator) Button(code uint32, pressed bool) {
	a.buttons = append(a.buttons, buttonPress{code: code, pressed: pressed})
}

// SetPosition updates the pose position. NaN components are dropped;
// poses never carry NaN.
func (a *Accumulator) SetPosition(x, y float32) {
	if isNaN(x) || isNaN(y) {
		return
	}
	a.pose.Position = [2]float32{x, y}
	a.hasPosition = true
	a.dirty = true
}

// SetDistance updates the distance axis, latest value winning.
func (a *Accumulator) SetDistance(v float32) { a.setOpt(&a.pose.Distance, v) }

// SetPressure updates the pressure axis.
func (a *Accumulator) SetPressure(v float32) { a.setOpt(&a.pose.Pressure, v) }

// SetButtonPressure updates the barrel button pressure axis.
func (a *Accumulator) SetButtonPressure(v float32) { a.setOpt(&a.pose.ButtonPressure, v) }

// SetRoll updates the roll axis.
func (a *Accumulator) SetRoll(v float32) { a.setOpt(&a.pose.Roll, v) }

// SetSlider updates the slider axis.
func (a *Accumulator) SetSlider(v float32) { a.setOpt(&a.pose.Slider, v) }

// SetTilt updates both tilt components.
func (a *Accumulator) SetTilt(x, y float32) {
	if isNaN(x) || isNaN(y) {
		return
	}
	a.pose.Tilt = [2]float32{x, y}
	a.pose.HasTilt = true
	a.dirty = true
}

// SetWheel updates the wheel angle and click count.
func (a *Accumulator) SetWheel(radians float32, clicks int32) {
	if isNaN(radians) {
		return
	}
	a.pose.Wheel = pen.Wheel{Radians: radians, Clicks: clicks}
	a.pose.HasWheel = true
	a.dirty = true
}

// SetContactSize updates the contact ellipse dimensions.
func (a *Accumulator) SetContactSize(w, h float32) {
	if isNaN(w) || isNaN(h) {
		return
	}
	a.pose.ContactSize = [2]float32{w, h}
	a.pose.HasContactSize = true
	a.dirty = true
}

func (a *Accumulator) setOpt(dst *pen.OptFloat, v float32) {
	o := pen.SomeFloat(v)
	if o.IsNone() {
		return
	}
	*dst = o
	a.dirty = true
}

// Flush appends the buffered frame to queue in canonical order and
// resets per-frame state. The pose is emitted only when an axis was
// reported since the last flush and a position is known. Exactly one
// frame marker closes the group.
//
// The second return is false when the frame contained a proximity-out:
// the accumulator is spent and must be discarded by the caller.
func (a *Accumulator) Flush(queue []pen.RawEvent, ts pen.FrameTimestamp, hasTS bool) ([]pen.RawEvent, bool) {
	if a.pendIn {
		queue = append(queue, pen.RawEvent{
			Kind: pen.RawToolIn, ID: a.tool, Tablet: a.tablet,
		})
	}
	if a.pendDown {
		queue = append(queue, pen.RawEvent{Kind: pen.RawToolDown, ID: a.tool})
	}
	if a.dirty && a.hasPosition {
		queue = append(queue, pen.RawEvent{
			Kind: pen.RawToolPose, ID: a.tool, Pose: a.pose,
		})
	}
	for _, b := range a.buttons {
		queue = append(queue, pen.RawEvent{
			Kind: pen.RawToolButton, ID: a.tool,
			Button: b.code, Pressed: b.pressed,
		})
	}
	if a.pendUp {
		queue = append(queue, pen.RawEvent{Kind: pen.RawToolUp, ID: a.tool})
	}
	out := a.pendOut
	if out {
		queue = append(queue, pen.RawEvent{
			Kind: pen.RawToolOut, ID: a.tool, Tablet: a.tablet,
		})
	}
	queue = append(queue, pen.RawEvent{
		Kind: pen.RawToolFrame, ID: a.tool, Time: ts, HasTime: hasTS,
	})

	a.pendIn = false
	a.pendDown = false
	a.pendUp = false
	a.pendOut = false
	a.dirty = false
	a.buttons = a.buttons[:0]
	return queue, !out
}

func isNaN(v float32) bool { return math.IsNaN(float64(v)) }

// Assembler owns the live accumulators, one per tool in proximity.
type Assembler struct {
	accs []*Accumulator
}

// Get returns the accumulator for tool, creating one on first use.
func (s *Assembler) Get(tool pen.ID) *Accumulator {
	for _, a := range s.accs {
		if a.tool == tool {
			return a
		}
	}
	a := NewAccumulator(tool)
	s.accs = append(s.accs, a)
	return a
}

// Peek returns the accumulator for tool without creating one.
func (s *Assembler) Peek(tool pen.ID) (*Accumulator, bool) {
	for _, a := range s.accs {
		if a.tool == tool {
			return a, true
		}
	}
	return nil, false
}

// Flush flushes the accumulator for tool, dropping it if the frame
// ended the interaction. Unknown tools are a swallowed no-op, matching
// servers that send stray frame markers.
func (s *Assembler) Flush(queue []pen.RawEvent, tool pen.ID, ts pen.FrameTimestamp, hasTS bool) []pen.RawEvent {
	for i, a := range s.accs {
		if a.tool != tool {
			continue
		}
		var keep bool
		queue, keep = a.Flush(queue, ts, hasTS)
		if !keep {
			s.accs = append(s.accs[:i], s.accs[i+1:]...)
		}
		return queue
	}
	return queue
}

// Drop discards the accumulator for tool without emitting anything.
func (s *Assembler) Drop(tool pen.ID) {
	for i, a := range s.accs {
		if a.tool == tool {
			s.accs = append(s.accs[:i], s.accs[i+1:]...)
			return
		}
	}
}

// Reset discards every accumulator.
func (s *Assembler) Reset() { s.accs = s.accs[:0] }
