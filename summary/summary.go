// Package summary reduces the event stream to the most recent state of
// the hardware.
//
// It is a lossy view for consumers that do not care about the exact
// sequence of events: the last pose of the most recently used tool,
// which buttons are held, where every ring and strip rests, and how
// often each pad button was pressed since the last capture. Feed it
// every pump's events and call Take whenever a snapshot is wanted.
package summary

import (
	"github.com/gogpu/pen"
	"github.com/gogpu/pen/internal/calib"
)

// ToolState is the active tool and what it is doing. The reducer tracks
// one tool at a time, the most recently used; listen to the event
// stream directly to follow several tools at once.
type ToolState struct {
	Tool   *pen.Tool
	Tablet *pen.Tablet

	// Pose is the last reported pose.
	Pose pen.Pose

	// Down reports whether the tool is logically pressed.
	Down bool

	// PressedButtons holds the platform codes of the barrel buttons
	// currently held.
	PressedButtons []uint32
}

// ButtonState is one pad button.
type ButtonState struct {
	// Group owning the button, nil for buttons on the pad itself.
	Group *pen.Group

	// Pressed at the time of capture.
	Pressed bool

	// Count of presses since the last capture, counted on the rising
	// edge.
	Count int
}

// RingState is one pad ring.
type RingState struct {
	Ring *pen.Ring

	// Angle is the last absolute angle in radians, absent until the
	// first interaction reveals it.
	Angle pen.OptFloat

	// Touched reports an ongoing interaction, with its source.
	Touched bool
	Source  pen.InteractionSource

	// Delta is the signed motion during a continuous slide since the
	// last capture. It may exceed a full turn. Absent when the ring
	// did not slide; a jump after an interaction ended is not a slide.
	Delta pen.OptFloat
}

// StripState is one pad strip. Fields mirror RingState with positions
// in 0..1 instead of radians.
type StripState struct {
	Strip    *pen.Strip
	Position pen.OptFloat
	Touched  bool
	Source   pen.InteractionSource
	Delta    pen.OptFloat
}

// GroupState is one mode cluster of a pad.
type GroupState struct {
	Group *pen.Group

	// Mode the group is in, when HasMode. Discovering the mode may
	// take an interaction.
	Mode    uint32
	HasMode bool

	Rings  []RingState
	Strips []StripState
}

// PadState is one pad with all its controls.
type PadState struct {
	Pad *pen.Pad

	// Tablet the pad is attached to, nil when unknown or detached.
	Tablet *pen.Tablet

	Groups []GroupState

	// Buttons indexed by the pad-global button index.
	Buttons []ButtonState
}

// Summary is the captured state.
type Summary struct {
	// Tool is the active tool, nil while no tool is in range.
	Tool *ToolState

	Pads []PadState
}

type dialTrack struct {
	pos   float32
	known bool
	// broken marks that the interaction ended; the next pose is a
	// jump, not a slide, and contributes no delta.
	broken   bool
	touched  bool
	source   pen.InteractionSource
	delta    float32
	hasDelta bool
}

// move folds an absolute reading into the slide delta. Rings take the
// nearest-image angular step so a zero crossing is a small motion.
func (d *dialTrack) move(v float32, ring bool) {
	if d.known && !d.broken {
		if ring {
			d.delta += calib.WrapDelta(d.pos, v)
		} else {
			d.delta += v - d.pos
		}
		d.hasDelta = true
	}
	d.pos, d.known, d.broken = v, true, false
}

func (d *dialTrack) up() {
	d.touched = false
	d.source = pen.SourceUnknown
	d.broken = true
}

type buttonTrack struct {
	pressed bool
	count   int
}

type groupTrack struct {
	mode    uint32
	hasMode bool
	rings   []dialTrack
	strips  []dialTrack
}

type padTrack struct {
	pad     *pen.Pad
	tablet  *pen.Tablet
	groups  []groupTrack
	buttons []buttonTrack
}

type toolTrack struct {
	tool    *pen.Tool
	tablet  *pen.Tablet
	pose    pen.Pose
	down    bool
	pressed []uint32
}

// Reducer folds events into hardware state. The zero value is ready to
// use.
type Reducer struct {
	tool *toolTrack
	pads []*padTrack
}

// Observe folds one pump's worth of events into the state.
func (r *Reducer) Observe(events []pen.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case pen.ToolEvent:
			r.toolEvent(e)
		case pen.TabletEvent:
			r.tabletEvent(e)
		case pen.PadEvent:
			r.padEvent(e)
		}
	}
}

func (r *Reducer) toolEvent(e pen.ToolEvent) {
	switch e.Kind {
	case pen.ToolIn:
		r.tool = &toolTrack{tool: e.Tool, tablet: e.Tablet}
		return
	case pen.ToolAdded:
		return
	}
	t := r.tool
	if t == nil || t.tool != e.Tool {
		return
	}
	switch e.Kind {
	case pen.ToolDown:
		t.down = true
	case pen.ToolUp:
		t.down = false
	case pen.ToolPose:
		t.pose = e.Pose
	case pen.ToolButton:
		t.setButton(e.Button, e.Pressed)
	case pen.ToolOut, pen.ToolRemoved:
		r.tool = nil
	}
}

func (t *toolTrack) setButton(code uint32, pressed bool) {
	for i, c := range t.pressed {
		if c != code {
			continue
		}
		if !pressed {
			t.pressed = append(t.pressed[:i], t.pressed[i+1:]...)
		}
		return
	}
	if pressed {
		t.pressed = append(t.pressed, code)
	}
}

func (r *Reducer) tabletEvent(e pen.TabletEvent) {
	if e.Kind != pen.TabletRemoved {
		return
	}
	if r.tool != nil && r.tool.tablet == e.Tablet {
		r.tool = nil
	}
	for _, p := range r.pads {
		if p.tablet == e.Tablet {
			p.tablet = nil
		}
	}
}

func (r *Reducer) padEvent(e pen.PadEvent) {
	switch e.Kind {
	case pen.PadAdded:
		r.pads = append(r.pads, newPadTrack(e.Pad))
		return
	case pen.PadRemoved:
		for i, p := range r.pads {
			if p.pad == e.Pad {
				r.pads = append(r.pads[:i], r.pads[i+1:]...)
				return
			}
		}
		return
	}
	p := r.padFor(e.Pad)
	if p == nil {
		return
	}
	switch e.Kind {
	case pen.PadEnter:
		p.tablet = e.Tablet
	case pen.PadExit:
		p.tablet = nil
	case pen.PadButton:
		if int(e.Button) < len(p.buttons) {
			b := &p.buttons[e.Button]
			if e.Pressed && !b.pressed {
				b.count++
			}
			b.pressed = e.Pressed
		}
	case pen.PadGroupMode:
		if g := p.groupFor(e.Group); g != nil {
			g.mode, g.hasMode = e.Mode, true
		}
	case pen.PadRingPose:
		if d := p.ring(e.Group, e.Ring); d != nil {
			d.move(e.Position, true)
		}
	case pen.PadRingSource:
		if d := p.ring(e.Group, e.Ring); d != nil {
			d.touched, d.source = true, e.Source
		}
	case pen.PadRingUp:
		if d := p.ring(e.Group, e.Ring); d != nil {
			d.up()
		}
	case pen.PadStripPose:
		if d := p.strip(e.Group, e.Strip); d != nil {
			d.move(e.Position, false)
		}
	case pen.PadStripSource:
		if d := p.strip(e.Group, e.Strip); d != nil {
			d.touched, d.source = true, e.Source
		}
	case pen.PadStripUp:
		if d := p.strip(e.Group, e.Strip); d != nil {
			d.up()
		}
	}
}

func newPadTrack(pad *pen.Pad) *padTrack {
	p := &padTrack{
		pad:     pad,
		groups:  make([]groupTrack, len(pad.Groups)),
		buttons: make([]buttonTrack, pad.Buttons),
	}
	for i, g := range pad.Groups {
		p.groups[i].rings = make([]dialTrack, len(g.Rings))
		p.groups[i].strips = make([]dialTrack, len(g.Strips))
	}
	return p
}

func (r *Reducer) padFor(pad *pen.Pad) *padTrack {
	for _, p := range r.pads {
		if p.pad == pad {
			return p
		}
	}
	return nil
}

func (p *padTrack) groupFor(g *pen.Group) *groupTrack {
	for i, pg := range p.pad.Groups {
		if pg == g {
			return &p.groups[i]
		}
	}
	return nil
}

func (p *padTrack) ring(g *pen.Group, ring *pen.Ring) *dialTrack {
	for gi, pg := range p.pad.Groups {
		if pg != g {
			continue
		}
		for ri, pr := range pg.Rings {
			if pr == ring {
				return &p.groups[gi].rings[ri]
			}
		}
	}
	return nil
}

func (p *padTrack) strip(g *pen.Group, strip *pen.Strip) *dialTrack {
	for gi, pg := range p.pad.Groups {
		if pg != g {
			continue
		}
		for si, ps := range pg.Strips {
			if ps == strip {
				return &p.groups[gi].strips[si]
			}
		}
	}
	return nil
}

// Take captures the current state and starts a new period: button
// counts and slide deltas reset, everything else persists.
func (r *Reducer) Take() Summary {
	var s Summary
	if t := r.tool; t != nil {
		s.Tool = &ToolState{
			Tool:           t.tool,
			Tablet:         t.tablet,
			Pose:           t.pose,
			Down:           t.down,
			PressedButtons: append([]uint32(nil), t.pressed...),
		}
	}
	for _, p := range r.pads {
		ps := PadState{Pad: p.pad, Tablet: p.tablet}
		for gi := range p.groups {
			g := &p.groups[gi]
			gs := GroupState{
				Group: p.pad.Groups[gi], Mode: g.mode, HasMode: g.hasMode,
			}
			for ri := range g.rings {
				d := &g.rings[ri]
				rs := RingState{
					Ring: p.pad.Groups[gi].Rings[ri], Touched: d.touched, Source: d.source,
				}
				if d.known {
					rs.Angle = pen.SomeFloat(d.pos)
				}
				if d.hasDelta {
					rs.Delta = pen.SomeFloat(d.delta)
				}
				d.delta, d.hasDelta = 0, false
				gs.Rings = append(gs.Rings, rs)
			}
			for si := range g.strips {
				d := &g.strips[si]
				ss := StripState{
					Strip: p.pad.Groups[gi].Strips[si], Touched: d.touched, Source: d.source,
				}
				if d.known {
					ss.Position = pen.SomeFloat(d.pos)
				}
				if d.hasDelta {
					ss.Delta = pen.SomeFloat(d.delta)
				}
				d.delta, d.hasDelta = 0, false
				gs.Strips = append(gs.Strips, ss)
			}
			ps.Groups = append(ps.Groups, gs)
		}
		for bi := range p.buttons {
			b := &p.buttons[bi]
			ps.Buttons = append(ps.Buttons, ButtonState{
				Group:   p.pad.GroupOf(uint32(bi)),
				Pressed: b.pressed,
				Count:   b.count,
			})
			b.count = 0
		}
		s.Pads = append(s.Pads, ps)
	}
	return s
}
