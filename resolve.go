package pen

// Events resolves the raw events collected by the last Pump against the
// hardware tables and returns them in order. Events referring to ids
// that no longer resolve (the device vanished mid-queue, or a stale id
// from before a device rescan) are dropped; resolution always advances,
// never blocks.
//
// The returned slice and the devices it points into are valid until the
// next Pump.
func (m *Manager) Events() []Event {
	if m.closed {
		return nil
	}
	raw := m.backend.RawEvents()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Event, 0, len(raw))
	r := resolver{
		tools:   m.backend.Tools(),
		tablets: m.backend.Tablets(),
		pads:    m.backend.Pads(),
	}
	for i := range raw {
		if ev, ok := r.resolve(&raw[i]); ok {
			out = append(out, ev)
		} else {
			Logger().Debug("dropped unresolvable event",
				"kind", raw[i].Kind, "id", raw[i].ID)
		}
	}
	return out
}

// resolver looks raw ids up in the per-pump hardware tables. Tables are
// small; linear scans beat maps here and need no upkeep.
type resolver struct {
	tools   []*Tool
	tablets []*Tablet
	pads    []*Pad
}

func (r *resolver) tool(id ID) *Tool {
	for _, t := range r.tools {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *resolver) tablet(id ID) *Tablet {
	for _, t := range r.tablets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *resolver) pad(id ID) *Pad {
	for _, p := range r.pads {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// group finds the pad owning the group with the given id.
func (r *resolver) group(id ID) (*Pad, *Group) {
	for _, p := range r.pads {
		for _, g := range p.Groups {
			if g.ID == id {
				return p, g
			}
		}
	}
	return nil, nil
}

// ring finds the pad and group owning the ring with the given id.
func (r *resolver) ring(id ID) (*Pad, *Group, *Ring) {
	for _, p := range r.pads {
		for _, g := range p.Groups {
			for _, ri := range g.Rings {
				if ri.ID == id {
					return p, g, ri
				}
			}
		}
	}
	return nil, nil, nil
}

// strip finds the pad and group owning the strip with the given id.
func (r *resolver) strip(id ID) (*Pad, *Group, *Strip) {
	for _, p := range r.pads {
		for _, g := range p.Groups {
			for _, s := range g.Strips {
				if s.ID == id {
					return p, g, s
				}
			}
		}
	}
	return nil, nil, nil
}

func (r *resolver) resolve(raw *RawEvent) (Event, bool) {
	switch raw.Kind {
	case RawToolAdded, RawToolRemoved, RawToolDown, RawToolButton,
		RawToolPose, RawToolFrame, RawToolUp:
		tool := r.tool(raw.ID)
		if tool == nil {
			return nil, false
		}
		return ToolEvent{
			Tool:    tool,
			Kind:    toolKind(raw.Kind),
			Button:  raw.Button,
			Pressed: raw.Pressed,
			Pose:    raw.Pose,
			Time:    raw.Time,
			HasTime: raw.HasTime,
		}, true

	case RawToolIn, RawToolOut:
		tool := r.tool(raw.ID)
		tablet := r.tablet(raw.Tablet)
		if tool == nil || tablet == nil {
			return nil, false
		}
		return ToolEvent{Tool: tool, Kind: toolKind(raw.Kind), Tablet: tablet}, true

	case RawTabletAdded, RawTabletRemoved:
		tablet := r.tablet(raw.ID)
		if tablet == nil {
			return nil, false
		}
		kind := TabletAdded
		if raw.Kind == RawTabletRemoved {
			kind = TabletRemoved
		}
		return TabletEvent{Tablet: tablet, Kind: kind}, true

	case RawPadAdded, RawPadRemoved, RawPadExit:
		pad := r.pad(raw.ID)
		if pad == nil {
			return nil, false
		}
		return PadEvent{Pad: pad, Kind: padKind(raw.Kind)}, true

	case RawPadEnter:
		pad := r.pad(raw.ID)
		tablet := r.tablet(raw.Tablet)
		if pad == nil || tablet == nil {
			return nil, false
		}
		return PadEvent{Pad: pad, Kind: PadEnter, Tablet: tablet}, true

	case RawPadButton:
		pad := r.pad(raw.ID)
		if pad == nil {
			return nil, false
		}
		return PadEvent{
			Pad:     pad,
			Kind:    PadButton,
			Group:   pad.GroupOf(raw.Button),
			Button:  raw.Button,
			Pressed: raw.Pressed,
		}, true

	case RawGroupMode:
		pad, group := r.group(raw.ID)
		if group == nil {
			return nil, false
		}
		return PadEvent{Pad: pad, Kind: PadGroupMode, Group: group, Mode: raw.Mode}, true

	case RawRingPose, RawRingSource, RawRingFrame, RawRingUp:
		pad, group, ring := r.ring(raw.ID)
		if ring == nil {
			return nil, false
		}
		return PadEvent{
			Pad:      pad,
			Kind:     padKind(raw.Kind),
			Group:    group,
			Ring:     ring,
			Position: raw.Position,
			Source:   raw.Source,
			Time:     raw.Time,
			HasTime:  raw.HasTime,
		}, true

	case RawStripPose, RawStripSource, RawStripFrame, RawStripUp:
		pad, group, strip := r.strip(raw.ID)
		if strip == nil {
			return nil, false
		}
		return PadEvent{
			Pad:      pad,
			Kind:     padKind(raw.Kind),
			Group:    group,
			Strip:    strip,
			Position: raw.Position,
			Source:   raw.Source,
			Time:     raw.Time,
			HasTime:  raw.HasTime,
		}, true
	}
	return nil, false
}

func toolKind(k RawKind) ToolEventKind {
	switch k {
	case RawToolAdded:
		return ToolAdded
	case RawToolRemoved:
		return ToolRemoved
	case RawToolIn:
		return ToolIn
	case RawToolDown:
		return ToolDown
	case RawToolButton:
		return ToolButton
	case RawToolPose:
		return ToolPose
	case RawToolFrame:
		return ToolFrame
	case RawToolUp:
		return ToolUp
	default:
		return ToolOut
	}
}

func padKind(k RawKind) PadEventKind {
	switch k {
	case RawPadAdded:
		return PadAdded
	case RawPadRemoved:
		return PadRemoved
	case RawPadExit:
		return PadExit
	case RawRingPose:
		return PadRingPose
	case RawRingSource:
		return PadRingSource
	case RawRingFrame:
		return PadRingFrame
	case RawRingUp:
		return PadRingUp
	case RawStripPose:
		return PadStripPose
	case RawStripSource:
		return PadStripSource
	case RawStripFrame:
		return PadStripFrame
	default:
		return PadStripUp
	}
}
