package pen

// ToolType is the rough shape and intent of a tool, when the platform
// reports one.
type ToolType uint8

const (
	ToolTypeUnknown ToolType = iota
	ToolTypePen
	ToolTypePencil
	ToolTypeBrush
	// ToolTypeEraser is a nib on the reverse of some styli, primarily
	// intended to erase.
	ToolTypeEraser
	// ToolTypeAirbrush works above the pad surface, making extensive
	// use of the distance and slider axes.
	ToolTypeAirbrush
	// ToolTypeLens is a mouse-like device resting on the pad with a
	// physical crosshair.
	ToolTypeLens
	ToolTypeFinger
	// ToolTypeMouse is an emulated stylus derived from mouse input.
	ToolTypeMouse
)

func (t ToolType) String() string {
	switch t {
	case ToolTypePen:
		return "pen"
	case ToolTypePencil:
		return "pencil"
	case ToolTypeBrush:
		return "brush"
	case ToolTypeEraser:
		return "eraser"
	case ToolTypeAirbrush:
		return "airbrush"
	case ToolTypeLens:
		return "lens"
	case ToolTypeFinger:
		return "finger"
	case ToolTypeMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// Tool is a stylus, eraser nib, airbrush or similar pointing device. A
// single physical pen with a tip and an eraser is two tools; re-associate
// them through HardwareID.
//
// Tools are owned by the Manager. A removed tool stays in the Manager's
// tool list so that late events can still resolve against it.
type Tool struct {
	// ID is the connection-unique identity of this tool. Opaque, not
	// stable across executions.
	ID ID

	// Type of the tool, ToolTypeUnknown if the platform does not say.
	Type ToolType

	// HardwareID is baked into the hardware and likely stable across
	// executions. A pen tip and its eraser share one. Valid when
	// HasHardwareID; absence implies nothing about other tools that
	// also lack one.
	HardwareID    uint64
	HasHardwareID bool

	// WacomID is a Wacom tool type identifier. With a lookup table of
	// Wacom hardware it identifies the exact model. Valid when
	// HasWacomID.
	WacomID    uint64
	HasWacomID bool

	// Available is the set of axes the tool advertises.
	Available AxisSet

	// AxisDetail holds per-axis capability records, indexed by Axis.
	// Prefer the Axis accessor, which filters by Available.
	AxisDetail [NumAxes]AxisInfo
}

// Axis returns the capability record for a, or false if the tool does
// not advertise it.
func (t *Tool) Axis(a Axis) (AxisInfo, bool) {
	if !t.Available.Has(a) {
		return AxisInfo{}, false
	}
	return t.AxisDetail[a], true
}

// SetAxis records a capability and marks the axis available. Backends
// call this while constructing a tool; widening an already-set axis
// unions the limits.
func (t *Tool) SetAxis(a Axis, info AxisInfo) {
	if t.Available.Has(a) && t.AxisDetail[a].HasLimits && info.HasLimits {
		info.Limits = info.Limits.Union(t.AxisDetail[a].Limits)
	}
	t.Available = t.Available.With(a)
	t.AxisDetail[a] = info
}
