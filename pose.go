package pen

// Wheel is the state of a tool's scroll wheel: an angle delta in radians
// plus the number of discrete click stops crossed. Clicks are not derived
// from the angle; hardware reports both.
type Wheel struct {
	Radians float32
	Clicks  int32
}

// Pose is a snapshot of all axes of a tool at one instant. Present
// values are never NaN.
//
// Poses are differential: axes the hardware did not re-report within a
// frame keep their previous value, and a pose may carry values for axes
// the tool does not advertise (or miss advertised ones).
type Pose struct {
	// Position in pixels from the top left of the associated window
	// surface. May have subpixel precision and may exceed the window
	// bounds in either direction.
	Position [2]float32

	// Distance above the pad surface. Interpretation depends on the
	// tool's AxisDistance info: normalized 0..1 or centimeters.
	Distance OptFloat

	// Pressure perpendicular to the surface, 0..1. Full physical
	// pressure does not necessarily reach 1.0.
	Pressure OptFloat

	// ButtonPressure is the analog force on a pressure-sensitive
	// barrel button, 0..1.
	ButtonPressure OptFloat

	// Tilt angles from perpendicular along X and Y, in radians.
	// [+,+] leans right and toward the user. Valid when HasTilt.
	Tilt    [2]float32
	HasTilt bool

	// Roll about the tool's long axis, radians in [0, 2pi).
	Roll OptFloat

	// Wheel state. Valid when HasWheel.
	Wheel    Wheel
	HasWheel bool

	// Slider position, -1..1 with 0 the natural rest position.
	Slider OptFloat

	// ContactSize is the width and height of the contact ellipse, in
	// the unit of the tool's AxisContactSize info. Valid when
	// HasContactSize.
	ContactSize    [2]float32
	HasContactSize bool
}
