package pen

import "time"

// Backend names accepted by WithBackend.
const (
	BackendWayland = "wayland"
	BackendXInput2 = "xinput2"
	BackendInk     = "ink"
)

// Backend is one platform's tablet stack, driven by the Manager. All
// methods are called from the Manager's goroutine.
//
// The accessor slices are owned by the backend and valid until the next
// Pump; callers must not retain or mutate them.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Pump collects pending platform data, updates the hardware
	// tables and replaces the raw event queue. It never blocks
	// waiting for input.
	Pump() error

	// Tools lists every tool seen this connection, including ones
	// already removed.
	Tools() []*Tool

	// Tablets lists the connected tablets.
	Tablets() []*Tablet

	// Pads lists the connected pads.
	Pads() []*Pad

	// RawEvents returns the events collected by the last Pump.
	RawEvents() []RawEvent

	// TimestampGranularity is the precision of frame timestamps, or
	// false when the platform does not timestamp frames.
	TimestampGranularity() (time.Duration, bool)

	// Close releases the platform connection.
	Close() error
}

// Config carries the options a backend factory may need. Factories
// ignore fields that do not apply to their platform.
type Config struct {
	// WindowHandle is a platform window handle (HWND for the ink
	// backend). Zero when not provided.
	WindowHandle uintptr

	// Display overrides the display connection name ($WAYLAND_DISPLAY
	// or $DISPLAY). Empty uses the environment.
	Display string

	// MouseEmulation asks the platform to synthesize a stylus from
	// plain mouse input where supported (ink).
	MouseEmulation bool

	// Backend forces a specific backend by name. Empty selects by
	// priority.
	Backend string
}
