package pen

import "errors"

// Sentinel errors returned by Manager construction and pumping.
// Use errors.Is to test for them; backends wrap these with detail.
var (
	// ErrNoBackend indicates that no registered backend could serve the
	// running system. Make sure the backend packages are linked in
	// (blank-imported) and that a display server is reachable.
	ErrNoBackend = errors.New("pen: no backend available")

	// ErrUnsupported is returned by a backend factory when the running
	// system does not provide what that backend needs (for example, no
	// WAYLAND_DISPLAY in the environment). NewManager skips over it and
	// tries the next backend in priority order.
	ErrUnsupported = errors.New("pen: backend not supported on this system")

	// ErrUnknownBackend is returned when a backend was requested by name
	// but nothing with that name is registered.
	ErrUnknownBackend = errors.New("pen: unknown backend")

	// ErrDisconnected is returned by Pump when the connection to the
	// display server is lost. The Manager is unusable afterwards.
	ErrDisconnected = errors.New("pen: display server disconnected")

	// ErrPoisoned is returned by Pump after a panic escaped a foreign
	// thread callback. The Manager reports no further hardware or events.
	ErrPoisoned = errors.New("pen: backend poisoned by callback failure")

	// ErrClosed is returned when the Manager is used after Close.
	ErrClosed = errors.New("pen: manager closed")
)
