package pen

import "time"

// Manager owns one connection to the platform tablet stack and is the
// root object of the library.
//
// A Manager is pull-based: nothing happens between calls to Pump. Call
// Pump once per iteration of your event loop, then inspect Events and
// the hardware accessors. All methods must be called from the goroutine
// that created the Manager.
type Manager struct {
	backend Backend
	closed  bool
}

// NewManager connects to the platform tablet stack.
//
// Backends must be linked into the binary by importing their packages
// (see backend/wayland, backend/xinput2, backend/ink); the first
// registered backend that accepts the running system wins. Returns
// ErrNoBackend when none does.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b, err := openBackend(&cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{backend: b}, nil
}

// Pump collects pending platform data. Events and hardware reported by
// the previous pump are discarded, so consume them first.
func (m *Manager) Pump() error {
	if m.closed {
		return ErrClosed
	}
	return m.backend.Pump()
}

// Backend returns the name of the live backend.
func (m *Manager) Backend() string { return m.backend.Name() }

// Tools lists every tool seen during this connection, including removed
// ones. The slice is valid until the next Pump.
func (m *Manager) Tools() []*Tool {
	if m.closed {
		return nil
	}
	return m.backend.Tools()
}

// Tablets lists the connected tablets. The slice is valid until the
// next Pump.
func (m *Manager) Tablets() []*Tablet {
	if m.closed {
		return nil
	}
	return m.backend.Tablets()
}

// Pads lists the connected pads. The slice is valid until the next
// Pump.
func (m *Manager) Pads() []*Pad {
	if m.closed {
		return nil
	}
	return m.backend.Pads()
}

// TimestampGranularity is the precision of frame timestamps, or false
// when the platform does not timestamp frames.
func (m *Manager) TimestampGranularity() (time.Duration, bool) {
	return m.backend.TimestampGranularity()
}

// Close releases the platform connection. The Manager is unusable
// afterwards.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.backend.Close()
}
