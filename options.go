package pen

// Option configures a Manager during creation.
// Use functional options to customize Manager behavior.
//
// Example:
//
//	// Automatic backend selection
//	m, err := pen.NewManager()
//
//	// Windows: attach to a specific window
//	m, err := pen.NewManager(pen.WithWindowHandle(hwnd))
type Option func(*Config)

// defaultConfig returns the default manager configuration.
func defaultConfig() Config {
	return Config{}
}

// WithBackend forces a specific backend by name (BackendWayland,
// BackendXInput2, BackendInk) instead of priority selection. NewManager
// fails if that backend is not registered or not usable.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithWindowHandle provides the platform window handle events should be
// scoped to. The ink backend requires one (the HWND the RealTimeStylus
// attaches to); wayland and xinput2 ignore it.
func WithWindowHandle(h uintptr) Option {
	return func(c *Config) {
		c.WindowHandle = h
	}
}

// WithDisplay overrides the display connection name, in place of
// $WAYLAND_DISPLAY or $DISPLAY.
func WithDisplay(name string) Option {
	return func(c *Config) {
		c.Display = name
	}
}

// WithMouseEmulation asks the platform to synthesize a stylus from
// plain mouse input, where supported. Useful for testing tablet code
// without tablet hardware. Currently only the ink backend honors it.
func WithMouseEmulation() Option {
	return func(c *Config) {
		c.MouseEmulation = true
	}
}
