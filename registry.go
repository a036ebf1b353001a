package pen

import (
	"errors"
	"fmt"
	"sync"
)

// BackendFactory creates a backend for the given configuration. A
// factory returns an error wrapping ErrUnsupported when the running
// system cannot serve its platform, letting selection fall through to
// the next backend.
type BackendFactory func(cfg *Config) (Backend, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for backend selection (first usable wins).
	// Wayland > XInput2 on unix: when both are reachable the X server
	// is usually XWayland, and the native protocol reports more.
	backendPriority = []string{BackendWayland, BackendXInput2, BackendInk}
)

// RegisterBackend registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func RegisterBackend(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// UnregisterBackend removes a backend from the registry.
// This is useful for testing.
func UnregisterBackend(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// AvailableBackends returns the registered backend names.
func AvailableBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsBackendRegistered checks if a backend with the given name is
// registered.
func IsBackendRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// openBackend builds the backend for cfg: the named one when forced,
// otherwise the first in priority order that accepts the system.
func openBackend(cfg *Config) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if cfg.Backend != "" {
		factory, ok := backends[cfg.Backend]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
		}
		return factory(cfg)
	}

	for _, name := range backendPriority {
		factory, ok := backends[name]
		if !ok {
			continue
		}
		b, err := factory(cfg)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				Logger().Debug("backend not usable here", "backend", name, "err", err)
				continue
			}
			return nil, err
		}
		Logger().Info("backend selected", "backend", name)
		return b, nil
	}
	return nil, ErrNoBackend
}
