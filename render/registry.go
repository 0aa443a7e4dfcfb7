package render

import (
	"errors"
	"fmt"
	"sync"
)

// Factory creates a fresh, uninitialized backend instance.
type Factory func() Backend

var (
	// ErrBackendNotAvailable is returned when no usable backend is
	// registered under the requested name.
	ErrBackendNotAvailable = errors.New("render backend not available")

	registryMu sync.RWMutex
	factories  = map[string]Factory{}

	// preferred selection order when no backend is named
	priority = []string{"webgpu", "gl33", "null"}
)

// RegisterBackend makes a backend available under the given name. Backend
// packages call this from their init function, importing a backend package
// is all it takes to enable it.
func RegisterBackend(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	factories[name] = factory
}

// Backends returns the names of all registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	return names
}

// newBackend instantiates the named backend, or the best registered one
// for an empty name.
func newBackend(name string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if name != "" {
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
		}

		return factory(), nil
	}

	for _, name := range priority {
		if factory, ok := factories[name]; ok {
			return factory(), nil
		}
	}

	for _, factory := range factories {
		return factory(), nil
	}

	return nil, ErrBackendNotAvailable
}
