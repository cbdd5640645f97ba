package export

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Exporter)
)

// Register adds an exporter factory to the registry.
// Called by exporter implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Exporter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an exporter factory by name.
func Get(name string) (func(*slog.Logger) Exporter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates an unconnected exporter for target.Type.
// A nil logger uses the discard logger.
func New(target Target, logger *slog.Logger) (Exporter, error) {
	if target.Type == "" {
		return nil, fmt.Errorf("export target type not specified")
	}
	factory, ok := Get(target.Type)
	if !ok {
		return nil, &UnknownExporterError{Type: target.Type, Available: List()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// List returns all registered exporter names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an exporter type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownExporterError is returned when an unknown target type is requested.
type UnknownExporterError struct {
	Type      string
	Available []string
}

func (e *UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown export target type %q\nAvailable targets: %v\nHint: Check export.target.type in leaproute.yaml", e.Type, e.Available)
}
