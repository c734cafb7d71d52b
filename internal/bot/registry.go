package bot

import "sync"

// Registry collects modules before the bot starts. Modules register
// themselves from init(), so the registry has to tolerate concurrent
// registration even though reads only happen after startup.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a module. Registration order is preserved; it decides
// the order modules are configured, initialized and shut down in.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = append(r.modules, m)
}

// Modules returns a copy of the registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Module, len(r.modules))
	copy(snapshot, r.modules)
	return snapshot
}

var globalRegistry = NewRegistry()

// Register adds a module to the global registry. Modules call this from
// their init() so importing a module package is all it takes to enable it.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry replaces the global registry with an empty one.
// Tests use this to isolate themselves from init()-time registration.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
