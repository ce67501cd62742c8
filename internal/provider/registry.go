package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Entry pairs a descriptor with its implementation. The pairing is fixed for
// the process lifetime; only the descriptor's Enabled flag changes.
type Entry struct {
	Descriptor *Descriptor
	Impl       Provider
}

// Registry holds all configured providers. It is owned by one engine
// instance and injected where needed, so independently configured engines
// can coexist in tests.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register adds a provider with its descriptor. Registering the same name
// twice is a configuration error.
func (r *Registry) Register(desc *Descriptor, impl Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("provider already registered: %s", desc.Name)
	}

	r.entries[desc.Name] = &Entry{Descriptor: desc, Impl: impl}
	r.order = append(r.order, desc.Name)
	return nil
}

// Get returns the entry for a provider name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// All returns every registered entry in registration order.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Enabled returns the enabled entries sorted by ascending priority. Ties are
// left in registration order; the router breaks them by quality score.
func (r *Registry) Enabled() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; e.Descriptor.Enabled {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Descriptor.Priority < out[j].Descriptor.Priority
	})
	return out
}

// SetEnabled toggles a provider's enabled flag.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("provider not found: %s", name)
	}
	e.Descriptor.Enabled = enabled
	return nil
}

// Names returns all registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
