package relax

import (
	"sort"
	"sync"
)

// StoreRegistry receives a provider's store while the provider is mounted,
// keyed by the provider name. It exists for inspection tooling.
type StoreRegistry interface {
	Register(name string, store *Store)
	Unregister(name string, store *Store)
}

// NoopRegistry discards registrations.
type NoopRegistry struct{}

func (NoopRegistry) Register(string, *Store)   {}
func (NoopRegistry) Unregister(string, *Store) {}

// MemoryRegistry keeps the most recent store registered under each name.
type MemoryRegistry struct {
	mu     sync.RWMutex
	stores map[string]*Store
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{stores: map[string]*Store{}}
}

func (r *MemoryRegistry) Register(name string, store *Store) {
	if store == nil {
		return
	}
	r.mu.Lock()
	r.stores[name] = store
	r.mu.Unlock()
}

// Unregister removes name only while it still points at store, so a newer
// provider with the same name keeps its entry.
func (r *MemoryRegistry) Unregister(name string, store *Store) {
	r.mu.Lock()
	if current, ok := r.stores[name]; ok && current == store {
		delete(r.stores, name)
	}
	r.mu.Unlock()
}

func (r *MemoryRegistry) Lookup(name string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[name]
	return store, ok
}

// Names returns the registered names in sorted order.
func (r *MemoryRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Describe lists the leaf paths of the named store's current state.
func (r *MemoryRegistry) Describe(name string) ([]FieldDescriptor, bool) {
	store, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return DescribeState(store.State()), true
}
