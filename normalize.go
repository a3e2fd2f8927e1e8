package relax

import (
	"fmt"
	"sort"
)

// Mapping is an ordered set of prop name to Source.
type Mapping struct {
	order   []string
	entries map[string]Source
}

// Len returns the number of entries.
func (m Mapping) Len() int { return len(m.order) }

// Names returns the prop names in declaration order.
func (m Mapping) Names() []string {
	return append([]string(nil), m.order...)
}

// Get returns the source declared for name.
func (m Mapping) Get(name string) (Source, bool) {
	src, ok := m.entries[name]
	return src, ok
}

// NeedsStore reports whether any source reads the store snapshot. A mapping
// of literals and actions only never needs a subscription.
func (m Mapping) NeedsStore() bool {
	for _, name := range m.order {
		if m.entries[name].Kind.readsState() {
			return true
		}
	}
	return false
}

// set overwrites name in place, or appends it.
func (m *Mapping) set(name string, src Source) {
	if m.entries == nil {
		m.entries = map[string]Source{}
	}
	if _, exists := m.entries[name]; !exists {
		m.order = append(m.order, name)
	}
	m.entries[name] = src
}

func (m *Mapping) merge(other Mapping) {
	for _, name := range other.order {
		m.set(name, other.entries[name])
	}
}

// Normalize turns a dependency specification into a Mapping.
//
// A map names every entry by its key; keys are applied in sorted order since
// Go maps carry no order. A sequence names strings by themselves (dotted
// strings by their last segment), paths by their last segment and
// descriptors by their own name; nested maps are merged in, later entries
// overwriting earlier ones. Entries that cannot be classified are kept as
// SourceUnsupported under a positional name such as "[2]".
func Normalize(spec any) Mapping {
	var m Mapping
	switch typed := spec.(type) {
	case nil:
	case Mapping:
		m.merge(typed)
	case *Mapping:
		if typed != nil {
			m.merge(*typed)
		}
	case map[string]any:
		for _, key := range sortedKeys(typed) {
			m.set(key, SourceOf(typed[key]))
		}
	case map[string]Source:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			m.set(key, typed[key])
		}
	case map[string]string:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			m.set(key, SourceOf(typed[key]))
		}
	case []any:
		for i, entry := range typed {
			normalizeEntry(&m, i, entry)
		}
	case []string:
		for i, entry := range typed {
			normalizeEntry(&m, i, entry)
		}
	default:
		normalizeEntry(&m, 0, spec)
	}
	return m
}

func normalizeEntry(m *Mapping, index int, entry any) {
	switch typed := entry.(type) {
	case map[string]any, map[string]Source, map[string]string, Mapping, *Mapping:
		m.merge(Normalize(typed))
		return
	}
	src := SourceOf(entry)
	name := src.defaultName()
	if src.Kind == SourceUnsupported || name == "" {
		m.set(fmt.Sprintf("[%d]", index), Source{Kind: SourceUnsupported, Raw: entry})
		return
	}
	m.set(name, src)
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
