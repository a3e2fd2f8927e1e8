package relax

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from query expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates. Names are case
// insensitive.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	return r.store(name, fn, false)
}

// Replace stores fn under name, overwriting any earlier registration.
func (r *FunctionRegistry) Replace(name string, fn Function) error {
	return r.store(name, fn, true)
}

func (r *FunctionRegistry) store(name string, fn Function, overwrite bool) error {
	key := functionKey(name)
	if fn == nil {
		return fmt.Errorf("relax: function %q is nil", name)
	}
	if key == "" {
		return fmt.Errorf("relax: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists && !overwrite {
		return fmt.Errorf("relax: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

func functionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("relax: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[functionKey(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("relax: function %q not registered", name)
	}
	return fn(args...)
}

// Len reports how many functions are registered.
func (r *FunctionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes registry functions to every query expression.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction exposes fn to query expressions as call(name, args...).
// A later option with the same name wins.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Replace(name, fn); err != nil {
			cfg.logger.Warn("custom function ignored", "function", name, "error", err)
		}
	}
}
