package relax

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Action is a store operation reachable through Dispatch.
type Action func(s *Store, args ...any) (any, error)

// Handler is a literal callable declared as a dependency.
type Handler func(args ...any) (any, error)

// Call invokes h. A nil handler returns nil, nil.
func (h Handler) Call(args ...any) (any, error) {
	if h == nil {
		return nil, nil
	}
	return h(args...)
}

// Equal reports whether both handlers are the same func value.
func (h Handler) Equal(other Handler) bool {
	if h == nil || other == nil {
		return h == nil && other == nil
	}
	return reflect.ValueOf(h).Pointer() == reflect.ValueOf(other).Pointer()
}

// Callable is implemented by Handler and BoundAction.
type Callable interface {
	Call(args ...any) (any, error)
}

func actionKey(name string) string {
	return strings.TrimSpace(name)
}

// ActionRegistry stores actions keyed by name, in registration order.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]Action
	order   []string
}

// NewActionRegistry constructs an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: map[string]Action{}}
}

// Register stores action under name guarding against duplicates.
func (r *ActionRegistry) Register(name string, action Action) error {
	key := actionKey(name)
	if key == "" {
		return fmt.Errorf("relax: action name must not be empty")
	}
	if action == nil {
		return fmt.Errorf("relax: action %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = map[string]Action{}
	}
	if _, exists := r.actions[key]; exists {
		return fmt.Errorf("relax: action %q already registered", key)
	}
	r.actions[key] = action
	r.order = append(r.order, key)
	return nil
}

// Lookup returns the action registered under name.
func (r *ActionRegistry) Lookup(name string) (Action, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[actionKey(name)]
	return action, ok
}

// Names returns action names in registration order.
func (r *ActionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered actions.
func (r *ActionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// BoundAction is one store action ready to be called from a view unit. Two
// bound actions are equal when they name the same action on the same store,
// so re-resolving never looks like a change.
type BoundAction struct {
	store *Store
	name  string
}

func (a BoundAction) Name() string { return a.name }

// Call dispatches the action on its store.
func (a BoundAction) Call(args ...any) (any, error) {
	if a.store == nil {
		return nil, &ActionError{Name: a.name, Err: ErrActionNotFound}
	}
	return a.store.Dispatch(a.name, args...)
}

func (a BoundAction) Equal(other BoundAction) bool {
	return a.store == other.store && a.name == other.name
}

// ViewAction is the whole dispatch surface of a store.
type ViewAction struct {
	store *Store
}

// Dispatch runs the named action.
func (v ViewAction) Dispatch(name string, args ...any) (any, error) {
	if v.store == nil {
		return nil, &ActionError{Name: name, Err: ErrActionNotFound}
	}
	return v.store.Dispatch(name, args...)
}

// Action returns the named action bound to the store.
func (v ViewAction) Action(name string) (BoundAction, bool) {
	if v.store == nil {
		return BoundAction{}, false
	}
	return v.store.Action(name)
}

// Names lists the available actions.
func (v ViewAction) Names() []string {
	if v.store == nil {
		return nil
	}
	return v.store.actions.Names()
}

func (v ViewAction) Equal(other ViewAction) bool {
	return v.store == other.store
}
