package relax

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-relax/pkg/activity"
	"github.com/goliatone/go-relax/tree"
)

// Unit declares a view unit: its dependency declaration, default input props
// and the render function receiving input and derived props.
type Unit struct {
	Name     string
	Deps     any
	Defaults map[string]any
	Render   func(input map[string]any, relax Props) any
}

// Host is the view runtime driving a binding. Invalidate schedules a new
// update cycle.
type Host interface {
	Invalidate()
}

// HostFunc adapts a function to Host.
type HostFunc func()

func (f HostFunc) Invalidate() {
	if f != nil {
		f()
	}
}

// Binding connects one unit instance to a store across its lifecycle.
type Binding struct {
	id      string
	unit    Unit
	store   *Store
	host    Host
	cfg     config
	diag    *diagnostics
	mapping Mapping

	mu       sync.Mutex
	phase    Phase
	input    map[string]any
	props    Props
	trace    Trace
	deferred bool
	subID    string
	counted  bool
}

// NewBinding normalises the unit's dependencies and subscribes to store when
// at least one dependency reads state. Options apply over the store's
// configuration; the unit name is used when no WithName is given.
func NewBinding(unit Unit, store *Store, host Host, input map[string]any, opts ...Option) *Binding {
	layered := append([]Option{WithName(unit.Name)}, opts...)
	var cfg config
	if store != nil {
		cfg = store.cfg.with(layered)
	} else {
		cfg = applyOptions(layered)
	}

	b := &Binding{
		id:      uuid.NewString(),
		unit:    unit,
		store:   store,
		host:    host,
		cfg:     cfg,
		mapping: Normalize(unit.Deps),
		phase:   PhaseConstructed,
		input:   withDefaults(input, unit.Defaults),
	}
	b.diag = newDiagnostics(cfg, cfg.name, b.id, store)
	b.watch()

	if store != nil && b.mapping.NeedsStore() {
		b.subID = store.Subscribe(b.handleStoreChange)
	}
	return b
}

func withDefaults(input, defaults map[string]any) map[string]any {
	merged := tree.MergeLayers(input, defaults)
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

func (b *Binding) watch() {
	name := b.diag.componentLabel()
	count := liveInstances.acquire(name)
	b.counted = true
	limit := b.cfg.instanceLimit
	if limit <= 0 || count <= limit {
		return
	}
	b.cfg.logger.Warn("too many instances", "component", name, "count", count, "limit", limit)
	b.diag.emit(activity.BuildTooManyInstancesEvent(b.diag.input(nil), count, limit))
}

// ID returns the instance id used in diagnostics.
func (b *Binding) ID() string { return b.id }

// Name returns the component name.
func (b *Binding) Name() string { return b.diag.componentLabel() }

// Mapping returns the normalised dependency declaration.
func (b *Binding) Mapping() Mapping { return b.mapping }

// Subscribed reports whether the binding holds a store subscription.
func (b *Binding) Subscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subID != ""
}

func (b *Binding) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Props returns the current derived props.
func (b *Binding) Props() Props {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.props
}

// Input returns the current input props with defaults applied.
func (b *Binding) Input() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.input
}

// Trace returns how the last derived props were resolved.
func (b *Binding) Trace() Trace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trace
}

func (b *Binding) transition(to Phase) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transitionLocked(to)
}

func (b *Binding) transitionLocked(to Phase) error {
	if !b.phase.canTransition(to) {
		return &PhaseError{From: b.phase, To: to}
	}
	b.phase = to
	return nil
}

func (b *Binding) compute() (Props, Trace) {
	return resolver{cfg: b.cfg, diag: b.diag}.resolve(b.mapping, b.store)
}

// WillMount resolves the first derived props snapshot.
func (b *Binding) WillMount() error {
	if err := b.transition(PhaseMounting); err != nil {
		return err
	}
	props, trace := b.compute()
	b.mu.Lock()
	b.props = props
	b.trace = trace
	input := b.input
	b.mu.Unlock()

	b.cfg.logger.Debug("will mount", "component", b.Name(), "instance", b.id, "props", len(props))
	event := b.diag.input(props)
	event.Input = input
	b.diag.emit(activity.BuildWillMountEvent(event))
	return nil
}

// DidMount opens the binding to store notifications.
func (b *Binding) DidMount() error {
	return b.open(PhaseMounted)
}

// WillUpdate closes the binding while the host renders.
func (b *Binding) WillUpdate() error {
	return b.transition(PhaseUpdating)
}

// DidUpdate reopens the binding after a render.
func (b *Binding) DidUpdate() error {
	return b.open(PhaseMounted)
}

func (b *Binding) open(to Phase) error {
	b.mu.Lock()
	if err := b.transitionLocked(to); err != nil {
		b.mu.Unlock()
		return err
	}
	deferred := b.deferred
	b.deferred = false
	b.mu.Unlock()
	if deferred {
		b.invalidate()
	}
	return nil
}

// ShouldUpdate takes the next input props, recomputes the derived props and
// reports whether the unit must re-render. Outside the mounted phase it
// returns false.
func (b *Binding) ShouldUpdate(nextInput map[string]any) bool {
	next := withDefaults(nextInput, b.unit.Defaults)

	b.mu.Lock()
	if b.phase != PhaseMounted {
		b.mu.Unlock()
		return false
	}
	prevInput := b.input
	prevProps := b.props
	b.mu.Unlock()

	props, trace := b.compute()
	changed := ShouldUpdate(prevInput, next, prevProps, props)

	b.mu.Lock()
	b.input = next
	if changed {
		b.props = props
		b.trace = trace
	}
	b.mu.Unlock()

	if changed {
		b.cfg.logger.Debug("will update", "component", b.Name(), "instance", b.id, "props", len(props))
		event := b.diag.input(props)
		event.Input = next
		event.Metadata = map[string]any{"previous": map[string]any(prevProps)}
		b.diag.emit(activity.BuildWillUpdateEvent(event))
	}
	return changed
}

// Refresh runs a full update cycle without a host render: ShouldUpdate,
// then WillUpdate and DidUpdate when an update is due.
func (b *Binding) Refresh(nextInput map[string]any) (bool, error) {
	if phase := b.Phase(); phase != PhaseMounted {
		return false, &PhaseError{From: phase, To: PhaseUpdating}
	}
	if !b.ShouldUpdate(nextInput) {
		return false, nil
	}
	if err := b.WillUpdate(); err != nil {
		return true, err
	}
	return true, b.DidUpdate()
}

// Render calls the unit's render function with the input props and the
// derived props.
func (b *Binding) Render() any {
	if b.unit.Render == nil {
		return nil
	}
	b.mu.Lock()
	input, props := b.input, b.props
	b.mu.Unlock()
	return b.unit.Render(input, props)
}

// Unmount cancels the store subscription and releases the instance count.
// Calling it again has no effect.
func (b *Binding) Unmount() {
	b.mu.Lock()
	if b.phase == PhaseUnmounted {
		b.mu.Unlock()
		return
	}
	b.phase = PhaseUnmounted
	b.deferred = false
	subID := b.subID
	b.subID = ""
	counted := b.counted
	b.counted = false
	b.mu.Unlock()

	if subID != "" && b.store != nil {
		b.store.Unsubscribe(subID)
	}
	if counted {
		liveInstances.release(b.diag.componentLabel())
	}
	b.cfg.logger.Debug("unmounted", "component", b.Name(), "instance", b.id)
}

func (b *Binding) handleStoreChange(map[string]any) {
	b.mu.Lock()
	switch {
	case b.phase == PhaseUnmounted:
		b.mu.Unlock()
		return
	case b.phase.Open():
		b.mu.Unlock()
		b.invalidate()
	default:
		b.deferred = true
		b.mu.Unlock()
	}
}

func (b *Binding) invalidate() {
	if b.host == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.cfg.logger.Error("host invalidate panic", "component", b.Name(), "instance", b.id, "panic", fmt.Sprint(r))
		}
	}()
	b.host.Invalidate()
}
