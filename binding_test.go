package relax

import (
	"errors"
	"testing"

	"github.com/goliatone/go-relax/pkg/activity"
)

func mountBinding(t *testing.T, b *Binding) {
	t.Helper()
	if err := b.WillMount(); err != nil {
		t.Fatalf("will mount: %v", err)
	}
	if err := b.DidMount(); err != nil {
		t.Fatalf("did mount: %v", err)
	}
}

func TestBindingLiteralOnlyNeverSubscribes(t *testing.T) {
	store := NewStore(nil)
	unit := Unit{
		Name: uniqueName(t),
		Deps: map[string]any{"onClick": func(...any) (any, error) { return nil, nil }},
	}
	b := NewBinding(unit, store, nil, nil)
	if b.Subscribed() || store.SubscriberCount() != 0 {
		t.Fatalf("literal-only binding must not subscribe")
	}
	mountBinding(t, b)
	if _, ok := b.Props()["onClick"].(Handler); !ok {
		t.Fatalf("expected literal handler in props")
	}
	b.Unmount()
}

func TestBindingRendersNamespacedProps(t *testing.T) {
	store := NewStore(map[string]any{"user": map[string]any{"name": "ada"}})
	unit := Unit{
		Name:     uniqueName(t),
		Deps:     []any{"user.name"},
		Defaults: map[string]any{"greeting": "hello", "title": "default"},
		Render: func(input map[string]any, relax Props) any {
			return input["greeting"].(string) + " " + relax["name"].(string) + " (" + input["title"].(string) + ")"
		},
	}
	b := NewBinding(unit, store, nil, map[string]any{"title": "home"})
	mountBinding(t, b)
	defer b.Unmount()

	if got := b.Render(); got != "hello ada (home)" {
		t.Fatalf("unexpected render %v", got)
	}
	if !b.Subscribed() || store.SubscriberCount() != 1 {
		t.Fatalf("state-reading binding must subscribe once")
	}
}

func TestBindingInvalidatesWhenOpen(t *testing.T) {
	store := NewStore(map[string]any{"count": 0})
	host := &countingHost{}
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"count"}}, store, host, nil)
	mountBinding(t, b)
	defer b.Unmount()

	_ = store.Set("count", 1)
	if host.Calls() != 1 {
		t.Fatalf("expected one invalidation, got %d", host.Calls())
	}
	changed, err := b.Refresh(nil)
	if err != nil || !changed {
		t.Fatalf("refresh = %v, %v", changed, err)
	}
	if b.Props()["count"] != 1 {
		t.Fatalf("expected refreshed props, got %v", b.Props())
	}
	changed, err = b.Refresh(nil)
	if err != nil || changed {
		t.Fatalf("second refresh should be gated, got %v, %v", changed, err)
	}
}

func TestBindingDefersNotificationsWhileClosed(t *testing.T) {
	store := NewStore(map[string]any{"count": 0})
	host := &countingHost{}
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"count"}}, store, host, nil)
	defer b.Unmount()

	if err := b.WillMount(); err != nil {
		t.Fatalf("will mount: %v", err)
	}
	_ = store.Set("count", 1)
	if host.Calls() != 0 {
		t.Fatalf("no invalidation before DidMount")
	}
	if err := b.DidMount(); err != nil {
		t.Fatalf("did mount: %v", err)
	}
	if host.Calls() != 1 {
		t.Fatalf("deferred notification should fire on DidMount, got %d", host.Calls())
	}

	if !b.ShouldUpdate(nil) {
		t.Fatalf("expected update after the change")
	}
	if err := b.WillUpdate(); err != nil {
		t.Fatalf("will update: %v", err)
	}
	_ = store.Set("count", 2)
	_ = store.Set("count", 3)
	if host.Calls() != 1 {
		t.Fatalf("no invalidation while updating, got %d", host.Calls())
	}
	if err := b.DidUpdate(); err != nil {
		t.Fatalf("did update: %v", err)
	}
	if host.Calls() != 2 {
		t.Fatalf("deferred notifications collapse into one, got %d", host.Calls())
	}
}

func TestBindingShouldUpdateOnInputChange(t *testing.T) {
	store := NewStore(map[string]any{"count": 0})
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"count"}}, store, nil, map[string]any{"title": "a"})
	mountBinding(t, b)
	defer b.Unmount()

	if b.ShouldUpdate(map[string]any{"title": "a"}) {
		t.Fatalf("equal input and props should not update")
	}
	if !b.ShouldUpdate(map[string]any{"title": "b"}) {
		t.Fatalf("changed input should update")
	}
	if b.Input()["title"] != "b" {
		t.Fatalf("expected next input recorded, got %v", b.Input())
	}
}

func TestBindingPhaseErrors(t *testing.T) {
	store := NewStore(map[string]any{"n": 0})
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"n"}}, store, nil, nil)

	err := b.DidMount()
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) || !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
	if phaseErr.From != PhaseConstructed || phaseErr.To != PhaseMounted {
		t.Fatalf("unexpected transition %s -> %s", phaseErr.From, phaseErr.To)
	}
	if _, err := b.Refresh(nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("refresh before mount should fail, got %v", err)
	}
	if b.ShouldUpdate(nil) {
		t.Fatalf("ShouldUpdate outside mounted phase is false")
	}

	mountBinding(t, b)
	if err := b.WillMount(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("second WillMount should fail, got %v", err)
	}
	b.Unmount()
	if err := b.DidUpdate(); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("unmounted is terminal, got %v", err)
	}
}

func TestBindingUnmountIsIdempotent(t *testing.T) {
	store := NewStore(map[string]any{"n": 0})
	host := &countingHost{}
	name := uniqueName(t)
	b := NewBinding(Unit{Name: name, Deps: []any{"n"}}, store, host, nil)
	mountBinding(t, b)

	if LiveInstances(name) != 1 {
		t.Fatalf("expected one live instance, got %d", LiveInstances(name))
	}
	b.Unmount()
	b.Unmount()
	if store.SubscriberCount() != 0 {
		t.Fatalf("expected subscription cancelled")
	}
	if LiveInstances(name) != 0 {
		t.Fatalf("expected instance released, got %d", LiveInstances(name))
	}
	_ = store.Set("n", 1)
	if host.Calls() != 0 {
		t.Fatalf("unmounted binding must not invalidate")
	}
	if b.Phase() != PhaseUnmounted {
		t.Fatalf("expected unmounted, got %s", b.Phase())
	}
}

func TestBindingUnmountsFromInvalidate(t *testing.T) {
	store := NewStore(map[string]any{"n": 0})
	invalidations := 0
	var b *Binding
	host := HostFunc(func() {
		invalidations++
		b.Unmount()
	})
	b = NewBinding(Unit{Name: uniqueName(t), Deps: []any{"n"}}, store, host, nil)
	mountBinding(t, b)

	later := 0
	store.Subscribe(func(map[string]any) { later++ })

	_ = store.Set("n", 1)
	_ = store.Set("n", 2)
	if invalidations != 1 {
		t.Fatalf("expected one invalidation, got %d", invalidations)
	}
	if b.Phase() != PhaseUnmounted || b.Subscribed() {
		t.Fatalf("expected unmounted and unsubscribed, got %s subscribed=%v", b.Phase(), b.Subscribed())
	}
	if store.SubscriberCount() != 1 || later != 2 {
		t.Fatalf("remaining subscriber should see both transitions, got count=%d calls=%d", store.SubscriberCount(), later)
	}
}

func TestBindingWatchdog(t *testing.T) {
	hook := &activity.CaptureHook{}
	logger := &captureLogger{}
	store := NewStore(nil, WithDebug(true), WithActivityHooks(activity.Hooks{hook}), WithLogger(logger))
	name := uniqueName(t)

	var bindings []*Binding
	for i := 0; i < 3; i++ {
		bindings = append(bindings, NewBinding(Unit{Name: name}, store, nil, nil, WithInstanceLimit(2)))
	}
	defer func() {
		for _, b := range bindings {
			b.Unmount()
		}
	}()

	events := hook.Snapshot()
	if len(events) != 1 || events[0].Verb != activity.VerbTooManyInstances {
		t.Fatalf("expected one watchdog event, got %v", hook.Verbs())
	}
	if events[0].Metadata["count"] != 3 || events[0].Metadata["limit"] != 2 {
		t.Fatalf("unexpected watchdog metadata %v", events[0].Metadata)
	}
	if events[0].Component != name {
		t.Fatalf("expected component %q, got %q", name, events[0].Component)
	}
	if !logger.has("warn", "too many instances") {
		t.Fatalf("expected watchdog warning")
	}
}

func TestBindingLifecycleEvents(t *testing.T) {
	hook := &activity.CaptureHook{}
	store := NewStore(map[string]any{"count": 0}, WithDebug(true), WithActivityHooks(activity.Hooks{hook}))
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"count"}}, store, nil, map[string]any{"title": "x"})
	mountBinding(t, b)
	defer b.Unmount()

	_ = store.Set("count", 1)
	if !b.ShouldUpdate(map[string]any{"title": "x"}) {
		t.Fatalf("expected update")
	}

	events := hook.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected will_mount and will_update, got %v", hook.Verbs())
	}
	mount, update := events[0], events[1]
	if mount.Verb != activity.VerbWillMount || update.Verb != activity.VerbWillUpdate {
		t.Fatalf("unexpected verbs %v", hook.Verbs())
	}
	if mount.InstanceID != b.ID() || mount.Store != "store" {
		t.Fatalf("unexpected identifiers %+v", mount)
	}
	if props, _ := mount.Metadata["relax"].(map[string]any); props["count"] != 0 {
		t.Fatalf("expected mounted props in metadata, got %v", mount.Metadata)
	}
	if input, _ := mount.Metadata["props"].(map[string]any); input["title"] != "x" {
		t.Fatalf("expected input props in metadata, got %v", mount.Metadata)
	}
	if props, _ := update.Metadata["relax"].(map[string]any); props["count"] != 1 {
		t.Fatalf("expected updated props in metadata, got %v", update.Metadata)
	}
}

func TestBindingWithoutStore(t *testing.T) {
	b := NewBinding(Unit{Name: uniqueName(t), Deps: []any{"todos"}}, nil, nil, nil)
	mountBinding(t, b)
	defer b.Unmount()
	if b.Subscribed() {
		t.Fatalf("no store, no subscription")
	}
	if len(b.Props()) != 0 {
		t.Fatalf("expected no state props without a store, got %v", b.Props())
	}
}

func TestDecodeProps(t *testing.T) {
	type todoProps struct {
		Name  string   `json:"name"`
		Todos []string `json:"todos"`
	}
	store := NewStore(map[string]any{
		"user":  map[string]any{"name": "ada"},
		"todos": []any{"a", "b"},
	}, WithAction("save", func(*Store, ...any) (any, error) { return nil, nil }))
	unit := Unit{
		Name: uniqueName(t),
		Deps: []any{"user.name", "todos", "viewAction", map[string]any{"save": func(...any) (any, error) { return nil, nil }}},
	}
	b := NewBinding(unit, store, nil, nil)
	mountBinding(t, b)
	defer b.Unmount()

	decoded, err := DecodeProps[todoProps](b, DecodeStrict())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Name != "ada" || len(decoded.Todos) != 2 {
		t.Fatalf("unexpected decoded props %+v", decoded)
	}
}
