package relax

import (
	"context"
	"sync"

	"github.com/goliatone/go-relax/pkg/activity"
)

type diagnostics struct {
	emitter    *activity.Emitter
	logger     Logger
	component  string
	instanceID string
	store      string
}

func newDiagnostics(cfg config, component, instanceID string, store *Store) *diagnostics {
	d := &diagnostics{
		emitter:    cfg.emitter(),
		logger:     cfg.logger,
		component:  component,
		instanceID: instanceID,
	}
	if store != nil {
		d.store = store.Name()
	}
	return d
}

func (d *diagnostics) componentLabel() string {
	if d.component == "" {
		return "anonymous"
	}
	return d.component
}

func (d *diagnostics) input(props Props) activity.LifecycleInput {
	return activity.LifecycleInput{
		Component:  d.component,
		InstanceID: d.instanceID,
		Store:      d.store,
		Props:      props,
	}
}

func (d *diagnostics) enabled() bool {
	return d != nil && d.emitter.Enabled()
}

func (d *diagnostics) emit(event activity.Event) {
	if !d.enabled() {
		return
	}
	if err := d.emitter.Emit(context.Background(), event); err != nil {
		d.logger.Warn("activity hook failed", "verb", event.Verb, "component", d.componentLabel(), "error", err)
	}
}

// instanceCounter tracks live bindings per unit name for the watchdog.
type instanceCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

var liveInstances = &instanceCounter{counts: map[string]int{}}

func (c *instanceCounter) acquire(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
	return c.counts[name]
}

func (c *instanceCounter) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[name] <= 1 {
		delete(c.counts, name)
		return
	}
	c.counts[name]--
}

// LiveInstances returns the number of constructed, not yet unmounted
// bindings for a unit name.
func LiveInstances(name string) int {
	liveInstances.mu.Lock()
	defer liveInstances.mu.Unlock()
	return liveInstances.counts[name]
}
