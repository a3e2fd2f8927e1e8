package relax

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-relax/pkg/activity"
	"github.com/goliatone/go-relax/pkg/state"
)

// DefaultPersistenceDomain is used when WithPersistence is given no domain.
const DefaultPersistenceDomain = "relax"

// StoreFactory builds the provider's store. It receives the provider's
// options, name included, so the store shares its configuration.
type StoreFactory func(opts ...Option) *Store

// StoreOf returns a factory creating a store seeded with initial.
func StoreOf(initial map[string]any, extra ...Option) StoreFactory {
	return func(opts ...Option) *Store {
		return NewStore(initial, append(opts, extra...)...)
	}
}

// Provider owns one store for a subtree of units, keeps a local snapshot of
// it and invalidates its host on every store transition.
type Provider struct {
	id    string
	name  string
	cfg   config
	diag  *diagnostics
	store *Store
	host  Host

	ctx       context.Context
	persister state.Persister[map[string]any]
	ref       state.Ref

	mu         sync.Mutex
	phase      Phase
	snapshot   map[string]any
	meta       state.Meta
	subID      string
	registered bool
}

// NewProvider creates the store, restores a persisted snapshot when
// persistence is configured and subscribes the sync handler. ctx bounds the
// restore; later saves reuse its values without its cancellation.
func NewProvider(ctx context.Context, name string, factory StoreFactory, host Host, opts ...Option) (*Provider, error) {
	if factory == nil {
		return nil, fmt.Errorf("relax: provider %q: store factory is required", name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	layered := append([]Option{WithName(name)}, opts...)
	cfg := applyOptions(layered)

	store := factory(layered...)
	if store == nil {
		return nil, fmt.Errorf("relax: provider %q: store factory returned nil", name)
	}

	p := &Provider{
		id:    uuid.NewString(),
		name:  cfg.name,
		cfg:   cfg,
		store: store,
		host:  host,
		ctx:   context.WithoutCancel(ctx),
		phase: PhaseConstructed,
	}
	p.diag = newDiagnostics(cfg, cfg.name, p.id, store)

	if cfg.persistence != nil {
		if err := p.restore(ctx); err != nil {
			store.Destroy()
			return nil, err
		}
	}

	p.snapshot = store.State()
	p.subID = store.Subscribe(p.handleSync)
	return p, nil
}

func (p *Provider) restore(ctx context.Context) error {
	domain := p.cfg.persistence.domain
	if domain == "" {
		domain = DefaultPersistenceDomain
	}
	p.persister = state.Persister[map[string]any]{Store: p.cfg.persistence.store}
	p.ref = state.Ref{Domain: domain, Name: p.name}
	if _, err := p.ref.Identifier(); err != nil {
		return fmt.Errorf("relax: provider %q: %w", p.name, err)
	}

	snapshot, meta, err := p.persister.Restore(ctx, p.ref)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("relax: provider %q: restore: %w", p.name, err)
	}
	p.meta = meta
	if snapshot == nil {
		return nil
	}
	if err := p.store.Replace(snapshot); err != nil {
		return fmt.Errorf("relax: provider %q: restore: %w", p.name, err)
	}
	p.cfg.logger.Debug("restored snapshot", "provider", p.name, "etag", meta.ETag)
	return nil
}

// ID returns the instance id used in diagnostics.
func (p *Provider) ID() string { return p.id }

func (p *Provider) Name() string { return p.name }

// Store returns the provider's store.
func (p *Provider) Store() *Store { return p.store }

// Snapshot returns the last state the provider observed.
func (p *Provider) Snapshot() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Meta returns the persistence metadata of the last restore or save.
func (p *Provider) Meta() state.Meta {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta
}

func (p *Provider) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Bind creates a descendant binding on the provider's store.
func (p *Provider) Bind(unit Unit, host Host, input map[string]any, opts ...Option) *Binding {
	return NewBinding(unit, p.store, host, input, opts...)
}

func (p *Provider) transition(to Phase) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.phase.canTransition(to) {
		return &PhaseError{From: p.phase, To: to}
	}
	p.phase = to
	return nil
}

func (p *Provider) WillMount() error {
	return p.transition(PhaseMounting)
}

// DidMount registers the store under the provider name.
func (p *Provider) DidMount() error {
	if err := p.transition(PhaseMounted); err != nil {
		return err
	}
	p.cfg.registry.Register(p.name, p.store)
	p.mu.Lock()
	p.registered = true
	p.mu.Unlock()
	p.diag.emit(activity.BuildProviderEvent(activity.VerbProviderMount, p.diag.input(nil)))
	return nil
}

func (p *Provider) WillUpdate() error {
	return p.transition(PhaseUpdating)
}

func (p *Provider) DidUpdate() error {
	return p.transition(PhaseMounted)
}

// Unmount unsubscribes, destroys the store and unregisters it, in that
// order. Calling it again has no effect.
func (p *Provider) Unmount() {
	p.mu.Lock()
	if p.phase == PhaseUnmounted {
		p.mu.Unlock()
		return
	}
	p.phase = PhaseUnmounted
	subID := p.subID
	p.subID = ""
	registered := p.registered
	p.registered = false
	p.mu.Unlock()

	if subID != "" {
		p.store.Unsubscribe(subID)
	}
	p.store.Destroy()
	if registered {
		p.cfg.registry.Unregister(p.name, p.store)
	}
	p.diag.emit(activity.BuildProviderEvent(activity.VerbProviderUnmount, p.diag.input(nil)))
}

func (p *Provider) handleSync(next map[string]any) {
	p.mu.Lock()
	if p.phase == PhaseUnmounted {
		p.mu.Unlock()
		return
	}
	p.snapshot = next
	p.mu.Unlock()

	p.persist(next)
	p.diag.emit(activity.BuildProviderEvent(activity.VerbProviderSync, p.diag.input(nil)))
	if p.host == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.cfg.logger.Error("host invalidate panic", "provider", p.name, "panic", fmt.Sprint(r))
		}
	}()
	p.host.Invalidate()
}

func (p *Provider) persist(snapshot map[string]any) {
	if p.persister.Store == nil {
		return
	}
	p.mu.Lock()
	meta := state.Meta{ETag: p.meta.ETag}
	p.mu.Unlock()

	saved, err := p.persister.Save(p.ctx, p.ref, snapshot, meta)
	if err != nil {
		p.cfg.logger.Error("persist snapshot failed", "provider", p.name, "error", err)
		return
	}
	p.mu.Lock()
	p.meta = saved
	p.mu.Unlock()
}
