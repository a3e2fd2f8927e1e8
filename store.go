package relax

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-relax/tree"
)

// Listener receives every published snapshot. Snapshots are read-only.
type Listener func(state map[string]any)

type subscription struct {
	id       string
	listener Listener
	active   atomic.Bool
}

type transition struct {
	op    string
	state map[string]any
}

type queryLangEntry struct {
	deps    []any
	value   any
	reached bool
}

type exprEntry struct {
	value any
}

// Store holds one immutable state tree and notifies subscribers of every
// transition, synchronously and in order. The mutex is never held while
// listeners run, so listeners may subscribe, unsubscribe, query and mutate.
type Store struct {
	id        string
	cfg       config
	evaluator Evaluator
	actions   *ActionRegistry

	mu         sync.Mutex
	state      map[string]any
	subs       []*subscription
	pending    []transition
	publishing bool
	destroyed  bool

	queryLang map[string]queryLangEntry
	exprs     map[*ExprQuery]exprEntry
}

// NewStore creates a store seeded with a frozen copy of initial.
func NewStore(initial map[string]any, opts ...Option) *Store {
	cfg := applyOptions(opts)
	s := &Store{
		id:        uuid.NewString(),
		cfg:       cfg,
		actions:   NewActionRegistry(),
		state:     tree.FreezeMap(initial),
		queryLang: map[string]queryLangEntry{},
		exprs:     map[*ExprQuery]exprEntry{},
	}
	evaluator, err := cfg.buildEvaluator()
	if err != nil {
		cfg.logger.Error("evaluator unavailable, falling back to expr", "store", s.Name(), "error", err)
		evaluator = defaultEvaluator()
	}
	s.evaluator = evaluator
	for _, name := range cfg.actionOrder {
		_ = s.actions.Register(name, cfg.actions[name])
	}
	return s
}

// Name returns the configured name, or "store".
func (s *Store) Name() string {
	if s.cfg.name != "" {
		return s.cfg.name
	}
	return "store"
}

// ID returns the uuid assigned at construction.
func (s *Store) ID() string { return s.id }

// State returns the current snapshot. Callers must not modify it.
func (s *Store) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Evaluator returns the evaluator used for expression queries.
func (s *Store) Evaluator() Evaluator { return s.evaluator }

// Subscribe registers listener and returns its subscription id. After
// Destroy the id is still returned but never notified.
func (s *Store) Subscribe(listener Listener) string {
	sub := &subscription{id: uuid.NewString(), listener: listener}
	s.mu.Lock()
	if s.destroyed || listener == nil {
		s.mu.Unlock()
		return sub.id
	}
	sub.active.Store(true)
	s.subs = append(s.subs, sub)
	count := len(s.subs)
	s.mu.Unlock()
	s.cfg.metrics.Subscribers(s.Name(), count)
	return sub.id
}

// Unsubscribe removes the subscription. The listener is not called again,
// even later in a round already in progress. Unknown ids return false.
func (s *Store) Unsubscribe(id string) bool {
	s.mu.Lock()
	for i, sub := range s.subs {
		if sub.id != id {
			continue
		}
		sub.active.Store(false)
		s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
		count := len(s.subs)
		s.mu.Unlock()
		s.cfg.metrics.Subscribers(s.Name(), count)
		return true
	}
	s.mu.Unlock()
	return false
}

// SubscriberCount returns the number of active subscriptions.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Destroyed reports whether Destroy has run.
func (s *Store) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Destroy deactivates every subscriber and drops queued transitions and
// cached queries. It is idempotent.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	for _, sub := range s.subs {
		sub.active.Store(false)
	}
	s.subs = nil
	s.pending = nil
	s.queryLang = map[string]queryLangEntry{}
	s.exprs = map[*ExprQuery]exprEntry{}
	s.mu.Unlock()
	s.cfg.metrics.Subscribers(s.Name(), 0)
	s.cfg.logger.Debug("store destroyed", "store", s.Name())
}

// commit computes the next root from the current one and publishes it. fn
// runs without the lock; if another transition lands meanwhile it is retried
// against the newer root.
func (s *Store) commit(op string, fn func(current map[string]any) (map[string]any, bool, error)) error {
	for {
		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrStoreDestroyed, op)
		}
		current := s.state
		s.mu.Unlock()

		next, changed, err := fn(current)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrStoreDestroyed, op)
		}
		if !tree.Same(s.state, current) {
			s.mu.Unlock()
			continue
		}
		s.state = next
		s.exprs = map[*ExprQuery]exprEntry{}
		s.sweepQueryLangLocked()
		s.pending = append(s.pending, transition{op: op, state: next})
		if s.publishing {
			s.mu.Unlock()
			return nil
		}
		s.publishing = true
		s.mu.Unlock()
		s.drain()
		return nil
	}
}

// sweepQueryLangLocked drops QueryLang entries that were not queried since
// the previous commit. Callers hold s.mu.
func (s *Store) sweepQueryLangLocked() {
	for id, entry := range s.queryLang {
		if !entry.reached {
			delete(s.queryLang, id)
			continue
		}
		entry.reached = false
		s.queryLang[id] = entry
	}
}

// drain delivers queued transitions one round at a time. A transition raised
// by a listener is queued behind the current round.
func (s *Store) drain() {
	for {
		s.mu.Lock()
		if s.destroyed || len(s.pending) == 0 {
			s.pending = nil
			s.publishing = false
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]*subscription(nil), s.subs...)
		s.mu.Unlock()

		s.cfg.metrics.StoreTransition(s.Name(), next.op)
		for _, sub := range subs {
			if !sub.active.Load() {
				continue
			}
			s.notify(sub, next.state)
		}
	}
}

func (s *Store) notify(sub *subscription, state map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.logger.Error("listener panic", "store", s.Name(), "subscription", sub.id, "panic", r)
		}
	}()
	s.cfg.metrics.Notification(s.Name())
	sub.listener(state)
}

// Set stores value at path. Path is a key, a dotted path, []string or
// tree.Path.
func (s *Store) Set(path any, value any) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	frozen := tree.Freeze(value)
	return s.commit("set", func(current map[string]any) (map[string]any, bool, error) {
		next, changed := tree.SetIn(current, p, frozen)
		return next, changed, nil
	})
}

// Update replaces the value at path with fn(current).
func (s *Store) Update(path any, fn func(current any) any) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("relax: update %q: nil function", p)
	}
	return s.commit("update", func(current map[string]any) (map[string]any, bool, error) {
		value, _ := tree.Get(current, p)
		next, changed := tree.SetIn(current, p, tree.Freeze(fn(value)))
		return next, changed, nil
	})
}

// Delete removes the node at path.
func (s *Store) Delete(path any) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	return s.commit("delete", func(current map[string]any) (map[string]any, bool, error) {
		next, changed := tree.DeleteIn(current, p)
		return next, changed, nil
	})
}

// Merge deep-merges patch into the state.
func (s *Store) Merge(patch map[string]any) error {
	frozen := tree.FreezeMap(patch)
	return s.commit("merge", func(current map[string]any) (map[string]any, bool, error) {
		next, changed := tree.Merge(current, frozen)
		return next, changed, nil
	})
}

// Replace swaps the whole state for a frozen copy of next.
func (s *Store) Replace(next map[string]any) error {
	frozen := tree.FreezeMap(next)
	return s.commit("replace", func(map[string]any) (map[string]any, bool, error) {
		return frozen, true, nil
	})
}

// Batch applies several mutations as one transition. Returning an error from
// fn discards them.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	if fn == nil {
		return nil
	}
	return s.commit("batch", func(current map[string]any) (map[string]any, bool, error) {
		tx := &Tx{state: current}
		if err := fn(tx); err != nil {
			return nil, false, err
		}
		return tx.state, !tree.Same(tx.state, current), nil
	})
}

// Tx accumulates mutations inside Batch.
type Tx struct {
	state map[string]any
}

// State returns the working snapshot.
func (tx *Tx) State() map[string]any { return tx.state }

// Get reads path from the working snapshot.
func (tx *Tx) Get(path any) (any, bool) {
	p, err := toPath(path)
	if err != nil {
		return nil, false
	}
	return tree.Get(tx.state, p)
}

func (tx *Tx) Set(path any, value any) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	tx.state, _ = tree.SetIn(tx.state, p, tree.Freeze(value))
	return nil
}

func (tx *Tx) Delete(path any) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	tx.state, _ = tree.DeleteIn(tx.state, p)
	return nil
}

func (tx *Tx) Merge(patch map[string]any) {
	tx.state, _ = tree.Merge(tx.state, tree.FreezeMap(patch))
}

func toPath(path any) (tree.Path, error) {
	var p tree.Path
	switch typed := path.(type) {
	case string:
		p = tree.ParsePath(typed)
	case []string:
		p = tree.Path(typed).Clone()
	case tree.Path:
		p = typed.Clone()
	default:
		return nil, fmt.Errorf("relax: path must be a string, []string or tree.Path, got %T", path)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("relax: path must not be empty")
	}
	return p, nil
}

// Query answers a key, dotted path, []string, tree.Path, Source or
// Descriptor against the current state. QueryLang results are reused while
// their dependency values are structurally equal; expression results are
// reused while the state root is unchanged. A QueryLang entry not queried
// between two commits is evicted.
func (s *Store) Query(q any) (any, error) {
	return s.query(q, true)
}

// query runs q, bypassing the result caches when cache is false. Descriptors
// built per call by a partial are run that way.
func (s *Store) query(q any, cache bool) (any, error) {
	src := SourceOf(q)
	switch src.Kind {
	case SourceKey, SourcePath, SourceQuery:
		return s.querySource(src, s.State(), cache)
	case SourcePartial:
		return src.Partial.Bind(s), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuery, q)
	}
}

func (s *Store) querySource(src Source, state map[string]any, cache bool) (any, error) {
	switch src.Kind {
	case SourceKey, SourcePath:
		value, _ := tree.Get(state, src.Path)
		return value, nil
	case SourceQuery:
		return s.queryDescriptor(src.Query, state, cache)
	default:
		return nil, fmt.Errorf("%w: %s source", ErrUnsupportedQuery, src.Kind)
	}
}

func (s *Store) queryDescriptor(d Descriptor, state map[string]any, cache bool) (any, error) {
	switch typed := d.(type) {
	case *QueryLang:
		values, err := typed.values(func(dep Source) (any, error) {
			return s.querySource(dep, state, cache)
		})
		if err != nil {
			return nil, err
		}
		if !cache {
			return typed.apply(values), nil
		}
		s.mu.Lock()
		cached, ok := s.queryLang[typed.id]
		s.mu.Unlock()
		if ok && tree.Equal(cached.deps, values) {
			s.mu.Lock()
			if entry, still := s.queryLang[typed.id]; still {
				entry.reached = true
				s.queryLang[typed.id] = entry
			}
			s.mu.Unlock()
			return cached.value, nil
		}
		value := typed.apply(values)
		s.mu.Lock()
		if !s.destroyed {
			s.queryLang[typed.id] = queryLangEntry{deps: values, value: value, reached: true}
		}
		s.mu.Unlock()
		return value, nil
	case *ExprQuery:
		if cache {
			s.mu.Lock()
			cached, ok := s.exprs[typed]
			current := tree.Same(s.state, state)
			s.mu.Unlock()
			if ok && current {
				return cached.value, nil
			}
		}
		start := time.Now()
		value, err := typed.evaluateWith(s.evaluator, state)
		s.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
			Engine:   evaluatorEngineName(typed.evaluatorFor(s.evaluator)),
			Expr:     typed.expression,
			Query:    typed.name,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil || !cache {
			return value, err
		}
		s.mu.Lock()
		if !s.destroyed && tree.Same(s.state, state) {
			s.exprs[typed] = exprEntry{value: value}
		}
		s.mu.Unlock()
		return value, nil
	default:
		return d.Evaluate(state)
	}
}

// RegisterAction adds an action after construction.
func (s *Store) RegisterAction(name string, action Action) error {
	return s.actions.Register(name, action)
}

// HasActions reports whether any action is registered.
func (s *Store) HasActions() bool {
	return s.actions.Len() > 0
}

// Dispatch runs the named action with args.
func (s *Store) Dispatch(name string, args ...any) (any, error) {
	action, ok := s.actions.Lookup(name)
	if !ok {
		return nil, &ActionError{Name: name, Err: ErrActionNotFound}
	}
	result, err := action(s, args...)
	if err != nil {
		return nil, &ActionError{Name: name, Err: err}
	}
	return result, nil
}

// Action returns the named action bound to this store.
func (s *Store) Action(name string) (BoundAction, bool) {
	if _, ok := s.actions.Lookup(name); !ok {
		return BoundAction{}, false
	}
	return BoundAction{store: s, name: actionKey(name)}, true
}

// ViewAction returns the whole dispatch surface.
func (s *Store) ViewAction() ViewAction {
	return ViewAction{store: s}
}
