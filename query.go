package relax

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-relax/tree"
)

// Descriptor is a full query: a named, pure computation over a state
// snapshot. The name becomes the key of the derived prop it resolves into.
type Descriptor interface {
	Name() string
	Evaluate(state map[string]any) (any, error)
}

// Querier is anything that can answer a query, usually a *Store.
type Querier interface {
	Query(q any) (any, error)
}

// QueryLang computes a value from an ordered list of dependencies. Each
// dependency is a key, a dotted path, a []string path or another Descriptor.
type QueryLang struct {
	id      string
	name    string
	deps    []Source
	compute func(values ...any) any
}

// QL builds a QueryLang. compute receives the dependency values in the order
// deps declares them; a missing key resolves to nil.
func QL(name string, deps []any, compute func(values ...any) any) *QueryLang {
	sources := make([]Source, 0, len(deps))
	for _, dep := range deps {
		sources = append(sources, SourceOf(dep))
	}
	return &QueryLang{
		id:      uuid.NewString(),
		name:    name,
		deps:    sources,
		compute: compute,
	}
}

func (q *QueryLang) Name() string { return q.name }

// Deps returns the classified dependencies.
func (q *QueryLang) Deps() []Source {
	return append([]Source(nil), q.deps...)
}

// Evaluate resolves the dependencies against state and applies compute.
func (q *QueryLang) Evaluate(state map[string]any) (any, error) {
	values, err := q.values(func(src Source) (any, error) {
		return evaluateSource(src, state)
	})
	if err != nil {
		return nil, err
	}
	return q.apply(values), nil
}

func (q *QueryLang) values(resolve func(Source) (any, error)) ([]any, error) {
	values := make([]any, len(q.deps))
	for i, dep := range q.deps {
		switch dep.Kind {
		case SourceKey, SourcePath, SourceQuery:
		default:
			return nil, fmt.Errorf("%w: %s dependency %d of query %q", ErrUnsupportedQuery, dep.Kind, i, q.name)
		}
		value, err := resolve(dep)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (q *QueryLang) apply(values []any) any {
	if q.compute == nil {
		if len(values) == 1 {
			return values[0]
		}
		return values
	}
	return q.compute(values...)
}

// ExprQuery evaluates an expression against the state. State keys are
// top-level variables and bound arguments are reachable as args.
type ExprQuery struct {
	name       string
	expression string
	engine     Evaluator
	args       map[string]any
}

// ExprOption configures an ExprQuery.
type ExprOption func(*ExprQuery)

// WithEngine pins the evaluator used for the expression, overriding the
// querying store's evaluator.
func WithEngine(e Evaluator) ExprOption {
	return func(q *ExprQuery) {
		q.engine = e
	}
}

// WithArgs binds named arguments, available to the expression as args.
func WithArgs(args map[string]any) ExprOption {
	return func(q *ExprQuery) {
		if len(args) == 0 {
			return
		}
		if q.args == nil {
			q.args = make(map[string]any, len(args))
		}
		for key, value := range args {
			q.args[key] = value
		}
	}
}

// Expr builds an expression descriptor.
func Expr(name, expression string, opts ...ExprOption) *ExprQuery {
	q := &ExprQuery{name: name, expression: strings.TrimSpace(expression)}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func (q *ExprQuery) Name() string { return q.name }

// Expression returns the expression text.
func (q *ExprQuery) Expression() string { return q.expression }

// Evaluate runs the expression with its own engine, or the package default
// expr evaluator.
func (q *ExprQuery) Evaluate(state map[string]any) (any, error) {
	return q.evaluateWith(nil, state)
}

func (q *ExprQuery) evaluatorFor(fallback Evaluator) Evaluator {
	if q.engine != nil {
		return q.engine
	}
	if fallback != nil {
		return fallback
	}
	return defaultEvaluator()
}

func (q *ExprQuery) evaluateWith(fallback Evaluator, state map[string]any) (any, error) {
	evaluator := q.evaluatorFor(fallback)
	value, err := evaluator.Evaluate(RuleContext{
		Snapshot: state,
		Args:     q.args,
		Query:    q.name,
	}, q.expression)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), q.expression, q.name, err)
	}
	return value, nil
}

var defaultEvaluator = sync.OnceValue(func() Evaluator {
	return NewExprEvaluator(ExprWithProgramCache(NewMemoryProgramCache()))
})

// PartialQueryLang is a query that needs arguments before it can run. It has
// no Evaluate method; Bind it to a Querier first.
type PartialQueryLang struct {
	name  string
	build func(args ...any) any
}

// PQL builds a partial descriptor. build turns call arguments into anything
// Store.Query accepts.
func PQL(name string, build func(args ...any) any) *PartialQueryLang {
	return &PartialQueryLang{name: name, build: build}
}

// PartialExpr builds a partial expression descriptor. Positional call
// arguments are bound to args.<param> in order.
func PartialExpr(name, expression string, params ...string) *PartialQueryLang {
	names := append([]string(nil), params...)
	return PQL(name, func(args ...any) any {
		bound := make(map[string]any, len(names))
		for i, param := range names {
			if i < len(args) {
				bound[param] = args[i]
			} else {
				bound[param] = nil
			}
		}
		return Expr(name, expression, WithArgs(bound))
	})
}

func (p *PartialQueryLang) Name() string { return p.name }

// Bind associates the partial with a querier.
func (p *PartialQueryLang) Bind(q Querier) BoundQuery {
	return BoundQuery{partial: p, querier: q}
}

// BoundQuery is a partial descriptor bound to a querier, ready to be called.
type BoundQuery struct {
	partial *PartialQueryLang
	querier Querier
}

func (b BoundQuery) Name() string {
	if b.partial == nil {
		return ""
	}
	return b.partial.name
}

// Query builds the underlying query from args and runs it. On a *Store the
// built query bypasses the store's result caches.
func (b BoundQuery) Query(args ...any) (any, error) {
	if b.partial == nil || b.partial.build == nil {
		return nil, fmt.Errorf("%w: bound query has no builder", ErrUnsupportedQuery)
	}
	if b.querier == nil {
		return nil, fmt.Errorf("relax: partial query %q is not bound to a store", b.partial.name)
	}
	built := b.partial.build(args...)
	if store, ok := b.querier.(*Store); ok {
		return store.query(built, false)
	}
	return b.querier.Query(built)
}

// Equal reports whether both sides bind the same partial to the same querier.
func (b BoundQuery) Equal(other BoundQuery) bool {
	return b.partial == other.partial && sameQuerier(b.querier, other.querier)
}

func sameQuerier(a, b Querier) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// evaluateSource reads src from state without a store; nested descriptors are
// evaluated directly.
func evaluateSource(src Source, state map[string]any) (any, error) {
	switch src.Kind {
	case SourceKey, SourcePath:
		value, _ := tree.Get(state, src.Path)
		return value, nil
	case SourceQuery:
		return src.Query.Evaluate(state)
	default:
		return nil, fmt.Errorf("%w: %s source", ErrUnsupportedQuery, src.Kind)
	}
}
