package relax

import (
	"errors"
	"strings"
	"testing"
)

func TestExprEvaluatorSnapshotAndArgs(t *testing.T) {
	evaluator := NewExprEvaluator(ExprWithProgramCache(NewMemoryProgramCache()))
	ctx := RuleContext{
		Snapshot: map[string]any{"user": map[string]any{"age": 30}},
		Args:     map[string]any{"min": 18},
	}
	got, err := evaluator.Evaluate(ctx, "user.age >= args.min && state.user.age < 65")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}

func TestExprEvaluatorCompileReuse(t *testing.T) {
	cache := NewMemoryProgramCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))
	rule, err := evaluator.Compile("n * 2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, n := range []int{1, 2, 3} {
		got, err := rule.Evaluate(RuleContext{Snapshot: map[string]any{"n": n}})
		if err != nil || got != n*2 {
			t.Fatalf("n=%d: got %v, %v", n, got, err)
		}
	}
	if _, ok := cache.Get(cacheKey(engineExpr, "n * 2")); !ok {
		t.Fatalf("expected compiled program cached")
	}
}

func TestExprEvaluatorFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))
	ctx := RuleContext{Snapshot: map[string]any{"n": 4}}

	got, err := evaluator.Evaluate(ctx, "double(n)")
	if err != nil || got != 8 {
		t.Fatalf("expected 8, got %v, %v", got, err)
	}
	got, err = evaluator.Evaluate(ctx, `call("double", n + 1)`)
	if err != nil || got != 10 {
		t.Fatalf("expected 10 through call, got %v, %v", got, err)
	}
}

func TestExprEvaluatorEmptyExpression(t *testing.T) {
	_, err := NewExprEvaluator().Evaluate(RuleContext{}, "")
	if err == nil || !strings.HasPrefix(err.Error(), "relax: expr evaluator") {
		t.Fatalf("expected prefixed error, got %v", err)
	}
}

func TestCELEvaluator(t *testing.T) {
	evaluator := NewCELEvaluator(CELWithProgramCache(NewMemoryProgramCache()))
	ctx := RuleContext{
		Snapshot: map[string]any{"count": 2, "user": map[string]any{"name": "ada"}},
		Args:     map[string]any{"step": 3},
	}
	got, err := evaluator.Evaluate(ctx, "count + 1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != int64(3) {
		t.Fatalf("expected int64(3), got %T %v", got, got)
	}
	name, err := evaluator.Evaluate(ctx, `user.name + "!"`)
	if err != nil || name != "ada!" {
		t.Fatalf("expected ada!, got %v, %v", name, err)
	}
	if _, err := evaluator.Evaluate(ctx, "count +"); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestCELEvaluatorCall(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register("greet", func(args ...any) (any, error) {
		return "hello " + args[0].(string), nil
	})
	evaluator := NewCELEvaluator(CELWithFunctionRegistry(registry))
	got, err := evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"who": "ada"}}, `call("greet", [who])`)
	if err != nil || got != "hello ada" {
		t.Fatalf("expected hello ada, got %v, %v", got, err)
	}
}

func TestStoreWithCELEngine(t *testing.T) {
	store := NewStore(map[string]any{"items": []any{1, 2, 3}}, WithEngineName("cel"))
	got, err := store.Query(Expr("size", "size(items)"))
	if err != nil || got != int64(3) {
		t.Fatalf("expected 3, got %v, %v", got, err)
	}
	if evaluatorEngineName(store.Evaluator()) != "cel" {
		t.Fatalf("expected cel engine, got %s", evaluatorEngineName(store.Evaluator()))
	}
}

func TestStoreUnknownEngineFallsBack(t *testing.T) {
	logger := &captureLogger{}
	store := NewStore(map[string]any{"n": 1}, WithEngineName("lua"), WithLogger(logger))
	if !logger.has("error", "evaluator unavailable") {
		t.Fatalf("expected fallback to be logged")
	}
	got, err := store.Eval("n + 1")
	if err != nil || got != 2 {
		t.Fatalf("expected fallback expr evaluation, got %v, %v", got, err)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(...any) (any, error) { return 1, nil }
	if err := registry.Register("One", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("one", fn); err == nil {
		t.Fatalf("expected case-insensitive duplicate error")
	}
	if err := registry.Replace("ONE", func(...any) (any, error) { return 2, nil }); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := registry.Call("one"); got != 2 {
		t.Fatalf("expected replaced function, got %v", got)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function error")
	}
	clone := registry.Clone()
	_ = clone.Register("two", fn)
	if registry.Len() != 1 || clone.Len() != 2 {
		t.Fatalf("clone must not write through: %v / %v", registry.Names(), clone.Names())
	}
}

func TestWithCustomFunctionReachesStoreEvaluator(t *testing.T) {
	store := NewStore(map[string]any{"name": "ada"}, WithCustomFunction("shout", func(args ...any) (any, error) {
		return strings.ToUpper(args[0].(string)), nil
	}))
	got, err := store.Eval("shout(name)")
	if err != nil || got != "ADA" {
		t.Fatalf("expected ADA, got %v, %v", got, err)
	}
}

func TestEvaluatorEngineNameForCustom(t *testing.T) {
	var custom customEvaluator
	if got := evaluatorEngineName(custom); got != "custom" {
		t.Fatalf("expected custom, got %s", got)
	}
	if got := evaluatorEngineName(nil); got != "unknown" {
		t.Fatalf("expected unknown, got %s", got)
	}
	store := NewStore(nil, WithEvaluator(custom))
	_, err := store.Eval("anything")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "custom" {
		t.Fatalf("expected custom EvaluationError, got %v", err)
	}
}

type customEvaluator struct{}

func (customEvaluator) Evaluate(RuleContext, string) (any, error) {
	return nil, errors.New("not implemented")
}

func (customEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, errors.New("not implemented")
}
