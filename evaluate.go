package relax

import (
	"fmt"
	"time"
)

// Eval runs expression against the current state with the store's evaluator.
func (s *Store) Eval(expression string) (any, error) {
	return s.EvalWith(RuleContext{}, expression)
}

// EvalWith runs expression with ctx. A nil ctx.Snapshot means the current
// state.
func (s *Store) EvalWith(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("relax: expression must not be empty")
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = s.State()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(s.evaluator)
	start := time.Now()
	value, err := s.evaluator.Evaluate(ctx, expression)
	duration := time.Since(start)
	err = wrapEvaluationError(engine, expression, ctx.queryLabel(), err)
	s.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		Query:    ctx.queryLabel(),
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	return "custom"
}
