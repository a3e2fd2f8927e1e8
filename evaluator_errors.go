package relax

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrActionNotFound reports a dispatch to a name the store does not know.
	ErrActionNotFound = errors.New("relax: action not found")
	// ErrStoreDestroyed reports a mutation attempted after Destroy.
	ErrStoreDestroyed = errors.New("relax: store destroyed")
	// ErrUnsupportedQuery reports a query value Store.Query cannot resolve.
	ErrUnsupportedQuery = errors.New("relax: unsupported query")
	// ErrIllegalTransition reports a lifecycle call out of order.
	ErrIllegalTransition = errors.New("relax: illegal lifecycle transition")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Query  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("relax: %s evaluator %s query=%s: %v", e.Engine, describeExpression(e.Expr), e.Query, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ActionError names the action a dispatch failed on.
type ActionError struct {
	Name string
	Err  error
}

func (e *ActionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("relax: action %q: %v", e.Name, e.Err)
}

func (e *ActionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "relax:") {
		return err
	}
	return fmt.Errorf("relax: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, query string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Query == "" {
			evalErr.Query = query
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Query:  query,
		Err:    err,
	}
}
