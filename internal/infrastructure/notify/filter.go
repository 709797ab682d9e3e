package notify

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"fructus/internal/domain/event"
)

// FilteredNotifier forwards only events matching a CEL expression to
// the wrapped notifier. The expression sees two string variables,
// event_type and account_id, and must evaluate to bool. An empty
// expression passes everything.
//
// Typical use: route only money events to an operator channel with
// `event_type.startsWith("Payment")`.
type FilteredNotifier struct {
	next event.Notifier
	prg  cel.Program
}

// NewFilteredNotifier compiles the expression and wraps next.
func NewFilteredNotifier(next event.Notifier, expr string) (*FilteredNotifier, error) {
	if expr == "" {
		return &FilteredNotifier{next: next}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("event_type", cel.StringType),
		cel.Variable("account_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("build filter env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}
	return &FilteredNotifier{next: next, prg: prg}, nil
}

// Notify implements event.Notifier.
func (n *FilteredNotifier) Notify(ctx context.Context, e event.Event) error {
	if n.prg != nil {
		out, _, err := n.prg.Eval(map[string]any{
			"event_type": string(e.Type),
			"account_id": e.AccountID.String(),
		})
		if err != nil {
			return fmt.Errorf("eval filter: %w", err)
		}
		pass, ok := out.Value().(bool)
		if !ok || !pass {
			return nil
		}
	}
	return n.next.Notify(ctx, e)
}
