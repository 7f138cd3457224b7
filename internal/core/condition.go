package core

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// conditionEnv is the variable set visible to `when`/`--where` expressions.
func conditionEnv(t Toggle, enabled bool) map[string]interface{} {
	return map[string]interface{}{
		"kind":        t.Kind.String(),
		"identity":    t.Identity,
		"title":       t.Title,
		"destination": t.Destination,
		"enabled":     enabled,
	}
}

// EvaluateCondition evaluates a boolean expression against a toggle.
// An empty condition is always true.
func EvaluateCondition(condition string, t Toggle, enabled bool) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, nil
	}

	env := conditionEnv(t, enabled)
	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", condition, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", condition, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return a boolean", condition)
	}
	return result, nil
}
