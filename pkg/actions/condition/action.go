// Package condition implements the condition logic node. It evaluates a
// rule list (or a free-form expression) over the contact and trigger data
// and routes the run down the "true" or "false" handle.
package condition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

const (
	matchAll = "all"
	matchAny = "any"
)

var (
	ErrNoRules         = errors.New("condition requires 'rules' or 'expression' in configuration")
	ErrInvalidOperator = errors.New("invalid condition operator")
	ErrInvalidMatch    = errors.New("invalid 'match' in configuration, expected \"all\" or \"any\"")
)

// Rule compares one resolved field against a configured value.
type Rule struct {
	Field    string
	Operator string
	Value    string
}

type Action struct {
	rules   []Rule
	match   string
	program *vm.Program
}

func NewAction(config map[string]any) (*Action, error) {
	action := &Action{match: matchAll}

	if expression, _ := config["expression"].(string); expression != "" {
		program, err := expr.Compile(expression, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile condition expression: %w", err)
		}

		action.program = program

		return action, nil
	}

	if match, ok := config["match"].(string); ok && match != "" {
		if match != matchAll && match != matchAny {
			return nil, ErrInvalidMatch
		}

		action.match = match
	}

	rawRules, _ := config["rules"].([]any)
	if len(rawRules) == 0 {
		return nil, ErrNoRules
	}

	for _, rawRule := range rawRules {
		ruleMap, ok := rawRule.(map[string]any)
		if !ok {
			continue
		}

		rule := Rule{}
		rule.Field, _ = ruleMap["field"].(string)
		rule.Operator, _ = ruleMap["operator"].(string)
		rule.Value, _ = ruleMap["value"].(string)

		if !validOperator(rule.Operator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, rule.Operator)
		}

		action.rules = append(action.rules, rule)
	}

	if len(action.rules) == 0 {
		return nil, ErrNoRules
	}

	return action, nil
}

func validOperator(operator string) bool {
	switch operator {
	case "equals", "not_equals", "contains", "not_contains",
		"starts_with", "ends_with", "greater_than", "less_than",
		"exists", "has_tag":
		return true
	}

	return false
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	result, err := a.evaluate(execCtx)
	if err != nil {
		return nil, err
	}

	handle := strconv.FormatBool(result)

	logger.DebugContext(ctx, "Evaluated condition", "result", result)

	return &models.HandlerResult{
		Details:    fmt.Sprintf("Condition evaluated to %s", handle),
		NextHandle: handle,
	}, nil
}

func (a *Action) evaluate(execCtx models.ExecutionContext) (bool, error) {
	if a.program != nil {
		return a.evaluateExpression(execCtx)
	}

	resolveCtx := resolver.Context{Contact: execCtx.Contact, Trigger: execCtx.TriggerData}

	for _, rule := range a.rules {
		matched := a.evaluateRule(rule, execCtx, resolveCtx)

		if a.match == matchAny && matched {
			return true, nil
		}

		if a.match == matchAll && !matched {
			return false, nil
		}
	}

	return a.match == matchAll, nil
}

func (a *Action) evaluateExpression(execCtx models.ExecutionContext) (bool, error) {
	env := map[string]any{
		"contact": contactEnv(execCtx.Contact),
		"trigger": execCtx.TriggerData,
	}

	output, err := expr.Run(a.program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition expression: %w", err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition expression returned %T, expected bool", output)
	}

	return result, nil
}

func contactEnv(contact *models.Contact) map[string]any {
	if contact == nil {
		return map[string]any{}
	}

	encoded, err := json.Marshal(contact)
	if err != nil {
		return map[string]any{}
	}

	env := make(map[string]any)
	if err := json.Unmarshal(encoded, &env); err != nil {
		return map[string]any{}
	}

	return env
}

func (a *Action) evaluateRule(rule Rule, execCtx models.ExecutionContext, resolveCtx resolver.Context) bool {
	if rule.Operator == "has_tag" {
		return execCtx.Contact != nil && execCtx.Contact.HasTag(rule.Value)
	}

	// Wrap bare field paths so the resolver can look them up. A field that
	// does not resolve comes back as the verbatim placeholder.
	token := "{{" + rule.Field + "}}"
	fieldValue := resolver.Resolve(token, resolveCtx)
	resolved := fieldValue != token

	if rule.Operator == "exists" {
		return resolved
	}

	if !resolved {
		return false
	}

	expected := resolver.Resolve(rule.Value, resolveCtx)

	switch rule.Operator {
	case "equals":
		return fieldValue == expected
	case "not_equals":
		return fieldValue != expected
	case "contains":
		return strings.Contains(fieldValue, expected)
	case "not_contains":
		return !strings.Contains(fieldValue, expected)
	case "starts_with":
		return strings.HasPrefix(fieldValue, expected)
	case "ends_with":
		return strings.HasSuffix(fieldValue, expected)
	case "greater_than":
		return compareNumbers(fieldValue, expected, func(a, b float64) bool { return a > b })
	case "less_than":
		return compareNumbers(fieldValue, expected, func(a, b float64) bool { return a < b })
	}

	return false
}

func compareNumbers(left, right string, compare func(a, b float64) bool) bool {
	leftNum, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return false
	}

	rightNum, err := strconv.ParseFloat(right, 64)
	if err != nil {
		return false
	}

	return compare(leftNum, rightNum)
}
