// Package splitpath implements the split_path logic node: a switch over a
// resolved value that routes the run down the matching branch handle.
package splitpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

var ErrMissingValue = errors.New("missing 'value' in configuration")

// Branch maps one candidate value to an outgoing edge handle.
type Branch struct {
	Value  string
	Handle string
}

type Action struct {
	value         string
	branches      []Branch
	defaultHandle string
}

func NewAction(config map[string]any) (*Action, error) {
	value, _ := config["value"].(string)
	if value == "" {
		return nil, ErrMissingValue
	}

	action := &Action{value: value}
	action.defaultHandle, _ = config["default_handle"].(string)

	if rawBranches, ok := config["branches"].([]any); ok {
		for _, rawBranch := range rawBranches {
			branchMap, ok := rawBranch.(map[string]any)
			if !ok {
				continue
			}

			branch := Branch{}
			branch.Value, _ = branchMap["value"].(string)
			branch.Handle, _ = branchMap["handle"].(string)

			if branch.Handle == "" {
				continue
			}

			action.branches = append(action.branches, branch)
		}
	}

	return action, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	resolved := resolver.Resolve(a.value, resolver.Context{
		Contact: execCtx.Contact,
		Trigger: execCtx.TriggerData,
	})

	handle := a.defaultHandle

	for _, branch := range a.branches {
		if branch.Value == resolved {
			handle = branch.Handle

			break
		}
	}

	logger.DebugContext(ctx, "Selected split path", "value", resolved, "handle", handle)

	return &models.HandlerResult{
		Details:    fmt.Sprintf("Value %q routed to handle %q", resolved, handle),
		NextHandle: handle,
	}, nil
}
