// Package engine executes automation flow graphs: breadth-first traversal
// from a trigger node, with at-most-once visitation per run and a
// fail-fast policy when a node handler errors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zaptalk/zaptalk/pkg/eventbus"
	"github.com/zaptalk/zaptalk/pkg/events"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/otelhelper"
	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/registry"
)

const defaultNodeTimeout = 60 * time.Second

var (
	ErrAutomationInactive = errors.New("automation is not active")
	ErrStartNodeNotFound  = errors.New("start node not found in automation")
)

// Engine runs automations. One Engine serves all tenants; per-run state
// lives on the stack of Run.
type Engine struct {
	store       persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	nodeTimeout time.Duration
}

type Option func(*Engine)

// WithNodeTimeout bounds each handler invocation.
func WithNodeTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.nodeTimeout = timeout
	}
}

// WithPublisher emits run lifecycle events to the bus.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithTracer records one span per run and per executed node.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(store persistence.Persistence, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		store:       store,
		registry:    reg,
		logger:      logger,
		nodeTimeout: defaultNodeTimeout,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Run executes one automation starting at the given trigger node. It
// always leaves a run row behind: running → success or failed. The
// returned run reflects the terminal state; the error is non-nil when the
// run failed.
func (e *Engine) Run(
	ctx context.Context,
	automation *models.Automation,
	startNodeID string,
	contact *models.Contact,
	triggerData map[string]any,
) (*models.AutomationRun, error) {
	startedAt := time.Now()

	logger := e.logger.With("automation_id", automation.ID, "start_node", startNodeID)

	run := &models.AutomationRun{
		AutomationID: automation.ID,
		Status:       models.RunStatusRunning,
	}
	if contact != nil {
		run.ContactID = contact.ID
	}

	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	logger = logger.With("run_id", run.ID)

	if !automation.IsActive() {
		return e.fail(ctx, run, automation, "", startedAt, ErrAutomationInactive)
	}

	if automation.NodeByID(startNodeID) == nil {
		return e.fail(ctx, run, automation, "", startedAt, fmt.Errorf("%w: %s", ErrStartNodeNotFound, startNodeID))
	}

	profile, err := e.store.ProfileByID(ctx, automation.OwnerID)
	if err != nil {
		return e.fail(ctx, run, automation, "", startedAt, fmt.Errorf("failed to load owner profile: %w", err))
	}

	ctx, span := e.startRunSpan(ctx, automation, run, startNodeID)
	defer span.End()

	e.publish(ctx, run.ID, events.RunStarted{
		BaseEvent:    events.NewBaseEvent(events.RunStartedEvent, automation.OwnerID),
		RunID:        run.ID,
		AutomationID: automation.ID,
		ContactID:    run.ContactID,
		TriggerType:  startNodeKind(automation, startNodeID),
	})

	logger.InfoContext(ctx, "Starting automation run")

	currentContact := contact
	processed := make(map[string]bool)
	queue := []string{startNodeID}

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if processed[nodeID] {
			continue
		}

		node := automation.NodeByID(nodeID)
		if node == nil {
			continue
		}

		// Mark before dispatch so a handler can never re-enqueue its
		// own node into an infinite loop.
		processed[nodeID] = true

		result, err := e.executeNode(ctx, profile, run, automation, node, currentContact, triggerData)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())

			return e.fail(ctx, run, automation, node.ID, startedAt,
				fmt.Errorf("node %q failed: %w", nodeLabel(node), err))
		}

		nextHandle := ""

		if result != nil {
			if result.UpdatedContact != nil {
				currentContact = result.UpdatedContact

				if err := e.store.SaveContact(ctx, currentContact); err != nil {
					logger.WarnContext(ctx, "Failed to persist updated contact",
						"contact_id", currentContact.ID, "error", err)
				}
			}

			nextHandle = result.NextHandle
		}

		for _, edge := range automation.EdgesFrom(nodeID, nextHandle) {
			queue = append(queue, edge.Target)
		}
	}

	if err := e.store.UpdateRunStatus(ctx, run.ID, models.RunStatusSuccess, "Automation completed"); err != nil {
		logger.ErrorContext(ctx, "Failed to mark run as success", "error", err)
	}

	run.Status = models.RunStatusSuccess
	run.Details = "Automation completed"

	e.publish(ctx, run.ID, events.RunCompleted{
		BaseEvent:      events.NewBaseEvent(events.RunCompletedEvent, automation.OwnerID),
		RunID:          run.ID,
		AutomationID:   automation.ID,
		NodesProcessed: len(processed),
		Duration:       time.Since(startedAt),
	})

	logger.InfoContext(ctx, "Automation run completed",
		"nodes_processed", len(processed), "duration", time.Since(startedAt))

	return run, nil
}

// executeNode dispatches one node to its handler and records the stat and
// log rows. A node kind without a registered handler (trigger nodes in
// particular) is a pass-through.
func (e *Engine) executeNode(
	ctx context.Context,
	profile *models.Profile,
	run *models.AutomationRun,
	automation *models.Automation,
	node *models.Node,
	contact *models.Contact,
	triggerData map[string]any,
) (*models.HandlerResult, error) {
	handler, err := e.registry.Create(node.Data.Type, node.Data.Config)
	if err != nil {
		if errors.Is(err, registry.ErrHandlerNotRegistered) {
			return nil, nil
		}

		e.recordNodeFailure(ctx, run, automation, node, err)

		return nil, err
	}

	nodeCtx := ctx

	if e.tracer != nil {
		var span trace.Span

		nodeCtx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.node",
			attribute.String(otelhelper.NodeIDKey, node.ID),
			attribute.String(otelhelper.NodeKindKey, node.Data.Type),
		)
		defer span.End()
	}

	nodeCtx, cancel := context.WithTimeout(nodeCtx, e.nodeTimeout)
	defer cancel()

	execCtx := models.ExecutionContext{
		RunID:       run.ID,
		Profile:     profile,
		Contact:     contact,
		Node:        node,
		TriggerData: triggerData,
	}

	result, err := handler.Execute(nodeCtx, execCtx, e.logger.With("node_id", node.ID, "node_kind", node.Data.Type))
	if err != nil {
		e.recordNodeFailure(ctx, run, automation, node, err)

		return nil, err
	}

	details := ""
	if result != nil {
		details = result.Details
	}

	e.recordNodeSuccess(ctx, run, automation, node, details)

	return result, nil
}

func (e *Engine) recordNodeSuccess(ctx context.Context, run *models.AutomationRun, automation *models.Automation, node *models.Node, details string) {
	if err := e.store.IncrementNodeStat(ctx, automation.ID, node.ID, true); err != nil {
		e.logger.WarnContext(ctx, "Failed to increment node stat", "node_id", node.ID, "error", err)
	}

	entry := &models.NodeLog{RunID: run.ID, NodeID: node.ID, Status: "success", Details: details}
	if err := e.store.AppendNodeLog(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "Failed to append node log", "node_id", node.ID, "error", err)
	}
}

func (e *Engine) recordNodeFailure(ctx context.Context, run *models.AutomationRun, automation *models.Automation, node *models.Node, nodeErr error) {
	if err := e.store.IncrementNodeStat(ctx, automation.ID, node.ID, false); err != nil {
		e.logger.WarnContext(ctx, "Failed to increment node stat", "node_id", node.ID, "error", err)
	}

	entry := &models.NodeLog{RunID: run.ID, NodeID: node.ID, Status: "error", Details: nodeErr.Error()}
	if err := e.store.AppendNodeLog(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "Failed to append node log", "node_id", node.ID, "error", err)
	}
}

// fail marks the run failed and stops processing. The remaining queue is
// abandoned: no other branch runs after a node error.
func (e *Engine) fail(
	ctx context.Context,
	run *models.AutomationRun,
	automation *models.Automation,
	nodeID string,
	startedAt time.Time,
	runErr error,
) (*models.AutomationRun, error) {
	details := runErr.Error()

	if err := e.store.UpdateRunStatus(ctx, run.ID, models.RunStatusFailed, details); err != nil {
		e.logger.ErrorContext(ctx, "Failed to mark run as failed", "run_id", run.ID, "error", err)
	}

	run.Status = models.RunStatusFailed
	run.Details = details

	e.publish(ctx, run.ID, events.RunFailed{
		BaseEvent:    events.NewBaseEvent(events.RunFailedEvent, automation.OwnerID),
		RunID:        run.ID,
		AutomationID: automation.ID,
		NodeID:       nodeID,
		Error:        details,
		Duration:     time.Since(startedAt),
	})

	e.logger.ErrorContext(ctx, "Automation run failed",
		"run_id", run.ID, "node_id", nodeID, "error", runErr)

	return run, runErr
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish run event",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) startRunSpan(ctx context.Context, automation *models.Automation, run *models.AutomationRun, startNodeID string) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, e.tracer, "engine.run",
		attribute.String(otelhelper.AutomationIDKey, automation.ID),
		attribute.String(otelhelper.OwnerIDKey, automation.OwnerID),
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.ContactIDKey, run.ContactID),
		attribute.String(otelhelper.TriggerTypeKey, startNodeKind(automation, startNodeID)),
	)
}

func nodeLabel(node *models.Node) string {
	if node.Data.Label != "" {
		return node.Data.Label
	}

	return node.ID
}

func startNodeKind(automation *models.Automation, nodeID string) string {
	if node := automation.NodeByID(nodeID); node != nil {
		return node.Data.Type
	}

	return ""
}
