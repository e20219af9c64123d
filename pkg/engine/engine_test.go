package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptalk/zaptalk/pkg/engine"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence/memory"
	"github.com/zaptalk/zaptalk/pkg/protocol"
	"github.com/zaptalk/zaptalk/pkg/registry"
)

// recorder is a scriptable handler shared by one test: it records the
// order nodes execute in and replays per-node results.
type recorder struct {
	mu       sync.Mutex
	executed []string
	results  map[string]*models.HandlerResult
	failures map[string]error
	contacts map[string]*models.Contact
}

func newRecorder() *recorder {
	return &recorder{
		results:  make(map[string]*models.HandlerResult),
		failures: make(map[string]error),
		contacts: make(map[string]*models.Contact),
	}
}

func (r *recorder) Execute(_ context.Context, execCtx models.ExecutionContext, _ *slog.Logger) (*models.HandlerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodeID := execCtx.Node.ID
	r.executed = append(r.executed, nodeID)
	r.contacts[nodeID] = execCtx.Contact

	if err := r.failures[nodeID]; err != nil {
		return nil, err
	}

	if result, ok := r.results[nodeID]; ok {
		return result, nil
	}

	return &models.HandlerResult{Details: "ok"}, nil
}

type recorderFactory struct {
	kind     string
	recorder *recorder
}

func (f *recorderFactory) Create(_ map[string]any) (protocol.Handler, error) {
	return f.recorder, nil
}

func (f *recorderFactory) ID() string { return f.kind }

func setup(t *testing.T, rec *recorder, kinds ...string) (*engine.Engine, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	require.NoError(t, store.SaveProfile(context.Background(), &models.Profile{
		ID:            "owner-1",
		CompanyName:   "Acme",
		PhoneNumberID: "555000",
		WebhookPrefix: "acme",
	}))

	reg := registry.New(slog.Default())
	for _, kind := range kinds {
		reg.Register(&recorderFactory{kind: kind, recorder: rec})
	}

	return engine.New(store, reg, slog.Default()), store
}

func activeAutomation(nodes []models.Node, edges []models.Edge) *models.Automation {
	return &models.Automation{
		ID:      "auto-1",
		OwnerID: "owner-1",
		Name:    "test flow",
		Status:  models.AutomationStatusActive,
		Nodes:   nodes,
		Edges:   edges,
	}
}

func actionNode(id, kind string) models.Node {
	return models.Node{ID: id, Data: models.NodeData{NodeType: models.NodeTypeAction, Type: kind, Label: "node " + id}}
}

func triggerNode(id, kind string) models.Node {
	return models.Node{ID: id, Data: models.NodeData{NodeType: models.NodeTypeTrigger, Type: kind}}
}

func TestRunLinearFlow(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, store := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			actionNode("a1", "step"),
			actionNode("a2", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "a1"},
			{ID: "e2", Source: "a1", Target: "a2"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, map[string]any{"k": "v"})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []string{"a1", "a2"}, rec.executed)

	stored, err := store.RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, stored.Status)
}

func TestRunBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, _ := setup(t, rec, "step")

	// t1 fans out to a1/a2; both point at a3. a3 must run once, after
	// both siblings.
	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindNewContact),
			actionNode("a1", "step"),
			actionNode("a2", "step"),
			actionNode("a3", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "a1"},
			{ID: "e2", Source: "t1", Target: "a2"},
			{ID: "e3", Source: "a1", Target: "a3"},
			{ID: "e4", Source: "a2", Target: "a3"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []string{"a1", "a2", "a3"}, rec.executed)
}

func TestRunTerminatesOnCycle(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, _ := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			actionNode("a1", "step"),
			actionNode("a2", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "a1"},
			{ID: "e2", Source: "a1", Target: "a2"},
			{ID: "e3", Source: "a2", Target: "a1"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []string{"a1", "a2"}, rec.executed, "each node runs at most once per run")
}

func TestRunBranchSelection(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.results["c1"] = &models.HandlerResult{Details: "true", NextHandle: "true"}

	eng, _ := setup(t, rec, "step", "gate")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			{ID: "c1", Data: models.NodeData{NodeType: models.NodeTypeLogic, Type: "gate"}},
			actionNode("yes", "step"),
			actionNode("no", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "c1"},
			{ID: "e2", Source: "c1", Target: "yes", SourceHandle: "true"},
			{ID: "e3", Source: "c1", Target: "no", SourceHandle: "false"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []string{"c1", "yes"}, rec.executed)
	assert.NotContains(t, rec.executed, "no")
}

func TestRunContactMutationPropagates(t *testing.T) {
	t.Parallel()

	contact := &models.Contact{ID: "contact-1", OwnerID: "owner-1", Phone: "5511912345678"}

	rec := newRecorder()
	rec.results["a1"] = &models.HandlerResult{Details: "tagged", UpdatedContact: contact.WithTag("vip")}

	eng, store := setup(t, rec, "step")
	require.NoError(t, store.SaveContact(context.Background(), contact))

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindNewContact),
			actionNode("a1", "step"),
			actionNode("a2", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "a1"},
			{ID: "e2", Source: "a1", Target: "a2"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", contact, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, contact.ID, run.ContactID)

	// Downstream node saw the updated working copy.
	require.NotNil(t, rec.contacts["a2"])
	assert.True(t, rec.contacts["a2"].HasTag("vip"))

	// And the mutation was persisted.
	stored, err := store.ContactByID(context.Background(), contact.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasTag("vip"))
}

func TestRunFailureHaltsRun(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.failures["a1"] = errors.New("provider rejected the message")

	eng, store := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			actionNode("a1", "step"),
			actionNode("a2", "step"),
			actionNode("b1", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "a1"},
			{ID: "e2", Source: "t1", Target: "b1"},
			{ID: "e3", Source: "a1", Target: "a2"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.Error(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Details, "node a1")
	assert.Contains(t, run.Details, "provider rejected the message")

	// The sibling branch enqueued after the failing node never runs.
	assert.Equal(t, []string{"a1"}, rec.executed)

	stored, err := store.RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)

	stat, err := store.NodeStat(context.Background(), automation.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, stat.ErrorCount)
}

func TestRunUnregisteredKindIsPassThrough(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, _ := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			actionNode("x1", "unknown_kind"),
			actionNode("a1", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "x1"},
			{ID: "e2", Source: "x1", Target: "a1"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []string{"a1"}, rec.executed)
}

func TestRunInactiveAutomationFails(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, _ := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{triggerNode("t1", models.KindWebhookReceived)},
		nil,
	)
	automation.Status = models.AutomationStatusPaused

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.ErrorIs(t, err, engine.ErrAutomationInactive)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Empty(t, rec.executed)
}

func TestRunMissingProfileFailsRun(t *testing.T) {
	t.Parallel()

	rec := newRecorder()

	store := memory.NewPersistence()
	reg := registry.New(slog.Default())
	reg.Register(&recorderFactory{kind: "step", recorder: rec})
	eng := engine.New(store, reg, slog.Default())

	automation := activeAutomation(
		[]models.Node{triggerNode("t1", models.KindWebhookReceived), actionNode("a1", "step")},
		[]models.Edge{{ID: "e1", Source: "t1", Target: "a1"}},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.Error(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Details, "profile")
	assert.Empty(t, rec.executed)
}

func TestRunMissingStartNodeFails(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	eng, _ := setup(t, rec, "step")

	automation := activeAutomation(
		[]models.Node{triggerNode("t1", models.KindWebhookReceived)},
		nil,
	)

	run, err := eng.Run(context.Background(), automation, "ghost", nil, nil)
	require.ErrorIs(t, err, engine.ErrStartNodeNotFound)
	assert.Equal(t, models.RunStatusFailed, run.Status)
}

func TestRunEdgeWithoutHandleAlwaysFires(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.results["c1"] = &models.HandlerResult{NextHandle: "true"}

	eng, _ := setup(t, rec, "step", "gate")

	automation := activeAutomation(
		[]models.Node{
			triggerNode("t1", models.KindWebhookReceived),
			{ID: "c1", Data: models.NodeData{NodeType: models.NodeTypeLogic, Type: "gate"}},
			actionNode("always", "step"),
			actionNode("no", "step"),
		},
		[]models.Edge{
			{ID: "e1", Source: "t1", Target: "c1"},
			{ID: "e2", Source: "c1", Target: "always"},
			{ID: "e3", Source: "c1", Target: "no", SourceHandle: "false"},
		},
	)

	run, err := eng.Run(context.Background(), automation, "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Contains(t, rec.executed, "always")
	assert.NotContains(t, rec.executed, "no")
}
