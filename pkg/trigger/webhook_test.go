package trigger_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence/memory"
	"github.com/zaptalk/zaptalk/pkg/trigger"
)

// fakeRunner records engine invocations.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
}

type runCall struct {
	automationID string
	startNodeID  string
	contact      *models.Contact
	triggerData  map[string]any
}

func (r *fakeRunner) Run(_ context.Context, automation *models.Automation, startNodeID string, contact *models.Contact, triggerData map[string]any) (*models.AutomationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, runCall{
		automationID: automation.ID,
		startNodeID:  startNodeID,
		contact:      contact,
		triggerData:  triggerData,
	})

	return &models.AutomationRun{ID: "run-1", AutomationID: automation.ID, Status: models.RunStatusSuccess}, nil
}

func TestParseSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		slug       string
		wantPrefix string
		wantNodeID string
		wantErr    bool
	}{
		{name: "simple", slug: "acme_node1", wantPrefix: "acme", wantNodeID: "node1"},
		{name: "prefix with underscores", slug: "acme_corp_node1", wantPrefix: "acme_corp", wantNodeID: "node1"},
		{name: "no separator", slug: "acmenode1", wantErr: true},
		{name: "trailing separator", slug: "acme_", wantErr: true},
		{name: "leading separator", slug: "_node1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prefix, nodeID, err := trigger.ParseSlug(tt.slug)

			if tt.wantErr {
				require.ErrorIs(t, err, trigger.ErrInvalidSlug)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantNodeID, nodeID)
		})
	}
}

func webhookFixture(t *testing.T, nodeConfig map[string]any) (*memory.Persistence, *models.Automation, string) {
	t.Helper()

	store := memory.NewPersistence()

	require.NoError(t, store.SaveProfile(context.Background(), &models.Profile{
		ID:            "owner-1",
		CompanyName:   "Acme",
		PhoneNumberID: "555000",
		WebhookPrefix: "acme",
	}))

	automation := &models.Automation{
		OwnerID: "owner-1",
		Name:    "capture flow",
		Status:  models.AutomationStatusActive,
		Nodes: []models.Node{
			{ID: "node1", Data: models.NodeData{
				NodeType: models.NodeTypeTrigger,
				Type:     models.KindWebhookReceived,
				Config:   nodeConfig,
			}},
		},
	}
	require.NoError(t, store.SaveAutomation(context.Background(), automation))

	return store, automation, trigger.Slug("acme", "node1")
}

func TestHandleCaptureMode(t *testing.T) {
	t.Parallel()

	store, automation, slug := webhookFixture(t, map[string]any{})
	runner := &fakeRunner{}
	service := trigger.NewWebhookService(store, runner, nil, slog.Default())

	payload := map[string]any{"customer": map[string]any{"phone": "5511912345678"}}

	result, err := service.Handle(context.Background(), slug, payload)
	require.NoError(t, err)

	assert.True(t, result.Captured)
	assert.Empty(t, runner.calls, "capture mode must not run the automation")

	stored, err := store.AutomationByID(context.Background(), automation.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, stored.Nodes[0].Data.Config["last_captured_data"])
}

func TestHandleSteadyState(t *testing.T) {
	t.Parallel()

	store, automation, slug := webhookFixture(t, map[string]any{
		"last_captured_data": map[string]any{"customer": map[string]any{"phone": "x"}},
		"data_mapping": []any{
			map[string]any{"source": "customer.phone", "destination": "phone"},
			map[string]any{"source": "customer.name", "destination": "name"},
			map[string]any{"source": "campaign", "destination": "tag"},
		},
	})

	runner := &fakeRunner{}
	service := trigger.NewWebhookService(store, runner, nil, slog.Default())

	payload := map[string]any{
		"customer": map[string]any{"phone": "+55 (11) 91234-5678", "name": "Maria"},
		"campaign": "blackfriday",
	}

	result, err := service.Handle(context.Background(), slug, payload)
	require.NoError(t, err)

	assert.False(t, result.Captured)
	require.NotNil(t, result.Contact)
	assert.Equal(t, "5511912345678", result.Contact.Phone)
	assert.Equal(t, "Maria", result.Contact.Name)
	assert.True(t, result.Contact.HasTag("blackfriday"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, automation.ID, runner.calls[0].automationID)
	assert.Equal(t, "node1", runner.calls[0].startNodeID)
	assert.Equal(t, payload, runner.calls[0].triggerData)

	// Contact was persisted before the run.
	stored, err := store.ContactByPhone(context.Background(), "owner-1", "5511912345678")
	require.NoError(t, err)
	assert.Equal(t, "Maria", stored.Name)
}

func TestHandleReusesExistingContact(t *testing.T) {
	t.Parallel()

	store, _, slug := webhookFixture(t, map[string]any{
		"last_captured_data": map[string]any{},
		"data_mapping": []any{
			map[string]any{"source": "phone", "destination": "phone"},
		},
	})

	existing := &models.Contact{OwnerID: "owner-1", Name: "Maria", Phone: "5511912345678", Tags: []string{"vip"}}
	require.NoError(t, store.SaveContact(context.Background(), existing))

	runner := &fakeRunner{}
	service := trigger.NewWebhookService(store, runner, nil, slog.Default())

	result, err := service.Handle(context.Background(), slug, map[string]any{"phone": "0055 11 91234 5678"})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, result.Contact.ID)
	assert.True(t, result.Contact.HasTag("vip"))
}

func TestHandlePhoneUnmappable(t *testing.T) {
	t.Parallel()

	store, _, slug := webhookFixture(t, map[string]any{
		"last_captured_data": map[string]any{},
		"data_mapping": []any{
			map[string]any{"source": "customer.phone", "destination": "phone"},
		},
	})

	runner := &fakeRunner{}
	service := trigger.NewWebhookService(store, runner, nil, slog.Default())

	_, err := service.Handle(context.Background(), slug, map[string]any{"customer": map[string]any{}})
	require.ErrorIs(t, err, trigger.ErrPhoneNotMapped)
	assert.Empty(t, runner.calls)
}

func TestHandleUnknownPrefix(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()
	service := trigger.NewWebhookService(store, &fakeRunner{}, nil, slog.Default())

	_, err := service.Handle(context.Background(), "ghost_node1", map[string]any{})
	require.Error(t, err)
}

func TestHandleNonWebhookNode(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence()

	require.NoError(t, store.SaveProfile(context.Background(), &models.Profile{
		ID: "owner-1", CompanyName: "Acme", PhoneNumberID: "555000", WebhookPrefix: "acme",
	}))

	automation := &models.Automation{
		OwnerID: "owner-1",
		Name:    "tag flow",
		Status:  models.AutomationStatusActive,
		Nodes: []models.Node{
			{ID: "node1", Data: models.NodeData{NodeType: models.NodeTypeTrigger, Type: models.KindNewContact}},
		},
	}
	require.NoError(t, store.SaveAutomation(context.Background(), automation))

	service := trigger.NewWebhookService(store, &fakeRunner{}, nil, slog.Default())

	_, err := service.Handle(context.Background(), "acme_node1", map[string]any{})
	require.ErrorIs(t, err, trigger.ErrNotWebhookNode)
}
