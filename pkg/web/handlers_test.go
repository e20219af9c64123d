package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptalk/zaptalk/pkg/engine"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence/memory"
	"github.com/zaptalk/zaptalk/pkg/registry"
	"github.com/zaptalk/zaptalk/pkg/trigger"
	"github.com/zaptalk/zaptalk/pkg/web"
)

func setupTestApp(t *testing.T, nodeConfig map[string]any) (*fiber.App, *memory.Persistence) {
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
		Name:    "lead capture",
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

	eng := engine.New(store, registry.New(slog.Default()), slog.Default())
	webhooks := trigger.NewWebhookService(store, eng, nil, slog.Default())
	handlers := web.NewTriggerHandlers(webhooks, store, slog.Default())

	app := fiber.New()
	handlers.Register(app)

	return app, store
}

func steadyStateConfig() map[string]any {
	return map[string]any{
		"last_captured_data": map[string]any{},
		"data_mapping": []any{
			map[string]any{"source": "phone", "destination": "phone"},
			map[string]any{"source": "name", "destination": "name"},
		},
	}
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	decoded := make(map[string]any)
	_ = json.NewDecoder(resp.Body).Decode(&decoded)

	return resp, decoded
}

func TestTriggerCaptureMode(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t, map[string]any{})

	resp, body := doRequest(t, app, http.MethodPost, "/trigger/acme_node1",
		map[string]any{"phone": "5511912345678"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "captured", body["status"])

	automations, err := store.AutomationsByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, automations, 1)
	assert.Contains(t, automations[0].Nodes[0].Data.Config, "last_captured_data")
}

func TestTriggerSteadyState(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t, steadyStateConfig())

	resp, body := doRequest(t, app, http.MethodPost, "/trigger/acme_node1",
		map[string]any{"phone": "+55 11 91234-5678", "name": "Maria"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["run_id"])

	contact, err := store.ContactByPhone(context.Background(), "owner-1", "5511912345678")
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)

	run, err := store.RunByID(context.Background(), body["run_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
}

func TestTriggerGetUsesQueryPayload(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t, steadyStateConfig())

	resp, body := doRequest(t, app, http.MethodGet,
		"/trigger/acme_node1?phone=5511912345678&name=Maria", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	contact, err := store.ContactByPhone(context.Background(), "owner-1", "5511912345678")
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
}

func TestTriggerWildcardRoute(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, steadyStateConfig())

	resp, body := doRequest(t, app, http.MethodPost, "/t/acme_node1",
		map[string]any{"phone": "5511912345678"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestTriggerUnknownPrefixIs404(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, steadyStateConfig())

	resp, _ := doRequest(t, app, http.MethodPost, "/trigger/ghost_node1",
		map[string]any{"phone": "5511912345678"})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerUnknownNodeIs404(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, steadyStateConfig())

	resp, _ := doRequest(t, app, http.MethodPost, "/trigger/acme_ghost",
		map[string]any{"phone": "5511912345678"})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerUnmappablePayloadIs400(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, steadyStateConfig())

	resp, _ := doRequest(t, app, http.MethodPost, "/trigger/acme_node1",
		map[string]any{"name": "Maria"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTriggerMalformedBodyIs400(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, steadyStateConfig())

	req := httptest.NewRequest(http.MethodPost, "/trigger/acme_node1",
		bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, map[string]any{})

	resp, body := doRequest(t, app, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])
}
