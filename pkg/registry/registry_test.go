package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
	"github.com/zaptalk/zaptalk/pkg/registry"
)

type nopHandler struct{}

func (nopHandler) Execute(context.Context, models.ExecutionContext, *slog.Logger) (*models.HandlerResult, error) {
	return &models.HandlerResult{}, nil
}

type stubFactory struct {
	id        string
	createErr error
}

func (f stubFactory) ID() string { return f.id }

func (f stubFactory) Create(map[string]any) (protocol.Handler, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	return nopHandler{}, nil
}

func TestCreate(t *testing.T) {
	t.Parallel()

	reg := registry.New(slog.Default())
	reg.Register(stubFactory{id: "add_tag"})

	handler, err := reg.Create("add_tag", map[string]any{"tag": "vip"})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestCreateUnknownKind(t *testing.T) {
	t.Parallel()

	reg := registry.New(slog.Default())

	_, err := reg.Create("unknown", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrHandlerNotRegistered)
	assert.Contains(t, err.Error(), `"unknown"`)
}

func TestCreatePropagatesFactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("tag is required")

	reg := registry.New(slog.Default())
	reg.Register(stubFactory{id: "add_tag", createErr: boom})

	_, err := reg.Create("add_tag", map[string]any{})
	assert.ErrorIs(t, err, boom)
}

func TestHasAndKinds(t *testing.T) {
	t.Parallel()

	reg := registry.New(slog.Default())
	reg.Register(stubFactory{id: "add_tag"})
	reg.Register(stubFactory{id: "send_text_message"})

	assert.True(t, reg.Has("add_tag"))
	assert.False(t, reg.Has("condition"))
	assert.ElementsMatch(t, []string{"add_tag", "send_text_message"}, reg.Kinds())
}
