package tags_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptalk/zaptalk/pkg/actions/tags"
	"github.com/zaptalk/zaptalk/pkg/models"
)

func TestFactoriesRequireTag(t *testing.T) {
	t.Parallel()

	_, err := tags.NewAddFactory().Create(map[string]any{})
	require.ErrorIs(t, err, tags.ErrMissingTag)

	_, err = tags.NewRemoveFactory().Create(map[string]any{})
	require.ErrorIs(t, err, tags.ErrMissingTag)
}

func TestAddTag(t *testing.T) {
	t.Parallel()

	handler, err := tags.NewAddFactory().Create(map[string]any{"tag": "vip"})
	require.NoError(t, err)

	contact := &models.Contact{ID: "contact-1", OwnerID: "owner-1", Phone: "5511912345678", Tags: []string{"lead"}}

	result, err := handler.Execute(context.Background(), models.ExecutionContext{Contact: contact}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, result.UpdatedContact)

	assert.Equal(t, []string{"lead", "vip"}, result.UpdatedContact.Tags)
	assert.Equal(t, []string{"lead"}, contact.Tags, "original contact must not be mutated")
}

func TestAddTagAlreadyPresent(t *testing.T) {
	t.Parallel()

	handler, err := tags.NewAddFactory().Create(map[string]any{"tag": "vip"})
	require.NoError(t, err)

	contact := &models.Contact{ID: "contact-1", OwnerID: "owner-1", Phone: "5511912345678", Tags: []string{"vip"}}

	result, err := handler.Execute(context.Background(), models.ExecutionContext{Contact: contact}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"vip"}, result.UpdatedContact.Tags)
}

func TestRemoveTag(t *testing.T) {
	t.Parallel()

	handler, err := tags.NewRemoveFactory().Create(map[string]any{"tag": "lead"})
	require.NoError(t, err)

	contact := &models.Contact{ID: "contact-1", OwnerID: "owner-1", Phone: "5511912345678", Tags: []string{"lead", "vip"}}

	result, err := handler.Execute(context.Background(), models.ExecutionContext{Contact: contact}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"vip"}, result.UpdatedContact.Tags)
}

func TestRemoveAbsentTag(t *testing.T) {
	t.Parallel()

	handler, err := tags.NewRemoveFactory().Create(map[string]any{"tag": "churned"})
	require.NoError(t, err)

	contact := &models.Contact{ID: "contact-1", OwnerID: "owner-1", Phone: "5511912345678", Tags: []string{"vip"}}

	result, err := handler.Execute(context.Background(), models.ExecutionContext{Contact: contact}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"vip"}, result.UpdatedContact.Tags)
}

func TestExecuteWithoutContact(t *testing.T) {
	t.Parallel()

	handler, err := tags.NewAddFactory().Create(map[string]any{"tag": "vip"})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.ErrorIs(t, err, tags.ErrContactRequired)
}
