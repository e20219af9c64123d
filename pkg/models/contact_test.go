package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaptalk/zaptalk/pkg/models"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "plus and punctuation", phone: "+55 (11) 91234-5678", want: "5511912345678"},
		{name: "double zero prefix", phone: "0055 11 91234 5678", want: "5511912345678"},
		{name: "already normalized", phone: "5511912345678", want: "5511912345678"},
		{name: "letters dropped", phone: "tel: 55 11 91234 5678", want: "5511912345678"},
		{name: "empty", phone: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, models.NormalizePhone(tt.phone))
		})
	}
}

func TestWithTag(t *testing.T) {
	t.Parallel()

	contact := &models.Contact{ID: "c1", Tags: []string{"lead"}}

	updated := contact.WithTag("vip")
	assert.Equal(t, []string{"lead", "vip"}, updated.Tags)
	assert.Equal(t, []string{"lead"}, contact.Tags, "original is untouched")

	again := updated.WithTag("vip")
	assert.Equal(t, []string{"lead", "vip"}, again.Tags, "adding twice is a no-op")
}

func TestWithoutTag(t *testing.T) {
	t.Parallel()

	contact := &models.Contact{ID: "c1", Tags: []string{"lead", "vip"}}

	updated := contact.WithoutTag("lead")
	assert.Equal(t, []string{"vip"}, updated.Tags)
	assert.Equal(t, []string{"lead", "vip"}, contact.Tags)

	same := contact.WithoutTag("absent")
	assert.Equal(t, []string{"lead", "vip"}, same.Tags)
}

func TestWithCustomField(t *testing.T) {
	t.Parallel()

	contact := &models.Contact{ID: "c1"}

	updated := contact.WithCustomField("plan", "pro")
	assert.Equal(t, "pro", updated.CustomFields["plan"])
	assert.Nil(t, contact.CustomFields)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	contact := &models.Contact{
		ID:           "c1",
		Tags:         []string{"lead"},
		CustomFields: map[string]any{"plan": "free"},
	}

	clone := contact.Clone()
	clone.Tags[0] = "changed"
	clone.CustomFields["plan"] = "pro"

	assert.Equal(t, "lead", contact.Tags[0])
	assert.Equal(t, "free", contact.CustomFields["plan"])
}
