// Package models defines the core domain models for the automation engine.
package models

import (
	"strings"
	"time"
)

// Contact is a CRM contact owned by a tenant. The phone number is the
// natural external key: inbound events are matched to contacts by their
// normalized phone.
type Contact struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"     validate:"required"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"        validate:"required"`
	Email        string         `json:"email,omitempty"`
	Company      string         `json:"company,omitempty"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NormalizePhone reduces a phone number to its digits-only international
// form: every non-digit is dropped and "00" international prefixes are
// trimmed. "+55 (11) 91234-5678" and "0055 11 91234 5678" normalize to
// the same value.
func NormalizePhone(phone string) string {
	var b strings.Builder

	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")

	return digits
}

// HasTag reports whether the contact carries the given tag.
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// Clone returns a deep copy of the contact. The engine threads a working
// copy through handlers; handlers return updated copies instead of
// mutating shared state.
func (c *Contact) Clone() *Contact {
	clone := *c
	clone.Tags = make([]string, len(c.Tags))
	copy(clone.Tags, c.Tags)

	clone.CustomFields = make(map[string]any, len(c.CustomFields))
	for k, v := range c.CustomFields {
		clone.CustomFields[k] = v
	}

	return &clone
}

// WithTag returns a copy of the contact with the tag added. Adding an
// existing tag is a no-op copy.
func (c *Contact) WithTag(tag string) *Contact {
	clone := c.Clone()
	if !clone.HasTag(tag) {
		clone.Tags = append(clone.Tags, tag)
	}

	return clone
}

// WithoutTag returns a copy of the contact with the tag removed. Removing
// an absent tag is a no-op copy.
func (c *Contact) WithoutTag(tag string) *Contact {
	clone := c.Clone()

	tags := clone.Tags[:0]
	for _, t := range clone.Tags {
		if t != tag {
			tags = append(tags, t)
		}
	}

	clone.Tags = tags

	return clone
}

// WithCustomField returns a copy of the contact with the custom field set.
func (c *Contact) WithCustomField(name string, value any) *Contact {
	clone := c.Clone()
	if clone.CustomFields == nil {
		clone.CustomFields = make(map[string]any, 1)
	}

	clone.CustomFields[name] = value

	return clone
}
