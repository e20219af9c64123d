package models

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// nodeConfigSchemas holds the JSON schema for each node kind's config.
// Validation happens at the storage boundary so the engine can trust the
// shapes it dispatches on. Kinds without an entry accept any config.
var nodeConfigSchemas = map[string]map[string]any{
	KindSendTemplate: {
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{"type": "string", "minLength": 1},
			"values": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required": []any{"template_id"},
	},
	KindSendText: {
		"type": "object",
		"properties": map[string]any{
			"message_text": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"message_text"},
	},
	KindSendMedia: {
		"type": "object",
		"properties": map[string]any{
			"media_url":  map[string]any{"type": "string", "minLength": 1},
			"media_type": map[string]any{"type": "string", "enum": []any{"image", "video", "document"}},
			"caption":    map[string]any{"type": "string"},
		},
		"required": []any{"media_url", "media_type"},
	},
	KindSendInteractive: {
		"type": "object",
		"properties": map[string]any{
			"message_text": map[string]any{"type": "string", "minLength": 1},
			"buttons": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"label": map[string]any{"type": "string", "minLength": 1},
					},
					"required": []any{"label"},
				},
			},
		},
		"required": []any{"message_text", "buttons"},
	},
	KindAddTag: {
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"tag"},
	},
	KindRemoveTag: {
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"tag"},
	},
	KindSetCustomField: {
		"type": "object",
		"properties": map[string]any{
			"field_name":  map[string]any{"type": "string", "minLength": 1},
			"field_value": map[string]any{"type": "string"},
		},
		"required": []any{"field_name"},
	},
	KindSendWebhook: {
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string", "minLength": 1},
			"method":  map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
			"headers": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []any{"url"},
	},
	KindCondition: {
		"type": "object",
		"properties": map[string]any{
			"match":      map[string]any{"type": "string", "enum": []any{"all", "any"}},
			"expression": map[string]any{"type": "string"},
			"rules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field":    map[string]any{"type": "string", "minLength": 1},
						"operator": map[string]any{"type": "string", "minLength": 1},
						"value":    map[string]any{"type": "string"},
					},
					"required": []any{"field", "operator"},
				},
			},
		},
	},
	KindSplitPath: {
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string", "minLength": 1},
			"branches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value":  map[string]any{"type": "string"},
						"handle": map[string]any{"type": "string", "minLength": 1},
					},
					"required": []any{"value", "handle"},
				},
			},
			"default_handle": map[string]any{"type": "string"},
		},
		"required": []any{"value"},
	},
	KindWebhookReceived: {
		"type": "object",
		"properties": map[string]any{
			"data_mapping": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source":          map[string]any{"type": "string", "minLength": 1},
						"destination":     map[string]any{"type": "string", "enum": []any{"phone", "name", "email", "tag", "custom_field"}},
						"destination_key": map[string]any{"type": "string"},
					},
					"required": []any{"source", "destination"},
				},
			},
			"last_captured_data": map[string]any{"type": "object"},
		},
	},
	KindNewContactWithTag: {
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"tag"},
	},
	KindMessageWithKeyword: {
		"type": "object",
		"properties": map[string]any{
			"keyword": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"keyword"},
	},
	KindButtonClicked: {
		"type": "object",
		"properties": map[string]any{
			"button_id": map[string]any{"type": "string", "minLength": 1},
		},
	},
}

// ValidateNodeConfig validates a node's config against its kind's schema.
// Kinds without a registered schema pass; the engine treats unknown kinds
// as pass-through anyway.
func ValidateNodeConfig(kind string, config map[string]any) error {
	schema, ok := nodeConfigSchemas[kind]
	if !ok {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", kind, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid %s config: %s", kind, errs[0].String())
		}

		return fmt.Errorf("invalid %s config", kind)
	}

	return nil
}
