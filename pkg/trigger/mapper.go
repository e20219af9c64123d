// Package trigger translates external events (inbound webhooks, CRM
// events) into automation engine invocations.
package trigger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// Mapping rule destinations.
const (
	DestinationPhone       = "phone"
	DestinationName        = "name"
	DestinationEmail       = "email"
	DestinationTag         = "tag"
	DestinationCustomField = "custom_field"
)

var (
	ErrPhoneNotMapped = errors.New("no mapping rule resolves a phone number")
	ErrInvalidRule    = errors.New("invalid data mapping rule")
)

// MappingRule maps one payload path to a contact attribute.
type MappingRule struct {
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	DestinationKey string `json:"destination_key,omitempty"`
}

// MappedContact is the contact-shaped output of applying a rule set to a
// webhook payload.
type MappedContact struct {
	Phone        string
	Name         string
	Email        string
	Tags         []string
	CustomFields map[string]any
}

// ParseMappingRules reads the data_mapping list out of a raw node config.
func ParseMappingRules(config map[string]any) ([]MappingRule, error) {
	rawRules, _ := config["data_mapping"].([]any)

	rules := make([]MappingRule, 0, len(rawRules))

	for i, rawRule := range rawRules {
		ruleMap, ok := rawRule.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d is not an object", ErrInvalidRule, i)
		}

		rule := MappingRule{}
		rule.Source, _ = ruleMap["source"].(string)
		rule.Destination, _ = ruleMap["destination"].(string)
		rule.DestinationKey, _ = ruleMap["destination_key"].(string)

		if rule.Source == "" || rule.Destination == "" {
			return nil, fmt.Errorf("%w: rule %d needs 'source' and 'destination'", ErrInvalidRule, i)
		}

		if rule.Destination == DestinationCustomField && rule.DestinationKey == "" {
			return nil, fmt.Errorf("%w: rule %d maps to custom_field without 'destination_key'", ErrInvalidRule, i)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// ApplyMapping resolves each rule's source path against the payload and
// assembles the contact attributes. A phone rule that resolves to a
// non-empty value is mandatory.
func ApplyMapping(rules []MappingRule, payload map[string]any) (*MappedContact, error) {
	root := gabs.Wrap(payload)

	mapped := &MappedContact{CustomFields: make(map[string]any)}

	for _, rule := range rules {
		value, ok := lookup(root, rule.Source)
		if !ok {
			continue
		}

		switch rule.Destination {
		case DestinationPhone:
			mapped.Phone = stringify(value)
		case DestinationName:
			mapped.Name = stringify(value)
		case DestinationEmail:
			mapped.Email = stringify(value)
		case DestinationTag:
			if tag := stringify(value); tag != "" {
				mapped.Tags = append(mapped.Tags, tag)
			}
		case DestinationCustomField:
			mapped.CustomFields[rule.DestinationKey] = value
		}
	}

	if mapped.Phone == "" {
		return nil, ErrPhoneNotMapped
	}

	return mapped, nil
}

func lookup(root *gabs.Container, path string) (any, bool) {
	if !root.ExistsP(path) {
		return nil, false
	}

	value := root.Path(path).Data()
	if value == nil {
		return nil, false
	}

	return value, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}

	return fmt.Sprintf("%v", value)
}
