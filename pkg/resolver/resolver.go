// Package resolver substitutes {{dot.path}} placeholders against a
// contact and trigger payload context.
package resolver

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"

	"github.com/zaptalk/zaptalk/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}`)

// Context is the lookup root for placeholder paths. Paths are rooted at
// "contact" or "trigger", e.g. {{contact.custom_fields.order_id}}.
type Context struct {
	Contact *models.Contact
	Trigger map[string]any
}

// Resolve replaces every {{dot.path}} token in template with the value
// found at that path in ctx. Unresolvable tokens are left verbatim so the
// gap stays visible in the output. Arrays join with ", ". Pure function;
// safe for concurrent use.
func Resolve(template string, ctx Context) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	root := gabs.New()

	if ctx.Contact != nil {
		if raw, err := json.Marshal(ctx.Contact); err == nil {
			if parsed, err := gabs.ParseJSON(raw); err == nil {
				_, _ = root.Set(parsed.Data(), "contact")
			}
		}
	}

	if ctx.Trigger != nil {
		_, _ = root.Set(ctx.Trigger, "trigger")
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		path := placeholderPattern.FindStringSubmatch(token)[1]

		if !root.ExistsP(path) {
			return token
		}

		return stringify(root.Path(path).Data())
	})
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}

		return strings.Join(parts, ", ")
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(raw)
	}
}
