package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormField is one editable attribute of a resource.
type FormField struct {
	Name        string
	Label       string
	Rules       string // validator tags
	Placeholder string
	Choices     []string
	Numeric     bool // sent as a JSON number
}

// Required reports whether the field must be present on create.
func (f FormField) Required() bool {
	for _, rule := range strings.Split(f.Rules, ",") {
		if rule == "required" {
			return true
		}
	}
	return false
}

// FieldErrors maps a field name to its messages, the same shape the API
// returns for a 422 response.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Fields returns the field names with errors, sorted.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe.Fields() {
		parts = append(parts, f+": "+strings.Join(fe[f], ", "))
	}
	return strings.Join(parts, "; ")
}

var validate = validator.New()

// Validate checks values against the resource form. With partial set,
// only the fields present in values are checked, as for an update.
// Unknown fields are reported. The result is nil when everything passes.
func (r Resource) Validate(values map[string]string, partial bool) FieldErrors {
	errs := FieldErrors{}
	for name := range values {
		if _, ok := r.Field(name); !ok {
			errs.Add(name, "is not an editable field")
		}
	}
	for _, f := range r.Form {
		v, present := values[f.Name]
		if partial && !present {
			continue
		}
		if msg := checkField(f, strings.TrimSpace(v)); msg != "" {
			errs.Add(f.Name, msg)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateValue checks a single value, for interactive forms.
func (f FormField) ValidateValue(v string) error {
	if msg := checkField(f, strings.TrimSpace(v)); msg != "" {
		return errors.New(f.Label + " " + msg)
	}
	return nil
}

func checkField(f FormField, v string) string {
	if f.Rules == "" {
		return ""
	}
	err := validate.Var(v, f.Rules)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	return message(verrs[0])
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "numeric":
		return "must be a number"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// Body builds the JSON request body for values. Numeric fields are sent
// as numbers, everything else as strings.
func (r Resource) Body(values map[string]string) map[string]any {
	body := make(map[string]any, len(values))
	for name, v := range values {
		v = strings.TrimSpace(v)
		if f, ok := r.Field(name); ok && f.Numeric && v != "" {
			body[name] = json.Number(v)
			continue
		}
		body[name] = v
	}
	return body
}

// ParseAssignments turns "key=value" pairs into a value map.
func ParseAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", p)
		}
		values[k] = v
	}
	return values, nil
}
