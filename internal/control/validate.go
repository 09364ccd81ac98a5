package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"smarter-bulb/internal/domain"
)

const rootField = "settings"

// ParseSettings decodes an untrusted control object and validates it against
// the settings schema. Every violation is reported in a single
// *domain.ValidationError; values are never clamped or defaulted. JSON null
// is treated the same as an absent field.
func ParseSettings(data []byte) (domain.Settings, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return domain.Settings{}, invalid(rootField, fmt.Sprintf("malformed JSON: %v", err))
	}
	if dec.More() {
		return domain.Settings{}, invalid(rootField, "unexpected data after JSON object")
	}

	if err := ValidateValue(raw); err != nil {
		return domain.Settings{}, err
	}

	// Decode from the validated value, not the raw bytes: encoding/json
	// matches keys case-insensitively, which would let "Brightness" skip
	// the checks above.
	clean, err := json.Marshal(controlSchema.normalize(raw))
	if err != nil {
		return domain.Settings{}, fmt.Errorf("encoding validated settings: %w", err)
	}

	var s domain.Settings
	if err := json.Unmarshal(clean, &s); err != nil {
		return domain.Settings{}, invalid(rootField, err.Error())
	}
	return s, nil
}

// ValidateValue checks an already decoded JSON value. Numbers may be
// json.Number, float64 or Go integers; integral spellings such as 50.0 or
// 1e3 count as integers.
func ValidateValue(v any) error {
	var errs []domain.FieldError
	controlSchema.check("", v, &errs)
	if len(errs) > 0 {
		return &domain.ValidationError{Fields: errs}
	}
	return nil
}

// Validate re-checks settings built in Go against the same rules applied to
// untrusted input.
func Validate(s domain.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = ParseSettings(data)
	return err
}

func invalid(field, reason string) error {
	return &domain.ValidationError{Fields: []domain.FieldError{{Field: field, Reason: reason}}}
}

func (s *Schema) check(path string, v any, errs *[]domain.FieldError) {
	add := func(reason string) {
		field := path
		if field == "" {
			field = rootField
		}
		*errs = append(*errs, domain.FieldError{Field: field, Reason: reason})
	}

	switch s.Kind {
	case KindBoolean:
		if _, ok := v.(bool); !ok {
			add("expected boolean, got " + typeName(v))
		}

	case KindInteger:
		n, ok := toInt(v)
		if !ok {
			add(fmt.Sprintf("expected integer, got %s", describe(v)))
			return
		}
		if s.Range != nil && (n < int64(s.Range.Min) || n > int64(s.Range.Max)) {
			add(fmt.Sprintf("must be between %d and %d, got %d", s.Range.Min, s.Range.Max, n))
		}

	case KindString:
		str, ok := v.(string)
		if !ok {
			add("expected string, got " + typeName(v))
			return
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			add(fmt.Sprintf("must be one of %s, got %q", strings.Join(s.Enum, ", "), str))
		}

	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			add("expected object, got " + typeName(v))
			return
		}
		for _, name := range s.Required {
			if val, present := obj[name]; !present || val == nil {
				add(fmt.Sprintf("missing required field %q", name))
			}
		}
		for _, p := range s.Properties {
			val, present := obj[p.Name]
			if !present || val == nil {
				continue
			}
			p.Schema.check(join(path, p.Name), val, errs)
		}

	case KindArray:
		items, ok := v.([]any)
		if !ok {
			add("expected array, got " + typeName(v))
			return
		}
		for i, item := range items {
			s.Items.check(fmt.Sprintf("%s[%d]", path, i), item, errs)
		}
	}
}

// normalize keeps only the keys the schema declares, with their exact
// spelling, drops nulls and turns every integer into an int64. v must have
// passed check.
func (s *Schema) normalize(v any) any {
	switch s.Kind {
	case KindInteger:
		n, _ := toInt(v)
		return n

	case KindObject:
		obj, _ := v.(map[string]any)
		out := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			if val, ok := obj[p.Name]; ok && val != nil {
				out[p.Name] = p.Schema.normalize(val)
			}
		}
		return out

	case KindArray:
		items, _ := v.([]any)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = s.Items.normalize(item)
		}
		return out

	default:
		return v
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f)
	case float64:
		if math.Trunc(n) != n || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64, int32:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func describe(v any) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case float64:
		return fmt.Sprintf("%g", n)
	default:
		return typeName(v)
	}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
