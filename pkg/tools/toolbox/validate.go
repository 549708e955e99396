package toolbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// Validate checks raw against schema and returns a *toolerr.ValidationError
// naming the first offending field. It covers the subset of JSON Schema tools
// declare: type, enum, required, properties, items, length and range bounds,
// and pattern. A nil schema accepts any JSON object.
func Validate(schema *jsonschema.Schema, raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return &toolerr.ValidationError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	if schema == nil {
		if _, ok := v.(map[string]any); !ok {
			return &toolerr.ValidationError{Reason: "expected an object"}
		}
		return nil
	}

	return validateValue("", schema, v)
}

func validateValue(path string, s *jsonschema.Schema, v any) error {
	if s == nil {
		return nil
	}

	types := s.Types
	if s.Type != "" {
		types = []string{s.Type}
	}

	matched := ""
	if len(types) > 0 {
		for _, t := range types {
			if isType(t, v) {
				matched = t
				break
			}
		}
		if matched == "" {
			return fieldError(path, "expected %s, got %s", joinTypes(types), typeName(v))
		}
	}

	if len(s.Enum) > 0 && !inEnum(s.Enum, v) {
		return fieldError(path, "must be one of %s", formatEnum(s.Enum))
	}

	switch val := v.(type) {
	case map[string]any:
		return validateObject(path, s, val)
	case []any:
		return validateArray(path, s, val)
	case string:
		return validateString(path, s, val)
	case json.Number:
		return validateNumber(path, s, val, matched == "integer")
	}
	return nil
}

func validateObject(path string, s *jsonschema.Schema, obj map[string]any) error {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return fieldError(join(path, name), "is required")
		}
	}

	// Deterministic order so the reported field is stable.
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val, ok := obj[name]
		if !ok {
			continue
		}
		if err := validateValue(join(path, name), s.Properties[name], val); err != nil {
			return err
		}
	}
	return nil
}

func validateArray(path string, s *jsonschema.Schema, arr []any) error {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		return fieldError(path, "must contain at least %d items", *s.MinItems)
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		return fieldError(path, "must contain at most %d items", *s.MaxItems)
	}

	for i, item := range arr {
		if err := validateValue(fmt.Sprintf("%s[%d]", path, i), s.Items, item); err != nil {
			return err
		}
	}
	return nil
}

func validateString(path string, s *jsonschema.Schema, str string) error {
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		return fieldError(path, "must be at least %d characters", *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		return fieldError(path, "must be at most %d characters", *s.MaxLength)
	}

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return fieldError(path, "schema pattern %q does not compile", s.Pattern)
		}
		if !re.MatchString(str) {
			return fieldError(path, "does not match %s", s.Pattern)
		}
	}
	return nil
}

func validateNumber(path string, s *jsonschema.Schema, num json.Number, integer bool) error {
	f, err := num.Float64()
	if err != nil {
		return fieldError(path, "is not a number")
	}
	if integer && !fitsInt64(f) {
		return fieldError(path, "is out of range for an integer")
	}

	if s.Minimum != nil && f < *s.Minimum {
		return fieldError(path, "must be >= %v", *s.Minimum)
	}
	if s.Maximum != nil && f > *s.Maximum {
		return fieldError(path, "must be <= %v", *s.Maximum)
	}
	return nil
}

func isType(t string, v any) bool {
	switch t {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "null":
		return v == nil
	case "number":
		_, ok := v.(json.Number)
		return ok
	case "integer":
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		f, err := n.Float64()
		return err == nil && f == math.Trunc(f)
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// inEnum compares v, decoded with UseNumber, against the schema's enum
// values. Numbers compare by value, everything else by JSON type and value.
func inEnum(enum []any, v any) bool {
	return slices.ContainsFunc(enum, func(e any) bool {
		return enumEqual(e, v)
	})
}

func enumEqual(e, v any) bool {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return false
		}
		ef, ok := enumNumber(e)
		return ok && ef == f
	}

	switch ev := e.(type) {
	case json.Number, float64, float32, int, int64, int32, uint, uint64:
		return false
	case map[string]any, []any:
		a, errA := json.Marshal(ev)
		b, errB := json.Marshal(v)
		return errA == nil && errB == nil && bytes.Equal(a, b)
	default:
		return e == v
	}
}

func enumNumber(e any) (float64, bool) {
	switch n := e.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func formatEnum(enum []any) string {
	b, err := json.Marshal(enum)
	if err != nil {
		return fmt.Sprint(enum)
	}
	return string(b)
}

func joinTypes(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return fmt.Sprint(types)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func fieldError(path, format string, args ...any) error {
	return toolerr.Validation(path, format, args...)
}
