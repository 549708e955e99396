package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// Handler executes a tool with validated JSON input and returns a
// JSON-serializable result.
type Handler func(ctx context.Context, input json.RawMessage) (any, error)

// Tool represents an executable tool with a name, description, JSON Schema, and handler.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

// SchemaJSON returns the input schema encoded as JSON. A nil schema encodes as
// an empty object schema.
func (t Tool) SchemaJSON() json.RawMessage {
	if t.InputSchema == nil {
		return json.RawMessage(`{"type":"object"}`)
	}

	b, err := json.Marshal(t.InputSchema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return b
}

// Typed adapts a function taking a decoded input struct into a Handler. The
// input has already passed schema validation when fn runs. Whole numbers
// written with a fraction or exponent ("5.0", "1e3") decode into integer
// fields, and any input that still does not fit In is reported as a
// *toolerr.ValidationError.
func Typed[In any](fn func(ctx context.Context, in In) (any, error)) Handler {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		var in In
		if len(input) > 0 {
			if err := json.Unmarshal(normalizeNumbers(input), &in); err != nil {
				return nil, decodeError(err)
			}
		}
		return fn(ctx, in)
	}
}

// normalizeNumbers rewrites integral numbers that fit an int64 in plain
// integer form. Input that does not parse is returned unchanged.
func normalizeNumbers(raw json.RawMessage) json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}

	changed := false
	v = walkNumbers(v, func(n json.Number) json.Number {
		if !strings.ContainsAny(string(n), ".eE") {
			return n
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || !fitsInt64(f) {
			return n
		}
		changed = true
		return json.Number(strconv.FormatInt(int64(f), 10))
	})
	if !changed {
		return raw
	}

	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func walkNumbers(v any, fn func(json.Number) json.Number) any {
	switch val := v.(type) {
	case json.Number:
		return fn(val)
	case map[string]any:
		for k, item := range val {
			val[k] = walkNumbers(item, fn)
		}
	case []any:
		for i, item := range val {
			val[i] = walkNumbers(item, fn)
		}
	}
	return v
}

// fitsInt64 reports whether f lies within the int64 range. 2^63 itself is
// exactly representable as a float64 and excluded.
func fitsInt64(f float64) bool {
	return f >= math.MinInt64 && f < math.MaxInt64
}

func decodeError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return toolerr.Validation(te.Field, "expected %s, got %s", te.Type, te.Value)
	}
	return &toolerr.ValidationError{Reason: fmt.Sprintf("decode input: %v", err)}
}
