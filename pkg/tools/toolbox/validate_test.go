package toolbox

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

func transferSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"direction", "recipients"},
		Properties: map[string]*jsonschema.Schema{
			"direction":  {Type: "string", Enum: []any{"deposit", "withdraw"}},
			"lockPeriod": {Type: "integer", Minimum: jsonschema.Ptr(1.0), Maximum: jsonschema.Ptr(12.0)},
			"memo":       {Type: "string", MaxLength: jsonschema.Ptr(34)},
			"sponsored":  {Type: "boolean"},
			"recipients": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"address", "amount"},
					Properties: map[string]*jsonschema.Schema{
						"address": {Type: "string", Pattern: "^S[PT]"},
						"amount":  {Type: "string"},
					},
				},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"valid", `{"direction":"deposit","recipients":[{"address":"SP1","amount":"1"}]}`, ""},
		{"valid with optional", `{"direction":"withdraw","recipients":[],"lockPeriod":3,"sponsored":true,"memo":"hi"}`, ""},
		{"missing required", `{"recipients":[]}`, "direction"},
		{"wrong primitive", `{"direction":1,"recipients":[]}`, "direction"},
		{"enum outside set", `{"direction":"sideways","recipients":[]}`, "direction"},
		{"integer with fraction", `{"direction":"deposit","recipients":[],"lockPeriod":2.5}`, "lockPeriod"},
		{"integer written with fraction", `{"direction":"deposit","recipients":[],"lockPeriod":3.0}`, ""},
		{"integer above maximum", `{"direction":"deposit","recipients":[],"lockPeriod":13}`, "lockPeriod"},
		{"string too long", `{"direction":"deposit","recipients":[],"memo":"0123456789012345678901234567890123456789"}`, "memo"},
		{"boolean as string", `{"direction":"deposit","recipients":[],"sponsored":"yes"}`, "sponsored"},
		{"array as object", `{"direction":"deposit","recipients":{}}`, "recipients"},
		{"nested required", `{"direction":"deposit","recipients":[{"address":"SP1","amount":"1"},{"address":"SP2"}]}`, "recipients[1].amount"},
		{"nested pattern", `{"direction":"deposit","recipients":[{"address":"bc1q","amount":"1"}]}`, "recipients[0].address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(transferSchema(), json.RawMessage(tt.input))
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var ve *toolerr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(transferSchema(), json.RawMessage(`{"direction":`))

	var ve *toolerr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, ve.Field)
	assert.Contains(t, ve.Reason, "malformed JSON")
}

func TestValidate_RootMustBeObject(t *testing.T) {
	assert.Error(t, Validate(transferSchema(), json.RawMessage(`[1,2]`)))
	assert.Error(t, Validate(nil, json.RawMessage(`"text"`)))
	assert.NoError(t, Validate(nil, json.RawMessage(`{"any":"thing"}`)))
}

func TestValidate_NullableType(t *testing.T) {
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"limit": {Types: []string{"integer", "null"}},
		},
	}

	assert.NoError(t, Validate(s, json.RawMessage(`{"limit":null}`)))
	assert.NoError(t, Validate(s, json.RawMessage(`{"limit":5}`)))
	assert.Error(t, Validate(s, json.RawMessage(`{"limit":"5"}`)))
}

func TestValidate_IntegerRange(t *testing.T) {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"limit": {Type: "integer"}},
	}

	assert.NoError(t, Validate(s, json.RawMessage(`{"limit":9007199254740992}`)))

	var ve *toolerr.ValidationError
	require.ErrorAs(t, Validate(s, json.RawMessage(`{"limit":1e30}`)), &ve)
	assert.Equal(t, "limit", ve.Field)
	assert.Contains(t, ve.Reason, "out of range")
}

func TestValidate_EnumComparesByType(t *testing.T) {
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"period": {Enum: []any{1.0, 7.0, 30.0}},
			"unit":   {Enum: []any{"1", "7"}},
		},
	}

	assert.NoError(t, Validate(s, json.RawMessage(`{"period":7}`)))
	assert.NoError(t, Validate(s, json.RawMessage(`{"period":1.0}`)))
	assert.NoError(t, Validate(s, json.RawMessage(`{"unit":"7"}`)))

	assert.Error(t, Validate(s, json.RawMessage(`{"period":"7"}`)))
	assert.Error(t, Validate(s, json.RawMessage(`{"unit":7}`)))
	assert.Error(t, Validate(s, json.RawMessage(`{"period":2}`)))
}
