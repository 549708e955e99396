package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// ErrDuplicateTool is returned by Register when a tool name is already taken.
var ErrDuplicateTool = errors.New("toolbox: duplicate tool")

// ToolBox is the tool registry. Tools are registered at startup and listed in
// registration order. Register is not safe for concurrent use; once wiring is
// done the ToolBox is read-only and may be shared freely.
type ToolBox struct {
	tools map[string]Tool
	order []string
}

// New creates a new ToolBox ready for use.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]Tool),
	}
}

// Register adds one or more tools. It stops at the first invalid tool and
// fails with ErrDuplicateTool if a name is already registered.
func (tb *ToolBox) Register(tools ...Tool) error {
	for _, t := range tools {
		if t.Name == "" {
			return errors.New("toolbox: tool name is required")
		}
		if t.Handler == nil {
			return fmt.Errorf("toolbox: tool %q: handler is required", t.Name)
		}
		if t.InputSchema != nil && t.InputSchema.Type != "" && t.InputSchema.Type != "object" {
			return fmt.Errorf("toolbox: tool %q: input schema must be an object", t.Name)
		}
		if _, dup := tb.tools[t.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTool, t.Name)
		}

		tb.tools[t.Name] = t
		tb.order = append(tb.order, t.Name)
	}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for static
// wiring at startup.
func (tb *ToolBox) MustRegister(tools ...Tool) {
	if err := tb.Register(tools...); err != nil {
		panic(err)
	}
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Tools returns all registered tools in registration order.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.order))
	for _, name := range tb.order {
		result = append(result, tb.tools[name])
	}
	return result
}

// Execute validates raw against the tool's schema, runs the handler and
// returns its JSON-encoded result. Validation failures are
// *toolerr.ValidationError and the handler is not invoked. Handler failures,
// including panics, are *toolerr.ExecutionError.
func (tb *ToolBox) Execute(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	t, ok := tb.tools[name]
	if !ok {
		return nil, toolerr.Validation("name", "unknown tool %q", name)
	}

	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	if err := Validate(t.InputSchema, raw); err != nil {
		return nil, err
	}

	result, err := runHandler(ctx, t, raw)
	if err != nil {
		return nil, &toolerr.ExecutionError{Tool: name, Err: err}
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, &toolerr.ExecutionError{Tool: name, Err: fmt.Errorf("encode result: %w", err)}
	}
	return out, nil
}

func runHandler(ctx context.Context, t Tool, raw json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return t.Handler(ctx, raw)
}

// Call executes a tool call and returns the resolved invocation. It never
// fails: errors end up in the output-error state with their taxonomy kind.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolInvocation {
	inv := content.NewInvocation(tc)

	out, err := tb.Execute(ctx, tc.Name, inv.Input)
	if err != nil {
		_ = inv.Fail(err.Error(), string(toolerr.KindOf(err)))
		return inv
	}

	_ = inv.Resolve(out)
	return inv
}
