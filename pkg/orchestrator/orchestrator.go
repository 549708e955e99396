// Package orchestrator drives one chat request: it composes the system
// prompt, streams the model reply, runs the tool calls the model makes and
// relays everything to the client as a chunk stream.
//
// A request moves through Composing, Streaming, PendingToolCall and
// ToolResolved, looping back to Streaming for up to MaxSteps model calls,
// and ends in Complete. Tool calls run concurrently, bounded per request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/uistream"
	"github.com/germanamz/blasko/pkg/wallet"
)

// EventKind identifies an observer notification.
type EventKind string

const (
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
)

// Event is a tool call notification. ErrorKind and Duration are set on
// EventToolCallEnd.
type Event struct {
	Kind           EventKind
	ConversationID string
	ToolCallID     string
	ToolName       string
	ErrorKind      string
	Duration       time.Duration
}

// Observer receives tool call notifications. It is called from tool
// goroutines and must not block.
type Observer func(Event)

// Options configures an Orchestrator.
type Options struct {
	MaxSteps           int           // Model calls per request (default 5).
	RequestTimeout     time.Duration // Deadline of a whole request (default 30s).
	MaxConcurrentTools int           // Tool calls in flight per request (default 4).
	Instructions       string        // Base system prompt; DefaultInstructions when empty.
	Observer           Observer
	Logger             *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 5
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.MaxConcurrentTools <= 0 {
		o.MaxConcurrentTools = 4
	}
	if o.Observer == nil {
		o.Observer = func(Event) {}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Request is one chat turn. Messages are owned by the client and carry the
// whole conversation so far.
type Request struct {
	ConversationID string
	Messages       []message.Message
	WalletAddress  string
}

// EmitFunc writes one chunk to the client. An error means the client is
// gone and ends the run.
type EmitFunc func(uistream.Chunk) error

// Orchestrator runs chat requests against a model and a tool registry. It
// holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	model     modeladapter.Streamer
	tools     *toolbox.ToolBox
	opts      Options
	log       *zap.Logger
	estimator modeladapter.TokenEstimator
}

// New creates an Orchestrator.
func New(model modeladapter.Streamer, tools *toolbox.ToolBox, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		model: model,
		tools: tools,
		opts:  opts,
		log:   opts.Logger,
	}
}

// Run executes req and streams its chunks through emit. It returns nil when
// the response finished, the context error when it was aborted, and the
// model or emit error otherwise. Tool failures never end a run.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit EmitFunc) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	r := &run{
		o:    o,
		log:  o.log.With(zap.String("conversation", convID)),
		out:  &emitter{fn: emit},
		conv: chat.New(convID),
		seen: make(map[string]struct{}),
		sem:  semaphore.NewWeighted(int64(o.opts.MaxConcurrentTools)),
	}
	defer r.out.close()

	r.log.Debug("state", zap.String("state", "composing"))
	r.compose(req)

	return r.loop(ctx)
}

// run is the state of one request.
type run struct {
	o    *Orchestrator
	log  *zap.Logger
	out  *emitter
	conv *chat.Chat
	seen map[string]struct{}
	sem  *semaphore.Weighted
}

// compose builds the conversation. Wallet results become text the model
// can read, and every invocation the client sent is marked as seen so it is
// never executed again.
func (r *run) compose(req Request) {
	for _, m := range req.Messages {
		parts := make([]content.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch v := p.(type) {
			case content.WalletResult:
				parts = append(parts, content.Text{Text: wallet.FromPart(v).Describe()})
			case content.ToolInvocation:
				r.seen[v.ID] = struct{}{}
				parts = append(parts, v)
			default:
				parts = append(parts, p)
			}
		}
		r.conv.Append(message.New(m.ID, m.Role, parts...))
	}

	r.conv.SetSystemPrompt(SystemPrompt(r.o.opts.Instructions, req.WalletAddress))
}

func (r *run) loop(ctx context.Context) error {
	messageID := uuid.NewString()
	if err := r.out.emit(uistream.Start(messageID)); err != nil {
		return err
	}

	finishReason := "stop"
	for step := range r.o.opts.MaxSteps {
		reply, reason, ranTools, err := r.step(ctx, messageID, step)
		if err != nil {
			return err
		}
		if reason != "" {
			finishReason = reason
		}

		if !ranTools {
			break
		}
		r.conv.Append(reply)
	}

	r.log.Debug("state", zap.String("state", "complete"), zap.String("finish_reason", finishReason))
	return r.out.emit(uistream.Finish(finishReason))
}

// step runs one model call and waits for the tool calls it made.
func (r *run) step(ctx context.Context, messageID string, n int) (message.Message, string, bool, error) {
	log := r.log.With(zap.Int("step", n))
	if ce := log.Check(zap.DebugLevel, "state"); ce != nil {
		ce.Write(zap.String("state", "streaming"),
			zap.Int("estimated_input_tokens", r.o.estimator.EstimateTotal(r.conv, r.o.tools.Tools())))
	}

	if err := r.out.emit(uistream.StartStep()); err != nil {
		return message.Message{}, "", false, err
	}

	var (
		reply       = message.New(messageID, role.Assistant)
		textID      = uuid.NewString()
		reasoningID = uuid.NewString()
		reason      string
		g           errgroup.Group
		mu          sync.Mutex
		resolved    = make(map[int]content.ToolInvocation)
	)

	handle := func(ev modeladapter.StreamEvent) error {
		switch ev.Kind {
		case modeladapter.EventTextDelta:
			reply.AppendText(ev.Text)
			return r.out.emit(uistream.TextDelta(textID, ev.Text))

		case modeladapter.EventReasoningDelta:
			reply.AppendReasoning(ev.Text)
			return r.out.emit(uistream.ReasoningDelta(reasoningID, ev.Text))

		case modeladapter.EventSource:
			reply.Parts = append(reply.Parts, ev.Source)
			return r.out.emit(uistream.SourceURL(ev.Source))

		case modeladapter.EventToolCall:
			tc := ev.ToolCall
			if _, dup := r.seen[tc.ID]; dup {
				log.Debug("duplicate tool call dropped", zap.String("tool_call", tc.ID))
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			r.seen[tc.ID] = struct{}{}

			inv := content.NewInvocation(tc)
			idx := len(reply.Parts)
			reply.Parts = append(reply.Parts, inv)

			log.Debug("state", zap.String("state", "pending_tool_call"),
				zap.String("tool", tc.Name), zap.String("tool_call", tc.ID))
			if err := r.out.emit(uistream.ToolInput(inv)); err != nil {
				return err
			}

			if err := r.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			g.Go(func() error {
				defer r.sem.Release(1)

				res := r.callTool(ctx, tc)

				mu.Lock()
				resolved[idx] = res
				mu.Unlock()

				log.Debug("state", zap.String("state", "tool_resolved"),
					zap.String("tool_call", tc.ID), zap.String("tool_state", string(res.State)))
				_ = r.out.emit(uistream.ToolOutput(res))
				return nil
			})

		case modeladapter.EventFinish:
			reason = ev.FinishReason
			log.Debug("model finished", zap.String("finish_reason", reason),
				zap.Int("input_tokens", ev.Usage.InputTokens), zap.Int("output_tokens", ev.Usage.OutputTokens))
		}
		return nil
	}

	streamErr := r.o.model.Stream(ctx, r.conv, r.o.tools.Tools(), handle)

	waited := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-ctx.Done():
	}

	if err := r.out.err(); err != nil {
		return message.Message{}, "", false, err
	}
	if err := ctx.Err(); err != nil {
		return message.Message{}, "", false, r.abort(err)
	}
	if streamErr != nil {
		log.Warn("model stream failed", zap.Error(streamErr))
		_ = r.out.emit(uistream.Error(streamErr.Error()))
		return message.Message{}, "", false, fmt.Errorf("orchestrator: model: %w", streamErr)
	}

	for idx, inv := range resolved {
		reply.Parts[idx] = inv
	}

	if err := r.out.emit(uistream.FinishStep()); err != nil {
		return message.Message{}, "", false, err
	}

	return reply, reason, len(resolved) > 0, nil
}

func (r *run) callTool(ctx context.Context, tc content.ToolCall) content.ToolInvocation {
	convID := r.conv.ID
	r.o.opts.Observer(Event{Kind: EventToolCallStart, ConversationID: convID, ToolCallID: tc.ID, ToolName: tc.Name})

	start := time.Now()
	inv := r.o.tools.Call(ctx, tc)
	elapsed := time.Since(start)

	r.o.opts.Observer(Event{
		Kind:           EventToolCallEnd,
		ConversationID: convID,
		ToolCallID:     tc.ID,
		ToolName:       tc.Name,
		ErrorKind:      inv.ErrorKind,
		Duration:       elapsed,
	})

	if inv.State == content.StateOutputError {
		r.log.Info("tool call failed", zap.String("tool", tc.Name), zap.String("kind", inv.ErrorKind),
			zap.String("error", inv.ErrorText), zap.Duration("elapsed", elapsed))
	}
	return inv
}

// abort closes the stream after a timeout or disconnect. Chunks of tool
// calls still running are dropped.
func (r *run) abort(cause error) error {
	reason := "cancelled"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "timeout"
	}

	r.log.Info("request aborted", zap.String("reason", reason))
	_ = r.out.emit(uistream.Abort(reason))
	r.out.close()
	return cause
}

// emitter serialises chunk writes. After close or a failed write every
// further chunk is dropped.
type emitter struct {
	mu     sync.Mutex
	fn     EmitFunc
	closed bool
	failed error
}

func (e *emitter) emit(c uistream.Chunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.failed
	}
	if err := e.fn(c); err != nil {
		e.closed = true
		e.failed = fmt.Errorf("orchestrator: emit: %w", err)
		return e.failed
	}
	return nil
}

func (e *emitter) err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

func (e *emitter) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
