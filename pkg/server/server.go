// Package server exposes the chat orchestrator over HTTP.
//
// Routes:
//
//	POST /api/chat     chunk stream as server-sent events, ended by "data: [DONE]"
//	GET  /api/chat/ws  the same exchange over a WebSocket
//	GET  /api/tools    tool catalog in registration order
//	     /mcp          tool registry over MCP streamable HTTP
//	GET  /healthz      liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/orchestrator"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/uistream"
)

// Runner executes one chat request. *engine.Engine and
// *orchestrator.Orchestrator satisfy it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request, emit orchestrator.EmitFunc) error
}

// Options configures a Server.
type Options struct {
	Runner       Runner
	Tools        *toolbox.ToolBox
	MCP          http.Handler  // Mounted at /mcp when set.
	Keepalive    time.Duration // SSE keepalive interval (default 15s).
	MaxBodyBytes int64         // Request body limit (default 1 MiB).
	Origins      []string      // Extra WebSocket origin patterns; same-host is always allowed.
	Logger       *zap.Logger
}

// Server holds the HTTP handlers. It is stateless between requests.
type Server struct {
	runner    Runner
	tools     *toolbox.ToolBox
	mcp       http.Handler
	keepalive time.Duration
	maxBody   int64
	origins   []string
	log       *zap.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Keepalive <= 0 {
		opts.Keepalive = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tools == nil {
		opts.Tools = toolbox.New()
	}

	return &Server{
		runner:    opts.Runner,
		tools:     opts.Tools,
		mcp:       opts.MCP,
		keepalive: opts.Keepalive,
		maxBody:   opts.MaxBodyBytes,
		origins:   opts.Origins,
		log:       opts.Logger,
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. In-flight requests see ctx cancelled and end with an abort
// chunk.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.log.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	}
}

// toRequest converts a client payload into an orchestrator request.
func toRequest(body uistream.Request) (orchestrator.Request, error) {
	if len(body.Messages) == 0 {
		return orchestrator.Request{}, errors.New("messages must not be empty")
	}

	msgs, err := uistream.ToMessages(body.Messages)
	if err != nil {
		return orchestrator.Request{}, err
	}

	return orchestrator.Request{
		ConversationID: body.ID,
		Messages:       msgs,
		WalletAddress:  body.WalletAddress,
	}, nil
}

// logRun records the outcome of a chat run. Cancellation is routine.
func (s *Server) logRun(transport, id string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("transport", transport),
		zap.String("conversation", id),
		zap.Duration("duration", time.Since(start)),
	}

	switch {
	case err == nil:
		s.log.Debug("chat completed", fields...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.log.Info("chat aborted", append(fields, zap.Error(err))...)
	default:
		s.log.Warn("chat failed", append(fields, zap.Error(err))...)
	}
}

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.tools.Tools()
	out := make([]toolInfo, len(tools))
	for i, t := range tools {
		out[i] = toolInfo{Name: t.Name, Description: t.Description, InputSchema: t.SchemaJSON()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
