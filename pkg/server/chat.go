package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/sse"
	"github.com/germanamz/blasko/pkg/uistream"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body uistream.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := toRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		wg   sync.WaitGroup
		stop = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.KeepAlive(s.keepalive, stop)
	}()

	start := time.Now()
	err = s.runner.Run(r.Context(), req, func(c uistream.Chunk) error {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return sw.Data(data)
	})
	close(stop)
	wg.Wait()
	s.logRun("sse", req.ConversationID, start, err)

	if err := sw.Done(); err != nil {
		s.log.Debug("write done marker", zap.Error(err))
	}
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Debug("websocket accept", zap.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()

	conn.SetReadLimit(s.maxBody)

	var body uistream.Request
	if err := wsjson.Read(r.Context(), conn, &body); err != nil {
		_ = conn.Close(websocket.StatusInvalidFramePayloadData, "invalid request")
		return
	}

	req, err := toRequest(body)
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, truncateReason(err.Error()))
		return
	}

	// The client sends nothing after the request; CloseRead cancels ctx
	// when it goes away.
	ctx := conn.CloseRead(r.Context())

	start := time.Now()
	err = s.runner.Run(ctx, req, func(c uistream.Chunk) error {
		return wsjson.Write(ctx, conn, c)
	})
	s.logRun("websocket", req.ConversationID, start, err)

	_ = conn.Close(websocket.StatusNormalClosure, "finish")
}

// truncateReason keeps a close reason within the 123 bytes a control frame
// allows.
func truncateReason(s string) string {
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
