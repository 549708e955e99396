// Package client streams chat responses from a blasko server over either of
// its transports.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/germanamz/blasko/pkg/uistream"
)

// Transport selects how chunks are delivered.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "ws"
)

// ParseTransport validates a transport name.
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(s); t {
	case TransportSSE, TransportWebSocket:
		return t, nil
	}
	return "", fmt.Errorf("client: unknown transport %q (want sse or ws)", s)
}

// Client talks to one server.
type Client struct {
	baseURL   string
	transport Transport
	http      *http.Client
}

// New creates a Client for the server at baseURL (e.g. "http://localhost:8080").
// A nil httpClient uses http.DefaultClient.
func New(baseURL string, transport Transport, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		http:      httpClient,
	}
}

// Transport reports the transport in use.
func (c *Client) Transport() Transport { return c.transport }

// Stream sends req and calls fn for every chunk until the server ends the
// response. An error from fn stops the stream and is returned.
func (c *Client) Stream(ctx context.Context, req uistream.Request, fn func(uistream.Chunk) error) error {
	if c.transport == TransportWebSocket {
		return c.streamWS(ctx, req, fn)
	}
	return c.streamSSE(ctx, req, fn)
}

func (c *Client) streamSSE(ctx context.Context, req uistream.Request, fn func(uistream.Chunk) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	return uistream.ReadChunks(resp.Body, fn)
}

func (c *Client) streamWS(ctx context.Context, req uistream.Request, fn func(uistream.Chunk) error) error {
	u, err := wsURL(c.baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		return fmt.Errorf("client: dial: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()

	if err := wsjson.Write(ctx, conn, req); err != nil {
		return fmt.Errorf("client: send request: %w", err)
	}

	for {
		var ch uistream.Chunk
		err := wsjson.Read(ctx, conn, &ch)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("client: server closed: %s", ce.Reason)
			}
			return fmt.Errorf("client: read: %w", err)
		}

		if err := fn(ch); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return err
		}
	}
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("client: parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/chat/ws"
	return u.String(), nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("client: %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("client: %s", resp.Status)
}
