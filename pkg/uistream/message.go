package uistream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
)

// Request is the body of a chat request.
type Request struct {
	ID            string      `json:"id,omitempty"`
	Messages      []UIMessage `json:"messages"`
	WalletAddress string      `json:"walletAddress,omitempty"`
}

// UIMessage is the client-side shape of a message.
type UIMessage struct {
	ID    string   `json:"id"`
	Role  string   `json:"role"`
	Parts []UIPart `json:"parts"`
}

// UIPart is the client-side shape of a message part. Tool parts are typed
// "tool-<name>".
type UIPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	SourceID   string          `json:"sourceId,omitempty"`
	URL        string          `json:"url,omitempty"`
	Title      string          `json:"title,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
	ErrorKind  string          `json:"errorKind,omitempty"`
	Status     string          `json:"status,omitempty"`
	TxID       string          `json:"txId,omitempty"`
	Error      string          `json:"error,omitempty"`
}

const toolPrefix = "tool-"

// ToMessages converts client messages into conversation messages. Only user
// and assistant roles are accepted. Part types the server does not model
// (files, step markers) are skipped.
func ToMessages(msgs []UIMessage) ([]message.Message, error) {
	out := make([]message.Message, 0, len(msgs))

	for i, m := range msgs {
		r := role.Role(m.Role)
		if !r.FromClient() {
			return nil, fmt.Errorf("uistream: message %d: unsupported role %q", i, m.Role)
		}

		msg := message.New(m.ID, r)
		for j, p := range m.Parts {
			part, err := toPart(p)
			if err != nil {
				return nil, fmt.Errorf("uistream: message %d part %d: %w", i, j, err)
			}
			if part != nil {
				msg.Parts = append(msg.Parts, part)
			}
		}

		out = append(out, msg)
	}

	return out, nil
}

func toPart(p UIPart) (content.Part, error) {
	switch {
	case p.Type == "text":
		return content.Text{Text: p.Text}, nil
	case p.Type == "reasoning":
		return content.Reasoning{Text: p.Text}, nil
	case p.Type == "source-url":
		return content.Source{ID: p.SourceID, URL: p.URL, Title: p.Title}, nil
	case p.Type == "wallet-result":
		status := content.WalletStatus(p.Status)
		switch status {
		case content.WalletSuccess, content.WalletRejected, content.WalletFailed:
		default:
			return nil, fmt.Errorf("unknown wallet status %q", p.Status)
		}
		return content.WalletResult{ToolCallID: p.ToolCallID, Status: status, TxID: p.TxID, Error: p.Error}, nil
	case strings.HasPrefix(p.Type, toolPrefix):
		state := content.ToolState(p.State)
		if !state.Valid() {
			return nil, fmt.Errorf("unknown tool state %q", p.State)
		}
		return content.ToolInvocation{
			ID:        p.ToolCallID,
			Name:      strings.TrimPrefix(p.Type, toolPrefix),
			State:     state,
			Input:     p.Input,
			Output:    p.Output,
			ErrorText: p.ErrorText,
			ErrorKind: p.ErrorKind,
		}, nil
	}
	return nil, nil
}

// FromMessage converts a conversation message into its client shape.
func FromMessage(m message.Message) UIMessage {
	ui := UIMessage{ID: m.ID, Role: string(m.Role)}

	for _, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			ui.Parts = append(ui.Parts, UIPart{Type: "text", Text: v.Text})
		case content.Reasoning:
			ui.Parts = append(ui.Parts, UIPart{Type: "reasoning", Text: v.Text})
		case content.Source:
			ui.Parts = append(ui.Parts, UIPart{Type: "source-url", SourceID: v.ID, URL: v.URL, Title: v.Title})
		case content.ToolInvocation:
			ui.Parts = append(ui.Parts, UIPart{
				Type:       toolPrefix + v.Name,
				ToolCallID: v.ID,
				State:      string(v.State),
				Input:      v.Input,
				Output:     v.Output,
				ErrorText:  v.ErrorText,
				ErrorKind:  v.ErrorKind,
			})
		case content.WalletResult:
			ui.Parts = append(ui.Parts, UIPart{
				Type:       "wallet-result",
				ToolCallID: v.ToolCallID,
				Status:     string(v.Status),
				TxID:       v.TxID,
				Error:      v.Error,
			})
		}
	}

	return ui
}
