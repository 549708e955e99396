package app

import (
	"strings"

	"github.com/germanamz/blasko/cmd/blasko/internal/format"
	"github.com/germanamz/blasko/cmd/blasko/internal/styles"
	"github.com/germanamz/blasko/cmd/blasko/internal/transcript"
)

// liveTextLines bounds the streaming preview; the full answer is printed
// once the turn ends.
const liveTextLines = 12

// renderAssistant renders a finished turn for the scrollback.
func renderAssistant(b *transcript.Builder) string {
	var blocks []string
	blocks = append(blocks, styles.AnswerPrefixStyle.Render("Blasko"))

	for _, tc := range b.ToolCalls() {
		blocks = append(blocks, renderToolCall(tc, 0))
	}

	if text := strings.TrimSpace(b.Text()); text != "" {
		blocks = append(blocks, format.RenderMarkdown(text))
	}

	switch {
	case b.ErrorText != "":
		blocks = append(blocks, format.RenderError(b.ErrorText))
	case b.AbortReason != "":
		blocks = append(blocks, styles.DimStyle.Render("("+b.AbortReason+")"))
	}

	return joinBlocks(blocks...)
}

// renderLive renders the turn in progress.
func renderLive(b *transcript.Builder, width int) string {
	if width <= 0 {
		width = 80
	}

	var blocks []string
	if r := strings.TrimSpace(b.Reasoning()); r != "" && b.Text() == "" {
		blocks = append(blocks, styles.ThinkingTextStyle.Render(format.Truncate(lastLine(r), width-2)))
	}

	for _, tc := range b.ToolCalls() {
		blocks = append(blocks, renderToolCall(tc, width))
	}

	if text := b.Text(); text != "" {
		lines := strings.Split(text, "\n")
		if len(lines) > liveTextLines {
			lines = lines[len(lines)-liveTextLines:]
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return joinBlocks(blocks...)
}

// renderToolCall renders one invocation as a label plus its outcome. A
// positive width truncates the label.
func renderToolCall(tc transcript.ToolCall, width int) string {
	label := format.FormatToolCall(tc.Name, tc.Input)
	if width > 4 {
		label = format.Truncate(label, width-4)
	}

	var sb strings.Builder
	switch tc.State {
	case "output-available":
		sb.WriteString(styles.ToolDoneStyle.Render("✓ "))
	case "output-error":
		sb.WriteString(styles.ToolErrorStyle.Render("✗ "))
	default:
		sb.WriteString(styles.DimStyle.Render("… "))
	}
	sb.WriteString(styles.ToolNameStyle.Render(label))

	switch {
	case tc.State == "output-error":
		sb.WriteString("\n  ")
		sb.WriteString(styles.TreeCorner)
		msg := tc.ErrorText
		if tc.ErrorKind != "" {
			msg = tc.ErrorKind + ": " + msg
		}
		sb.WriteString(styles.ToolErrorStyle.Render(format.Truncate(msg, 120)))
	case tc.State == "output-available" && transcript.IsWalletTool(tc.Name):
		sb.WriteString("\n  ")
		sb.WriteString(styles.TreeCorner)
		sb.WriteString(styles.WalletStyle.Render("awaiting wallet signature"))
	}

	return sb.String()
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// joinBlocks joins non-empty blocks with newlines.
func joinBlocks(blocks ...string) string {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n")
}
