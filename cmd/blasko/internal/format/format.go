// Package format renders chat content for the terminal.
package format

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/blasko/cmd/blasko/internal/styles"
)

// IsDarkBG is set once before bubbletea starts so glamour never queries the
// terminal while the program owns stdin.
var IsDarkBG bool

// SpinnerFrames are braille characters for the working indicator.
var SpinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// markdown holds a glamour renderer sized for the current terminal width.
type markdown struct {
	mu    sync.Mutex
	r     *glamour.TermRenderer
	width int
}

var md markdown

func (m *markdown) resize(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.r != nil && m.width == width {
		return
	}

	style := glamourstyles.LightStyleConfig
	if IsDarkBG {
		style = glamourstyles.DarkStyleConfig
	}
	r, err := glamour.NewTermRenderer(glamour.WithStyles(style), glamour.WithWordWrap(width))
	if err != nil {
		return
	}
	m.r, m.width = r, width
}

func (m *markdown) renderer() *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.r
}

// InitMarkdownRenderer sizes the markdown renderer for width columns,
// defaulting to 100.
func InitMarkdownRenderer(width int) {
	if width <= 0 {
		width = 100
	}
	md.resize(width)
}

// RenderMarkdown converts markdown to terminal output. Text is returned as is
// before InitMarkdownRenderer or when rendering fails.
func RenderMarkdown(text string) string {
	r := md.renderer()
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// Truncate shortens s to at most width terminal cells, ending in "..." when
// cut. Newlines become spaces.
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "...")
}

// FmtDuration formats an elapsed time.
func FmtDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// FmtCount formats a count with thousands separators.
func FmtCount(n int) string {
	return humanize.Comma(int64(n))
}

// RenderUserMessage formats a user message for the scrollback.
func RenderUserMessage(text string) string {
	lines := strings.Split(text, "\n")

	var sb strings.Builder
	sb.WriteString(styles.UserPrefixStyle.Render("You"))
	sb.WriteString("\n ")
	sb.WriteString(styles.TreeCorner)
	sb.WriteString(lines[0])
	for _, line := range lines[1:] {
		sb.WriteString("\n   ")
		sb.WriteString(line)
	}
	return sb.String()
}

// RenderError formats an error block.
func RenderError(msg string) string {
	return styles.ErrorBlockStyle.Render(styles.ToolErrorStyle.Render(msg))
}
