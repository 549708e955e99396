// Package app is the bubbletea model of the terminal chat client.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/blasko/cmd/blasko/internal/format"
	"github.com/germanamz/blasko/cmd/blasko/internal/styles"
	"github.com/germanamz/blasko/cmd/blasko/internal/transcript"
	"github.com/germanamz/blasko/pkg/uistream"
)

const (
	inputMinHeight = 1
	inputMaxHeight = 5
)

// Streamer sends a request and delivers the response chunks.
// *client.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, req uistream.Request, fn func(uistream.Chunk) error) error
}

// Options configures the chat model.
type Options struct {
	Streamer Streamer
	Server   string // Shown in the status bar.
	Wallet   string // Connected wallet address, may be empty.
}

// appState is the state machine of the model.
type appState int

const (
	stateIdle appState = iota
	stateStreaming
)

type (
	chunkMsg      uistream.Chunk
	streamDoneMsg struct{ err error }
)

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	streamer Streamer
	server   string
	wallet   string

	tr      *transcript.Transcript
	builder *transcript.Builder
	events  <-chan tea.Msg
	cancel  context.CancelFunc

	input   textarea.Model
	spinner spinner.Model
	state   appState

	width     int
	height    int
	sendStart time.Time
	lastTurn  time.Duration
}

// New creates the model. ctx bounds every request it makes.
func New(ctx context.Context, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about Stacks... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.SetHeight(inputMinHeight)
	ta.CharLimit = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = lipgloss.NewStyle()
	ta.BlurredStyle.Prompt = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{Frames: format.SpinnerFrames, FPS: time.Second / 10}),
		spinner.WithStyle(styles.SpinnerStyle),
	)

	return Model{
		ctx:      ctx,
		streamer: opts.Streamer,
		server:   opts.Server,
		wallet:   opts.Wallet,
		tr:       transcript.New(),
		input:    ta,
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(msg.Width-2, 10))
		format.InitMarkdownRenderer(msg.Width - 4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chunkMsg:
		m.builder.Apply(uistream.Chunk(msg))
		return m, waitFor(m.events)

	case streamDoneMsg:
		return m.finishTurn(msg.err)

	case spinner.TickMsg:
		if m.state != stateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case tea.KeyEsc:
		if m.state == stateStreaming && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	}

	if m.state != stateIdle {
		return m, nil
	}

	if msg.Type == tea.KeyEnter && !msg.Alt {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.input.SetHeight(inputMinHeight)
		return m.submit(text)
	}

	m.input.SetHeight(inputMaxHeight)
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.input.SetHeight(min(max(m.input.LineCount(), inputMinHeight), inputMaxHeight))
	return m, cmd
}

// submit handles a slash command or sends text as a user message.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	m.tr.AddUser(text)
	return m.send(tea.Println(format.RenderUserMessage(text)))
}

// send starts a request for the current history.
func (m Model) send(pre tea.Cmd) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	events := make(chan tea.Msg, 64)
	req := m.tr.Request(m.wallet)

	go func() {
		defer close(events)
		err := m.streamer.Stream(ctx, req, func(c uistream.Chunk) error {
			select {
			case events <- chunkMsg(c):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		events <- streamDoneMsg{err: err}
	}()

	m.cancel = cancel
	m.events = events
	m.builder = transcript.NewBuilder()
	m.state = stateStreaming
	m.sendStart = time.Now()
	m.input.Blur()

	return m, tea.Batch(pre, waitFor(events), m.spinner.Tick)
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// finishTurn commits the streamed message and prints it to the scrollback.
func (m Model) finishTurn(err error) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.events = nil
	m.lastTurn = time.Since(m.sendStart)
	m.state = stateIdle

	b := m.builder
	m.builder = nil
	m.tr.Commit(b)

	out := renderAssistant(b)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		if b.AbortReason == "" {
			out = joinBlocks(out, styles.DimStyle.Render("(cancelled)"))
		}
	default:
		out = joinBlocks(out, format.RenderError("error: "+err.Error()))
	}

	if pending := m.tr.Unresolved(); len(pending) > 0 {
		out = joinBlocks(out, styles.WalletStyle.Render(
			"Transaction ready for your wallet. Report the outcome with /signed <txid>, /rejected or /failed <reason>."))
	}

	focus := m.input.Focus()
	return m, tea.Batch(tea.Println(out), focus)
}

func (m Model) View() string {
	var sections []string

	if m.state == stateStreaming && m.builder != nil {
		live := renderLive(m.builder, m.width)
		status := m.spinner.View() + " " + styles.DimStyle.Render(
			"Working... "+format.FmtDuration(time.Since(m.sendStart))+" (esc to cancel)")
		sections = append(sections, joinBlocks(live, status))
	}

	border := styles.FocusedBorder
	if m.state != stateIdle {
		border = styles.DisabledBorder
	}
	sections = append(sections, border.Render(m.input.View()), m.statusLine())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	parts := []string{m.server}

	if m.wallet != "" {
		parts = append(parts, "wallet "+m.wallet)
	} else {
		parts = append(parts, "no wallet")
	}
	parts = append(parts, format.FmtCount(len(m.tr.Messages))+" messages")
	if m.lastTurn > 0 {
		parts = append(parts, "last reply "+format.FmtDuration(m.lastTurn))
	}

	return styles.StatusStyle.Render(" " + strings.Join(parts, " · "))
}
