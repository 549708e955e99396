package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors pick the light or dark variant from the terminal
// background.
var (
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	ColorStacks  = lipgloss.AdaptiveColor{Light: "#5546ff", Dark: "#8b80ff"}
)

var (
	UserPrefixStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	AnswerPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorStacks)
	ThinkingTextStyle = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)

	ToolNameStyle   = lipgloss.NewStyle().Bold(true)
	ToolResultStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	ToolErrorStyle  = lipgloss.NewStyle().Foreground(ColorError)
	ToolDoneStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)

	// Transactions waiting for a wallet signature.
	WalletStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorStacks)
	DimStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	StatusStyle  = lipgloss.NewStyle().Foreground(ColorMuted)

	ErrorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(ColorError)

	FocusedBorder  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorAccent)
	DisabledBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorMuted)
)

// Tree-drawing characters for nested lines.
const (
	TreeCorner = "└ "
	TreePipe   = "│ "
)
