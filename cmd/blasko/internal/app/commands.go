package app

import (
	"fmt"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/blasko/cmd/blasko/internal/format"
	"github.com/germanamz/blasko/cmd/blasko/internal/styles"
)

var stacksAddress = regexp.MustCompile(`^(SP|ST)[0-9A-Z]{38,41}$`)

// ValidWallet reports whether s looks like a Stacks address.
func ValidWallet(s string) bool { return stacksAddress.MatchString(s) }

func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		return m, tea.Println(helpText())

	case "/new":
		m.tr.Reset()
		m.lastTurn = 0
		return m, tea.Println(styles.DimStyle.Render("Started a new conversation."))

	case "/wallet":
		switch {
		case arg == "":
			m.wallet = ""
			return m, tea.Println(styles.DimStyle.Render("Wallet disconnected."))
		case !ValidWallet(arg):
			return m, tea.Println(format.RenderError(fmt.Sprintf("not a Stacks address: %q", arg)))
		}
		m.wallet = arg
		return m, tea.Println(styles.DimStyle.Render("Wallet set to " + arg))

	case "/signed", "/rejected", "/failed":
		status := map[string]string{"/signed": "success", "/rejected": "rejected", "/failed": "failed"}[name]
		if status == "success" && arg == "" {
			return m, tea.Println(format.RenderError("usage: /signed <txid>"))
		}
		id, ok := m.tr.AddWalletResult(status, arg)
		if !ok {
			return m, tea.Println(format.RenderError("no transaction is waiting for a wallet result"))
		}
		return m.send(tea.Println(styles.DimStyle.Render(fmt.Sprintf("Reported %s for %s", status, id))))
	}

	return m, tea.Println(format.RenderError(fmt.Sprintf("unknown command %s (try /help)", name)))
}

func helpText() string {
	return styles.DimStyle.Render(
		"Commands:\n" +
			"  /help              Show this help message\n" +
			"  /wallet <address>  Connect a wallet address (empty to disconnect)\n" +
			"  /signed <txid>     Report that the pending transaction was broadcast\n" +
			"  /rejected          Report that you rejected the pending transaction\n" +
			"  /failed [reason]   Report that the pending transaction failed\n" +
			"  /new               Start a new conversation\n" +
			"  /quit              Exit the chat\n\n" +
			"Shortcuts:\n" +
			"  Enter              Submit message\n" +
			"  Alt+Enter          New line\n" +
			"  Esc                Cancel the running reply\n" +
			"  Ctrl+C             Exit",
	)
}
