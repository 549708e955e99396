package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/blasko/cmd/blasko/internal/app"
	"github.com/germanamz/blasko/cmd/blasko/internal/client"
	"github.com/germanamz/blasko/cmd/blasko/internal/format"
)

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	serverURL := fs.String("url", "http://localhost:8080", "blasko server URL")
	transport := fs.String("transport", "ws", "chunk transport: ws or sse")
	wallet := fs.String("wallet", os.Getenv("BLASKO_WALLET"), "connected Stacks wallet address")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	tr, err := client.ParseTransport(*transport)
	if err != nil {
		return err
	}
	if *wallet != "" && !app.ValidWallet(*wallet) {
		return fmt.Errorf("not a Stacks address: %q", *wallet)
	}

	// Detect the background before bubbletea owns the terminal.
	format.IsDarkBG = lipgloss.HasDarkBackground()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	model := app.New(ctx, app.Options{
		Streamer: client.New(*serverURL, tr, nil),
		Server:   fmt.Sprintf("%s (%s)", *serverURL, tr),
		Wallet:   *wallet,
	})

	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
