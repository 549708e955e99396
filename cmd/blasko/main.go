// Blasko is a Stacks blockchain assistant. It serves the chat API, exposes
// the Stacks tools over MCP, and ships a terminal chat client.
//
// Usage:
//
//	blasko [serve] [flags]   run the HTTP server (default)
//	blasko mcp [flags]       serve the tools over MCP on stdio
//	blasko chat [flags]      interactive terminal chat against a server
//	blasko init [flags]      write a starter config interactively
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	case "chat":
		err = runChat(args)
	case "init":
		err = runInit(args)
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: blasko <command> [flags]

Commands:
  serve   Run the HTTP chat server (default)
  mcp     Serve the Stacks tools over MCP on stdio
  chat    Interactive terminal chat against a running server
  init    Write a starter config file

Run "blasko <command> -h" for command flags.
`)
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// newLogger builds a production zap logger at level. dev switches to the
// console encoder with colored levels.
func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	if dev {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return cfg.Build()
}
