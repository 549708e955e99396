package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/engine"
	"github.com/germanamz/blasko/pkg/server"
)

// engineFlags are shared by the commands that build an Engine.
type engineFlags struct {
	config   string
	envFile  string
	logLevel string
	dev      bool
}

func (f *engineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "blasko.yaml", "path to configuration file")
	fs.StringVar(&f.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (overrides log_level in config)")
	fs.BoolVar(&f.dev, "dev", false, "human-readable console logs")
}

// build loads .env and the config, then creates the logger and the engine.
func (f *engineFlags) build() (*engine.Engine, *zap.Logger, error) {
	if err := loadDotEnv(f.envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := engine.LoadConfig(f.config)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	logger, err := newLogger(cfg.LogLevel, f.dev)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(cfg, engine.Options{Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	return eng, logger, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var ef engineFlags
	ef.register(fs)
	addr := fs.String("addr", "", "listen address (overrides server.addr in config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, logger, err := ef.build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := eng.Config()
	if *addr == "" {
		*addr = cfg.Server.Addr
	}

	srv := server.New(server.Options{
		Runner:    eng,
		Tools:     eng.Tools(),
		MCP:       eng.MCPServer().Handler(),
		Keepalive: cfg.Server.Keepalive,
		Logger:    logger.Named("server"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go logActivity(ctx, eng, logger.Named("activity"))

	return srv.ListenAndServe(ctx, *addr)
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	var ef engineFlags
	ef.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, logger, err := ef.build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("serving mcp on stdio", zap.Int("tools", len(eng.Tools().Tools())))

	return eng.MCPServer().Serve(ctx, os.Stdin, os.Stdout)
}
