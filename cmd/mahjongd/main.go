package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"mahjongd.hcl" help:"Path to HCL configuration file"`
	Port     int    `short:"p" long:"port" help:"Listen port (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		fmt.Printf("Error setting up logging: %v\n", err)
		ctx.Exit(1)
	}
	defer closeLog()

	lobby := server.NewLobby(logger, quartz.NewReal(), cfg.TimerConfig(), func() int64 {
		return time.Now().UnixNano()
	})
	srv := server.NewServer(cfg.Addr(), lobby, logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("starting mahjong server", "addr", cfg.Addr())
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		ctx.Exit(1)
	}
}

// setupLogger builds the process logger, teeing to a dated file when a
// log directory is configured.
func setupLogger(cfg *server.Config) (*log.Logger, func(), error) {
	out := io.Writer(os.Stderr)
	closeFn := func() {}

	if dir := cfg.Server.LogDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
		name := filepath.Join(dir, fmt.Sprintf("mahjongd-%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
		closeFn = func() { _ = f.Close() }
	}

	logger := log.New(out)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger, closeFn, nil
}
