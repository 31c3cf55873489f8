package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/cli"
	"codecraft-ai/internal/config"
	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/infra/i18n"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "log to the console at debug level")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, config.RoleClient, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "codecraft: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := newLogger(cfg)
	tr, err := i18n.Load(cfg.Client.Lang)
	if err != nil {
		return err
	}

	session := auth.NewSession()
	if cfg.Client.Token != "" {
		if _, err := session.SignIn(ctx, auth.StaticToken(cfg.Client.Token)); err != nil {
			fmt.Fprintln(os.Stderr, tr.T("sign_in_error", err.Error()))
		}
	}

	gw := gateway.NewClient(cfg.Client.BaseURL, session, logger)
	history := usecase.NewHistoryStore(gw, session, logger)
	assembler := usecase.NewSessionAssembler(gw, session, history, logger)
	go history.Run(ctx)

	var render cli.Renderer
	if cfg.Client.Render && cli.IsTTY(os.Stdout) {
		if render, err = cli.NewMarkdownRenderer(cli.Width(os.Stdout)); err != nil {
			logger.Warn().Err(err).Msg("markdown rendering disabled")
			render = nil
		}
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	histFile := historyPath(cfg.Client.HistoryFile)
	if f, err := os.Open(histFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if histFile != "" {
			if f, err := os.OpenFile(histFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = line.WriteHistory(f)
				f.Close()
			}
		}
		line.Close()
	}()

	fmt.Println(tr.T("welcome_message"))
	repl := cli.NewREPL(assembler, history, session, tr, line, os.Stdout, render, logger)
	return repl.Run(ctx)
}

// newLogger keeps diagnostics off stdout, which belongs to the conversation.
func newLogger(cfg *config.Config) *zerolog.Logger {
	lc := cfg.Log
	if !cfg.Runtime.Dev && lc.Level == "info" {
		lc.Level = "warn"
	}
	return logging.NewWithWriter(os.Stderr, lc, cfg.Runtime.Dev)
}

func historyPath(p string) string {
	if p == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(dir, "codecraft")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return ""
		}
		return filepath.Join(dir, "history")
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
