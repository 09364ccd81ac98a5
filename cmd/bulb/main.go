package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"smarter-bulb/config"
	"smarter-bulb/internal/application"
	"smarter-bulb/internal/control"
	"smarter-bulb/internal/domain"
	"smarter-bulb/internal/infra/anthropic"
	"smarter-bulb/internal/infra/gemini"
	"smarter-bulb/internal/infra/httpapi"
	"smarter-bulb/internal/infra/openai"
	"smarter-bulb/internal/infra/pushover"
	"smarter-bulb/internal/infra/tuya"
)

const (
	exitError      = 1
	exitValidation = 2
	exitTransport  = 3
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file")
	settingsJSON := pflag.StringP("settings", "s", "", "settings JSON to apply directly, skipping the language model")
	dryRun := pflag.BoolP("dry-run", "n", false, "print the command batch without sending it")
	printSchema := pflag.Bool("schema", false, "print the control_bulb tool schema and exit")
	serve := pflag.Bool("serve", false, "run the HTTP API instead of a single command")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] \"<command>\"\n\nControl a smart bulb using natural language.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *printSchema {
		if err := writeJSON(os.Stdout, control.ToolSchema()); err != nil {
			slog.Error("printing schema", "error", err)
			os.Exit(exitError)
		}
		return
	}

	text := strings.TrimSpace(strings.Join(pflag.Args(), " "))
	if !*serve && text == "" && *settingsJSON == "" {
		pflag.Usage()
		os.Exit(exitError)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(exitError)
	}

	logger := setupLogger(cfg.Log)

	needLLM := *serve || *settingsJSON == ""
	if err := cfg.Validate(!*dryRun, needLLM); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(exitError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	var interpreter application.Interpreter
	if needLLM {
		interpreter = createInterpreter(cfg)
	}

	timeout, err := time.ParseDuration(cfg.Tuya.Timeout)
	if err != nil {
		logger.Warn("invalid tuya timeout, using default", "error", err, "value", cfg.Tuya.Timeout)
		timeout = tuya.DefaultTimeout
	}
	tuyaClient := tuya.NewClientWithURL(
		cfg.Tuya.ClientID,
		cfg.Tuya.Secret,
		tuya.Endpoint(cfg.Tuya.Region, cfg.Tuya.Endpoint),
		tuya.WithTimeout(timeout),
	)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, pushover.WithTitle(cfg.Pushover.Title))
	} else {
		notifier = &application.NoopNotifier{}
	}

	controller := application.NewController(interpreter, tuyaClient, cfg.Tuya.DeviceID, notifier, logger)

	if *serve {
		if err := runServer(ctx, cfg.HTTP, controller, logger); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(exitError)
		}
		return
	}

	res, err := runOnce(ctx, controller, text, *settingsJSON, *dryRun)
	if err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}

	if err := writeJSON(os.Stdout, res.Batch); err != nil {
		logger.Error("printing result", "error", err)
		os.Exit(exitError)
	}
}

func runOnce(ctx context.Context, c *application.Controller, text, settings string, dryRun bool) (*application.Result, error) {
	switch {
	case settings != "" && dryRun:
		return c.Prepare(json.RawMessage(settings))
	case settings != "":
		return c.Apply(ctx, json.RawMessage(settings))
	case dryRun:
		return c.Plan(ctx, text)
	default:
		return c.Handle(ctx, text)
	}
}

func runServer(ctx context.Context, cfg config.HTTPConfig, c *application.Controller, logger *slog.Logger) error {
	server := httpapi.NewServer(cfg.Addr, cfg.AuthToken, c, logger)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("smart bulb API ready", "addr", cfg.Addr)
	<-ctx.Done()

	return server.Stop()
}

func createInterpreter(cfg *config.Config) application.Interpreter {
	switch cfg.LLM.Provider {
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	case "gemini":
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}
}

func exitCode(err error) int {
	var verr *domain.ValidationError
	var terr *domain.TransportError
	switch {
	case errors.As(err, &verr), errors.Is(err, application.ErrNothingToApply):
		return exitValidation
	case errors.As(err, &terr):
		return exitTransport
	default:
		return exitError
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogger writes to stderr; stdout carries the command batch.
func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
