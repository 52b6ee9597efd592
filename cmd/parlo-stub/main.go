// Package main runs a stub speech service on the session bus, so parlo can
// be exercised end to end without the real transcription stack. Behavior is
// tuned through PARLO_STUB_* environment variables, optionally from a .env
// file in the working directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rbright/parlo/internal/stub"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded; using process environment", "error", err.Error())
	}

	opts, err := optionsFromEnv(os.Getenv)
	if err != nil {
		logger.Error("invalid stub environment", "error", err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := stub.Serve(ctx, opts, logger); err != nil {
		logger.Error("stub service failed", "error", err.Error())
		os.Exit(1)
	}
}

// optionsFromEnv reads the PARLO_STUB_* tuning variables. Unset variables
// leave the stub's defaults in place.
func optionsFromEnv(getenv func(string) string) (stub.Options, error) {
	opts := stub.Options{
		BusName:    strings.TrimSpace(getenv("PARLO_STUB_BUS_NAME")),
		ObjectPath: strings.TrimSpace(getenv("PARLO_STUB_OBJECT_PATH")),
		Interface:  strings.TrimSpace(getenv("PARLO_STUB_INTERFACE")),
		Transcript: getenv("PARLO_STUB_TRANSCRIPT"),
		FailWith:   getenv("PARLO_STUB_FAIL_WITH"),
		Silence:    getenv("PARLO_STUB_SILENCE") == "1",
	}

	if raw := strings.TrimSpace(getenv("PARLO_STUB_LATENCY_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return stub.Options{}, fmt.Errorf("PARLO_STUB_LATENCY_MS must be a non-negative integer, got %q", raw)
		}
		opts.Latency = time.Duration(ms) * time.Millisecond
	}

	if raw := strings.TrimSpace(getenv("PARLO_STUB_MISSING")); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			opts.Missing = append(opts.Missing, name)
		}
	}

	return opts, nil
}
