// Package app wires configuration, logging, the bus client, and the session
// controller into the parlo command dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/cli"
	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/doctor"
	"github.com/rbright/parlo/internal/history"
	"github.com/rbright/parlo/internal/ipc"
	"github.com/rbright/parlo/internal/logging"
	"github.com/rbright/parlo/internal/output"
	"github.com/rbright/parlo/internal/session"
	"github.com/rbright/parlo/internal/surface"
	"github.com/rbright/parlo/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("parlo"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("parlo"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config.History, parsed.HistoryLimit)
	case cli.CommandStatus:
		return r.commandStatus(ctx, cfgLoaded.Config, logger)
	case cli.CommandReset:
		return r.commandReset(ctx, cfgLoaded.Config, logger)
	case cli.CommandStop, cli.CommandCancel, cli.CommandInsert, cli.CommandCopy, cli.CommandDismiss:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandToggle, cli.CommandStart:
		return r.commandSession(ctx, parsed.Command, cfgLoaded, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandSession becomes the session owner, or forwards to the parlo
// instance that already owns the control socket.
func (r Runner) commandSession(ctx context.Context, command cli.Command, loaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, string(command))
	if handled {
		return r.reportForward(resp, err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			// Lost the acquire race; the winner answers.
			resp, _, forwardErr := tryForward(ctx, socketPath, string(command))
			return r.reportForward(resp, forwardErr)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	return r.runSession(ctx, loaded, logger, listener)
}

// runSession drives one full session as the owner process: serve IPC,
// subscribe to the service, start recording, pump the event loop to Idle.
func (r Runner) runSession(ctx context.Context, loaded config.Loaded, logger *slog.Logger, listener net.Listener) int {
	cfg := loaded.Config

	conn, err := dbus.SessionBus()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: connect session bus: %v\n", err)
		logger.Error("session bus unavailable", "error", err.Error())
		return 1
	}

	client := bus.NewClient(conn, cfg.Service, logger.With("component", "bus"))
	notifier := surface.NewNotifier(conn)

	indicatorPath, err := surface.IndicatorPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	renderer := surface.NewRenderer(notifier, surface.NewIndicator(indicatorPath), logger.With("component", "surface"))

	caps := output.DetectCapabilities(cfg.Clipboard)
	copier := output.NewCopier(cfg.Clipboard, caps, logger.With("component", "output"))

	deps := session.Deps{
		Service:  client,
		Renderer: renderer,
		Copier:   copier,
		Caps:     caps,
		Mode:     liveDisplayMode(loaded.Path, cfg.Display.Mode),
	}

	if cfg.History.Enable {
		store, err := openHistory(cfg.History)
		if err != nil {
			logger.Warn("history store unavailable", "error", err.Error())
		} else {
			defer func() { _ = store.Close() }()
			deps.Recorder = store
		}
	}

	ctrl := session.NewController(logger.With("component", "session"), cfg, deps)

	loopCtx, loopCancel := context.WithCancel(ctx)
	defer loopCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(loopCtx, listener, ctrl)
	}()

	// Subscribe before starting, so the new session's first signals cannot
	// slip past the match rules.
	events, err := client.Subscribe(loopCtx)
	if err != nil {
		loopCancel()
		<-serverErrCh
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	presses, err := notifier.Invocations(loopCtx)
	if err != nil {
		logger.Warn("notification actions unavailable", "error", err.Error())
	}

	if err := ctrl.Start(ctx); err != nil {
		loopCancel()
		<-serverErrCh
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	result := ctrl.Run(ctx, events, presses)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	renderer.Shutdown(shutdownCtx)
	shutdownCancel()

	loopCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)
	return r.reportResult(result)
}

// liveDisplayMode re-reads the configured display mode from disk so a mode
// change lands on the next repaint instead of the next session. Session
// semantics stay frozen; only presentation follows the file.
func liveDisplayMode(path string, fallback config.DisplayMode) func() config.DisplayMode {
	return func() config.DisplayMode {
		loaded, err := config.Load(path)
		if err != nil {
			return fallback
		}
		return loaded.Config.Display.Mode
	}
}

func openHistory(cfg config.HistoryConfig) (*history.Store, error) {
	path := cfg.Path
	if path == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return history.Open(path, cfg.MaxEntries)
}

func (r Runner) commandHistory(ctx context.Context, cfg config.HistoryConfig, limit int) int {
	if !cfg.Enable {
		fmt.Fprintln(r.Stdout, "history is disabled")
		return 0
	}

	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no transcripts recorded")
		return 0
	}
	for _, entry := range entries {
		fmt.Fprintf(r.Stdout, "%s  %-12s %s\n",
			entry.FinishedAt.Format("2006-01-02 15:04"),
			entry.Outcome,
			entry.Text)
	}
	return 0
}

// commandStatus reports the local session and the remote service on two
// lines, so a bound key or panel script can show both at a glance.
func (r Runner) commandStatus(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	sessionLine := "idle"
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, "status")
		switch {
		case handled && err != nil:
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		case handled && resp.Message != "":
			sessionLine = resp.Message
		case handled && resp.State != "":
			sessionLine = resp.State
		}
	}
	fmt.Fprintf(r.Stdout, "session: %s\n", sessionLine)
	fmt.Fprintf(r.Stdout, "service: %s\n", serviceLine(ctx, cfg.Service, logger))
	return 0
}

func serviceLine(ctx context.Context, cfg config.ServiceConfig, logger *slog.Logger) string {
	client, err := bus.Connect(cfg, logger)
	if err != nil {
		return err.Error()
	}
	status, err := client.ServiceStatus(ctx)
	if err != nil {
		return err.Error()
	}
	switch status.Kind {
	case bus.StatusReady:
		if status.RecordingActive {
			return "ready (recording active)"
		}
		return "ready"
	case bus.StatusMissingDependencies:
		return "missing dependencies: " + strings.Join(status.Missing, ", ")
	default:
		return "error: " + status.Message
	}
}

// commandReset clears stuck state: a live owner is asked to reset itself,
// otherwise the service is reset directly and leftover indicator state is
// removed.
func (r Runner) commandReset(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		if resp, handled, fwdErr := tryForward(ctx, socketPath, "reset"); handled {
			return r.reportForward(resp, fwdErr)
		}
	}

	var resetErr error
	client, err := bus.Connect(cfg.Service, logger)
	if err != nil {
		resetErr = err
	} else {
		resetErr = client.ForceReset(ctx)
	}
	if resetErr != nil && !bus.IsConnectivity(resetErr) {
		fmt.Fprintf(r.Stderr, "error: %v\n", resetErr)
		return 1
	}

	if path, err := surface.IndicatorPath(); err == nil {
		if removeErr := surface.NewIndicator(path).Remove(); removeErr != nil {
			logger.Warn("indicator cleanup failed", "error", removeErr.Error())
		}
	}

	if resetErr != nil {
		fmt.Fprintln(r.Stdout, "speech service not running; cleared local state")
		return 0
	}
	fmt.Fprintln(r.Stdout, "speech service reset")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %v\n", ipc.ErrNoOwner)
		return 1
	}
	return r.reportForward(resp, err)
}

func (r Runner) reportForward(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// reportResult turns the session outcome into process output. The transcript
// goes to stdout so a keybinding wrapper can reuse it.
func (r Runner) reportResult(result session.Result) int {
	switch result.Outcome {
	case session.OutcomeFailed:
		if result.Err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		} else {
			fmt.Fprintln(r.Stderr, "error: session failed")
		}
		return 1
	case session.OutcomeServiceGone:
		fmt.Fprintln(r.Stderr, "error: speech service disappeared mid-session")
		return 1
	case session.OutcomeCancelled:
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	case session.OutcomeNoSpeech:
		fmt.Fprintln(r.Stdout, "no speech detected")
		return 0
	default:
		if text := strings.TrimSpace(result.Transcript); text != "" {
			fmt.Fprintln(r.Stdout, text)
		} else {
			fmt.Fprintln(r.Stdout, string(result.Outcome))
		}
		return 0
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"outcome", string(result.Outcome),
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"transcript_length", len(result.Transcript),
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
