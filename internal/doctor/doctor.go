// Package doctor runs runtime readiness diagnostics for config, desktop
// tools, and the speech service.
package doctor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/history"
	"github.com/rbright/parlo/internal/logging"
	"github.com/rbright/parlo/internal/output"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ServiceProbe is the subset of the bus client the doctor exercises.
type ServiceProbe interface {
	ServiceStatus(ctx context.Context) (bus.Status, error)
	CheckDependencies(ctx context.Context) (bool, []string, error)
}

// Run executes environment, config, and service checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	caps := output.DetectCapabilities(cfg.Clipboard)

	checks := []Check{
		checkConfig(loaded),
		checkSession(caps),
		checkTyping(cfg, caps),
		checkClipboard(cfg, caps),
		checkHistory(cfg.History),
		checkLogs(),
	}

	client, err := bus.Connect(cfg.Service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		checks = append(checks, Check{Name: "bus", Pass: false, Message: err.Error()})
		return Report{Checks: checks}
	}
	checks = append(checks, Check{Name: "bus", Pass: true, Message: "session bus connected"})
	checks = append(checks, serviceChecks(ctx, client, cfg.Service)...)

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{
			Name:    "config",
			Pass:    true,
			Message: fmt.Sprintf("no file at %q, defaults in effect", loaded.Path),
		}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s (%d warnings)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkSession(caps output.Capabilities) Check {
	switch caps.SessionType {
	case output.SessionWayland, output.SessionX11:
		return Check{Name: "session", Pass: true, Message: fmt.Sprintf("%s session", caps.SessionType)}
	case "":
		return Check{Name: "session", Pass: false, Message: "XDG_SESSION_TYPE is empty"}
	default:
		return Check{Name: "session", Pass: false, Message: fmt.Sprintf("unsupported session type %q", caps.SessionType)}
	}
}

// checkTyping fails only when the configured post action needs a typing tool
// that is not there. Without such an action the gap merely downgrades.
func checkTyping(cfg config.Config, caps output.Capabilities) Check {
	if caps.CanType {
		return Check{Name: "typing", Pass: true, Message: "text injection tool found"}
	}
	if cfg.Recording.PostAction.WantsType() {
		return Check{
			Name: "typing",
			Pass: false,
			Message: fmt.Sprintf("post action %s needs a typing tool (wtype, ydotool, xdotool); sessions will downgrade",
				cfg.Recording.PostAction),
		}
	}
	return Check{Name: "typing", Pass: true, Message: "no typing tool found; type actions would downgrade"}
}

func checkClipboard(cfg config.Config, caps output.Capabilities) Check {
	if len(cfg.Clipboard.Argv) > 0 {
		return checkCommand(cfg.Clipboard.Argv, "clipboard_cmd")
	}
	if caps.CanCopy {
		return Check{Name: "clipboard", Pass: true, Message: "clipboard tool found"}
	}
	if cfg.Recording.PostAction.WantsCopy() {
		return Check{
			Name:    "clipboard",
			Pass:    false,
			Message: fmt.Sprintf("post action %s copies but no clipboard tool found (wl-copy, xclip, xsel)", cfg.Recording.PostAction),
		}
	}
	return Check{Name: "clipboard", Pass: true, Message: "no clipboard tool found; the copy action may fail"}
}

// checkHistory opens the store for real, which proves the path is writable
// and the schema applies.
func checkHistory(cfg config.HistoryConfig) Check {
	if !cfg.Enable {
		return Check{Name: "history", Pass: true, Message: "disabled"}
	}
	path := cfg.Path
	if path == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return Check{Name: "history", Pass: false, Message: err.Error()}
		}
		path = resolved
	}
	store, err := history.Open(path, cfg.MaxEntries)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: fmt.Sprintf("cannot open %s: %v", path, err)}
	}
	_ = store.Close()
	return Check{Name: "history", Pass: true, Message: fmt.Sprintf("store at %s", path)}
}

// checkLogs opens the log sink for real, which proves the state path
// resolves and the file is writable.
func checkLogs() Check {
	runtime, err := logging.New()
	if err != nil {
		return Check{Name: "logs", Pass: false, Message: err.Error()}
	}
	_ = runtime.Close()
	return Check{Name: "logs", Pass: true, Message: fmt.Sprintf("writable at %s", runtime.Path)}
}

// serviceChecks probes the remote service through an already-connected
// client. A connectivity failure short-circuits: nothing else can answer.
func serviceChecks(ctx context.Context, probe ServiceProbe, cfg config.ServiceConfig) []Check {
	status, err := probe.ServiceStatus(ctx)
	if err != nil {
		message := err.Error()
		if bus.IsConnectivity(err) {
			message = fmt.Sprintf("%s is unreachable: %v", cfg.BusName, err)
		}
		return []Check{{Name: "service.status", Pass: false, Message: message}}
	}

	checks := []Check{statusCheck(status)}

	ok, missing, err := probe.CheckDependencies(ctx)
	switch {
	case err != nil:
		checks = append(checks, Check{Name: "service.deps", Pass: false, Message: err.Error()})
	case !ok:
		checks = append(checks, Check{
			Name:    "service.deps",
			Pass:    false,
			Message: fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		})
	default:
		checks = append(checks, Check{Name: "service.deps", Pass: true, Message: "all dependencies present"})
	}
	return checks
}

func statusCheck(status bus.Status) Check {
	switch status.Kind {
	case bus.StatusReady:
		message := "ready"
		if status.RecordingActive {
			message = "ready (a recording is active)"
		}
		return Check{Name: "service.status", Pass: true, Message: message}
	case bus.StatusMissingDependencies:
		return Check{
			Name:    "service.status",
			Pass:    false,
			Message: fmt.Sprintf("dependencies missing: %s", strings.Join(status.Missing, ", ")),
		}
	default:
		return Check{Name: "service.status", Pass: false, Message: status.Message}
	}
}

// checkCommand validates that argv carries a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
