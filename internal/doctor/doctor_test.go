package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/output"
)

type fakeProbe struct {
	status     bus.Status
	statusErr  error
	depsOK     bool
	missing    []string
	depsErr    error
	depsCalled bool
}

func (f *fakeProbe) ServiceStatus(context.Context) (bus.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeProbe) CheckDependencies(context.Context) (bool, []string, error) {
	f.depsCalled = true
	return f.depsOK, f.missing, f.depsErr
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckConfigVariants(t *testing.T) {
	missing := checkConfig(config.Loaded{Path: "/tmp/parlo.jsonc", Exists: false})
	require.True(t, missing.Pass)
	require.Contains(t, missing.Message, "defaults in effect")

	warned := checkConfig(config.Loaded{
		Path:     "/tmp/parlo.jsonc",
		Exists:   true,
		Warnings: []config.Warning{{Message: "a"}, {Message: "b"}},
	})
	require.True(t, warned.Pass)
	require.Contains(t, warned.Message, "2 warnings")
}

func TestCheckSession(t *testing.T) {
	wayland := checkSession(output.Capabilities{SessionType: output.SessionWayland})
	require.True(t, wayland.Pass)

	empty := checkSession(output.Capabilities{})
	require.False(t, empty.Pass)
	require.Contains(t, empty.Message, "XDG_SESSION_TYPE")

	tty := checkSession(output.Capabilities{SessionType: "tty"})
	require.False(t, tty.Pass)
	require.Contains(t, tty.Message, "unsupported")
}

func TestCheckTypingOnlyFailsWhenActionNeedsIt(t *testing.T) {
	cfg := config.Default()

	available := checkTyping(cfg, output.Capabilities{CanType: true})
	require.True(t, available.Pass)

	cfg.Recording.PostAction = config.PostActionPreview
	optional := checkTyping(cfg, output.Capabilities{})
	require.True(t, optional.Pass)
	require.Contains(t, optional.Message, "downgrade")

	cfg.Recording.PostAction = config.PostActionTypeOnly
	needed := checkTyping(cfg, output.Capabilities{})
	require.False(t, needed.Pass)
	require.Contains(t, needed.Message, "type_only")
}

func TestCheckClipboardConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-clip")
	require.NoError(t, os.WriteFile(script, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Clipboard = config.CommandConfig{Raw: "fake-clip", Argv: []string{"fake-clip"}}

	check := checkClipboard(cfg, output.Capabilities{})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckClipboardFailsWhenCopyActionLacksTool(t *testing.T) {
	cfg := config.Default()
	cfg.Recording.PostAction = config.PostActionCopyOnly

	check := checkClipboard(cfg, output.Capabilities{CanCopy: false})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "copy_only")
}

func TestCheckHistoryDisabledAndProbe(t *testing.T) {
	disabled := checkHistory(config.HistoryConfig{Enable: false})
	require.True(t, disabled.Pass)
	require.Equal(t, "disabled", disabled.Message)

	path := filepath.Join(t.TempDir(), "history.db")
	probe := checkHistory(config.HistoryConfig{Enable: true, Path: path, MaxEntries: 10})
	require.True(t, probe.Pass)
	require.Contains(t, probe.Message, path)
}

func TestCheckLogsProbesStatePath(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	check := checkLogs()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, filepath.Join(stateHome, "parlo", "log.jsonl"))
}

func TestServiceChecksReady(t *testing.T) {
	probe := &fakeProbe{
		status: bus.Status{Kind: bus.StatusReady},
		depsOK: true,
	}

	checks := serviceChecks(context.Background(), probe, config.Default().Service)
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.Equal(t, "ready", checks[0].Message)
	require.True(t, checks[1].Pass)
}

func TestServiceChecksRecordingActive(t *testing.T) {
	probe := &fakeProbe{
		status: bus.Status{Kind: bus.StatusReady, RecordingActive: true},
		depsOK: true,
	}

	checks := serviceChecks(context.Background(), probe, config.Default().Service)
	require.True(t, checks[0].Pass)
	require.Contains(t, checks[0].Message, "recording is active")
}

func TestServiceChecksUnreachableShortCircuits(t *testing.T) {
	probe := &fakeProbe{
		statusErr: &bus.ConnectivityError{Op: "GetServiceStatus", Err: errors.New("no reply")},
	}

	checks := serviceChecks(context.Background(), probe, config.Default().Service)
	require.Len(t, checks, 1)
	require.False(t, checks[0].Pass)
	require.Contains(t, checks[0].Message, "unreachable")
	require.False(t, probe.depsCalled)
}

func TestServiceChecksMissingDependencies(t *testing.T) {
	probe := &fakeProbe{
		status:  bus.Status{Kind: bus.StatusMissingDependencies, Missing: []string{"ffmpeg", "whisper"}},
		depsOK:  false,
		missing: []string{"ffmpeg", "whisper"},
	}

	checks := serviceChecks(context.Background(), probe, config.Default().Service)
	require.Len(t, checks, 2)
	require.False(t, checks[0].Pass)
	require.Contains(t, checks[0].Message, "ffmpeg, whisper")
	require.False(t, checks[1].Pass)
	require.Contains(t, checks[1].Message, "missing: ffmpeg, whisper")
}

func TestServiceChecksErrorStatus(t *testing.T) {
	probe := &fakeProbe{
		status: bus.Status{Kind: bus.StatusError, Message: "model load failed"},
		depsOK: true,
	}

	checks := serviceChecks(context.Background(), probe, config.Default().Service)
	require.False(t, checks[0].Pass)
	require.Equal(t, "model load failed", checks[0].Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}
