// Package stub exports a fake speech service on the session bus. It speaks
// the same method and signal contract as the real transcription services, so
// the frontend can be exercised end to end without a microphone or a model.
package stub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/config"
)

// Options tune the fake's behavior. The zero value serves a well-behaved
// instant service that transcribes everything to DefaultTranscript.
type Options struct {
	BusName    string
	ObjectPath string
	Interface  string

	// Transcript is the text every session yields. Silence makes sessions
	// come back empty instead, which exercises the no-speech path.
	Transcript string
	Silence    bool

	// Latency is the artificial delay between a stop and the transcript.
	Latency time.Duration

	// FailWith, when set, makes every transcription fail with this message.
	FailWith string

	// Missing, when non-empty, reports these dependencies as absent and
	// refuses to start recordings.
	Missing []string
}

const DefaultTranscript = "the quick brown fox jumps over the lazy dog"

func (o Options) withDefaults() Options {
	if o.BusName == "" {
		o.BusName = config.DefaultBusName
	}
	if o.ObjectPath == "" {
		o.ObjectPath = config.DefaultObjectPath
	}
	if o.Interface == "" {
		o.Interface = config.DefaultInterface
	}
	if o.Transcript == "" {
		o.Transcript = DefaultTranscript
	}
	return o
}

type recording struct {
	id      string
	action  config.PostAction
	stopped bool
	timer   *time.Timer
}

// signalBus is what a running Service needs from its connection.
type signalBus interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
}

// Service is one exported fake. Start owns the bus name; Stop releases it.
type Service struct {
	bus    signalBus
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	active *recording
}

// Start exports the service on an established connection and claims the
// well-known name. The caller keeps ownership of the connection.
func Start(conn *dbus.Conn, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts = opts.withDefaults()
	s := &Service{bus: conn, opts: opts, logger: logger}

	table := map[string]interface{}{
		"StartRecording":    s.startRecording,
		"StopRecording":     s.stopRecording,
		"CancelRecording":   s.cancelRecording,
		"TypeText":          s.typeText,
		"ForceReset":        s.forceReset,
		"GetServiceStatus":  s.getServiceStatus,
		"CheckDependencies": s.checkDependencies,
	}
	if err := conn.ExportMethodTable(table, dbus.ObjectPath(opts.ObjectPath), opts.Interface); err != nil {
		return nil, fmt.Errorf("export %s: %w", opts.ObjectPath, err)
	}

	reply, err := conn.RequestName(opts.BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name %s: %w", opts.BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already owned", opts.BusName)
	}

	logger.Info("stub speech service ready",
		"name", opts.BusName,
		"latency", opts.Latency.String(),
		"failing", opts.FailWith != "")
	return s, nil
}

// Stop abandons any live recording and releases the well-known name.
func (s *Service) Stop() {
	s.mu.Lock()
	rec := s.active
	s.active = nil
	s.mu.Unlock()
	if rec != nil && rec.timer != nil {
		rec.timer.Stop()
	}
	if _, err := s.bus.ReleaseName(s.opts.BusName); err != nil {
		s.logger.Warn("release name failed", "error", err.Error())
	}
}

// Serve runs a stub on its own private session bus connection until ctx ends.
func Serve(ctx context.Context, opts Options, logger *slog.Logger) error {
	conn, err := connectSession()
	if err != nil {
		return err
	}
	defer conn.Close()

	s, err := Start(conn, opts, logger)
	if err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func connectSession() (*dbus.Conn, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	return conn, nil
}

func (s *Service) startRecording(duration int32, action string) (string, *dbus.Error) {
	if len(s.opts.Missing) > 0 {
		return "", dbus.MakeFailedError(fmt.Errorf("Missing dependencies: %s", strings.Join(s.opts.Missing, ", ")))
	}
	parsed, err := config.ParsePostAction(action)
	if err != nil {
		return "", dbus.MakeFailedError(fmt.Errorf(
			"Invalid post_recording_action '%s'. Valid values: preview, type_only, copy_only, type_and_copy", action))
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return "", dbus.MakeFailedError(errors.New("A recording is already in progress"))
	}
	rec := &recording{id: uuid.NewString(), action: parsed}
	if duration > 0 {
		rec.timer = time.AfterFunc(time.Duration(duration)*time.Second, func() {
			s.autoStop(rec)
		})
	}
	s.active = rec
	s.mu.Unlock()

	s.logger.Info("recording started", "recording", rec.id, "duration", duration, "action", action)
	s.emit("RecordingStarted", rec.id)
	return rec.id, nil
}

func (s *Service) stopRecording(id string) (bool, *dbus.Error) {
	s.mu.Lock()
	rec := s.active
	if rec == nil || rec.id != id || rec.stopped {
		s.mu.Unlock()
		return false, nil
	}
	rec.stopped = true
	if rec.timer != nil {
		rec.timer.Stop()
	}
	s.mu.Unlock()

	s.logger.Info("recording stopped", "recording", id)
	s.emit("RecordingStopped", id, bus.StopReasonRecorded)
	go s.finish(rec)
	return true, nil
}

// autoStop fires when the max duration elapses without a stop call, which is
// exactly what the real recorder does.
func (s *Service) autoStop(rec *recording) {
	s.mu.Lock()
	if s.active != rec || rec.stopped {
		s.mu.Unlock()
		return
	}
	rec.stopped = true
	s.mu.Unlock()

	s.logger.Info("recording auto-stopped at max duration", "recording", rec.id)
	s.emit("RecordingStopped", rec.id, bus.StopReasonRecorded)
	go s.finish(rec)
}

// finish emits the transcription result after the configured latency. A
// cancel that lands during the latency window wins silently.
func (s *Service) finish(rec *recording) {
	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}

	s.mu.Lock()
	if s.active != rec {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	if s.opts.FailWith != "" {
		s.logger.Info("transcription failed", "recording", rec.id, "error", s.opts.FailWith)
		s.emit("RecordingError", rec.id, s.opts.FailWith)
		s.emit("RecordingStopped", rec.id, bus.StopReasonFailed)
		return
	}

	text := s.opts.Transcript
	if s.opts.Silence {
		text = ""
	}
	s.logger.Info("transcription ready", "recording", rec.id, "chars", len(text))
	s.emit("TranscriptionReady", rec.id, text)

	if text == "" || rec.action.RequiresReview() {
		return
	}
	if rec.action.WantsType() {
		s.emit("TextTyped", text, true)
	}
	if rec.action.WantsCopy() {
		s.emit("TextCopied", text, true)
	}
}

func (s *Service) cancelRecording(id string) (bool, *dbus.Error) {
	s.mu.Lock()
	rec := s.active
	if rec == nil || rec.id != id {
		s.mu.Unlock()
		return false, nil
	}
	s.active = nil
	if rec.timer != nil {
		rec.timer.Stop()
	}
	s.mu.Unlock()

	s.logger.Info("recording cancelled", "recording", id)
	s.emit("RecordingStopped", id, bus.StopReasonCancelled)
	return true, nil
}

func (s *Service) typeText(text string, copyToClipboard bool) (bool, *dbus.Error) {
	s.logger.Info("typing text", "chars", len(text), "copy", copyToClipboard)
	s.emit("TextTyped", text, true)
	if copyToClipboard {
		s.emit("TextCopied", text, true)
	}
	return true, nil
}

func (s *Service) forceReset() (bool, *dbus.Error) {
	s.mu.Lock()
	rec := s.active
	s.active = nil
	s.mu.Unlock()

	if rec != nil {
		if rec.timer != nil {
			rec.timer.Stop()
		}
		s.emit("RecordingStopped", rec.id, bus.StopReasonCancelled)
	}
	s.logger.Info("force reset")
	return true, nil
}

func (s *Service) getServiceStatus() (string, *dbus.Error) {
	if len(s.opts.Missing) > 0 {
		return "dependencies_missing:" + strings.Join(s.opts.Missing, ","), nil
	}
	s.mu.Lock()
	active := 0
	if s.active != nil {
		active = 1
	}
	s.mu.Unlock()
	return fmt.Sprintf("ready:recording_active=%d", active), nil
}

func (s *Service) checkDependencies() (bool, []string, *dbus.Error) {
	if len(s.opts.Missing) > 0 {
		return false, s.opts.Missing, nil
	}
	return true, []string{}, nil
}

func (s *Service) emit(member string, values ...interface{}) {
	name := s.opts.Interface + "." + member
	if err := s.bus.Emit(dbus.ObjectPath(s.opts.ObjectPath), name, values...); err != nil {
		s.logger.Warn("signal emit failed", "member", member, "error", err.Error())
	}
}
