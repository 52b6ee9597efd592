package stub

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/rbright/parlo/internal/config"
)

type emittedSignal struct {
	name   string
	values []interface{}
}

type fakeBus struct {
	mu       sync.Mutex
	signals  []emittedSignal
	released []string
}

func (f *fakeBus) Emit(_ dbus.ObjectPath, name string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, emittedSignal{name: name, values: values})
	return nil
}

func (f *fakeBus) ReleaseName(name string) (dbus.ReleaseNameReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, name)
	return dbus.ReleaseNameReplyReleased, nil
}

func (f *fakeBus) snapshot() []emittedSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emittedSignal(nil), f.signals...)
}

func (f *fakeBus) names() []string {
	out := []string{}
	for _, sig := range f.snapshot() {
		out = append(out, sig.name)
	}
	return out
}

func newTestService(opts Options) (*Service, *fakeBus) {
	fb := &fakeBus{}
	s := &Service{bus: fb, opts: opts.withDefaults(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return s, fb
}

func waitForSignal(t *testing.T, fb *fakeBus, member string) emittedSignal {
	t.Helper()
	suffix := "." + member
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, sig := range fb.snapshot() {
			if strings.HasSuffix(sig.name, suffix) {
				return sig
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("signal %s never emitted (got %v)", member, fb.names())
	return emittedSignal{}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	require.Equal(t, config.DefaultBusName, opts.BusName)
	require.Equal(t, config.DefaultObjectPath, opts.ObjectPath)
	require.Equal(t, config.DefaultInterface, opts.Interface)
	require.Equal(t, DefaultTranscript, opts.Transcript)

	custom := Options{BusName: "org.example.Talk", Transcript: "hi"}.withDefaults()
	require.Equal(t, "org.example.Talk", custom.BusName)
	require.Equal(t, "hi", custom.Transcript)
}

func TestRecordingLifecycle(t *testing.T) {
	s, fb := newTestService(Options{})

	id, derr := s.startRecording(60, string(config.PostActionPreview))
	require.Nil(t, derr)
	require.NotEmpty(t, id)

	started := waitForSignal(t, fb, "RecordingStarted")
	require.Equal(t, []interface{}{id}, started.values)

	status, derr := s.getServiceStatus()
	require.Nil(t, derr)
	require.Equal(t, "ready:recording_active=1", status)

	ok, derr := s.stopRecording(id)
	require.Nil(t, derr)
	require.True(t, ok)

	stopped := waitForSignal(t, fb, "RecordingStopped")
	require.Equal(t, []interface{}{id, "recorded"}, stopped.values)

	ready := waitForSignal(t, fb, "TranscriptionReady")
	require.Equal(t, []interface{}{id, DefaultTranscript}, ready.values)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		status, _ = s.getServiceStatus()
		if status == "ready:recording_active=0" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status never returned to idle: %s", status)
}

func TestAutoActionEmitsDeliverySignals(t *testing.T) {
	s, fb := newTestService(Options{Transcript: "typed text"})

	id, derr := s.startRecording(60, string(config.PostActionTypeAndCopy))
	require.Nil(t, derr)
	ok, _ := s.stopRecording(id)
	require.True(t, ok)

	typed := waitForSignal(t, fb, "TextTyped")
	require.Equal(t, []interface{}{"typed text", true}, typed.values)
	copied := waitForSignal(t, fb, "TextCopied")
	require.Equal(t, []interface{}{"typed text", true}, copied.values)
}

func TestPreviewActionSkipsDelivery(t *testing.T) {
	s, fb := newTestService(Options{})

	id, _ := s.startRecording(60, string(config.PostActionPreview))
	_, _ = s.stopRecording(id)
	waitForSignal(t, fb, "TranscriptionReady")

	for _, name := range fb.names() {
		require.NotContains(t, name, "TextTyped")
		require.NotContains(t, name, "TextCopied")
	}
}

func TestSilenceYieldsEmptyTranscript(t *testing.T) {
	s, fb := newTestService(Options{Silence: true})

	id, _ := s.startRecording(60, string(config.PostActionTypeOnly))
	_, _ = s.stopRecording(id)

	ready := waitForSignal(t, fb, "TranscriptionReady")
	require.Equal(t, []interface{}{id, ""}, ready.values)

	// Nothing to type when nothing was said.
	for _, name := range fb.names() {
		require.NotContains(t, name, "TextTyped")
	}
}

func TestFailureEmitsErrorThenFailedStop(t *testing.T) {
	s, fb := newTestService(Options{FailWith: "model exploded"})

	id, _ := s.startRecording(60, string(config.PostActionPreview))
	_, _ = s.stopRecording(id)
	waitForSignal(t, fb, "RecordingError")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		errorAt, failedAt := -1, -1
		for i, sig := range fb.snapshot() {
			switch {
			case strings.HasSuffix(sig.name, ".RecordingError"):
				errorAt = i
				require.Equal(t, []interface{}{id, "model exploded"}, sig.values)
			case strings.HasSuffix(sig.name, ".RecordingStopped") && sig.values[1] == "failed":
				failedAt = i
			}
		}
		if failedAt >= 0 {
			require.Greater(t, failedAt, errorAt, "failed stop must follow the error signal")
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("failed stop never emitted (got %v)", fb.names())
}

func TestCancelDuringLatencySuppressesTranscript(t *testing.T) {
	s, fb := newTestService(Options{Latency: 200 * time.Millisecond})

	id, _ := s.startRecording(60, string(config.PostActionPreview))
	ok, _ := s.stopRecording(id)
	require.True(t, ok)
	cancelled, _ := s.cancelRecording(id)
	require.True(t, cancelled)

	time.Sleep(400 * time.Millisecond)
	for _, name := range fb.names() {
		require.NotContains(t, name, "TranscriptionReady")
	}

	var reasons []interface{}
	for _, sig := range fb.snapshot() {
		if strings.HasSuffix(sig.name, ".RecordingStopped") {
			reasons = append(reasons, sig.values[1])
		}
	}
	require.Contains(t, reasons, "cancelled")
}

func TestSecondStartRejected(t *testing.T) {
	s, _ := newTestService(Options{})

	_, derr := s.startRecording(60, string(config.PostActionPreview))
	require.Nil(t, derr)

	_, derr = s.startRecording(60, string(config.PostActionPreview))
	require.NotNil(t, derr)
	require.Contains(t, derr.Error(), "already in progress")
}

func TestInvalidActionRejected(t *testing.T) {
	s, _ := newTestService(Options{})

	_, derr := s.startRecording(60, "shout_it")
	require.NotNil(t, derr)
	require.Contains(t, derr.Error(), "Invalid post_recording_action")
}

func TestMissingDependencies(t *testing.T) {
	s, _ := newTestService(Options{Missing: []string{"ffmpeg", "whisper"}})

	_, derr := s.startRecording(60, string(config.PostActionPreview))
	require.NotNil(t, derr)
	require.Contains(t, derr.Error(), "Missing dependencies: ffmpeg, whisper")

	status, _ := s.getServiceStatus()
	require.Equal(t, "dependencies_missing:ffmpeg,whisper", status)

	ok, missing, _ := s.checkDependencies()
	require.False(t, ok)
	require.Equal(t, []string{"ffmpeg", "whisper"}, missing)
}

func TestStopAndCancelUnknownID(t *testing.T) {
	s, _ := newTestService(Options{})

	ok, _ := s.stopRecording("nope")
	require.False(t, ok)
	cancelled, _ := s.cancelRecording("nope")
	require.False(t, cancelled)
}

func TestTypeTextEmitsSignals(t *testing.T) {
	s, fb := newTestService(Options{})

	ok, derr := s.typeText("hello", true)
	require.Nil(t, derr)
	require.True(t, ok)

	typed := waitForSignal(t, fb, "TextTyped")
	require.Equal(t, []interface{}{"hello", true}, typed.values)
	waitForSignal(t, fb, "TextCopied")
}

func TestForceResetAbandonsRecording(t *testing.T) {
	s, fb := newTestService(Options{})

	id, _ := s.startRecording(60, string(config.PostActionPreview))
	ok, derr := s.forceReset()
	require.Nil(t, derr)
	require.True(t, ok)

	stopped := waitForSignal(t, fb, "RecordingStopped")
	require.Equal(t, []interface{}{id, "cancelled"}, stopped.values)

	status, _ := s.getServiceStatus()
	require.Equal(t, "ready:recording_active=0", status)

	// Reset with nothing live is still a success.
	ok, _ = s.forceReset()
	require.True(t, ok)
}

func TestStopReleasesName(t *testing.T) {
	s, fb := newTestService(Options{})
	s.Stop()
	require.Equal(t, []string{config.DefaultBusName}, fb.released)
}
