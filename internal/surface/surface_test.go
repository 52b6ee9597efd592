package surface

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rbright/parlo/internal/fsm"
	"github.com/rbright/parlo/internal/render"
)

type fakeNotify struct {
	modals []render.Action
	toasts []string
	alerts []string
	clears int
	fail   bool
}

func (f *fakeNotify) ShowModal(_ context.Context, action render.Action) error {
	if f.fail {
		return errors.New("notify down")
	}
	f.modals = append(f.modals, action)
	return nil
}

func (f *fakeNotify) Toast(_ context.Context, title, _ string) error {
	if f.fail {
		return errors.New("notify down")
	}
	f.toasts = append(f.toasts, title)
	return nil
}

func (f *fakeNotify) Alert(_ context.Context, title, _ string) error {
	if f.fail {
		return errors.New("notify down")
	}
	f.alerts = append(f.alerts, title)
	return nil
}

func (f *fakeNotify) Clear(context.Context) error {
	if f.fail {
		return errors.New("notify down")
	}
	f.clears++
	return nil
}

type fakeIndicator struct {
	states []fsm.State
	fail   bool
}

func (f *fakeIndicator) Write(state fsm.State, _ render.Action) error {
	if f.fail {
		return errors.New("statefile unwritable")
	}
	f.states = append(f.states, state)
	return nil
}

func (f *fakeIndicator) Remove() error { return nil }

func newTestRenderer(notify *fakeNotify, indicator *fakeIndicator) *Renderer {
	return &Renderer{
		notify:    notify,
		indicator: indicator,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestApplyModal(t *testing.T) {
	notify := &fakeNotify{}
	indicator := &fakeIndicator{}
	renderer := newTestRenderer(notify, indicator)

	action := render.Action{Surface: render.SurfaceModal, Modal: render.ModalCountdown}
	renderer.Apply(context.Background(), fsm.StateRecording, action)

	if len(notify.modals) != 1 {
		t.Fatalf("modals shown = %d, want 1", len(notify.modals))
	}
	if len(indicator.states) != 1 || indicator.states[0] != fsm.StateRecording {
		t.Fatalf("indicator writes = %v", indicator.states)
	}
}

func TestApplyToastClearsModalFirst(t *testing.T) {
	notify := &fakeNotify{}
	renderer := newTestRenderer(notify, &fakeIndicator{})

	action := render.Action{Surface: render.SurfaceToast, Title: "Transcribing"}
	renderer.Apply(context.Background(), fsm.StateProcessing, action)

	if notify.clears != 1 {
		t.Fatalf("clears = %d, want 1", notify.clears)
	}
	if len(notify.toasts) != 1 || notify.toasts[0] != "Transcribing" {
		t.Fatalf("toasts = %v", notify.toasts)
	}
}

func TestApplyIndicatorOnlyClearsNotification(t *testing.T) {
	notify := &fakeNotify{}
	renderer := newTestRenderer(notify, &fakeIndicator{})

	renderer.Apply(context.Background(), fsm.StateRecording, render.Action{Surface: render.SurfaceIndicator})

	if notify.clears != 1 {
		t.Fatalf("clears = %d, want 1", notify.clears)
	}
	if len(notify.modals) != 0 || len(notify.toasts) != 0 {
		t.Fatal("indicator-only render must not post notifications")
	}
}

func TestApplySurvivesSurfaceFailures(t *testing.T) {
	notify := &fakeNotify{fail: true}
	indicator := &fakeIndicator{fail: true}
	renderer := newTestRenderer(notify, indicator)

	// Must not panic or propagate; presentation failures are swallowed.
	renderer.Apply(context.Background(), fsm.StatePreview, render.Action{Surface: render.SurfaceModal, Modal: render.ModalPreview})
	renderer.Apply(context.Background(), fsm.StateError, render.Action{Surface: render.SurfaceToast})
}

func TestNotifyAndAlertPassThrough(t *testing.T) {
	notify := &fakeNotify{}
	renderer := newTestRenderer(notify, &fakeIndicator{})

	renderer.Notify(context.Background(), "No speech detected", "")
	renderer.Alert(context.Background(), "Speech service error", "unreachable")

	if len(notify.toasts) != 1 || notify.toasts[0] != "No speech detected" {
		t.Fatalf("toasts = %v", notify.toasts)
	}
	if len(notify.alerts) != 1 || notify.alerts[0] != "Speech service error" {
		t.Fatalf("alerts = %v", notify.alerts)
	}
}

func TestShutdownClearsSurfaces(t *testing.T) {
	notify := &fakeNotify{}
	renderer := newTestRenderer(notify, &fakeIndicator{})

	renderer.Shutdown(context.Background())
	if notify.clears != 1 {
		t.Fatalf("clears = %d, want 1", notify.clears)
	}
}
