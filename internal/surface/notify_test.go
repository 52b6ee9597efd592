package surface

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/parlo/internal/render"
)

func TestModalActionsByKind(t *testing.T) {
	preview := modalActions(render.ModalPreview)
	if len(preview) != 6 || preview[0] != ActionInsert || preview[2] != ActionCopy || preview[4] != ActionDismiss {
		t.Fatalf("preview actions = %v", preview)
	}

	errActions := modalActions(render.ModalError)
	if len(errActions) != 2 || errActions[0] != ActionDismiss {
		t.Fatalf("error actions = %v", errActions)
	}

	if modalActions(render.ModalCountdown) != nil {
		t.Fatal("countdown modal must not offer actions")
	}
	if modalActions(render.ModalIndeterminate) != nil {
		t.Fatal("indeterminate modal must not offer actions")
	}
}

func TestModalHintsCountdownCarriesProgress(t *testing.T) {
	hints := modalHints(render.Action{Modal: render.ModalCountdown, Progress: 0.5})
	value, ok := hints["value"]
	if !ok {
		t.Fatal("countdown hints must include a progress value")
	}
	if got := value.Value().(int32); got != 50 {
		t.Fatalf("progress hint = %d, want 50", got)
	}
	if hints["urgency"].Value().(byte) != urgencyCritical {
		t.Fatal("modal notifications are critical urgency")
	}
}

func TestModalHintsNonCountdownOmitsProgress(t *testing.T) {
	hints := modalHints(render.Action{Modal: render.ModalPreview})
	if _, ok := hints["value"]; ok {
		t.Fatal("preview hints must not include a progress value")
	}
}

func TestInvokedActionFiltersStaleIDs(t *testing.T) {
	notifier := &Notifier{}
	notifier.modalID = 7

	sig := &dbus.Signal{
		Name: notifyName + ".ActionInvoked",
		Body: []interface{}{uint32(7), ActionCopy},
	}
	key, ok := notifier.invokedAction(sig)
	if !ok || key != ActionCopy {
		t.Fatalf("expected copy action, got %q ok=%v", key, ok)
	}

	stale := &dbus.Signal{
		Name: notifyName + ".ActionInvoked",
		Body: []interface{}{uint32(3), ActionCopy},
	}
	if _, ok := notifier.invokedAction(stale); ok {
		t.Fatal("stale notification ID must be dropped")
	}

	notifier.modalID = 0
	if _, ok := notifier.invokedAction(sig); ok {
		t.Fatal("presses with no modal up must be dropped")
	}
}

func TestInvokedActionDropsMalformed(t *testing.T) {
	notifier := &Notifier{}
	notifier.modalID = 7

	cases := []*dbus.Signal{
		nil,
		{Name: notifyName + ".NotificationClosed", Body: []interface{}{uint32(7), uint32(2)}},
		{Name: notifyName + ".ActionInvoked", Body: []interface{}{uint32(7)}},
		{Name: notifyName + ".ActionInvoked", Body: []interface{}{"7", ActionCopy}},
	}
	for _, sig := range cases {
		if _, ok := notifier.invokedAction(sig); ok {
			t.Fatalf("signal %+v should have been dropped", sig)
		}
	}
}
