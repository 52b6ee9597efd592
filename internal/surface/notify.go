package surface

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/parlo/internal/render"
)

const (
	notifyName    = "org.freedesktop.Notifications"
	notifyPath    = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyAppName = "parlo"

	urgencyNormal   = byte(1)
	urgencyCritical = byte(2)
)

// Action keys offered on modal notifications. They mirror the command
// surface, so a button press and a CLI command take the same path through
// the session.
const (
	ActionInsert  = "insert"
	ActionCopy    = "copy"
	ActionDismiss = "dismiss"
)

// Notifier drives the desktop notification surface over the session bus.
// Modal renders reuse one server-assigned ID so countdown updates replace
// the bubble in place instead of stacking a new one per second.
type Notifier struct {
	conn *dbus.Conn
	obj  dbus.BusObject

	mu      sync.Mutex
	modalID uint32
}

// NewNotifier binds the freedesktop notification service on conn.
func NewNotifier(conn *dbus.Conn) *Notifier {
	return &Notifier{conn: conn, obj: conn.Object(notifyName, notifyPath)}
}

// ShowModal posts or replaces the persistent attention notification.
func (n *Notifier) ShowModal(ctx context.Context, action render.Action) error {
	n.mu.Lock()
	replaceID := n.modalID
	n.mu.Unlock()

	id, err := n.notify(ctx, replaceID, modalIcon(action.Modal), action.Title, action.Body,
		modalActions(action.Modal), modalHints(action), 0)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.modalID = id
	n.mu.Unlock()
	return nil
}

// Toast posts a transient notification that expires on the server default.
func (n *Notifier) Toast(ctx context.Context, title, body string) error {
	hints := map[string]dbus.Variant{
		"urgency":   dbus.MakeVariant(urgencyNormal),
		"transient": dbus.MakeVariant(true),
	}
	_, err := n.notify(ctx, 0, "dialog-information", title, body, nil, hints, -1)
	return err
}

// Alert posts an untracked critical notification. It is never replaced or
// closed by later renders, so it survives the owner process exiting right
// after a failed start.
func (n *Notifier) Alert(ctx context.Context, title, body string) error {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyCritical),
	}
	_, err := n.notify(ctx, 0, "dialog-error", title, body, nil, hints, -1)
	return err
}

// Clear closes the persistent notification if one is up.
func (n *Notifier) Clear(ctx context.Context) error {
	n.mu.Lock()
	id := n.modalID
	n.modalID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	call := n.obj.CallWithContext(ctx, notifyName+".CloseNotification", 0, id)
	if call.Err != nil {
		return fmt.Errorf("close notification: %w", call.Err)
	}
	return nil
}

func (n *Notifier) notify(ctx context.Context, replaceID uint32, icon, title, body string, actions []string, hints map[string]dbus.Variant, timeoutMS int32) (uint32, error) {
	if actions == nil {
		actions = []string{}
	}

	var id uint32
	call := n.obj.CallWithContext(ctx, notifyName+".Notify", 0,
		notifyAppName, replaceID, icon, title, body, actions, hints, timeoutMS)
	if call.Err != nil {
		return 0, fmt.Errorf("notify: %w", call.Err)
	}
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

// Invocations yields action keys pressed on the current modal notification
// until ctx ends. Presses on stale or foreign notifications are dropped.
func (n *Notifier) Invocations(ctx context.Context) (<-chan string, error) {
	if err := n.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(notifyName),
		dbus.WithMatchMember("ActionInvoked"),
	); err != nil {
		return nil, fmt.Errorf("subscribe notification actions: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	n.conn.Signal(raw)

	keys := make(chan string, 16)
	go func() {
		defer close(keys)
		defer n.conn.RemoveSignal(raw)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				key, ok := n.invokedAction(sig)
				if !ok {
					continue
				}
				select {
				case keys <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return keys, nil
}

func (n *Notifier) invokedAction(sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Name != notifyName+".ActionInvoked" || len(sig.Body) != 2 {
		return "", false
	}
	id, okID := sig.Body[0].(uint32)
	key, okKey := sig.Body[1].(string)
	if !okID || !okKey {
		return "", false
	}

	n.mu.Lock()
	current := n.modalID
	n.mu.Unlock()
	if current == 0 || id != current {
		return "", false
	}
	return key, true
}

func modalActions(kind render.ModalKind) []string {
	switch kind {
	case render.ModalPreview:
		return []string{ActionInsert, "Insert", ActionCopy, "Copy", ActionDismiss, "Dismiss"}
	case render.ModalError:
		return []string{ActionDismiss, "Dismiss"}
	default:
		return nil
	}
}

func modalIcon(kind render.ModalKind) string {
	switch kind {
	case render.ModalCountdown:
		return "audio-input-microphone"
	case render.ModalIndeterminate:
		return "system-run"
	case render.ModalPreview:
		return "edit-paste"
	case render.ModalError:
		return "dialog-error"
	default:
		return ""
	}
}

func modalHints(action render.Action) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(urgencyCritical),
		"resident": dbus.MakeVariant(true),
	}
	if action.Modal == render.ModalCountdown {
		hints["value"] = dbus.MakeVariant(int32(action.Progress * 100))
	}
	return hints
}
