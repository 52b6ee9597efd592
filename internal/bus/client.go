// Package bus implements the client side of the speech service's session-bus
// contract: request methods, typed push notifications, ownership-based
// liveness, and activation of an absent service.
package bus

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/parlo/internal/config"
)

const (
	callTimeout       = 5 * time.Second
	typeTimeout       = 30 * time.Second
	activationTimeout = 10 * time.Second
)

// Client talks to one speech service on the session bus. Safe for use from
// the controller goroutine plus the Subscribe goroutine.
type Client struct {
	conn   *dbus.Conn
	object dbus.BusObject
	cfg    config.ServiceConfig
	logger *slog.Logger

	mu          sync.Mutex
	lastHealthy time.Time
}

// Connect joins the session bus and binds the configured service object.
func Connect(cfg config.ServiceConfig, logger *slog.Logger) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, &ConnectivityError{Op: "connect", Err: err}
	}
	return NewClient(conn, cfg, logger), nil
}

// NewClient wraps an existing bus connection. The connection is shared, so
// Client never closes it.
func NewClient(conn *dbus.Conn, cfg config.ServiceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		conn:   conn,
		object: conn.Object(cfg.BusName, dbus.ObjectPath(cfg.ObjectPath)),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Client) method(name string) string {
	return c.cfg.Interface + "." + name
}

// StartRecording asks the service to begin capturing and returns the
// service-issued session identifier.
func (c *Client) StartRecording(ctx context.Context, durationSeconds int, action config.PostAction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var sessionID string
	call := c.object.CallWithContext(ctx, c.method("StartRecording"), 0, int32(durationSeconds), string(action))
	if call.Err != nil {
		return "", classifyCallError("StartRecording", call.Err)
	}
	if err := call.Store(&sessionID); err != nil {
		return "", classifyCallError("StartRecording", err)
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", &RemoteError{Op: "StartRecording", Message: "service returned an empty session id"}
	}
	c.markHealthy()
	return sessionID, nil
}

// StopRecording asks the service to finish capturing and move to
// transcription.
func (c *Client) StopRecording(ctx context.Context, sessionID string) error {
	return c.ackCall(ctx, "StopRecording", callTimeout, sessionID)
}

// CancelRecording asks the service to abandon the session without
// transcribing.
func (c *Client) CancelRecording(ctx context.Context, sessionID string) error {
	return c.ackCall(ctx, "CancelRecording", callTimeout, sessionID)
}

// TypeText asks the service to synthesize typing of text, optionally copying
// it to the clipboard as well. Long texts type slowly, hence the wider
// timeout.
func (c *Client) TypeText(ctx context.Context, text string, copyToo bool) error {
	return c.ackCall(ctx, "TypeText", typeTimeout, text, copyToo)
}

// ForceReset clears any stuck session on the service side.
func (c *Client) ForceReset(ctx context.Context) error {
	return c.ackCall(ctx, "ForceReset", callTimeout)
}

func (c *Client) ackCall(ctx context.Context, name string, timeout time.Duration, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ok bool
	call := c.object.CallWithContext(ctx, c.method(name), 0, args...)
	if call.Err != nil {
		return classifyCallError(name, call.Err)
	}
	if err := call.Store(&ok); err != nil {
		return classifyCallError(name, err)
	}
	if !ok {
		return &RemoteError{Op: name, Message: "service refused the request"}
	}
	c.markHealthy()
	return nil
}

// ServiceStatus fetches and parses the service's status string.
func (c *Client) ServiceStatus(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var raw string
	call := c.object.CallWithContext(ctx, c.method("GetServiceStatus"), 0)
	if call.Err != nil {
		return Status{}, classifyCallError("GetServiceStatus", call.Err)
	}
	if err := call.Store(&raw); err != nil {
		return Status{}, classifyCallError("GetServiceStatus", err)
	}

	status, err := ParseStatus(raw)
	if err != nil {
		return Status{}, &RemoteError{Op: "GetServiceStatus", Message: err.Error()}
	}
	c.markHealthy()
	return status, nil
}

// CheckDependencies reports whether the service's own runtime dependencies
// are satisfied.
func (c *Client) CheckDependencies(ctx context.Context) (bool, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var (
		ok      bool
		missing []string
	)
	call := c.object.CallWithContext(ctx, c.method("CheckDependencies"), 0)
	if call.Err != nil {
		return false, nil, classifyCallError("CheckDependencies", call.Err)
	}
	if err := call.Store(&ok, &missing); err != nil {
		return false, nil, classifyCallError("CheckDependencies", err)
	}
	c.markHealthy()
	return ok, missing, nil
}

// EnsureReady confirms the service is reachable and reports ready. Healthy
// verdicts are cached for the configured liveness interval so steady-state
// commands do not pay a status roundtrip on every call. A missing name owner
// triggers one bus-activation attempt when auto_launch is enabled.
func (c *Client) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	interval := time.Duration(c.cfg.LivenessIntervalSeconds) * time.Second
	fresh := !c.lastHealthy.IsZero() && time.Since(c.lastHealthy) < interval
	c.mu.Unlock()
	if fresh {
		return nil
	}

	if err := c.ensureOwned(ctx); err != nil {
		return err
	}

	status, err := c.ServiceStatus(ctx)
	if err != nil {
		return err
	}
	switch status.Kind {
	case StatusReady:
		c.markHealthy()
		return nil
	case StatusMissingDependencies:
		return &RemoteError{Op: "GetServiceStatus", Missing: status.Missing}
	default:
		return &RemoteError{Op: "GetServiceStatus", Message: status.Message}
	}
}

func (c *Client) ensureOwned(ctx context.Context) error {
	_, err := c.nameOwner(ctx)
	if err == nil {
		return nil
	}
	if !c.cfg.AutoLaunch || !IsConnectivity(err) {
		return err
	}

	c.logger.Info("speech service not on the bus; requesting activation", "name", c.cfg.BusName)
	if startErr := c.startByName(ctx); startErr != nil {
		return startErr
	}
	if _, err := c.nameOwner(ctx); err != nil {
		return err
	}
	return nil
}

func (c *Client) nameOwner(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var owner string
	call := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, c.cfg.BusName)
	if call.Err != nil {
		return "", classifyCallError("GetNameOwner", call.Err)
	}
	if err := call.Store(&owner); err != nil {
		return "", classifyCallError("GetNameOwner", err)
	}
	return owner, nil
}

func (c *Client) startByName(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, activationTimeout)
	defer cancel()

	var result uint32
	call := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.StartServiceByName", 0, c.cfg.BusName, uint32(0))
	if call.Err != nil {
		return classifyCallError("StartServiceByName", call.Err)
	}
	if err := call.Store(&result); err != nil {
		return classifyCallError("StartServiceByName", err)
	}
	return nil
}

func (c *Client) markHealthy() {
	c.mu.Lock()
	c.lastHealthy = time.Now()
	c.mu.Unlock()
}

func (c *Client) markUnhealthy() {
	c.mu.Lock()
	c.lastHealthy = time.Time{}
	c.mu.Unlock()
}

// Subscribe registers for the service's signals plus the bus's ownership
// signal for the watched name, and delivers typed events until ctx ends.
// Losing the name owner resets the cached health verdict before the
// ServiceGone event is forwarded.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(c.cfg.Interface),
		dbus.WithMatchObjectPath(dbus.ObjectPath(c.cfg.ObjectPath)),
	); err != nil {
		return nil, &ConnectivityError{Op: "AddMatchSignal", Err: err}
	}
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, c.cfg.BusName),
	); err != nil {
		return nil, &ConnectivityError{Op: "AddMatchSignal", Err: err}
	}

	raw := make(chan *dbus.Signal, 64)
	c.conn.Signal(raw)

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		defer c.conn.RemoveSignal(raw)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				event, ok := mapSignal(c.cfg.Interface, c.cfg.BusName, sig)
				if !ok {
					continue
				}
				if event.Kind == EventServiceGone {
					c.markUnhealthy()
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
