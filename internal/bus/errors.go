package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ConnectivityError means the service endpoint could not be reached at all:
// no session bus, no name owner, or a call that never completed. It is the
// recoverable class; callers retry or relaunch before surfacing it.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("speech service unreachable (%s): %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RemoteError means the service answered but reported that it cannot work:
// a thrown bus exception, an error: status, or missing dependencies. The
// message is surfaced to the user verbatim.
type RemoteError struct {
	Op      string
	Message string
	Missing []string
}

func (e *RemoteError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("speech service reported missing dependencies: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("speech service reported an error (%s): %s", e.Op, e.Message)
}

// IsConnectivity reports whether err is the unreachable-endpoint class.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsRemote reports whether err is the service-reported class.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// Bus error names that indicate the remote endpoint is absent rather than
// unhappy.
var connectivityErrorNames = map[string]struct{}{
	"org.freedesktop.DBus.Error.ServiceUnknown":  {},
	"org.freedesktop.DBus.Error.NameHasNoOwner":  {},
	"org.freedesktop.DBus.Error.NoReply":         {},
	"org.freedesktop.DBus.Error.Timeout":         {},
	"org.freedesktop.DBus.Error.TimedOut":        {},
	"org.freedesktop.DBus.Error.Disconnected":    {},
	"org.freedesktop.DBus.Error.NoServer":        {},
	"org.freedesktop.DBus.Error.SpawnFailed":     {},
	"org.freedesktop.DBus.Error.SpawnExecFailed": {},
}

// classifyCallError translates a raw bus failure into one of the two error
// classes. Exceptions thrown by the service itself (anything outside the
// org.freedesktop.DBus.Error namespace) are remote-reported.
func classifyCallError(op string, err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		if _, ok := connectivityErrorNames[dbusErr.Name]; ok {
			return &ConnectivityError{Op: op, Err: err}
		}
		return &RemoteError{Op: op, Message: dbusErrorMessage(dbusErr)}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ConnectivityError{Op: op, Err: err}
	}
	return &ConnectivityError{Op: op, Err: err}
}

func dbusErrorMessage(err dbus.Error) string {
	if len(err.Body) > 0 {
		if msg, ok := err.Body[0].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return err.Name
}
