package output

import (
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/parlo/internal/config"
)

// Session types reported by login managers via XDG_SESSION_TYPE.
const (
	SessionWayland = "wayland"
	SessionX11     = "x11"
)

// Capabilities describes what the desktop environment can do with committed
// text. Detection runs once per invocation; each session freezes the verdict
// at start so a capability change mid-session cannot alter its post action.
type Capabilities struct {
	SessionType string
	CanType     bool
	CanCopy     bool
}

// DetectCapabilities probes the environment for typing and clipboard
// support. Typing needs a synthesis tool matching the session type; copying
// is satisfied by a configured clipboard command or any known clipboard
// binary on PATH.
func DetectCapabilities(clipboardCmd config.CommandConfig) Capabilities {
	session := strings.ToLower(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")))
	caps := Capabilities{SessionType: session}

	switch session {
	case SessionWayland:
		caps.CanType = lookPathAny("wtype", "ydotool")
	case SessionX11:
		caps.CanType = lookPathAny("xdotool")
	}

	caps.CanCopy = len(clipboardCmd.Argv) > 0 || lookPathAny("wl-copy", "xclip", "xsel")
	return caps
}

func lookPathAny(names ...string) bool {
	for _, name := range names {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
