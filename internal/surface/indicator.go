package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/parlo/internal/fsm"
	"github.com/rbright/parlo/internal/render"
)

// Indicator publishes session state to a JSON file that panel widgets poll.
// Writes go through a temp file and rename so a poller never reads a torn
// update.
type Indicator struct {
	path string
}

// IndicatorPath resolves the statefile location next to the control socket.
func IndicatorPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "parlo-indicator.json"), nil
}

// NewIndicator creates an indicator writing to path.
func NewIndicator(path string) *Indicator {
	return &Indicator{path: path}
}

type indicatorState struct {
	State            string  `json:"state"`
	Remaining        string  `json:"remaining,omitempty"`
	RemainingSeconds int     `json:"remaining_seconds,omitempty"`
	Progress         float64 `json:"progress,omitempty"`
	Tier             string  `json:"tier,omitempty"`
}

// Write publishes the current state. Countdown fields are included only
// while recording.
func (i *Indicator) Write(state fsm.State, action render.Action) error {
	payload := indicatorState{State: string(state)}
	if state == fsm.StateRecording {
		payload.Remaining = render.FormatRemaining(action.Remaining)
		payload.RemainingSeconds = int(action.Remaining.Round(time.Second) / time.Second)
		payload.Progress = action.Progress
		payload.Tier = string(action.Tier)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode indicator state: %w", err)
	}

	tmp := i.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write indicator state: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("publish indicator state: %w", err)
	}
	return nil
}

// Remove deletes the statefile so panels fall back to their empty display.
func (i *Indicator) Remove() error {
	if err := os.Remove(i.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove indicator state: %w", err)
	}
	return nil
}
