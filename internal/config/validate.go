package config

import (
	"fmt"
	"strings"
)

const (
	maxRecordingSeconds  = 600
	maxProcessingTimeout = 3600
	minLivenessInterval  = 5
	maxLivenessInterval  = 600
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Recording.MaxDurationSeconds < 1 || cfg.Recording.MaxDurationSeconds > maxRecordingSeconds {
		return nil, fmt.Errorf("recording.max_duration_seconds must be in 1..%d", maxRecordingSeconds)
	}
	if _, err := ParsePostAction(string(cfg.Recording.PostAction)); err != nil {
		return nil, fmt.Errorf("invalid recording.post_action: %w", err)
	}
	if _, err := ParseDisplayMode(string(cfg.Display.Mode)); err != nil {
		return nil, fmt.Errorf("invalid display.mode: %w", err)
	}

	busName := strings.TrimSpace(cfg.Service.BusName)
	if busName == "" {
		return nil, fmt.Errorf("service.bus_name must not be empty")
	}
	if !strings.Contains(busName, ".") {
		return nil, fmt.Errorf("service.bus_name %q is not a well-known bus name", busName)
	}
	objectPath := strings.TrimSpace(cfg.Service.ObjectPath)
	if !strings.HasPrefix(objectPath, "/") {
		return nil, fmt.Errorf("service.object_path must start with '/'")
	}
	iface := strings.TrimSpace(cfg.Service.Interface)
	if iface == "" || !strings.Contains(iface, ".") {
		return nil, fmt.Errorf("service.interface must be a dotted interface name")
	}

	if cfg.Service.LivenessIntervalSeconds < minLivenessInterval || cfg.Service.LivenessIntervalSeconds > maxLivenessInterval {
		return nil, fmt.Errorf("service.liveness_interval_seconds must be in %d..%d", minLivenessInterval, maxLivenessInterval)
	}
	if cfg.Service.LivenessIntervalSeconds < 10 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("service.liveness_interval_seconds=%d re-validates the service very frequently", cfg.Service.LivenessIntervalSeconds)})
	}
	if cfg.Service.ProcessingTimeoutSeconds < 0 || cfg.Service.ProcessingTimeoutSeconds > maxProcessingTimeout {
		return nil, fmt.Errorf("service.processing_timeout_seconds must be in 0..%d", maxProcessingTimeout)
	}

	if cfg.History.MaxEntries < 0 {
		return nil, fmt.Errorf("history.max_entries must be >= 0")
	}
	if cfg.History.Enable && cfg.History.MaxEntries == 0 {
		warnings = append(warnings, Warning{Message: "history.max_entries=0 disables pruning; the history database will grow unbounded"})
	}

	if cfg.Clipboard.Raw != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}

	return warnings, nil
}
