package bus

import (
	"fmt"
	"strings"
)

// StatusKind is the leading token of a GetServiceStatus reply.
type StatusKind string

const (
	StatusReady               StatusKind = "ready"
	StatusError               StatusKind = "error"
	StatusMissingDependencies StatusKind = "dependencies_missing"
)

// Status is the parsed form of the service's status string. The wire format
// is "<kind>:<detail>", where ready details are key=value pairs and missing
// dependencies are a comma list.
type Status struct {
	Kind            StatusKind
	RecordingActive bool
	Message         string
	Missing         []string
	Raw             string
}

// Healthy reports whether the service can accept a new recording session.
func (s Status) Healthy() bool {
	return s.Kind == StatusReady
}

// ParseStatus decodes a GetServiceStatus reply. A reply outside the three
// known kinds is malformed and rejected.
func ParseStatus(raw string) (Status, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(raw), ":")
	switch StatusKind(head) {
	case StatusReady:
		status := Status{Kind: StatusReady, Raw: raw}
		for _, pair := range strings.Split(rest, ",") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			if key == "recording_active" {
				status.RecordingActive = value == "1"
			}
		}
		return status, nil
	case StatusError:
		return Status{Kind: StatusError, Message: rest, Raw: raw}, nil
	case StatusMissingDependencies:
		status := Status{Kind: StatusMissingDependencies, Raw: raw}
		for _, name := range strings.Split(rest, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			status.Missing = append(status.Missing, name)
		}
		return status, nil
	default:
		return Status{}, fmt.Errorf("malformed service status %q", raw)
	}
}
