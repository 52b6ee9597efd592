package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Recording *jsoncRecording `json:"recording"`
	Display   *jsoncDisplay   `json:"display"`
	Service   *jsoncService   `json:"service"`
	History   *jsoncHistory   `json:"history"`

	ClipboardCmd *string `json:"clipboard_cmd"`
}

type jsoncRecording struct {
	MaxDurationSeconds *int    `json:"max_duration_seconds"`
	PostAction         *string `json:"post_action"`
}

type jsoncDisplay struct {
	Mode *string `json:"mode"`
}

type jsoncService struct {
	BusName                  *string `json:"bus_name"`
	ObjectPath               *string `json:"object_path"`
	Interface                *string `json:"interface"`
	AutoLaunch               *bool   `json:"auto_launch"`
	LivenessIntervalSeconds  *int    `json:"liveness_interval_seconds"`
	ProcessingTimeoutSeconds *int    `json:"processing_timeout_seconds"`
}

type jsoncHistory struct {
	Enable     *bool   `json:"enable"`
	Path       *string `json:"path"`
	MaxEntries *int    `json:"max_entries"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Recording != nil {
		if payload.Recording.MaxDurationSeconds != nil {
			cfg.Recording.MaxDurationSeconds = *payload.Recording.MaxDurationSeconds
		}
		if payload.Recording.PostAction != nil {
			action, err := ParsePostAction(strings.TrimSpace(*payload.Recording.PostAction))
			if err != nil {
				return nil, fmt.Errorf("invalid recording.post_action: %w", err)
			}
			cfg.Recording.PostAction = action
		}
	}

	if payload.Display != nil && payload.Display.Mode != nil {
		mode, err := ParseDisplayMode(strings.TrimSpace(*payload.Display.Mode))
		if err != nil {
			return nil, fmt.Errorf("invalid display.mode: %w", err)
		}
		cfg.Display.Mode = mode
	}

	if payload.Service != nil {
		if payload.Service.BusName != nil {
			cfg.Service.BusName = strings.TrimSpace(*payload.Service.BusName)
		}
		if payload.Service.ObjectPath != nil {
			cfg.Service.ObjectPath = strings.TrimSpace(*payload.Service.ObjectPath)
		}
		if payload.Service.Interface != nil {
			cfg.Service.Interface = strings.TrimSpace(*payload.Service.Interface)
		}
		if payload.Service.AutoLaunch != nil {
			cfg.Service.AutoLaunch = *payload.Service.AutoLaunch
		}
		if payload.Service.LivenessIntervalSeconds != nil {
			cfg.Service.LivenessIntervalSeconds = *payload.Service.LivenessIntervalSeconds
		}
		if payload.Service.ProcessingTimeoutSeconds != nil {
			cfg.Service.ProcessingTimeoutSeconds = *payload.Service.ProcessingTimeoutSeconds
		}
	}

	if payload.History != nil {
		if payload.History.Enable != nil {
			cfg.History.Enable = *payload.History.Enable
		}
		if payload.History.Path != nil {
			cfg.History.Path = strings.TrimSpace(*payload.History.Path)
		}
		if payload.History.MaxEntries != nil {
			cfg.History.MaxEntries = *payload.History.MaxEntries
		}
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
