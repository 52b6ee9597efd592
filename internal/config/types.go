// Package config resolves, parses, validates, and defaults parlo configuration.
package config

import "fmt"

// Config is the fully materialized runtime configuration used by parlo.
type Config struct {
	Recording RecordingConfig
	Display   DisplayConfig
	Service   ServiceConfig
	History   HistoryConfig
	Clipboard CommandConfig
}

// RecordingConfig controls session-start parameters. Both values are frozen
// onto the session when recording begins; editing the file mid-session does
// not change in-flight behavior.
type RecordingConfig struct {
	MaxDurationSeconds int
	PostAction         PostAction
}

// DisplayConfig controls how much UI each session phase is allowed to show.
// Unlike RecordingConfig it is re-read on every render.
type DisplayConfig struct {
	Mode DisplayMode
}

// ServiceConfig locates the speech service on the session bus and tunes
// liveness behavior.
type ServiceConfig struct {
	BusName                  string
	ObjectPath               string
	Interface                string
	AutoLaunch               bool
	LivenessIntervalSeconds  int
	ProcessingTimeoutSeconds int
}

// HistoryConfig controls the local transcript history store.
type HistoryConfig struct {
	Enable     bool
	Path       string
	MaxEntries int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// PostAction names what happens to a transcript once it is ready.
type PostAction string

const (
	PostActionPreview     PostAction = "preview"
	PostActionTypeOnly    PostAction = "type_only"
	PostActionCopyOnly    PostAction = "copy_only"
	PostActionTypeAndCopy PostAction = "type_and_copy"
)

// ParsePostAction validates a post-action name from configuration.
func ParsePostAction(s string) (PostAction, error) {
	switch PostAction(s) {
	case PostActionPreview, PostActionTypeOnly, PostActionCopyOnly, PostActionTypeAndCopy:
		return PostAction(s), nil
	default:
		return "", fmt.Errorf("post_action must be one of: preview, type_only, copy_only, type_and_copy")
	}
}

// WantsType reports whether the action asks the service to type the text.
func (a PostAction) WantsType() bool {
	return a == PostActionTypeOnly || a == PostActionTypeAndCopy
}

// WantsCopy reports whether the action puts the text on the clipboard.
func (a PostAction) WantsCopy() bool {
	return a == PostActionCopyOnly || a == PostActionTypeAndCopy
}

// RequiresReview reports whether the transcript must be shown to the user
// before anything happens to it.
func (a PostAction) RequiresReview() bool {
	return a == PostActionPreview
}

// DisplayMode names how intrusive session UI may be.
type DisplayMode string

const (
	DisplayAlways  DisplayMode = "always"
	DisplayFocused DisplayMode = "focused"
	DisplayNormal  DisplayMode = "normal"
	DisplaySilent  DisplayMode = "silent"
)

// ParseDisplayMode validates a display-mode name from configuration.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case DisplayAlways, DisplayFocused, DisplayNormal, DisplaySilent:
		return DisplayMode(s), nil
	default:
		return "", fmt.Errorf("display.mode must be one of: always, focused, normal, silent")
	}
}
