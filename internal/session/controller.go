package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/fsm"
	"github.com/rbright/parlo/internal/history"
	"github.com/rbright/parlo/internal/ipc"
	"github.com/rbright/parlo/internal/output"
	"github.com/rbright/parlo/internal/render"
)

// Service is the controller-facing subset of the speech service client.
type Service interface {
	EnsureReady(ctx context.Context) error
	StartRecording(ctx context.Context, durationSeconds int, action config.PostAction) (string, error)
	StopRecording(ctx context.Context, sessionID string) error
	CancelRecording(ctx context.Context, sessionID string) error
	TypeText(ctx context.Context, text string, copyToo bool) error
	ForceReset(ctx context.Context) error
}

// Renderer is the controller-facing subset of the surface layer.
type Renderer interface {
	Apply(ctx context.Context, state fsm.State, action render.Action)
	Notify(ctx context.Context, title, body string)
	Alert(ctx context.Context, title, body string)
	Shutdown(ctx context.Context)
}

// Copier writes transcript text to the clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// CopyFunc adapts a plain function to the Copier interface.
type CopyFunc func(ctx context.Context, text string) error

func (f CopyFunc) Copy(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Recorder appends concluded transcripts to the history store.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

type noopRenderer struct{}

func (noopRenderer) Apply(context.Context, fsm.State, render.Action) {}
func (noopRenderer) Notify(context.Context, string, string)         {}
func (noopRenderer) Alert(context.Context, string, string)          {}
func (noopRenderer) Shutdown(context.Context)                       {}

// Verbs accepted by the event loop. Notification buttons reuse the same
// names, so a pressed action key feeds straight into handleVerb.
const (
	verbStop    = "stop"
	verbCancel  = "cancel"
	verbInsert  = "insert"
	verbCopy    = "copy"
	verbDismiss = "dismiss"
	verbReset   = "reset"
)

// Deps bundles the collaborators a Controller drives. Renderer and Copier
// may be nil; Recorder nil disables history.
type Deps struct {
	Service  Service
	Renderer Renderer
	Copier   Copier
	Recorder Recorder
	Caps     output.Capabilities
	Mode     func() config.DisplayMode
}

// Controller owns the live session. All transitions happen on the goroutine
// running Run; IPC handlers and notification buttons enqueue verbs into the
// loop instead of mutating anything themselves.
type Controller struct {
	logger   *slog.Logger
	cfg      config.Config
	service  Service
	renderer Renderer
	copier   Copier
	recorder Recorder
	caps     output.Capabilities
	mode     func() config.DisplayMode

	mu          sync.RWMutex
	state       fsm.State
	sessionID   string
	startedAt   time.Time
	maxDuration time.Duration

	cmds chan string

	// Loop-owned. Never touched off the event loop.
	sess      *Session
	processed map[processedKey]struct{}
	procTimer *time.Timer
	result    Result
}

func NewController(logger *slog.Logger, cfg config.Config, deps Deps) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Renderer == nil {
		deps.Renderer = noopRenderer{}
	}
	if deps.Copier == nil {
		deps.Copier = CopyFunc(func(context.Context, string) error { return nil })
	}
	if deps.Mode == nil {
		mode := cfg.Display.Mode
		deps.Mode = func() config.DisplayMode { return mode }
	}
	return &Controller{
		logger:    logger,
		cfg:       cfg,
		service:   deps.Service,
		renderer:  deps.Renderer,
		copier:    deps.Copier,
		recorder:  deps.Recorder,
		caps:      deps.Caps,
		mode:      deps.Mode,
		state:     fsm.StateIdle,
		cmds:      make(chan string, 8),
		processed: make(map[processedKey]struct{}),
	}
}

// State returns the current machine state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the live session identifier. It is empty whenever the
// machine is outside Recording and Processing.
func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// transition applies one machine event and refreshes the shared snapshot.
func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.State(), event)
	if err != nil {
		return err
	}
	c.syncSnapshot(next)
	return nil
}

// syncSnapshot publishes the fields IPC status reads concurrently. The
// session identifier is only visible while the session is in flight.
func (c *Controller) syncSnapshot(state fsm.State) {
	var id string
	var startedAt time.Time
	var maxDuration time.Duration
	if c.sess != nil {
		if state == fsm.StateRecording || state == fsm.StateProcessing {
			id = c.sess.ID
		}
		startedAt = c.sess.StartedAt
		maxDuration = c.sess.MaxDuration
	}
	c.mu.Lock()
	c.state = state
	c.sessionID = id
	c.startedAt = startedAt
	c.maxDuration = maxDuration
	c.mu.Unlock()
}

// render recomputes the presentation for the current state. The display mode
// is re-read on every call so a mode change shows up at the next repaint.
func (c *Controller) render(ctx context.Context) render.Action {
	state := c.State()
	view := render.View{State: state}
	if c.sess != nil {
		view.Timing = render.Timing{
			Now:         time.Now(),
			StartedAt:   c.sess.StartedAt,
			MaxDuration: c.sess.MaxDuration,
		}
		view.PreviewText = c.sess.Transcript
		view.ErrorMessage = c.sess.ErrorDetail
		view.ErrorCritical = c.sess.ErrorCritical
	}
	action := render.Decide(view, c.mode())
	c.renderer.Apply(ctx, state, action)
	return action
}

// Start checks service health, issues the start request, and brings the
// machine into Recording. On failure the machine stays Idle and the error is
// surfaced as a critical alert.
func (c *Controller) Start(ctx context.Context) error {
	if state := c.State(); state != fsm.StateIdle {
		return fmt.Errorf("cannot start from state %s", state)
	}

	if err := c.service.EnsureReady(ctx); err != nil {
		c.logger.Error("speech service not ready", "error", err.Error())
		c.renderer.Alert(ctx, "Speech service unavailable", err.Error())
		return err
	}

	configured := c.cfg.Recording.PostAction
	effective := EffectiveAction(configured, c.caps)
	if effective != configured {
		c.logger.Info("post action downgraded",
			"configured", string(configured),
			"effective", string(effective),
			"session_type", c.caps.SessionType)
	}

	id, err := c.service.StartRecording(ctx, c.cfg.Recording.MaxDurationSeconds, effective)
	if err != nil {
		c.logger.Error("start recording failed", "error", err.Error())
		c.renderer.Alert(ctx, "Recording failed to start", err.Error())
		return err
	}

	// Stale duplicate tracking belongs to the previous session; a new
	// session starts clean.
	c.processed = make(map[processedKey]struct{})
	c.sess = newSession(id, c.cfg.Recording, effective, time.Now())
	c.result = Result{StartedAt: c.sess.StartedAt}

	if err := c.transition(fsm.EventStart); err != nil {
		return err
	}

	c.logger.Info("recording started",
		"session", id,
		"max_duration_seconds", c.cfg.Recording.MaxDurationSeconds,
		"post_action", string(effective))
	c.render(ctx)
	return nil
}

// Run drives the event loop until the machine returns to Idle. Events come
// from the service subscription, presses from notification buttons, verbs
// from IPC handlers.
func (c *Controller) Run(ctx context.Context, events <-chan bus.Event, presses <-chan string) Result {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if c.State() == fsm.StateIdle {
			c.relayFeedback(ctx, events)
			c.finish()
			return c.result
		}

		select {
		case <-ctx.Done():
			c.interrupt()
			c.finish()
			return c.result
		case verb := <-c.cmds:
			c.handleVerb(ctx, verb)
		case event, ok := <-events:
			if !ok {
				events = nil
				c.serviceGone(ctx, "subscription closed")
				continue
			}
			c.handleEvent(ctx, event)
		case key, ok := <-presses:
			if !ok {
				presses = nil
				continue
			}
			c.handlePress(ctx, key)
		case <-ticker.C:
			if c.State() == fsm.StateRecording {
				c.render(ctx)
			}
		case <-c.processingTimeoutC():
			c.handleProcessingTimeout(ctx)
		}
	}
}

// finish stamps the result and releases loop resources.
func (c *Controller) finish() {
	c.stopProcessingTimer()
	if c.result.FinishedAt.IsZero() {
		c.result.FinishedAt = time.Now()
	}
}

// interrupt handles process-level shutdown. Whatever is cancellable gets
// cancelled; a lingering preview or error is dismissed.
func (c *Controller) interrupt() {
	cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	switch c.State() {
	case fsm.StateRecording, fsm.StateProcessing:
		c.cancelSession(cleanup)
	case fsm.StatePreview, fsm.StateError:
		c.conclude(cleanup, OutcomeDismissed, fsm.EventDismiss)
	}
}

func (c *Controller) handleVerb(ctx context.Context, verb string) {
	state := c.State()
	switch verb {
	case verbStop:
		if state != fsm.StateRecording {
			c.logIgnored(verb, state)
			return
		}
		c.stopRecording(ctx)
	case verbCancel:
		if state != fsm.StateRecording && state != fsm.StateProcessing {
			c.logIgnored(verb, state)
			return
		}
		c.cancelSession(ctx)
	case verbInsert:
		if state != fsm.StatePreview {
			c.logIgnored(verb, state)
			return
		}
		c.insertPreview(ctx)
	case verbCopy:
		if state != fsm.StatePreview {
			c.logIgnored(verb, state)
			return
		}
		c.copyPreview(ctx)
	case verbDismiss:
		if state != fsm.StatePreview && state != fsm.StateError {
			c.logIgnored(verb, state)
			return
		}
		c.conclude(ctx, OutcomeDismissed, fsm.EventDismiss)
	case verbReset:
		c.forceReset(ctx)
	default:
		c.logger.Warn("unknown verb", "verb", verb)
	}
}

// logIgnored records a command that lost a race against a state change. A
// button pressed a beat too late is not a failure.
func (c *Controller) logIgnored(verb string, state fsm.State) {
	c.logger.Debug("command ignored", "verb", verb, "state", string(state))
}

// handlePress maps a notification button to its verb. The button keys are
// chosen to match the command surface, so the mapping is the identity.
func (c *Controller) handlePress(ctx context.Context, key string) {
	switch key {
	case verbInsert, verbCopy, verbDismiss:
		c.handleVerb(ctx, key)
	default:
		c.logger.Debug("unknown notification action", "key", key)
	}
}

func (c *Controller) handleEvent(ctx context.Context, event bus.Event) {
	if !event.SessionBound() {
		switch event.Kind {
		case bus.EventServiceGone:
			c.serviceGone(ctx, event.Reason)
		case bus.EventTextTyped, bus.EventTextCopied:
			c.feedbackToast(ctx, event)
		}
		return
	}

	if err := admitEvent(c.sess, c.State(), c.processed, event); err != nil {
		c.logger.Debug("notification rejected",
			"kind", string(event.Kind),
			"session", event.SessionID,
			"state", string(c.State()),
			"reason", err.Error())
		return
	}

	switch event.Kind {
	case bus.EventRecordingStarted:
		c.logger.Debug("service confirmed recording", "session", event.SessionID)
	case bus.EventRecordingStopped:
		c.recordingStopped(ctx, event)
	case bus.EventTranscriptionReady:
		c.transcriptionReady(ctx, event)
	case bus.EventRecordingError:
		c.logger.Warn("service reported recording error",
			"session", event.SessionID,
			"message", event.Message)
		c.fail(ctx, event.Message, false)
	}
}

func (c *Controller) recordingStopped(ctx context.Context, event bus.Event) {
	switch event.Reason {
	case bus.StopReasonRecorded:
		c.logger.Info("recording stopped by service", "session", event.SessionID)
		c.enterProcessing(ctx)
	case bus.StopReasonCancelled:
		c.logger.Info("recording cancelled by service", "session", event.SessionID)
		c.sess.Cancelled = true
		c.conclude(ctx, OutcomeCancelled, fsm.EventCancel)
	default:
		c.fail(ctx, "recording stopped unexpectedly", false)
	}
}

func (c *Controller) transcriptionReady(ctx context.Context, event bus.Event) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		c.logger.Info("no speech detected", "session", event.SessionID)
		c.renderer.Notify(ctx, "No speech detected", "")
		c.conclude(ctx, OutcomeNoSpeech, fsm.EventNoSpeech)
		return
	}

	c.sess.Transcript = text

	if c.sess.Action.RequiresReview() {
		c.stopProcessingTimer()
		if err := c.transition(fsm.EventReview); err != nil {
			c.logger.Warn("review transition rejected", "error", err.Error())
			return
		}
		c.logger.Info("transcript ready for review",
			"session", event.SessionID,
			"chars", len(text))
		c.render(ctx)
		return
	}

	// The service already applied the configured action. Running it again
	// here would double-type or double-copy the text.
	c.logger.Info("transcript applied by service",
		"session", event.SessionID,
		"action", string(c.sess.Action),
		"chars", len(text))
	c.conclude(ctx, OutcomeAutoApplied, fsm.EventAutoApplied)
}

// stopRecording asks the service to finalize the capture. The service will
// confirm with its own stopped notification; the kind is marked processed up
// front so the confirmation cannot re-fire the transition.
func (c *Controller) stopRecording(ctx context.Context) {
	if err := c.service.StopRecording(ctx, c.sess.ID); err != nil {
		c.logger.Error("stop recording failed", "session", c.sess.ID, "error", err.Error())
		c.fail(ctx, err.Error(), true)
		return
	}
	c.markProcessed(bus.EventRecordingStopped)
	c.logger.Info("recording stopped", "session", c.sess.ID)
	c.enterProcessing(ctx)
}

func (c *Controller) markProcessed(kind bus.EventKind) {
	if c.sess == nil {
		return
	}
	c.processed[processedKey{id: c.sess.ID, kind: kind}] = struct{}{}
}

// cancelSession flags the session cancelled before the service call goes
// out, so a notification racing the cancel is already doomed at the guard.
func (c *Controller) cancelSession(ctx context.Context) {
	c.sess.Cancelled = true
	if err := c.service.CancelRecording(ctx, c.sess.ID); err != nil {
		c.logger.Warn("cancel request failed", "session", c.sess.ID, "error", err.Error())
	}
	c.logger.Info("recording cancelled", "session", c.sess.ID)
	c.conclude(ctx, OutcomeCancelled, fsm.EventCancel)
}

func (c *Controller) enterProcessing(ctx context.Context) {
	if err := c.transition(fsm.EventStopped); err != nil {
		c.logger.Warn("stop transition rejected", "error", err.Error())
		return
	}
	if secs := c.cfg.Service.ProcessingTimeoutSeconds; secs > 0 {
		c.procTimer = time.NewTimer(time.Duration(secs) * time.Second)
	}
	c.render(ctx)
}

func (c *Controller) processingTimeoutC() <-chan time.Time {
	if c.procTimer == nil {
		return nil
	}
	return c.procTimer.C
}

func (c *Controller) stopProcessingTimer() {
	if c.procTimer != nil {
		c.procTimer.Stop()
		c.procTimer = nil
	}
}

// handleProcessingTimeout gives up on a transcription that outlived the
// configured bound. The service may still be grinding away; tell it to
// abandon the session before walking away.
func (c *Controller) handleProcessingTimeout(ctx context.Context) {
	c.procTimer = nil
	if c.State() != fsm.StateProcessing {
		return
	}
	secs := c.cfg.Service.ProcessingTimeoutSeconds
	c.logger.Warn("transcription timed out",
		"session", c.sess.ID,
		"timeout_seconds", secs)
	if err := c.service.CancelRecording(ctx, c.sess.ID); err != nil {
		c.logger.Debug("abandon request failed", "error", err.Error())
	}
	c.fail(ctx, fmt.Sprintf("transcription timed out after %ds", secs), false)
}

func (c *Controller) insertPreview(ctx context.Context) {
	text := c.sess.Transcript
	copyToo := c.sess.Action == config.PostActionTypeAndCopy
	if err := c.service.TypeText(ctx, text, copyToo); err != nil {
		// The transcript survives in history; surface the failure and
		// conclude anyway.
		c.logger.Error("text insertion failed", "session", c.sess.ID, "error", err.Error())
		c.renderer.Notify(ctx, "Insert failed", err.Error())
	} else {
		c.logger.Info("text inserted", "session", c.sess.ID, "chars", len(text))
		c.renderer.Notify(ctx, "Text inserted", snippet(text))
	}
	c.conclude(ctx, OutcomeInserted, fsm.EventInsert)
}

func (c *Controller) copyPreview(ctx context.Context) {
	text := c.sess.Transcript
	if err := c.copier.Copy(ctx, text); err != nil {
		c.logger.Error("clipboard write failed", "session", c.sess.ID, "error", err.Error())
		c.renderer.Notify(ctx, "Copy failed", err.Error())
	} else {
		c.logger.Info("text copied", "session", c.sess.ID, "chars", len(text))
		c.renderer.Notify(ctx, "Copied to clipboard", snippet(text))
	}
	c.conclude(ctx, OutcomeCopied, fsm.EventCopy)
}

func (c *Controller) forceReset(ctx context.Context) {
	c.logger.Info("force reset requested")
	if err := c.service.ForceReset(ctx); err != nil {
		c.logger.Warn("service reset failed", "error", err.Error())
	}
	c.conclude(ctx, OutcomeReset, fsm.EventReset)
}

func (c *Controller) serviceGone(ctx context.Context, reason string) {
	if !c.State().Live() {
		return
	}
	c.logger.Warn("speech service lost", "reason", reason)
	c.renderer.Notify(ctx, "Speech service disappeared", "The session was abandoned")
	c.conclude(ctx, OutcomeServiceGone, fsm.EventReset)
}

// fail moves the session into Error. Critical failures hold a modal until
// acknowledged; the rest toast and return to Idle on their own.
func (c *Controller) fail(ctx context.Context, detail string, critical bool) {
	c.stopProcessingTimer()

	if c.sess == nil {
		c.renderer.Notify(ctx, "Recording failed", detail)
		return
	}
	c.sess.Transcript = ""
	c.sess.ErrorDetail = detail
	c.sess.ErrorCritical = critical

	if err := c.transition(fsm.EventFail); err != nil {
		c.logger.Warn("fail transition rejected", "error", err.Error())
		return
	}

	c.result.Outcome = OutcomeFailed
	c.result.Err = errors.New(detail)

	action := c.render(ctx)
	if action.AutoClear {
		c.conclude(ctx, OutcomeFailed, fsm.EventDismiss)
	}
}

// conclude applies a terminal event, records history when there is a
// transcript worth keeping, tears the session down, and repaints Idle.
func (c *Controller) conclude(ctx context.Context, outcome Outcome, event fsm.Event) {
	c.stopProcessingTimer()

	if err := c.transition(event); err != nil {
		c.logger.Warn("conclude transition rejected",
			"event", string(event),
			"error", err.Error())
		return
	}

	// A failure outcome is sticky so a dismissed error still reports as
	// failed to the caller.
	if c.result.Outcome != OutcomeFailed {
		c.result.Outcome = outcome
	}
	c.result.FinishedAt = time.Now()
	if c.sess != nil {
		c.result.Transcript = c.sess.Transcript
		c.recordHistory(ctx, outcome)
	}
	c.sess = nil
	c.render(ctx)
}

func (c *Controller) recordHistory(ctx context.Context, outcome Outcome) {
	if c.recorder == nil || strings.TrimSpace(c.sess.Transcript) == "" {
		return
	}
	entry := history.Entry{
		SessionID:  c.sess.ID,
		Text:       c.sess.Transcript,
		Action:     string(c.sess.Action),
		Outcome:    string(outcome),
		StartedAt:  c.sess.StartedAt,
		FinishedAt: time.Now(),
	}
	if err := c.recorder.Record(ctx, entry); err != nil {
		c.logger.Warn("history record failed", "error", err.Error())
	}
}

// relayFeedback lingers briefly after an auto-applied conclusion so the
// service's delivery confirmation reaches the user before the process exits.
func (c *Controller) relayFeedback(ctx context.Context, events <-chan bus.Event) {
	if c.result.Outcome != OutcomeAutoApplied || events == nil {
		return
	}
	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if c.feedbackToast(ctx, event) {
				return
			}
		}
	}
}

// feedbackToast surfaces a text delivery confirmation. Returns true when the
// event was one.
func (c *Controller) feedbackToast(ctx context.Context, event bus.Event) bool {
	switch event.Kind {
	case bus.EventTextTyped:
		if event.Success {
			c.renderer.Notify(ctx, "Text inserted", snippet(event.Text))
		} else {
			c.renderer.Notify(ctx, "Typing failed", "The transcript is kept in history")
		}
		return true
	case bus.EventTextCopied:
		if event.Success {
			c.renderer.Notify(ctx, "Copied to clipboard", snippet(event.Text))
		} else {
			c.renderer.Notify(ctx, "Copy failed", "")
		}
		return true
	default:
		return false
	}
}

// Handle serves IPC commands for the running owner. Mutating verbs are
// enqueued to the event loop; the response reflects the snapshot at enqueue
// time and the loop re-validates before acting.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	state := c.State()
	switch req.Command {
	case "status":
		return c.statusResponse()
	case "start":
		return ipc.Response{OK: false, State: string(state), Session: c.SessionID(), Error: "a session is already active"}
	case "toggle":
		// The toggle meaning depends on where the session is: recording
		// toggles into a stop, a pending decision toggles into a dismissal,
		// and anything else just reports.
		switch state {
		case fsm.StateRecording:
			return c.enqueue(verbStop, state, "stop requested")
		case fsm.StatePreview, fsm.StateError:
			return c.enqueue(verbDismiss, state, "dismissed")
		default:
			return c.statusResponse()
		}
	case "stop":
		if state == fsm.StateProcessing {
			return ipc.Response{OK: false, State: string(state), Session: c.SessionID(), Error: "already transcribing"}
		}
		if state != fsm.StateRecording {
			return c.invalidState("stop", state)
		}
		return c.enqueue(verbStop, state, "stop requested")
	case "cancel":
		if state != fsm.StateRecording && state != fsm.StateProcessing {
			return c.invalidState("cancel", state)
		}
		return c.enqueue(verbCancel, state, "cancel requested")
	case "insert":
		if state != fsm.StatePreview {
			return c.invalidState("insert", state)
		}
		return c.enqueue(verbInsert, state, "insert requested")
	case "copy":
		if state != fsm.StatePreview {
			return c.invalidState("copy", state)
		}
		return c.enqueue(verbCopy, state, "copy requested")
	case "dismiss":
		if state != fsm.StatePreview && state != fsm.StateError {
			return c.invalidState("dismiss", state)
		}
		return c.enqueue(verbDismiss, state, "dismissed")
	case "reset":
		return c.enqueue(verbReset, state, "reset requested")
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) invalidState(command string, state fsm.State) ipc.Response {
	return ipc.Response{
		OK:    false,
		State: string(state),
		Error: fmt.Sprintf("cannot %s from state %s", command, state),
	}
}

// enqueue hands a verb to the event loop without blocking the IPC server. A
// full queue means the same verb burst is already pending; the response is
// still a success because the requested work will happen.
func (c *Controller) enqueue(verb string, state fsm.State, message string) ipc.Response {
	select {
	case c.cmds <- verb:
		return ipc.Response{OK: true, State: string(state), Session: c.SessionID(), Message: message}
	default:
		return ipc.Response{OK: true, State: string(state), Session: c.SessionID(), Message: message + " (already queued)"}
	}
}

func (c *Controller) statusResponse() ipc.Response {
	c.mu.RLock()
	state := c.state
	id := c.sessionID
	startedAt := c.startedAt
	maxDuration := c.maxDuration
	c.mu.RUnlock()

	message := string(state)
	if state == fsm.StateRecording && !startedAt.IsZero() && maxDuration > 0 {
		remaining := maxDuration - time.Since(startedAt)
		message = fmt.Sprintf("recording, %s remaining", render.FormatRemaining(remaining))
	}
	return ipc.Response{OK: true, State: string(state), Session: id, Message: message}
}

// snippet trims transcript text down to toast size.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return text
}
