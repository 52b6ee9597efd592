// Package surface drives the presentation channels the render policy picks:
// a desktop notification for modal and toast renders, and a statefile that
// panel indicators poll. Each surface implements its full contract, so
// dispatch never probes for capabilities.
package surface

import (
	"context"
	"log/slog"

	"github.com/rbright/parlo/internal/fsm"
	"github.com/rbright/parlo/internal/render"
)

type notifySurface interface {
	ShowModal(ctx context.Context, action render.Action) error
	Toast(ctx context.Context, title, body string) error
	Alert(ctx context.Context, title, body string) error
	Clear(ctx context.Context) error
}

type indicatorSurface interface {
	Write(state fsm.State, action render.Action) error
	Remove() error
}

// Renderer fans one render action out to all surfaces.
type Renderer struct {
	notify    notifySurface
	indicator indicatorSurface
	logger    *slog.Logger
}

// NewRenderer wires the concrete surfaces.
func NewRenderer(notifier *Notifier, indicator *Indicator, logger *slog.Logger) *Renderer {
	return &Renderer{notify: notifier, indicator: indicator, logger: logger}
}

// Apply presents an action. The indicator mirrors the session state on
// every render; the notification surface shows, replaces, or clears per
// the action. Surface failures are logged and swallowed because
// presentation must never disturb session state.
func (r *Renderer) Apply(ctx context.Context, state fsm.State, action render.Action) {
	if err := r.indicator.Write(state, action); err != nil {
		r.logger.Debug("indicator write failed", "error", err.Error())
	}

	switch action.Surface {
	case render.SurfaceModal:
		if err := r.notify.ShowModal(ctx, action); err != nil {
			r.logger.Debug("modal dispatch failed", "error", err.Error())
		}
	case render.SurfaceToast:
		if err := r.notify.Clear(ctx); err != nil {
			r.logger.Debug("modal clear failed", "error", err.Error())
		}
		if err := r.notify.Toast(ctx, action.Title, action.Body); err != nil {
			r.logger.Debug("toast dispatch failed", "error", err.Error())
		}
	default:
		if err := r.notify.Clear(ctx); err != nil {
			r.logger.Debug("modal clear failed", "error", err.Error())
		}
	}
}

// Notify posts a transient toast outside the render policy, for feedback
// that accompanies a state change rather than describing one.
func (r *Renderer) Notify(ctx context.Context, title, body string) {
	if err := r.notify.Toast(ctx, title, body); err != nil {
		r.logger.Debug("toast dispatch failed", "error", err.Error())
	}
}

// Alert posts an untracked critical notification that outlives the process.
func (r *Renderer) Alert(ctx context.Context, title, body string) {
	if err := r.notify.Alert(ctx, title, body); err != nil {
		r.logger.Debug("alert dispatch failed", "error", err.Error())
	}
}

// Shutdown clears every surface on session exit.
func (r *Renderer) Shutdown(ctx context.Context) {
	if err := r.notify.Clear(ctx); err != nil {
		r.logger.Debug("modal clear failed", "error", err.Error())
	}
	if err := r.indicator.Remove(); err != nil {
		r.logger.Debug("indicator remove failed", "error", err.Error())
	}
}
