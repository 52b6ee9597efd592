// Package output delivers committed transcript text to the desktop:
// clipboard writes and environment capability detection.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/parlo/internal/config"
)

const copyTimeout = 2 * time.Second

// Copier writes transcript text to the user's clipboard. The strategy is
// resolved once at construction: the configured clipboard command wins, then
// wl-copy on Wayland sessions, then the portable clipboard library.
type Copier struct {
	argv   []string
	logger *slog.Logger
}

// NewCopier picks a clipboard strategy for the detected environment.
func NewCopier(cmd config.CommandConfig, caps Capabilities, logger *slog.Logger) *Copier {
	argv := cmd.Argv
	if len(argv) == 0 && caps.SessionType == SessionWayland {
		if _, err := exec.LookPath("wl-copy"); err == nil {
			argv = []string{"wl-copy"}
		}
	}
	return &Copier{argv: argv, logger: logger}
}

// Copy places text on the clipboard. Empty text is a no-op so blank
// transcripts never clobber existing clipboard contents.
func (c *Copier) Copy(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if len(c.argv) > 0 {
		ctx, cancel := context.WithTimeout(ctx, copyTimeout)
		defer cancel()
		if err := runCommandWithInput(ctx, c.argv, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		c.logger.Debug("clipboard set", "bytes", len(text), "via", c.argv[0])
		return nil
	}

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logger.Debug("clipboard set", "bytes", len(text), "via", "library")
	return nil
}

// runCommandWithInput executes argv and writes input to its stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
