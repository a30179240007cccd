// Package output delivers a finished transcript: clipboard first, then an optional paste.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/tellyspelly/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Committer copies transcripts to the clipboard and optionally pastes them.
type Committer struct {
	config config.Config
	logger *slog.Logger

	// swapped in tests
	writeSystemClipboard func(string) error
	pasteKeys            func(context.Context, keyCombo) error
}

// NewCommitter builds a committer from runtime config.
func NewCommitter(cfg config.Config, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Committer{
		config:               cfg,
		logger:               logger,
		writeSystemClipboard: clipboard.WriteAll,
		pasteKeys:            pasteWithKeyboard,
	}
}

// Commit places transcript on the clipboard. Paste failures are logged and never
// fail the commit; the text stays on the clipboard either way.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	if err := c.CopyToClipboard(ctx, transcript); err != nil {
		return err
	}

	if !c.config.Paste.Enable {
		return nil
	}
	if err := c.paste(ctx); err != nil {
		c.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
	}
	return nil
}

// CopyToClipboard writes text through clipboard_cmd when configured, otherwise
// through the system clipboard.
func (c *Committer) CopyToClipboard(ctx context.Context, text string) error {
	if len(c.config.Clipboard.Argv) > 0 {
		clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
		defer cancel()
		if err := runCommandWithInput(clipboardCtx, c.config.Clipboard.Argv, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		return nil
	}

	if clipboard.Unsupported {
		return errors.New("set clipboard: no clipboard utility found (install wl-clipboard, xclip or xsel, or set clipboard_cmd)")
	}
	if err := c.writeSystemClipboard(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
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
