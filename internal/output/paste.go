package output

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/micmonay/keybd_event"
	"github.com/rbright/tellyspelly/internal/hypr"
)

// pasteMethod is one way of sending the paste keystroke.
type pasteMethod struct {
	name string
	run  func(context.Context) error
}

// paste tries paste_cmd, then hyprctl when paste.backend is "hypr", then the
// virtual keyboard, stopping at the first method that succeeds.
func (c *Committer) paste(ctx context.Context) error {
	var errs []error
	for _, m := range c.pasteMethods() {
		err := m.run(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("paste method failed", "method", m.name, "error", err.Error())
	}
	return errors.Join(errs...)
}

func (c *Committer) pasteMethods() []pasteMethod {
	var methods []pasteMethod
	if argv := c.config.PasteCmd.Argv; len(argv) > 0 {
		methods = append(methods, pasteMethod{name: "paste_cmd", run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return runCommandWithInput(ctx, argv, "")
		}})
	}
	if c.config.Paste.Backend == "hypr" {
		methods = append(methods, pasteMethod{name: "hypr", run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
			defer cancel()
			return hyprPaste(ctx, c.config.Paste.Shortcut)
		}})
	}
	return append(methods, pasteMethod{name: "keys", run: func(ctx context.Context) error {
		combo, err := parseKeyCombo(c.config.Paste.Shortcut)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
		return c.pasteKeys(ctx, combo)
	}})
}

func hyprPaste(ctx context.Context, shortcut string) error {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}

	payload, err := buildPasteShortcut(shortcut, window.Address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("paste shortcut cannot be empty")
	}

	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}

	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := range attempts {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// keyCombo is a paste shortcut resolved for the virtual keyboard.
type keyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   int
}

var comboKeys = map[string]int{
	"V":      keybd_event.VK_V,
	"C":      keybd_event.VK_C,
	"Y":      keybd_event.VK_Y,
	"INSERT": keybd_event.VK_INSERT,
	"ENTER":  keybd_event.VK_ENTER,
}

// parseKeyCombo reads the hyprctl-style "MODS,KEY" form, e.g. "CTRL SHIFT,V".
func parseKeyCombo(shortcut string) (keyCombo, error) {
	mods, key, ok := strings.Cut(strings.TrimSpace(shortcut), ",")
	if !ok {
		return keyCombo{}, fmt.Errorf("paste shortcut %q must look like MODS,KEY", shortcut)
	}

	var combo keyCombo
	for _, mod := range strings.Fields(strings.ToUpper(mods)) {
		switch mod {
		case "CTRL", "CONTROL":
			combo.Ctrl = true
		case "SHIFT":
			combo.Shift = true
		case "ALT":
			combo.Alt = true
		default:
			return keyCombo{}, fmt.Errorf("paste shortcut modifier %q is not supported by the keys backend", mod)
		}
	}

	code, ok := comboKeys[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return keyCombo{}, fmt.Errorf("paste shortcut key %q is not supported by the keys backend", strings.TrimSpace(key))
	}
	combo.Key = code
	return combo, nil
}

// uinput devices are ignored by the compositor for a moment after creation.
var uinputSettle = 2 * time.Second

func pasteWithKeyboard(ctx context.Context, combo keyCombo) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("create virtual keyboard: %w", err)
	}
	if runtime.GOOS == "linux" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uinputSettle):
		}
	}

	kb.HasCTRL(combo.Ctrl)
	kb.HasSHIFT(combo.Shift)
	kb.HasALT(combo.Alt)
	kb.SetKeys(combo.Key)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}
	return nil
}
