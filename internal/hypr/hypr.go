// Package hypr talks to a running Hyprland compositor through hyprctl.
package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const defaultNotifyColor = "rgb(89b4fa)"

// Available reports whether this process runs inside a Hyprland session.
func Available() bool {
	return strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) != ""
}

// BindLine renders a hyprland.conf bind that runs command on mods+key.
func BindLine(mods, key, command string) string {
	return fmt.Sprintf("bind = %s, %s, exec, %s", mods, key, command)
}

// ActiveWindow is the subset of `hyprctl -j activewindow` used to aim pastes.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
}

// QueryActiveWindow returns the focused window. A window without an address
// is an error since paste dispatch cannot target it.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	var w ActiveWindow
	if err := query(ctx, "activewindow", &w); err != nil {
		return ActiveWindow{}, err
	}
	for _, field := range []*string{&w.Address, &w.Class, &w.InitialClass} {
		*field = strings.TrimSpace(*field)
	}
	if w.Address == "" {
		return ActiveWindow{}, errors.New("hyprctl activewindow returned empty address")
	}
	return w, nil
}

// SendShortcut dispatches a sendshortcut payload such as "CTRL,V,address:0x1".
func SendShortcut(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return errors.New("sendshortcut requires a non-empty payload")
	}
	return dispatch(ctx, "sendshortcut", payload)
}

// Notify shows a compositor notification. icon uses hyprctl numbering:
// 0 warning, 1 info, 2 hint, 3 error, 4 confused, 5 ok.
func Notify(ctx context.Context, icon, timeoutMS int, color, text string) error {
	if strings.TrimSpace(color) == "" {
		color = defaultNotifyColor
	}
	return dispatch(ctx, "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// DismissNotify clears every visible Hyprland notification.
func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}

func dispatch(ctx context.Context, args ...string) error {
	_, err := hyprctl(ctx, append([]string{"--quiet", "dispatch"}, args...)...)
	return err
}

func query(ctx context.Context, target string, into any) error {
	out, err := hyprctl(ctx, "-j", target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, into); err != nil {
		return fmt.Errorf("decode hyprctl %s: %w", target, err)
	}
	return nil
}

func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("hyprctl %s: %w (%s)", strings.Join(args, " "), err, detail)
	}
	return nil, fmt.Errorf("hyprctl %s: %w", strings.Join(args, " "), err)
}
