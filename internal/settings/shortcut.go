package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Shortcut is a parsed key combination such as ctrl+alt+r.
type Shortcut struct {
	Modifiers []string
	Key       string
}

var modifierOrder = []string{"ctrl", "alt", "shift", "super"}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"super":   "super",
	"meta":    "super",
	"win":     "super",
}

var namedKeys = map[string]struct{}{
	"space": {}, "enter": {}, "return": {}, "tab": {}, "escape": {}, "backspace": {},
	"insert": {}, "delete": {}, "home": {}, "end": {}, "pageup": {}, "pagedown": {},
	"up": {}, "down": {}, "left": {}, "right": {}, "pause": {}, "print": {},
}

// ParseShortcut parses "+"-separated modifiers followed by exactly one key.
// At least one modifier is required so a bare letter never becomes global.
func ParseShortcut(raw string) (Shortcut, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Shortcut{}, errors.New("shortcut is empty")
	}

	seen := map[string]bool{}
	var key string
	for _, part := range strings.Split(raw, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Shortcut{}, fmt.Errorf("shortcut %q has an empty segment", raw)
		}
		if mod, ok := modifierAliases[part]; ok {
			if seen[mod] {
				return Shortcut{}, fmt.Errorf("shortcut %q repeats modifier %q", raw, mod)
			}
			seen[mod] = true
			continue
		}
		if key != "" {
			return Shortcut{}, fmt.Errorf("shortcut %q has more than one key", raw)
		}
		if !isShortcutKey(part) {
			return Shortcut{}, fmt.Errorf("shortcut %q has unknown key %q", raw, part)
		}
		key = part
	}

	if key == "" {
		return Shortcut{}, fmt.Errorf("shortcut %q has no key", raw)
	}
	if len(seen) == 0 {
		return Shortcut{}, fmt.Errorf("shortcut %q needs at least one modifier", raw)
	}

	shortcut := Shortcut{Key: key}
	for _, mod := range modifierOrder {
		if seen[mod] {
			shortcut.Modifiers = append(shortcut.Modifiers, mod)
		}
	}
	return shortcut, nil
}

// IsZero reports an unset shortcut.
func (s Shortcut) IsZero() bool {
	return s.Key == ""
}

func (s Shortcut) String() string {
	if s.IsZero() {
		return ""
	}
	return strings.Join(append(append([]string(nil), s.Modifiers...), s.Key), "+")
}

// Hyprland renders the shortcut as bind modifiers and key, e.g. "CTRL ALT", "R".
func (s Shortcut) Hyprland() (string, string) {
	mods := make([]string, 0, len(s.Modifiers))
	for _, mod := range s.Modifiers {
		mods = append(mods, strings.ToUpper(mod))
	}
	key := s.Key
	switch key {
	case "enter":
		key = "Return"
	case "escape":
		key = "Escape"
	case "space":
		key = "space"
	default:
		if len(key) == 1 {
			key = strings.ToUpper(key)
		} else if strings.HasPrefix(key, "f") {
			key = strings.ToUpper(key)
		}
	}
	return strings.Join(mods, " "), key
}

func isShortcutKey(part string) bool {
	if len(part) == 1 {
		ch := part[0]
		return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')
	}
	if _, ok := namedKeys[part]; ok {
		return true
	}
	if strings.HasPrefix(part, "f") {
		var n int
		if _, err := fmt.Sscanf(part, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == part {
			return n >= 1 && n <= 24
		}
	}
	return false
}
