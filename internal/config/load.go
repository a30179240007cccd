package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fileName = "config.jsonc"

// Loaded is a resolved configuration and where it came from.
type Loaded struct {
	Path     string
	Exists   bool
	Config   Config
	Warnings []Warning
}

// Load reads the config at path, or at the default location when path is
// empty. A missing file is not an error: defaults are returned with a warning.
func Load(path string) (Loaded, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return Loaded{}, err
	}
	out := Loaded{Path: path, Config: Default()}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		out.Warnings = append(out.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
		return out, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	out.Exists = true
	out.Config, out.Warnings, err = Parse(string(raw), out.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return out, nil
}

// Parse overlays JSONC content on base. Blank content validates base as is.
func Parse(content string, base Config) (Config, []Warning, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}
	if body[0] != '{' && body[0] != '/' {
		return Config{}, nil, errors.New("config must be a JSONC object")
	}
	return parseJSONC(content, base)
}

// ResolvePath returns explicit if set, else Dir()/config.jsonc.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Dir is $XDG_CONFIG_HOME/tellyspelly, falling back to ~/.config/tellyspelly.
func Dir() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tellyspelly"), nil
}
