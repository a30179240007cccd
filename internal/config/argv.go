package config

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// parseArgv splits a command string with POSIX shell quoting. A blank or
// fully commented command yields nil.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	argv, err := shlex.Split(input)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", input, err)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	return argv, nil
}
