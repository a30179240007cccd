// Package cli parses tellyspelly command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandToggle     Command = "toggle"
	CommandStart      Command = "start"
	CommandStop       Command = "stop"
	CommandCancel     Command = "cancel"
	CommandStatus     Command = "status"
	CommandDevices    Command = "devices"
	CommandMicTest    Command = "mic-test"
	CommandTranscribe Command = "transcribe"
	CommandSettings   Command = "settings"
	CommandShortcuts  Command = "shortcuts"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// arity is the accepted positional argument range for a command.
type arity struct {
	min int
	max int
}

var validCommands = map[Command]arity{
	CommandToggle:     {},
	CommandStart:      {},
	CommandStop:       {},
	CommandCancel:     {},
	CommandStatus:     {},
	CommandDevices:    {},
	CommandMicTest:    {max: 1},
	CommandTranscribe: {min: 1, max: 1},
	CommandSettings:   {min: 1, max: 3},
	CommandShortcuts:  {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// Settings subcommands.
const (
	SettingsList = "list"
	SettingsGet  = "get"
	SettingsSet  = "set"
)

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

// Parse consumes global flags up to the command; everything after the command is positional.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) > want.max {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			if len(rest) < want.min {
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, want.min)
			}
			if err := validateArgs(cmd, rest); err != nil {
				return Parsed{}, err
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if len(rest) > 0 {
				parsed.Args = append([]string(nil), rest...)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func validateArgs(cmd Command, args []string) error {
	switch cmd {
	case CommandMicTest:
		if len(args) == 0 {
			return nil
		}
		seconds, err := strconv.ParseFloat(args[0], 64)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("mic-test duration must be a positive number of seconds: %q", args[0])
		}
	case CommandSettings:
		sub := args[0]
		switch {
		case sub == SettingsList && len(args) == 1:
		case sub == SettingsGet && len(args) == 2:
		case sub == SettingsSet && len(args) == 3:
		case sub != SettingsList && sub != SettingsGet && sub != SettingsSet:
			return fmt.Errorf("unknown settings subcommand: %s", sub)
		default:
			return fmt.Errorf("usage: settings list | settings get KEY | settings set KEY VALUE")
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  toggle                 Start recording or stop+transcribe when already recording
  start                  Start recording (no-op when already recording)
  stop                   Stop active recording and copy the transcript
  cancel                 Cancel active recording and discard audio
  status                 Print current state
  devices                List available input devices
  mic-test [SECONDS]     Record briefly and print input levels in dB
  transcribe FILE        Transcribe an existing WAV file
  settings list          Print all settings
  settings get KEY       Print one setting
  settings set KEY VAL   Validate and store one setting
  shortcuts              Print Hyprland bind lines for the configured shortcuts
  doctor                 Run configuration and environment checks
  version                Print version information
  help                   Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/tellyspelly/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
