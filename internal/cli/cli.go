// Package cli parses voxkey command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandToggle   Command = "toggle"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandStatus   Command = "status"
	CommandSettings Command = "settings"
	CommandExport   Command = "export"
	CommandImport   Command = "import"
	CommandHistory  Command = "history"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// trailingArgs is the number of positional arguments each command accepts:
// -1 means any, 0 means none.
var trailingArgs = map[Command]int{
	CommandRun:      0,
	CommandToggle:   0,
	CommandStop:     0,
	CommandCancel:   0,
	CommandStatus:   0,
	CommandSettings: -1,
	CommandExport:   1,
	CommandImport:   1,
	CommandHistory:  0,
	CommandDevices:  0,
	CommandDoctor:   0,
	CommandVersion:  0,
	CommandHelp:     0,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Args       []string
	ShowHelp   bool
}

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
			allowed, ok := trailingArgs[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if allowed >= 0 && len(rest) > allowed {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.Args = rest
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, validateSubcommand(parsed)
		}
	}

	return parsed, nil
}

// validateSubcommand enforces per-command argument shapes beyond arity.
func validateSubcommand(parsed Parsed) error {
	switch parsed.Command {
	case CommandSettings:
		if len(parsed.Args) == 0 {
			return errors.New("settings requires a subcommand: get, set")
		}
		switch parsed.Args[0] {
		case "get":
			if len(parsed.Args) != 1 {
				return errors.New("settings get takes no arguments")
			}
		case "set":
			pairs := parsed.Args[1:]
			if len(pairs) == 0 || len(pairs)%2 != 0 {
				return errors.New("settings set requires KEY VALUE pairs")
			}
		default:
			return fmt.Errorf("unknown settings subcommand: %s", parsed.Args[0])
		}
	case CommandImport:
		if len(parsed.Args) != 1 {
			return errors.New("import requires a file path")
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run                        Run the dictation daemon
  toggle                     Start listening, or stop+commit when already listening
  stop                       Stop the active session and commit the transcript
  cancel                     Cancel the active session and discard the transcript
  status                     Print the daemon session state
  settings get               Print current settings as JSON
  settings set KEY VALUE...  Update one or more settings
  export [FILE]              Export settings (stdout when FILE is omitted)
  import FILE                Import a previously exported settings file
  history                    Print recorded transcripts
  devices                    List available input devices
  doctor                     Run configuration and environment checks
  version                    Print version information
  help                       Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxkey/voxkey.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
