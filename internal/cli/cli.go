package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandToggle  Command = "toggle"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandInsert  Command = "insert"
	CommandCopy    Command = "copy"
	CommandDismiss Command = "dismiss"
	CommandStatus  Command = "status"
	CommandReset   Command = "reset"
	CommandHistory Command = "history"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandToggle:  {},
	CommandStart:   {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandInsert:  {},
	CommandCopy:    {},
	CommandDismiss: {},
	CommandStatus:  {},
	CommandReset:   {},
	CommandHistory: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

const DefaultHistoryLimit = 20

type Parsed struct {
	Command      Command
	ConfigPath   string
	HistoryLimit int
	ShowHelp     bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, HistoryLimit: DefaultHistoryLimit}

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
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			if cmd == CommandHistory {
				return parseHistoryArgs(parsed, args[i+1:])
			}
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

// parseHistoryArgs handles the flags the history command accepts after its
// name.
func parseHistoryArgs(parsed Parsed, args []string) (Parsed, error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-limit", "--limit":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("-limit requires a number")
			}
			limit, err := strconv.Atoi(args[i])
			if err != nil || limit < 1 {
				return Parsed{}, fmt.Errorf("-limit must be a positive number, got %q", args[i])
			}
			parsed.HistoryLimit = limit
		default:
			return Parsed{}, fmt.Errorf("unexpected argument after history: %s", args[i])
		}
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  toggle    Start a session, or stop/dismiss the one in flight
  start     Start a recording session (fails if one is live)
  stop      Stop the active recording and transcribe
  cancel    Cancel the active session, discarding the audio
  insert    Type out the previewed transcript
  copy      Copy the previewed transcript to the clipboard
  dismiss   Close the preview or error surface
  status    Print session and speech-service state
  reset     Clear a stuck session on the speech service
  history   Show recent transcripts (-limit N, default %[2]d)
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/parlo/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName, DefaultHistoryLimit)
}
