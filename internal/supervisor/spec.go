package supervisor

import (
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultDenylist holds substrings of known noise emitted by the bot script
// (polling spam and harmless interpreter warnings). Matching lines are
// dropped before they reach the log, the ring buffer, or the UI.
var DefaultDenylist = []string{
	"Generate command triggered manually",
	"Fetching mod list...",
	"Unrecognized command: /mods",
	"Unrecognized command: /w",
}

// DefaultStopMessage is the sentinel line appended when a running bot is
// forcefully stopped.
const DefaultStopMessage = "Bot has been destroyed by your own hands..."

// DefaultRestartMessage is appended during a restart when the caller does
// not supply its own message.
const DefaultRestartMessage = "Reviving the bot from the depths of hell..."

// eventTimeLayout renders the [MM/DD/YYYY - HH:MM:SS]: prefix carried by
// lifecycle event lines.
const eventTimeLayout = "[01/02/2006 - 15:04:05]:"

// Spec describes the supervised bot process.
type Spec struct {
	Interpreter     string   `mapstructure:"interpreter"`      // resolved via PATH, falls back to the bare name
	InterpreterArgs []string `mapstructure:"interpreter_args"` // passed before the script (default: -u)
	Script          string   `mapstructure:"script"`           // script file handed to the interpreter
	WorkDir         string   `mapstructure:"workdir"`
	Env             []string `mapstructure:"env"`          // extra K=V overrides on top of the launcher env
	Denylist        []string `mapstructure:"denylist"`     // additional noise substrings
	StopMessage     string   `mapstructure:"stop_message"` // sentinel appended on forced stop
}

// Normalize fills defaults in place.
func (s *Spec) Normalize() {
	if s.Interpreter == "" {
		s.Interpreter = "python"
	}
	if s.InterpreterArgs == nil {
		s.InterpreterArgs = []string{"-u"}
	}
	if s.StopMessage == "" {
		s.StopMessage = DefaultStopMessage
	}
}

// buildCommand resolves the interpreter and constructs the command. A failed
// PATH lookup falls back to the bare interpreter name so the spawn error
// surfaces from Start instead of here.
func (s *Spec) buildCommand() *exec.Cmd {
	path, err := exec.LookPath(s.Interpreter)
	if err != nil {
		path = s.Interpreter
	}
	args := append(append([]string(nil), s.InterpreterArgs...), s.Script)
	// ok: intentional execution of the configured bot script
	// #nosec G204
	cmd := exec.Command(path, args...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	return cmd
}

// childEnv returns the environment overrides for the child: unbuffered and
// UTF-8 I/O hints first, then the spec's own entries so they win on
// duplicates.
func (s *Spec) childEnv() []string {
	env := []string{"PYTHONUNBUFFERED=1", "PYTHONIOENCODING=utf-8"}
	return append(env, s.Env...)
}

// scriptTag is the bracketed script name prefixed to persisted output lines.
func (s *Spec) scriptTag() string {
	if s.Script == "" {
		return "[bot]"
	}
	return "[" + filepath.Base(s.Script) + "]"
}

// Status is a point-in-time view of the supervised process.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Restarts  int       `json:"restarts"`
}
