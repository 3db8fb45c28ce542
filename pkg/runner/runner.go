package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command describes a single external invocation. Arguments are always
// passed as a vector; nothing is ever handed to a shell, so package and
// collection names cannot be reinterpreted as shell syntax.
type Command struct {
	Name    string   // Executable to run
	Args    []string // Argument vector
	Dir     string   // Working directory (empty means inherit)
	Verbose bool     // Stream output instead of capturing it
	Logger  *logrus.Logger
}

// ExitError is returned when the command runs but exits non-zero. It
// carries the captured stderr so callers can surface it in diagnostics.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q exited %d: %s", e.Cmd, e.Code, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("command %q exited %d", e.Cmd, e.Code)
}

// Run executes the command. Output is captured unless Verbose is set, in
// which case it streams to the parent's stdout/stderr.
func Run(ctx context.Context, cmd Command) error {
	display := cmd.Name + " " + strings.Join(cmd.Args, " ")
	if cmd.Logger != nil {
		cmd.Logger.Debugf("Running command: %s", display)
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	if cmd.Verbose {
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return wrapRunError(display, c.Run(), "")
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	return wrapRunError(display, c.Run(), stderr.String())
}

func wrapRunError(display string, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Cmd: display, Code: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("running %q: %w", display, err)
}
