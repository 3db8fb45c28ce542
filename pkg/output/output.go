package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Console is the user-facing note/hint channel, kept separate from the
// logger so suggestions stand out from diagnostic output.
type Console struct {
	out       io.Writer
	noteStyle lipgloss.Style
	hintStyle lipgloss.Style
	prefix    lipgloss.Style
	color     bool
}

// Options configures console construction.
type Options struct {
	Writer  io.Writer // defaults to os.Stdout
	NoColor bool      // force plain output even on a terminal
}

// New creates a console. Color is enabled only when the writer is a
// terminal and NoColor is unset.
func New(opts Options) *Console {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	color := !opts.NoColor
	if f, ok := w.(*os.File); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			color = false
		}
	} else {
		color = false
	}

	return &Console{
		out:       w,
		color:     color,
		noteStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")), // Green
		hintStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("33")), // Blue
		prefix:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
	}
}

// Note prints a plain informational line for the user.
func (c *Console) Note(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		msg = c.noteStyle.Render(msg)
	}
	fmt.Fprintln(c.out, msg)
}

// Hint prints a suggested remediation command.
func (c *Console) Hint(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		fmt.Fprintf(c.out, "%s %s\n", c.prefix.Render("HINT"), c.hintStyle.Render(msg))
		return
	}
	fmt.Fprintf(c.out, "HINT %s\n", msg)
}
