package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#5FAFD7")
	warm    = lipgloss.Color("#FFAF5F")
	good    = lipgloss.Color("#87D787")
	bad     = lipgloss.Color("#FF5F5F")
	subdued = lipgloss.Color("#8A8A8A")

	titleStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(accent)
	valueStyle   = lipgloss.NewStyle().Foreground(warm)
	successStyle = lipgloss.NewStyle().Foreground(good).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(bad).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warm)
	dimStyle     = lipgloss.NewStyle().Foreground(subdued)
)

// Printer writes styled status lines for the command line
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to out
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Stdout is the Printer used by the commands
var Stdout = NewPrinter(os.Stdout)

// Title prints a heading
func (p *Printer) Title(msg string) {
	fmt.Fprintln(p.out, titleStyle.Render(msg))
}

// Error prints an error message, with err appended when given
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.out, errorStyle.Render(msg))
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, successStyle.Render(msg))
}

// Info prints a label and its value
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.out, warningStyle.Render(msg))
}

// Dim prints secondary text
func (p *Printer) Dim(msg string) {
	fmt.Fprintln(p.out, dimStyle.Render(msg))
}
