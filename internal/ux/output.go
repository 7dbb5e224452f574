// Package ux renders operator-facing console lines for classmod.
package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorCyan    = lipgloss.Color("6")
	ColorMagenta = lipgloss.Color("5")
	ColorSuccess = lipgloss.Color("2")
	ColorWarning = lipgloss.Color("3")
	ColorError   = lipgloss.Color("1")
)

// Printer writes styled lines. Colour is dropped automatically when the writer is not a terminal.
type Printer struct {
	out       io.Writer
	errOut    io.Writer
	highlight lipgloss.Style
	accent    lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	failure   lipgloss.Style
}

// NewPrinter creates a Printer for regular output and diagnostics.
func NewPrinter(out, errOut io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	er := lipgloss.NewRenderer(errOut)
	return &Printer{
		out:       out,
		errOut:    errOut,
		highlight: r.NewStyle().Foreground(ColorCyan),
		accent:    r.NewStyle().Foreground(ColorMagenta),
		success:   r.NewStyle().Foreground(ColorSuccess).Bold(true),
		warning:   er.NewStyle().Foreground(ColorWarning),
		failure:   er.NewStyle().Foreground(ColorError).Bold(true),
	}
}

// Highlight styles an identifier such as an environment variable or element name.
func (p *Printer) Highlight(s string) string {
	return p.highlight.Render(s)
}

// Accent styles a secondary identifier such as a unit kind.
func (p *Printer) Accent(s string) string {
	return p.accent.Render(s)
}

// Println writes a plain line to the output.
func (p *Printer) Println(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Success writes a highlighted confirmation line.
func (p *Printer) Success(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.success.Render(fmt.Sprintf(format, args...)))
}

// Warn writes a diagnostic line.
func (p *Printer) Warn(format string, args ...any) {
	_, _ = fmt.Fprintln(p.errOut, p.warning.Render(fmt.Sprintf(format, args...)))
}

// Error writes an error line.
func (p *Printer) Error(format string, args ...any) {
	_, _ = fmt.Fprintln(p.errOut, p.failure.Render(fmt.Sprintf(format, args...)))
}
