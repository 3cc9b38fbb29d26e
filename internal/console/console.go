// Package console renders user-facing output with lipgloss styles.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled lines. Colors are only emitted when out is a terminal.
type Printer struct {
	out io.Writer

	header  lipgloss.Style
	step    lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dimmed  lipgloss.Style
}

// New creates a Printer for out
func New(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		step:    r.NewStyle().Foreground(lipgloss.Color("39")),
		info:    r.NewStyle().Foreground(lipgloss.Color("44")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		dimmed:  r.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Writer returns the underlying writer for plain output such as tables
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints a bold section title
func (p *Printer) Header(format string, args ...any) { p.line(p.header, format, args...) }

// Step prints a command or action about to happen
func (p *Printer) Step(format string, args ...any) { p.line(p.step, format, args...) }

// Info prints neutral information
func (p *Printer) Info(format string, args ...any) { p.line(p.info, format, args...) }

// Success prints a completed action
func (p *Printer) Success(format string, args ...any) { p.line(p.success, format, args...) }

// Warn prints a non-fatal problem
func (p *Printer) Warn(format string, args ...any) { p.line(p.warning, format, args...) }

// Error prints a fatal diagnostic
func (p *Printer) Error(format string, args ...any) { p.line(p.failure, format, args...) }

// Dim prints low-priority detail
func (p *Printer) Dim(format string, args ...any) { p.line(p.dimmed, format, args...) }

// Plain prints unstyled text
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Rule prints a horizontal separator
func (p *Printer) Rule(width int) {
	fmt.Fprintln(p.out, p.dimmed.Render(strings.Repeat("-", width)))
}

// Banner prints a framed title with a detail line, used per repository
func (p *Printer) Banner(title, detail string) {
	bar := strings.Repeat("=", 50)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.info.Render(bar))
	fmt.Fprintln(p.out, p.header.Render(title))
	if detail != "" {
		fmt.Fprintln(p.out, p.info.Render(detail))
	}
	fmt.Fprintln(p.out, p.info.Render(bar))
}
