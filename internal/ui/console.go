// Package ui renders console feedback and reads prompt input.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console prints colored status lines. Colors are dropped automatically when
// the output is not a terminal, and always when color is false.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color bool

	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	prompt  lipgloss.Style
	faint   lipgloss.Style
}

func NewConsole(out io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		color:   color,
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		prompt:  r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		faint:   r.NewStyle().Faint(true),
	}
}

// SetOutput redirects writes, e.g. through a raw-mode terminal, while keeping
// the color profile detected for the original output.
func (c *Console) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = w
}

func (c *Console) render(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *Console) Successf(format string, args ...any) {
	c.println(c.render(c.success, fmt.Sprintf(format, args...)))
}

func (c *Console) Errorf(format string, args ...any) {
	c.println(c.render(c.failure, "Error: "+fmt.Sprintf(format, args...)))
}

func (c *Console) Warnf(format string, args ...any) {
	c.println(c.render(c.warning, "Warning: "+fmt.Sprintf(format, args...)))
}

func (c *Console) Infof(format string, args ...any) {
	c.println(c.render(c.info, fmt.Sprintf(format, args...)))
}

// Printf writes an unstyled line.
func (c *Console) Printf(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// Faint styles secondary text such as durations and uploaders.
func (c *Console) Faint(text string) string {
	return c.render(c.faint, text)
}

// Prompt returns the styled prompt string.
func (c *Console) Prompt(text string) string {
	return c.render(c.prompt, text)
}
