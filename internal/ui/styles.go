package ui

import "fmt"

// ANSI 256-color codes used by the CLI help.
const (
	colorAccent  = 74  // blue: section headers
	colorCommand = 250 // light gray: command names
	colorMuted   = 245 // medium gray: flag types and defaults
)

func render(code int, s string) string {
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return render(colorCommand, s) }

// RenderMuted returns s in the muted color.
func RenderMuted(s string) string { return render(colorMuted, s) }
