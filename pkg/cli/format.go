// Package cli provides shared console helpers for the swmx tool.
package cli

import "strings"

// ANSI color helpers

func Green(s string) string  { return "\033[32m" + s + "\033[0m" }
func Yellow(s string) string { return "\033[33m" + s + "\033[0m" }
func Red(s string) string    { return "\033[31m" + s + "\033[0m" }
func Bold(s string) string   { return "\033[1m" + s + "\033[0m" }

// Banner renders a step heading with a rule underneath.
// Example: Banner("Step 1", "Creating Network Objects")
func Banner(title, text string) string {
	line := title + ": " + text
	return "\n" + Bold(line) + "\n" + strings.Repeat("-", len(line))
}
