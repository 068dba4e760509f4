package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirm asks a yes/no question on the terminal. When stdin is not a
// terminal, or assumeYes is set, the default answer is returned without
// prompting so scripted runs never block.
func Confirm(question string, defaultYes, assumeYes bool) bool {
	if assumeYes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return defaultYes
	}

	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	fmt.Fprintf(os.Stderr, "%s %s ", question, suffix)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return defaultYes
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}
