package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"cmd360/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

// checkNameWidth fits "Device 255.255.255.255:21:".
const checkNameWidth = 26

// renderCheck formats one preflight result as "  Name:   PASS detail".
func renderCheck(r preflight.Result, colorize bool) string {
	verdict, color := "FAIL", ansiRed
	if r.Passed {
		verdict, color = "PASS", ansiGreen
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %-*s %s", checkNameWidth, r.Name+":", verdict)
	if r.Detail != "" {
		b.WriteString("  " + r.Detail)
	}
	if !colorize {
		return b.String()
	}
	return color + b.String() + ansiReset
}

func writeSection(w io.Writer, title string, colorize bool) {
	heading := strings.ToUpper(strings.TrimSpace(title))
	if colorize {
		heading = ansiBlue + heading + ansiReset
	}
	fmt.Fprintln(w, heading)
}

// shouldColorize reports whether writer is a terminal. Progress meters use
// the same test so redirected output stays free of control sequences.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
