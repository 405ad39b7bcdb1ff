//go:build windows

package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// waitForKeypressOnWindows holds the console open when the binary was
// launched by double-clicking it from Explorer, where the console window
// closes the instant the process exits. Only bothers waiting when stdin
// is actually an interactive terminal; a scripted or piped invocation
// should exit immediately.
func waitForKeypressOnWindows() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	fmt.Fprintln(os.Stderr, "Press any key to close console")

	state, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		_, _ = fmt.Scanln()
		return
	}
	defer term.Restore(int(os.Stdin.Fd()), state)

	buf := make([]byte, 1)
	_, _ = os.Stdin.Read(buf)
}
