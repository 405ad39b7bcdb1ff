//go:build !windows

package main

// waitForKeypressOnWindows is a no-op outside Windows, where the console
// the binary was launched from is expected to stay open (e.g. a terminal
// invoking the binary directly) without help from the process itself.
func waitForKeypressOnWindows() {}
