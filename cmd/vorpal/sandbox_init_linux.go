//go:build linux

package main

import (
	"fmt"
	"os"

	linuxsandbox "github.com/vorpal-build/vorpal/internal/sandbox/linux"
)

// checkSandboxReexec dispatches to the sandbox init stage when argv[1] is
// the hidden re-exec marker, returning true if it ran (main should exit
// without starting the CLI).
func checkSandboxReexec() bool {
	if len(os.Args) < 2 || os.Args[1] != linuxsandbox.InitArg {
		return false
	}
	if err := linuxsandbox.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "vorpal: sandbox init:", err)
		os.Exit(1)
	}
	return true
}
