// Command vorpal is the engine's single binary: it serves the agent,
// worker, and registry gRPC services (spec.md §6) and drives client-side
// builds, the way cmd/registry's single binary served distribution's HTTP
// API, generalized to a multi-verb CLI via spf13/cobra (spec.md §6 needs
// more than one verb; the teacher's flag-based single-purpose main does
// not fit that shape).
package main

import (
	"os"

	"github.com/vorpal-build/vorpal/cmd/vorpal/command"
)

func main() {
	// checkSandboxReexec (platform-specific) handles the Linux sandbox
	// re-exec idiom: a cloned child lands here with a hidden argv[1]
	// before any cobra parsing happens, and must run the mount/exec init
	// sequence instead of the normal CLI. On other platforms it is a
	// no-op.
	if checkSandboxReexec() {
		return
	}

	if err := command.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
