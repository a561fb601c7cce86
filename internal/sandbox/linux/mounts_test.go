//go:build linux

package linux

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/internal/sandbox"
)

func TestBuildMountsIncludesDependenciesAndWorkspace(t *testing.T) {
	spec := sandbox.Spec{
		SandboxRoot: "/sandbox/abc",
		RootfsDir:   "/opt/toolchain",
		Dependencies: []sandbox.Dependency{
			{Digest: "sha256:dep1", Path: "/store/sha256:dep1"},
		},
	}

	mounts := buildMounts(spec)

	var destinations []string
	for _, m := range mounts {
		destinations = append(destinations, m.Destination)
	}

	// Every destination is rooted under the sandbox root: Init pivot_roots
	// into it, so nothing lands at the host's own top-level paths.
	require.Contains(t, destinations, "/sandbox/abc/bin")
	require.Contains(t, destinations, "/sandbox/abc/usr")
	require.Contains(t, destinations, "/sandbox/abc/store/sha256:dep1")
	require.Contains(t, destinations, "/sandbox/abc")
	require.Contains(t, destinations, "/sandbox/abc/tmp")
	require.Contains(t, destinations, "/sandbox/abc/proc")
	require.Contains(t, destinations, "/sandbox/abc/dev")

	for _, m := range mounts {
		switch m.Destination {
		case "/sandbox/abc/bin":
			require.Equal(t, "/opt/toolchain/bin", m.Source)
			require.Contains(t, m.Options, "ro")
		case "/sandbox/abc":
			require.Contains(t, m.Options, "rw")
		case "/sandbox/abc/dev":
			// Must be a fresh tmpfs populated by Init's makeDevNodes, never
			// a bind of the host's own /dev.
			require.Equal(t, "dev", m.Type)
			require.NotEqual(t, "bind", m.Type)
			require.NotEqual(t, "/dev", m.Source)
		}
	}
}
