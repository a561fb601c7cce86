//go:build linux

package linux

import (
	"path/filepath"

	rspec "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/vorpal-build/vorpal/internal/sandbox"
)

// rootfsDirs are the directories of spec.RootfsDir bind-mounted read-only
// into the sandbox root, mirroring a minimal Linux userland layout (the
// same directory set umoci's OCI rootfs extraction populates).
var rootfsDirs = []string{"bin", "etc", "lib", "lib64", "sbin", "usr"}

// buildMounts returns the rspec.Mount set for one step invocation, in the
// shape runtime-spec's Config.Mounts uses (Destination/Type/Source/Options).
// Every destination is rooted under spec.SandboxRoot rather than the host's
// own top-level paths: Init pivot_roots into spec.SandboxRoot before the
// step's entrypoint runs (see init.go), so what is mounted at
// "<SandboxRoot>/bin" here appears at "/bin" to the step, and nothing
// outside this mount set is reachable from inside the namespace. The set
// is: the toolchain rootfs read-only, every dependency output tree
// read-only at its own absolute path so VORPAL_ARTIFACT_<digest> keeps
// working unchanged, the sandbox root itself read-write (workspace and
// output directories live inside it), a fresh tmpfs at /tmp, a fresh
// /proc, and a fresh minimal /dev (never the host's).
func buildMounts(spec sandbox.Spec) []rspec.Mount {
	var mounts []rspec.Mount

	// Bind the sandbox root onto itself first so it is its own mount point
	// distinct from its parent — pivot_root requires that of its newroot
	// argument — before anything is mounted underneath it.
	mounts = append(mounts, rspec.Mount{
		Destination: spec.SandboxRoot,
		Type:        "bind",
		Source:      spec.SandboxRoot,
		Options:     []string{"bind", "rw"},
	})

	for _, dir := range rootfsDirs {
		src := filepath.Join(spec.RootfsDir, dir)
		mounts = append(mounts, rspec.Mount{
			Destination: filepath.Join(spec.SandboxRoot, dir),
			Type:        "bind",
			Source:      src,
			Options:     []string{"bind", "ro"},
		})
	}

	for _, dep := range spec.Dependencies {
		mounts = append(mounts, rspec.Mount{
			Destination: filepath.Join(spec.SandboxRoot, dep.Path),
			Type:        "bind",
			Source:      dep.Path,
			Options:     []string{"bind", "ro"},
		})
	}

	mounts = append(mounts,
		rspec.Mount{
			Destination: filepath.Join(spec.SandboxRoot, "tmp"),
			Type:        "tmpfs",
			Source:      "tmpfs",
			Options:     []string{"nosuid", "nodev", "mode=1777"},
		},
		rspec.Mount{
			Destination: filepath.Join(spec.SandboxRoot, "proc"),
			Type:        "proc",
			Source:      "proc",
			Options:     []string{"nosuid", "noexec", "nodev"},
		},
		rspec.Mount{
			// "dev" mounts a bare tmpfs and then populates it with a
			// minimal set of device nodes (init.go's makeDevNodes), the
			// way bubblewrap's --dev flag does — never a bind of the
			// host's own /dev, which would hand every step the host's
			// real device nodes.
			Destination: filepath.Join(spec.SandboxRoot, "dev"),
			Type:        "dev",
			Source:      "tmpfs",
			Options:     []string{"nosuid", "mode=0755"},
		},
	)

	return mounts
}
