//go:build linux

package linux

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	rspec "github.com/opencontainers/runtime-spec/specs-go"
)

// Init runs inside the re-exec'd child Run started (see linux.go's doc
// comment): the process already has its own user/mount/PID/IPC/UTS
// namespaces from clone(2), and — as the namespace's creating task — holds
// a full capability set within them regardless of its mapped UID. Init
// lays down the sandbox's mount tree, pivot_roots into it so nothing else
// on the host is reachable, then execve's the step's real entrypoint,
// replacing this process entirely. cmd/vorpal's main must call this before
// any flag parsing when os.Args[1] == InitArg; Init never returns on
// success.
func Init() error {
	specFile := os.Getenv(SpecFileEnv)
	if specFile == "" {
		return fmt.Errorf("sandbox init: %s not set", SpecFileEnv)
	}
	data, err := os.ReadFile(specFile)
	if err != nil {
		return fmt.Errorf("sandbox init: read spec: %w", err)
	}
	var is initSpec
	if err := json.Unmarshal(data, &is); err != nil {
		return fmt.Errorf("sandbox init: parse spec: %w", err)
	}

	// Detach the whole mount tree from the host's propagation group before
	// making any bind mounts, or they would otherwise leak back out.
	if err := unix.Mount("none", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return fmt.Errorf("sandbox init: make / private: %w", err)
	}

	for _, m := range is.Mounts {
		if err := applyMount(m); err != nil {
			return fmt.Errorf("sandbox init: mount %s: %w", m.Destination, err)
		}
	}

	if err := pivotRoot(is.SandboxRoot); err != nil {
		return fmt.Errorf("sandbox init: pivot root: %w", err)
	}

	_ = unix.Sethostname([]byte("vorpal-sandbox"))

	entrypoint := is.Entrypoint
	if !strings.HasPrefix(entrypoint, "/") {
		resolved, err := exec.LookPath(entrypoint)
		if err != nil {
			return fmt.Errorf("sandbox init: resolve entrypoint %s: %w", entrypoint, err)
		}
		entrypoint = resolved
	}

	argv := append([]string{entrypoint}, is.Arguments...)
	if err := unix.Exec(entrypoint, argv, is.Env); err != nil {
		return fmt.Errorf("sandbox init: exec %s: %w", entrypoint, err)
	}
	return nil // unreachable: Exec only returns on error
}

// pivotRoot makes newRoot (already a self bind mount, per buildMounts) the
// process's "/", the way runc's libcontainer and bubblewrap's bwrap both
// finish their mount setup: after this call everything bound under newRoot
// appears at its un-prefixed path (newRoot+"/bin" becomes "/bin"), and
// nothing outside the mounts applied under it is reachable at all. The
// entrypoint's working directory is newRoot itself, i.e. "/" post-pivot.
func pivotRoot(newRoot string) error {
	oldRoot := filepath.Join(newRoot, ".oldroot")
	if err := os.MkdirAll(oldRoot, 0o700); err != nil {
		return fmt.Errorf("create oldroot: %w", err)
	}
	if err := unix.PivotRoot(newRoot, oldRoot); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	if err := unix.Unmount("/.oldroot", unix.MNT_DETACH); err != nil {
		return fmt.Errorf("detach oldroot: %w", err)
	}
	if err := os.Remove("/.oldroot"); err != nil {
		return fmt.Errorf("remove oldroot: %w", err)
	}
	return nil
}

func applyMount(m rspec.Mount) error {
	switch m.Type {
	case "bind":
		if err := os.MkdirAll(m.Destination, 0o755); err != nil {
			return err
		}
		if err := unix.Mount(m.Source, m.Destination, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
			return err
		}
		if hasOption(m.Options, "ro") {
			return unix.Mount("", m.Destination, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, "")
		}
		return nil
	case "tmpfs":
		if err := os.MkdirAll(m.Destination, 0o755); err != nil {
			return err
		}
		return unix.Mount("tmpfs", m.Destination, "tmpfs", 0, strings.Join(m.Options, ","))
	case "proc":
		if err := os.MkdirAll(m.Destination, 0o555); err != nil {
			return err
		}
		return unix.Mount("proc", m.Destination, "proc", 0, "")
	case "dev":
		if err := os.MkdirAll(m.Destination, 0o755); err != nil {
			return err
		}
		if err := unix.Mount("tmpfs", m.Destination, "tmpfs", 0, strings.Join(m.Options, ",")); err != nil {
			return err
		}
		return makeDevNodes(m.Destination)
	default:
		return fmt.Errorf("unsupported mount type %q", m.Type)
	}
}

// devNode is one character device makeDevNodes creates under a fresh /dev
// tmpfs, the same minimal set bubblewrap's --dev flag populates.
type devNode struct {
	name         string
	major, minor uint32
	mode         uint32
}

var standardDevNodes = []devNode{
	{"null", 1, 3, 0o666},
	{"zero", 1, 5, 0o666},
	{"full", 1, 7, 0o666},
	{"random", 1, 8, 0o666},
	{"urandom", 1, 9, 0o666},
	{"tty", 5, 0, 0o666},
}

// devSymlinks point at /proc/self/fd the way a real /dev does; /proc is
// always mounted fresh alongside /dev (buildMounts), so these resolve.
var devSymlinks = map[string]string{
	"fd":     "/proc/self/fd",
	"stdin":  "/proc/self/fd/0",
	"stdout": "/proc/self/fd/1",
	"stderr": "/proc/self/fd/2",
}

func makeDevNodes(devDir string) error {
	for _, n := range standardDevNodes {
		path := filepath.Join(devDir, n.name)
		dev := int(unix.Mkdev(n.major, n.minor))
		if err := unix.Mknod(path, unix.S_IFCHR|n.mode, dev); err != nil {
			return fmt.Errorf("mknod %s: %w", path, err)
		}
	}
	for name, target := range devSymlinks {
		if err := os.Symlink(target, filepath.Join(devDir, name)); err != nil {
			return fmt.Errorf("symlink %s: %w", name, err)
		}
	}
	return os.MkdirAll(filepath.Join(devDir, "shm"), 0o1777)
}

func hasOption(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}
