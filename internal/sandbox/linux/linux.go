//go:build linux

// Package linux implements the sandbox.Driver for Linux hosts: a step runs
// in its own user, mount, PID, IPC and UTS namespaces (network is shared
// with the host, per spec.md §4.10), with a fixed UID/GID of 1000 inside
// the namespace regardless of the invoking host identity.
//
// Namespace creation happens at clone(2) time via exec.Cmd's
// SysProcAttr.Cloneflags, but the bind mounts that make up the sandbox
// root must run inside those namespaces, after clone and before the step's
// own binary is exec'd. Go's os/exec gives no hook in between, so, the way
// umoci and runc do it, the cloned process re-execs itself with a hidden
// argv[1] (InitArg); cmd/vorpal's main recognizes that argument and calls
// Init instead of starting the CLI.
package linux

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/moby/sys/userns"

	"github.com/vorpal-build/vorpal/internal/sandbox"
)

// sandboxUID and sandboxGID are the fixed in-namespace identity spec.md
// §4.10 requires every step to run as.
const (
	sandboxUID = 1000
	sandboxGID = 1000
)

// Driver implements sandbox.Driver on Linux.
type Driver struct{}

// New constructs a Driver.
func New() *Driver { return &Driver{} }

var _ sandbox.Driver = (*Driver)(nil)

// Run executes one step inside a freshly namespaced sandbox.
func (d *Driver) Run(ctx context.Context, spec sandbox.Spec, stdout, stderr io.Writer) (int, error) {
	if userns.RunningInUserNS() {
		return 0, fmt.Errorf("sandbox: cannot nest a user namespace sandbox inside another")
	}

	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("sandbox: resolve self: %w", err)
	}

	is := initSpec{
		Mounts:      buildMounts(spec),
		SandboxRoot: spec.SandboxRoot,
		Env:         sandbox.ComposeEnv(spec),
		Entrypoint:  spec.Entrypoint,
		Arguments:   spec.Arguments,
		UID:         sandboxUID,
		GID:         sandboxGID,
	}
	payload, err := json.Marshal(is)
	if err != nil {
		return 0, fmt.Errorf("sandbox: marshal init spec: %w", err)
	}
	specFile := filepath.Join(spec.SandboxRoot, ".vorpal-sandbox-init.json")
	if err := os.WriteFile(specFile, payload, 0o600); err != nil {
		return 0, fmt.Errorf("sandbox: write init spec: %w", err)
	}
	defer os.Remove(specFile)

	hostUID := os.Getuid()
	hostGID := os.Getgid()

	cmd := exec.CommandContext(ctx, self, InitArg)
	cmd.Env = []string{SpecFileEnv + "=" + specFile}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS | syscall.CLONE_NEWPID |
			syscall.CLONE_NEWIPC | syscall.CLONE_NEWUTS,
		UidMappings: []syscall.SysProcIDMap{
			{ContainerID: sandboxUID, HostID: hostUID, Size: 1},
		},
		GidMappings: []syscall.SysProcIDMap{
			{ContainerID: sandboxGID, HostID: hostGID, Size: 1},
		},
		GidMappingsEnableSetgroups: false,
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("sandbox: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("sandbox: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("sandbox: start init process: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, stdoutPipe, stdout)
	go streamLines(&wg, stderrPipe, stderr)
	wg.Wait()

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("sandbox: run step: %w", err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func streamLines(wg *sync.WaitGroup, r io.Reader, w io.Writer) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
}
