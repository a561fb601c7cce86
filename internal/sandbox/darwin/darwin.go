//go:build darwin

// Package darwin implements the sandbox.Driver for macOS hosts by
// rendering a seatbelt profile and invoking /usr/bin/sandbox-exec, the
// same approach the teacher's original worker used (original_source's
// worker/src/package/darwin/mod.rs): a default-deny profile with reads
// permitted from the toolchain and every dependency path, writes permitted
// only under the sandbox root (and to /dev/null), and network denied
// outright.
package darwin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/vorpal-build/vorpal/internal/sandbox"
)

const sandboxExecPath = "/usr/bin/sandbox-exec"

// Driver implements sandbox.Driver on Darwin.
type Driver struct{}

// New constructs a Driver.
func New() *Driver { return &Driver{} }

var _ sandbox.Driver = (*Driver)(nil)

// Run executes one step under sandbox-exec.
func (d *Driver) Run(ctx context.Context, spec sandbox.Spec, stdout, stderr io.Writer) (int, error) {
	readOnly := []string{spec.RootfsDir}
	for _, dep := range spec.Dependencies {
		readOnly = append(readOnly, dep.Path)
	}
	profile, err := renderProfile(profileData{
		ReadOnlyPaths:  readOnly,
		ReadWritePaths: []string{spec.SandboxRoot},
	})
	if err != nil {
		return 0, fmt.Errorf("sandbox: render profile: %w", err)
	}

	profileFile, err := os.CreateTemp("", "vorpal-sandbox-*.sb")
	if err != nil {
		return 0, fmt.Errorf("sandbox: create profile file: %w", err)
	}
	defer os.Remove(profileFile.Name())
	if _, err := profileFile.WriteString(profile); err != nil {
		profileFile.Close()
		return 0, fmt.Errorf("sandbox: write profile: %w", err)
	}
	if err := profileFile.Close(); err != nil {
		return 0, fmt.Errorf("sandbox: close profile file: %w", err)
	}

	args := append([]string{"-f", profileFile.Name(), spec.Entrypoint}, spec.Arguments...)
	cmd := exec.CommandContext(ctx, sandboxExecPath, args...)
	cmd.Dir = spec.SandboxRoot
	cmd.Env = sandbox.ComposeEnv(spec)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("sandbox: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("sandbox: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("sandbox: start sandbox-exec: %w", err)
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
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("sandbox: run step: %w", err)
}

func streamLines(wg *sync.WaitGroup, r io.Reader, w io.Writer) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
}
