// Package sandbox defines the OS-specific step execution contract of
// spec.md §4.10: a Driver runs one artifact step inside an isolated
// environment and streams its stdout/stderr back line by line.
package sandbox

import (
	"context"
	"io"
	"sort"
	"strings"
)

// Dependency is a resolved build dependency made visible to a step: its
// digest and the absolute path of its already-materialized output tree.
type Dependency struct {
	Digest string
	Path   string
}

// Spec describes one step invocation (spec.md §4.8 step 5 / §4.10).
type Spec struct {
	// SandboxRoot is VORPAL_WORKSPACE, the per-build ephemeral root.
	SandboxRoot string
	// OutputDir is VORPAL_OUTPUT, a directory inside SandboxRoot.
	OutputDir string
	// RootfsDir supplies /bin, /etc, /lib, /sbin, /usr for the Linux
	// driver's read-only binds (spec.md §4.10); unused on Darwin.
	RootfsDir string
	// Dependencies lists every dependency whose output tree must be
	// bind-mounted/visible and exposed as VORPAL_ARTIFACT_<digest>.
	Dependencies []Dependency
	// Entrypoint and Arguments are the step's command line. If Script is
	// non-empty, it has already been written to a temp executable file
	// and appended to Arguments as the final argument by the caller.
	Entrypoint string
	Arguments  []string
	// Environments are the step's own declared KEY=VALUE pairs, merged on
	// top of the well-known variables (spec.md §4.8 step 5).
	Environments []string
	// Secrets are KEY=VALUE pairs injected into the environment only,
	// never written to disk or logged.
	Secrets []string
}

// Driver runs one step to completion, writing line-buffered stdout/stderr
// to the given writers, and returns its exit code.
type Driver interface {
	Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) (exitCode int, err error)
}

const (
	// EnvWorkspace is VORPAL_WORKSPACE.
	EnvWorkspace = "VORPAL_WORKSPACE"
	// EnvOutput is VORPAL_OUTPUT.
	EnvOutput = "VORPAL_OUTPUT"
	// EnvArtifactPrefix prefixes VORPAL_ARTIFACT_<digest> variables.
	EnvArtifactPrefix = "VORPAL_ARTIFACT_"
)

var defaultPathTail = []string{"/usr/local/bin", "/usr/bin", "/usr/sbin", "/bin", "/sbin"}

// ComposeEnv builds the full environment a step sees, per spec.md §4.10:
// well-known variables, each dependency's VORPAL_ARTIFACT_<digest>, a
// composed PATH (dependency bin dirs, then the default tail, with the
// step's own PATH override prepended rather than replacing it), then the
// step's remaining declared environment and secrets. The caller's process
// environment is never inherited.
func ComposeEnv(spec Spec) []string {
	env := map[string]string{
		EnvWorkspace: spec.SandboxRoot,
		EnvOutput:    spec.OutputDir,
	}

	deps := make([]Dependency, len(spec.Dependencies))
	copy(deps, spec.Dependencies)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Digest < deps[j].Digest })

	var pathDirs []string
	for _, d := range deps {
		env[EnvArtifactPrefix+sanitizeDigestForEnv(d.Digest)] = d.Path
		pathDirs = append(pathDirs, d.Path+"/bin")
	}

	defaultPath := strings.Join(append(pathDirs, defaultPathTail...), ":")
	env["PATH"] = defaultPath

	var overridePath string
	var declared []string
	for _, kv := range spec.Environments {
		name, value, ok := splitEnv(kv)
		if !ok {
			continue
		}
		if name == "PATH" {
			overridePath = value
			continue
		}
		declared = append(declared, name+"="+value)
		env[name] = value
	}
	if overridePath != "" {
		env["PATH"] = overridePath + ":" + defaultPath
	}

	out := make([]string, 0, len(env)+len(spec.Secrets))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	out = append(out, spec.Secrets...)
	return out
}

func splitEnv(kv string) (name, value string, ok bool) {
	i := strings.IndexByte(kv, '=')
	if i < 0 {
		return "", "", false
	}
	return kv[:i], kv[i+1:], true
}

// sanitizeDigestForEnv turns "sha256:abcd…" into "sha256_abcd…", since ':'
// is not a valid character in a POSIX environment variable name.
func sanitizeDigestForEnv(digest string) string {
	return strings.ReplaceAll(digest, ":", "_")
}
