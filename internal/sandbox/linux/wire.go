//go:build linux

package linux

import (
	rspec "github.com/opencontainers/runtime-spec/specs-go"
)

// initSpec is the JSON handoff written by Run and consumed by Init across
// the re-exec boundary (see init.go): everything the init-stage process
// needs to mount the sandbox root, drop into it, and exec the real step.
type initSpec struct {
	Mounts      []rspec.Mount `json:"mounts"`
	SandboxRoot string        `json:"sandbox_root"`
	Env         []string      `json:"env"`
	Entrypoint  string        `json:"entrypoint"`
	Arguments   []string      `json:"arguments"`
	UID         int           `json:"uid"`
	GID         int           `json:"gid"`
}

// InitArg is the hidden argv[1] cmd/vorpal's main checks for before cobra
// parses flags, dispatching to Init instead of running the CLI (the
// umoci/runc re-exec idiom: a child created with fresh namespaces at clone
// time re-execs itself to run Go code, rather than forking raw).
const InitArg = "__vorpal_sandbox_init__"

// SpecFileEnv names the environment variable carrying the initSpec file
// path across the re-exec; it is the only variable the re-exec process
// itself inherits, since spec.Env is applied only to the final step
// process via execve, never to the init-stage process.
const SpecFileEnv = "VORPAL_SANDBOX_INIT_SPEC"
