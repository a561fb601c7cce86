//go:build !linux

package main

// checkSandboxReexec is a no-op on platforms without the namespace-based
// sandbox driver (internal/sandbox/linux).
func checkSandboxReexec() bool { return false }
