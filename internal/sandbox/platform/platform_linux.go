//go:build linux

// Package platform selects the host's sandbox.Driver implementation so
// callers (cmd/vorpal) never need a build-tagged import of their own.
package platform

import (
	"github.com/vorpal-build/vorpal/internal/sandbox"
	"github.com/vorpal-build/vorpal/internal/sandbox/linux"
)

// New constructs the sandbox.Driver for this host.
func New() sandbox.Driver { return linux.New() }

// Name identifies the driver selected, for logging/config validation.
const Name = "linux"
