//go:build darwin

package platform

import (
	"github.com/vorpal-build/vorpal/internal/sandbox"
	"github.com/vorpal-build/vorpal/internal/sandbox/darwin"
)

// New constructs the sandbox.Driver for this host.
func New() sandbox.Driver { return darwin.New() }

// Name identifies the driver selected, for logging/config validation.
const Name = "darwin"
