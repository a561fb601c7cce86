//go:build !linux && !darwin

package platform

import (
	"context"
	"fmt"
	"io"

	"github.com/vorpal-build/vorpal/internal/sandbox"
)

// Name identifies the driver selected, for logging/config validation.
const Name = "unsupported"

type unsupportedDriver struct{}

func (unsupportedDriver) Run(context.Context, sandbox.Spec, io.Writer, io.Writer) (int, error) {
	return 0, fmt.Errorf("platform: no sandbox driver is implemented for this host OS")
}

// New constructs a driver that always fails, for hosts spec.md §4.10 does
// not cover.
func New() sandbox.Driver { return unsupportedDriver{} }
