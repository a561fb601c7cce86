// Package command implements the vorpal CLI's subcommands with
// spf13/cobra, the way cmd/registry's main resolves config then builds and
// serves, generalized to multiple verbs (spec.md §6: serve, keygen, init,
// build).
package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vorpal-build/vorpal/pkg/config"
)

var configPath string

// Root constructs the top-level vorpal command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "vorpal",
		Short: "distributed, content-addressed, reproducible build engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "vorpal.yaml", "path to the engine configuration file")

	root.AddCommand(serveCommand())
	root.AddCommand(keygenCommand())
	root.AddCommand(initCommand())
	root.AddCommand(buildCommand())
	return root
}

func loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("vorpal: %w", err)
	}
	return cfg, nil
}
