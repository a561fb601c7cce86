package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/vorpal-build/vorpal/pkg/config"
)

func initCommand() *cobra.Command {
	var storeRoot string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("vorpal: %s already exists, use --force to overwrite", configPath)
				}
			}
			cfg := config.Default(storeRoot)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("vorpal: marshal default config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("vorpal: write %s: %w", configPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeRoot, "store", "./vorpal-store", "content-addressed store root directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}
