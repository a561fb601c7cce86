package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vorpal-build/vorpal/pkg/keys"
)

func keygenCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate the engine's RSA signing keypair (spec.md §4.3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			paths := keys.Paths{Private: cfg.Store.PrivateKey, Public: cfg.Store.PublicKey}
			if err := keys.Generate(paths, force); err != nil {
				return fmt.Errorf("vorpal: generate keypair: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", paths.Private, paths.Public)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair")
	return cmd
}
