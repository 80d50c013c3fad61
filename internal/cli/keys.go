package cli

import (
	"fmt"

	"github.com/dmitrijs2005/wipecert/internal/keys"
	"github.com/spf13/cobra"
)

func (a *App) generateKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-keys",
		Short: "Generate a new Ed25519 signing key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cmd.Flags().GetString(flagOutput)
			if err != nil {
				return err
			}

			privPath, pubPath, err := keys.Generate(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Private key written to %s\n", privPath)
			fmt.Fprintf(a.out, "Public key written to %s\n", pubPath)
			fmt.Fprintln(a.out, "Keep the private key secret; distribute the public key to verifiers.")
			return nil
		},
	}
	cmd.Flags().String(flagOutput, ".", "directory for the generated key files")
	return cmd
}
