package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/guillermoBallester/fbmcp/internal/adapter/auth"
)

func newKeygenCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key for the HTTP transport",
		Long: `Generates a random API key. Clients send it as "Authorization: Bearer <key>".
Configure the server with the stored digest so the plaintext key never
has to live in its environment:

  HTTP_API_KEYS=sha256:<hash>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, hash, prefix, err := auth.GenerateKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if quiet {
				_, err = fmt.Fprintln(out, key)
				return err
			}

			pterm.SetDefaultOutput(out)
			pterm.DefaultSection.Println("API key " + prefix)
			pterm.Info.Println("The key is shown once. Store it with the client.")
			_, err = fmt.Fprintf(out, "\nkey:    %s\nsha256: %s\n\nHTTP_API_KEYS=sha256:%s\n", key, hash, hash)
			return err
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the key")
	return cmd
}
