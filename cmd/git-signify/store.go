package main

import (
	"fmt"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newStoreKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store-key",
		Short: "Store a public key in the repository",
		Args:  cobra.NoArgs,
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) to store", "GIT_KEY_PUB")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		results, err := signify.StoreKey(repo, keyFS(), path)
		for _, result := range results {
			fmt.Printf("Public key stored under: %s\n", result.Reference)
		}
		return err
	}
	return cmd
}
