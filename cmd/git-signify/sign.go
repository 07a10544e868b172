package main

import (
	"fmt"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <git-rev>",
		Short: "Sign an arbitrary git object",
		Args:  cobra.ExactArgs(1),
	}
	keyPath := keyPathFlag(cmd, "path to the secret key (or key directory) to sign with", "GIT_KEY_SEC")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_SEC")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		results, err := signify.Sign(repo, keyFS(), path, args[0], promptPassphrase)
		for _, result := range results {
			if result.AlreadySigned {
				fmt.Println("Signature already exists with key:")
			} else {
				fmt.Println("Signed with key:")
			}
			fmt.Printf("  - %s\n", result.KeyPath)
			fmt.Println("Signature stored under:")
			fmt.Printf("  - %s\n", result.Reference)
		}
		return err
	}
	return cmd
}
