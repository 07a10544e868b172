package main

import (
	"fmt"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <git-rev>",
		Short: "Verify the signature over some git revision",
		Args:  cobra.ExactArgs(1),
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) to verify with", "GIT_KEY_PUB")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		results, err := signify.Verify(repo, keyFS(), path, args[0])
		for _, result := range results {
			if result.Found {
				fmt.Printf("Signature verified successfully with %s\n", result.KeyPath)
			} else {
				fmt.Printf("No signature found for key %s\n", result.KeyPath)
			}
		}
		return err
	}
	return cmd
}
