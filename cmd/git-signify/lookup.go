package main

import (
	"fmt"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newRevLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rev-lookup <git-rev>",
		Short: "Look-up a signature revision",
		Args:  cobra.ExactArgs(1),
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) that signed the rev", "GIT_KEY_PUB")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		results, err := signify.RevLookup(repo, keyFS(), path, args[0])
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Found {
				fmt.Println(result.Reference)
			}
		}
		return nil
	}
	return cmd
}
