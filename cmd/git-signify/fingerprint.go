package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sug0/git-signify/keys"
)

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Hash a public key and return it",
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) to hash", "GIT_KEY_PUB")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}

		entries, err := keys.LoadPublicKeys(keyFS(), path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fingerprint, err := entry.Key.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("%s:\n", entry.Path)
			fmt.Printf("  - %s\n", fingerprint)
		}
		return nil
	}
	return cmd
}
