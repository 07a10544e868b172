package main

import (
	"fmt"

	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
	"github.com/sug0/git-signify/keys"
)

func newRawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Primitive signing and verification commands",
	}
	cmd.AddCommand(newRawSignCmd(), newRawVerifyCmd())
	return cmd
}

func newRawSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <git-rev>",
		Short: "Sign an arbitrary git object and print the signature object id",
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

		entries, err := keys.LoadPrivateKeys(keyFS(), path, promptPassphrase)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			oid, err := signify.RawSign(repo, entry.Key, args[0])
			entry.Key.Wipe()
			if err != nil {
				return err
			}
			fmt.Println(oid)
		}
		return nil
	}
	return cmd
}

func newRawVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <git-rev>",
		Short: "Verify the signature stored in a signature object",
		Args:  cobra.ExactArgs(1),
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) to verify with", "GIT_KEY_PUB")
	printOID := cmd.Flags().BoolP("print-signed-oid", "p", false, "print the id of the signed object to stdout")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		entries, err := keys.LoadPublicKeys(keyFS(), path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			oid, err := signify.RawVerify(repo, entry.Key, args[0])
			if err != nil {
				return err
			}
			if *printOID {
				fmt.Println(oid)
			}
		}
		return nil
	}
	return cmd
}
