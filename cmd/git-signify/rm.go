package main

import (
	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove git-signify data",
	}
	cmd.AddCommand(newRmSignatureCmd())
	return cmd
}

func newRmSignatureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signature <git-rev>",
		Short: "Remove git-signify signatures",
		Args:  cobra.ExactArgs(1),
	}
	keyPath := keyPathFlag(cmd, "path to the public key (or key directory) of the signer", "GIT_KEY_PUB")
	remote := cmd.Flags().StringP("remote", "R", "", "remove the signature on the given remote instead")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := requireKeyPath(*keyPath, "GIT_KEY_PUB")
		if err != nil {
			return err
		}
		repo, err := openRepo()
		if err != nil {
			return err
		}

		if *remote != "" {
			return signify.RemoveRemoteSignature(repo, keyFS(), path, args[0], *remote)
		}
		return signify.RemoveSignature(repo, keyFS(), path, args[0])
	}
	return cmd
}
