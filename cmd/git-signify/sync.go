package main

import (
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [remote]",
		Short: "Push signify data to a remote repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			return signify.Push(repo, remoteArg(args))
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [remote]",
		Short: "Pull signify data from a remote repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			return signify.Pull(repo, remoteArg(args))
		},
	}
}

func remoteArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return git.DefaultRemoteName
}
