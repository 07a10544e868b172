// git-signify is a git sub-command to sign arbitrary objects with
// signify or minisign keys and verify those signatures later.
package main

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	signify "github.com/sug0/git-signify"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "git-signify",
		Short:         "Sign arbitrary git objects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newSignCmd(),
		newVerifyCmd(),
		newRawCmd(),
		newFingerprintCmd(),
		newRevLookupCmd(),
		newListSignaturesCmd(),
		newRmCmd(),
		newStoreKeyCmd(),
		newPushCmd(),
		newPullCmd(),
	)
	return cmd
}

// openRepo opens the repository enclosing the working directory.
func openRepo() (*git.Repository, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return signify.Open(wd)
}

// keyFS returns the filesystem key paths are resolved against.
func keyFS() billy.Filesystem {
	return osfs.New("/")
}

// keyPathFlag registers the -k/--key flag, defaulting from env.
func keyPathFlag(cmd *cobra.Command, usage, env string) *string {
	path := cmd.Flags().StringP("key", "k", os.Getenv(env), usage)
	return path
}

// requireKeyPath resolves the key path to an absolute one, erroring out
// when neither the flag nor its environment variable was given.
func requireKeyPath(path, env string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no key given: pass --key or set %s", env)
	}
	if path[0] != '/' {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = wd + "/" + path
	}
	return path, nil
}
