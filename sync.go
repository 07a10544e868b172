package signify

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"

	"github.com/sug0/git-signify/sigrefs"
)

// syncRefSpec mirrors the whole signify namespace between repositories.
const syncRefSpec = config.RefSpec(sigrefs.RefSpecAll + ":" + sigrefs.RefSpecAll)

// Push uploads every signify reference to the named remote. A remote
// that already has them all is not an error.
func Push(repo *git.Repository, remote string) error {
	err := repo.Push(&git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{syncRefSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("signify: push signify references to %q: %w", remote, err)
	}
	return nil
}

// Pull fetches every signify reference from the named remote. A local
// repository that already has them all is not an error.
func Pull(repo *git.Repository, remote string) error {
	err := repo.Fetch(&git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{syncRefSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("signify: fetch signify references from %q: %w", remote, err)
	}
	return nil
}
