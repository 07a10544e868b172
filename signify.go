// Package signify signs arbitrary git objects with signify or minisign
// keys and stores the signatures inside the repository itself.
//
// A signature is encoded as a regular git object (see sigtree) and
// addressed through a deterministic reference derived from the signer's
// key fingerprint and the signed object id (see sigrefs). This package
// provides the porcelain tying the two together on top of a
// go-git Repository: signing, verification, discovery and syncing of
// signatures with remotes.
package signify

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Open opens the git repository containing path, walking up the
// directory tree to find it the way the git CLI does.
func Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("signify: open git repository: %w", err)
	}
	return repo, nil
}

// resolveRevision resolves a revision to an object id. Full hex ids are
// used as-is, so blob and tree ids resolve even though they are not
// reachable from any reference.
func resolveRevision(repo *git.Repository, rev string) (plumbing.Hash, error) {
	if plumbing.IsHash(rev) {
		return plumbing.NewHash(rev), nil
	}
	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("signify: resolve revision %q: %w", rev, err)
	}
	return *h, nil
}
