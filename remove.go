package signify

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/sigrefs"
)

// RemoveSignature deletes the local signature references over the
// object named by rev for every public key resolved from keyPath.
// References that do not exist are skipped. The signature objects
// themselves stay in the object store until garbage collected.
func RemoveSignature(repo *git.Repository, fs billy.Filesystem, keyPath, rev string) error {
	refs, err := signatureRefs(repo, fs, keyPath, rev)
	if err != nil {
		return err
	}

	for _, name := range refs {
		err := repo.Storer.RemoveReference(name)
		if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("signify: remove reference %s: %w", name, err)
		}
	}
	return nil
}

// RemoveRemoteSignature deletes signature references on the named
// remote, through a delete refspec push.
func RemoveRemoteSignature(repo *git.Repository, fs billy.Filesystem, keyPath, rev, remote string) error {
	refs, err := signatureRefs(repo, fs, keyPath, rev)
	if err != nil {
		return err
	}

	specs := make([]config.RefSpec, len(refs))
	for i, name := range refs {
		specs[i] = config.RefSpec(":" + name)
	}

	err = repo.Push(&git.PushOptions{RemoteName: remote, RefSpecs: specs})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("signify: remove references on remote %q: %w", remote, err)
	}
	return nil
}

func signatureRefs(repo *git.Repository, fs billy.Filesystem, keyPath, rev string) ([]plumbing.ReferenceName, error) {
	target, err := resolveRevision(repo, rev)
	if err != nil {
		return nil, err
	}

	entries, err := keys.LoadPublicKeys(fs, keyPath)
	if err != nil {
		return nil, err
	}

	refs := make([]plumbing.ReferenceName, 0, len(entries))
	for _, entry := range entries {
		fingerprint, err := entry.Key.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("signify: fingerprint key %s: %w", entry.Path, err)
		}
		refs = append(refs, sigrefs.Signature(fingerprint, target))
	}
	return refs, nil
}
