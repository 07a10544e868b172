package signify

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/sigrefs"
)

// StoreResult reports the outcome of storing one public key.
type StoreResult struct {
	// KeyPath is the file the public key was loaded from.
	KeyPath string
	// Fingerprint is the fingerprint of the stored key.
	Fingerprint plumbing.Hash
	// Reference is the reference under which the key is stored.
	Reference plumbing.ReferenceName
}

// StoreKey writes the raw material of every public key resolved from
// keyPath into the object store and references each under
// refs/signify/keys/<fingerprint>. The content is addressed by its own
// fingerprint, so overwriting an existing reference is harmless.
func StoreKey(repo *git.Repository, fs billy.Filesystem, keyPath string) ([]StoreResult, error) {
	entries, err := keys.LoadPublicKeys(fs, keyPath)
	if err != nil {
		return nil, err
	}

	results := make([]StoreResult, 0, len(entries))
	for _, entry := range entries {
		raw, err := entry.Key.Raw()
		if err != nil {
			return results, fmt.Errorf("signify: raw key material of %s: %w", entry.Path, err)
		}
		fingerprint, err := entry.Key.Fingerprint()
		if err != nil {
			return results, fmt.Errorf("signify: fingerprint key %s: %w", entry.Path, err)
		}

		blob, err := putBlob(repo, raw)
		if err != nil {
			return results, fmt.Errorf("signify: store key %s: %w", entry.Path, err)
		}

		name := sigrefs.PublicKey(fingerprint)
		if err := repo.Storer.SetReference(plumbing.NewHashReference(name, blob)); err != nil {
			return results, fmt.Errorf("signify: store reference %s: %w", name, err)
		}
		results = append(results, StoreResult{
			KeyPath:     entry.Path,
			Fingerprint: fingerprint,
			Reference:   name,
		})
	}
	return results, nil
}

func putBlob(repo *git.Repository, content []byte) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	return repo.Storer.SetEncodedObject(obj)
}
