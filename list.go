package signify

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/sigrefs"
)

// ListSignatures enumerates every signature stored in the repository,
// grouped by signed object.
func ListSignatures(repo *git.Repository) (sigrefs.Signers, error) {
	return sigrefs.FindSigners(repo.Storer)
}

// ListRemoteSignatures enumerates every signature advertised by the
// named remote. Only remotes reachable without authentication are
// supported.
func ListRemoteSignatures(repo *git.Repository, remote string) (sigrefs.Signers, error) {
	r, err := repo.Remote(remote)
	if err != nil {
		return nil, fmt.Errorf("signify: remote %q: %w", remote, err)
	}
	return sigrefs.FindRemoteSigners(r)
}

// LookupResult reports, for one public key, whether a signature
// reference over the object exists.
type LookupResult struct {
	// KeyPath is the file the public key was loaded from.
	KeyPath string
	// Reference is the crafted signature reference name.
	Reference plumbing.ReferenceName
	// Signature is the id of the signature object, when Found.
	Signature plumbing.Hash
	// Found reports whether the reference exists.
	Found bool
}

// RevLookup reports the signature references that exist over the object
// named by rev for every public key resolved from keyPath. Absence is
// not an error.
func RevLookup(repo *git.Repository, fs billy.Filesystem, keyPath, rev string) ([]LookupResult, error) {
	target, err := resolveRevision(repo, rev)
	if err != nil {
		return nil, err
	}

	entries, err := keys.LoadPublicKeys(fs, keyPath)
	if err != nil {
		return nil, err
	}

	results := make([]LookupResult, 0, len(entries))
	for _, entry := range entries {
		fingerprint, err := entry.Key.Fingerprint()
		if err != nil {
			return results, fmt.Errorf("signify: fingerprint key %s: %w", entry.Path, err)
		}

		signature, ok, err := sigrefs.Lookup(repo.Storer, fingerprint, target)
		if err != nil {
			return results, err
		}
		results = append(results, LookupResult{
			KeyPath:   entry.Path,
			Reference: sigrefs.Signature(fingerprint, target),
			Signature: signature,
			Found:     ok,
		})
	}
	return results, nil
}
