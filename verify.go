package signify

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/sigrefs"
	"github.com/sug0/git-signify/sigtree"
)

// VerifyResult reports the outcome of verifying with one key.
type VerifyResult struct {
	// KeyPath is the file the public key was loaded from.
	KeyPath string
	// Fingerprint is the fingerprint of the public key.
	Fingerprint plumbing.Hash
	// Reference is the reference the signature was looked up under.
	Reference plumbing.ReferenceName
	// Found is false when no signature by this key over the object
	// exists. A missing signature is not an error: remaining keys are
	// still checked.
	Found bool
}

// Verify checks the signatures over the object named by rev against
// every public key resolved from keyPath. A key without a stored
// signature is reported with Found == false; a signature that exists
// but fails to parse or verify aborts with an error.
func Verify(repo *git.Repository, fs billy.Filesystem, keyPath, rev string) ([]VerifyResult, error) {
	target, err := resolveRevision(repo, rev)
	if err != nil {
		return nil, err
	}

	entries, err := keys.LoadPublicKeys(fs, keyPath)
	if err != nil {
		return nil, err
	}

	results := make([]VerifyResult, 0, len(entries))
	for _, entry := range entries {
		fingerprint, err := entry.Key.Fingerprint()
		if err != nil {
			return results, fmt.Errorf("signify: fingerprint key %s: %w", entry.Path, err)
		}

		result := VerifyResult{
			KeyPath:     entry.Path,
			Fingerprint: fingerprint,
			Reference:   sigrefs.Signature(fingerprint, target),
		}

		signature, ok, err := sigrefs.Lookup(repo.Storer, fingerprint, target)
		if err != nil {
			return results, err
		}
		if ok {
			sig, err := sigtree.LoadHash(repo.Storer, signature)
			if err != nil {
				return results, err
			}
			if err := sig.Verify(entry.Key); err != nil {
				return results, fmt.Errorf("signify: verify with key %s: %w", entry.Path, err)
			}
			result.Found = true
		}
		results = append(results, result)
	}
	return results, nil
}

// RawVerify verifies the signature object named by rev with an already
// loaded public key and returns the id of the signed object.
func RawVerify(repo *git.Repository, pub *keys.PublicKey, rev string) (plumbing.Hash, error) {
	h, err := resolveRevision(repo, rev)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	sig, err := sigtree.LoadHash(repo.Storer, h)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return sig.VerifyAndRecover(pub)
}
