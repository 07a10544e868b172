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

// SignResult reports the outcome of signing with one key.
type SignResult struct {
	// KeyPath is the file the signing key was loaded from.
	KeyPath string
	// Fingerprint is the fingerprint of the signer's public key.
	Fingerprint plumbing.Hash
	// Object is the id of the signed object.
	Object plumbing.Hash
	// Signature is the id of the signature object.
	Signature plumbing.Hash
	// Reference is the reference under which the signature is stored.
	Reference plumbing.ReferenceName
	// AlreadySigned is true when a signature by this key over this
	// object already existed and was left untouched.
	AlreadySigned bool
}

// Sign signs the object named by rev with every secret key resolved
// from keyPath and stores a reference to each signature. An existing
// signature reference is never overwritten: re-signing an already
// signed object is reported through AlreadySigned instead.
func Sign(repo *git.Repository, fs billy.Filesystem, keyPath, rev string, prompt keys.PassphraseFunc) ([]SignResult, error) {
	target, err := resolveRevision(repo, rev)
	if err != nil {
		return nil, err
	}

	entries, err := keys.LoadPrivateKeys(fs, keyPath, prompt)
	if err != nil {
		return nil, err
	}

	results := make([]SignResult, 0, len(entries))
	for _, entry := range entries {
		result, err := signWithKey(repo, entry, target)
		entry.Key.Wipe()
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func signWithKey(repo *git.Repository, entry keys.PrivateKeyEntry, target plumbing.Hash) (SignResult, error) {
	pub, err := entry.Key.Public()
	if err != nil {
		return SignResult{}, fmt.Errorf("signify: derive public key of %s: %w", entry.Path, err)
	}
	fingerprint, err := pub.Fingerprint()
	if err != nil {
		return SignResult{}, fmt.Errorf("signify: fingerprint key %s: %w", entry.Path, err)
	}

	result := SignResult{
		KeyPath:     entry.Path,
		Fingerprint: fingerprint,
		Object:      target,
		Reference:   sigrefs.Signature(fingerprint, target),
	}

	if existing, ok, err := sigrefs.Lookup(repo.Storer, fingerprint, target); err != nil {
		return SignResult{}, err
	} else if ok {
		result.Signature = existing
		result.AlreadySigned = true
		return result, nil
	}

	signature, err := sigtree.Sign(repo.Storer, entry.Key, target)
	if err != nil {
		return SignResult{}, err
	}

	ref := plumbing.NewHashReference(result.Reference, signature)
	if err := repo.Storer.SetReference(ref); err != nil {
		return SignResult{}, fmt.Errorf("signify: store reference %s: %w", result.Reference, err)
	}

	result.Signature = signature
	return result, nil
}

// RawSign signs the object named by rev with a single already loaded
// key and returns the id of the signature object, without creating any
// reference.
func RawSign(repo *git.Repository, key *keys.PrivateKey, rev string) (plumbing.Hash, error) {
	target, err := resolveRevision(repo, rev)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return sigtree.Sign(repo.Storer, key, target)
}
