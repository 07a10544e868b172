// Package sigrefs names and discovers git-signify references.
//
// Every signature is addressed by a reference of the form
//
//	refs/signify/signatures/<signer-fingerprint>/<signed-object-id>
//
// where both components are object ids rendered in hex. The namespace
// is a compile-time constant shared by producers and consumers; there
// is no other index.
package sigrefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	// Namespace is the root of all git-signify references.
	Namespace = "refs/signify"

	// RefSpecAll matches every git-signify reference. It is the refspec
	// pushed and fetched when syncing with remotes.
	RefSpecAll = Namespace + "/*"

	// SignaturePrefix prefixes every signature reference.
	SignaturePrefix = Namespace + "/signatures/"

	// KeyPrefix prefixes every stored public key reference.
	KeyPrefix = Namespace + "/keys/"
)

// Signature returns the name of the reference holding the signature
// made by the key with the given fingerprint over the given object.
// Distinct (signer, object) pairs can never collide: both components
// are fixed-width hex renderings of object ids.
func Signature(signer, object plumbing.Hash) plumbing.ReferenceName {
	return plumbing.ReferenceName(fmt.Sprintf("%s%s/%s", SignaturePrefix, signer, object))
}

// PublicKey returns the name of the reference holding the stored public
// key with the given fingerprint.
func PublicKey(signer plumbing.Hash) plumbing.ReferenceName {
	return plumbing.ReferenceName(KeyPrefix + signer.String())
}

// ParseSignature splits a signature reference name into the signer
// fingerprint and the signed object id. ok is false for names outside
// the signature namespace or with malformed components.
func ParseSignature(name plumbing.ReferenceName) (signer, object plumbing.Hash, ok bool) {
	rest, found := strings.CutPrefix(string(name), SignaturePrefix)
	if !found {
		return plumbing.ZeroHash, plumbing.ZeroHash, false
	}
	signerHex, objectHex, found := strings.Cut(rest, "/")
	if !found || strings.Contains(objectHex, "/") {
		return plumbing.ZeroHash, plumbing.ZeroHash, false
	}
	if !plumbing.IsHash(signerHex) || !plumbing.IsHash(objectHex) {
		return plumbing.ZeroHash, plumbing.ZeroHash, false
	}
	return plumbing.NewHash(signerHex), plumbing.NewHash(objectHex), true
}

// Signers maps each signed object id to the fingerprints of the keys
// that signed it.
type Signers map[plumbing.Hash][]plumbing.Hash

// SignedObjects returns the signed object ids in lexicographic order,
// for deterministic display.
func (s Signers) SignedObjects() []plumbing.Hash {
	objects := make([]plumbing.Hash, 0, len(s))
	for object := range s {
		objects = append(objects, object)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].String() < objects[j].String()
	})
	return objects
}

// FindSigners enumerates every signature reference in s and groups the
// signer fingerprints by signed object. Names that do not parse as
// signature references are skipped: one foreign or corrupt reference
// must not block discovery of the rest.
func FindSigners(s storer.ReferenceStorer) (Signers, error) {
	iter, err := s.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("sigrefs: iterate references: %w", err)
	}
	defer iter.Close()

	signers := make(Signers)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		collectSigner(signers, ref.Name())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sigrefs: iterate references: %w", err)
	}
	return signers, nil
}

// FindRemoteSigners is like FindSigners but enumerates the references
// advertised by a remote. Only remotes reachable without authentication
// are supported.
func FindRemoteSigners(remote *git.Remote) (Signers, error) {
	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("sigrefs: list references of remote %s: %w",
			remote.Config().Name, err)
	}

	signers := make(Signers)
	for _, ref := range refs {
		collectSigner(signers, ref.Name())
	}
	return signers, nil
}

func collectSigner(signers Signers, name plumbing.ReferenceName) {
	if signer, object, ok := ParseSignature(name); ok {
		signers[object] = append(signers[object], signer)
	}
}

// Lookup resolves the signature reference for the (signer, object)
// pair. Absence of the reference is reported as ok == false, not as an
// error.
func Lookup(s storer.ReferenceStorer, signer, object plumbing.Hash) (plumbing.Hash, bool, error) {
	ref, err := s.Reference(Signature(signer, object))
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("sigrefs: resolve %s: %w", Signature(signer, object), err)
	}
	return ref.Hash(), true, nil
}
