// Package sigtree encodes and decodes git-signify signature objects.
//
// A signature over a git object is itself stored in the object
// database. Two layouts exist:
//
//   - v0, the historical layout: a bare tree with an "object" entry (a
//     blob holding the raw id of the signed object) and a "signature"
//     entry. It carries no version or algorithm markers and cannot
//     represent signatures over commits.
//   - v1, the current layout: a commit whose tree holds "version",
//     "algorithm" and "signature" blobs. Blob and tree targets are
//     recorded as an extra "object" tree entry; a commit target is
//     instead set as the sole parent of the wrapper commit, so the
//     signed commit is recovered by following the parent link.
//
// The layout of a stored signature is recognized purely from the kind
// of the object: trees decode as v0, commits as v1. New signatures are
// always encoded as v1; v0 is kept decodable for existing data.
package sigtree

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/sug0/git-signify/keys"
)

// Tree entry names of the signature layout.
const (
	entryVersion   = "version"
	entryAlgorithm = "algorithm"
	entrySignature = "signature"
	entryObject    = "object"
)

// Version identifies the structural layout of a stored signature.
type Version int8

const (
	// V0 is the flat-tree layout.
	V0 Version = iota
	// V1 is the commit-wrapper layout.
	V1
)

// Current returns the version used when encoding new signatures.
func Current() Version { return V1 }

// String returns the wire tag of the version.
func (v Version) String() string {
	switch v {
	case V0:
		return "v0"
	case V1:
		return "v1"
	default:
		return "unknown"
	}
}

var (
	// ErrMalformedSignatureObject is returned when a stored signature is
	// missing an entry or an entry has the wrong object kind.
	ErrMalformedSignatureObject = errors.New("sigtree: malformed signature object")

	// ErrUnknownVersion is returned when the version tag of a stored
	// signature is outside the known vocabulary.
	ErrUnknownVersion = errors.New("sigtree: unknown signature version")

	// ErrUnknownAlgorithm is returned when the algorithm tag of a stored
	// signature is outside the known vocabulary.
	ErrUnknownAlgorithm = errors.New("sigtree: unknown signature algorithm")

	// ErrUnsupportedObjectKind is returned when asked to sign or decode
	// an object kind with no representable layout, such as a tag.
	ErrUnsupportedObjectKind = errors.New("sigtree: unsupported object kind")
)

// TreeSignature is a decoded signature object.
//
// Version and Algorithm are decoded jointly with the rest of the
// layout: a TreeSignature never mixes fields of different layouts.
type TreeSignature struct {
	// Version is the layout the signature was stored in.
	Version Version
	// Algorithm is the algorithm the signature claims to be made with.
	Algorithm keys.Algorithm

	s         storer.EncodedObjectStorer
	hash      plumbing.Hash
	pointer   plumbing.Hash
	signature []byte
}

// Hash returns the id of the signature object itself.
func (t *TreeSignature) Hash() plumbing.Hash { return t.hash }

// Signature returns the raw signature bytes.
func (t *TreeSignature) Signature() []byte { return t.signature }

// Dereference resolves the pointer to the signed object, applying the
// per-version indirection rule: v0 keeps the raw id inside a blob,
// v1 points at the signed object directly.
func (t *TreeSignature) Dereference() (plumbing.Hash, error) {
	switch t.Version {
	case V0:
		content, err := readBlob(t.s, t.pointer)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%w: %q entry of %s: %w",
				ErrMalformedSignatureObject, entryObject, t.hash, err)
		}
		var h plumbing.Hash
		if len(content) != len(h) {
			return plumbing.ZeroHash, fmt.Errorf("%w: %q blob of %s holds %d bytes, want a raw object id",
				ErrMalformedSignatureObject, entryObject, t.hash, len(content))
		}
		copy(h[:], content)
		return h, nil
	default:
		return t.pointer, nil
	}
}

// LoadHash decodes the signature object stored at h, dispatching on the
// kind of the object: trees decode as the v0 layout, commits as v1.
func LoadHash(s storer.EncodedObjectStorer, h plumbing.Hash) (*TreeSignature, error) {
	obj, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return nil, fmt.Errorf("sigtree: look-up object %s: %w", h, err)
	}

	switch obj.Type() {
	case plumbing.TreeObject:
		return decodeV0(s, h)
	case plumbing.CommitObject:
		return decodeV1(s, h)
	default:
		return nil, fmt.Errorf("%w: %s is a %s, want tree or commit",
			ErrUnsupportedObjectKind, h, obj.Type())
	}
}

// decodeV0 parses the flat-tree layout. The version and algorithm are
// implicit: v0 predates the markers and only ever carried signify
// signatures.
func decodeV0(s storer.EncodedObjectStorer, h plumbing.Hash) (*TreeSignature, error) {
	tree, err := object.GetTree(s, h)
	if err != nil {
		return nil, fmt.Errorf("%w: read tree %s: %w", ErrMalformedSignatureObject, h, err)
	}

	objectEntry, err := tree.FindEntry(entryObject)
	if err != nil {
		return nil, fmt.Errorf("%w: %q entry missing from %s", ErrMalformedSignatureObject, entryObject, h)
	}
	signature, err := entryBlob(s, tree, entrySignature, h)
	if err != nil {
		return nil, err
	}

	return &TreeSignature{
		Version:   V0,
		Algorithm: keys.AlgorithmSignify,
		s:         s,
		hash:      h,
		pointer:   objectEntry.Hash,
		signature: signature,
	}, nil
}

// decodeV1 parses the commit-wrapper layout.
func decodeV1(s storer.EncodedObjectStorer, h plumbing.Hash) (*TreeSignature, error) {
	commit, err := object.GetCommit(s, h)
	if err != nil {
		return nil, fmt.Errorf("%w: read commit %s: %w", ErrMalformedSignatureObject, h, err)
	}
	tree, err := object.GetTree(s, commit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("%w: read tree of %s: %w", ErrMalformedSignatureObject, h, err)
	}

	versionTag, err := entryBlob(s, tree, entryVersion, h)
	if err != nil {
		return nil, err
	}
	version, err := parseVersionTag(string(versionTag))
	if err != nil {
		return nil, err
	}

	algorithmTag, err := entryBlob(s, tree, entryAlgorithm, h)
	if err != nil {
		return nil, err
	}
	algorithm, err := parseAlgorithmTag(string(algorithmTag))
	if err != nil {
		return nil, err
	}

	signature, err := entryBlob(s, tree, entrySignature, h)
	if err != nil {
		return nil, err
	}

	var pointer plumbing.Hash
	if entry, err := tree.FindEntry(entryObject); err == nil {
		pointer = entry.Hash
	} else if len(commit.ParentHashes) > 0 {
		pointer = commit.ParentHashes[0]
	} else {
		return nil, fmt.Errorf("%w: %s has neither an %q entry nor a parent to recover the signed object from",
			ErrMalformedSignatureObject, h, entryObject)
	}

	return &TreeSignature{
		Version:   version,
		Algorithm: algorithm,
		s:         s,
		hash:      h,
		pointer:   pointer,
		signature: signature,
	}, nil
}

func parseVersionTag(tag string) (Version, error) {
	switch tag {
	case "v0":
		return V0, nil
	case "v1":
		return V1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, tag)
	}
}

func parseAlgorithmTag(tag string) (keys.Algorithm, error) {
	switch tag {
	case "signify":
		return keys.AlgorithmSignify, nil
	case "minisign":
		return keys.AlgorithmMinisign, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, tag)
	}
}

// entryBlob reads the content of a named tree entry, requiring it to be
// a blob.
func entryBlob(s storer.EncodedObjectStorer, tree *object.Tree, name string, sig plumbing.Hash) ([]byte, error) {
	entry, err := tree.FindEntry(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q entry missing from %s", ErrMalformedSignatureObject, name, sig)
	}
	content, err := readBlob(s, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %q entry of %s is not a readable blob: %w",
			ErrMalformedSignatureObject, name, sig, err)
	}
	return content, nil
}

func readBlob(s storer.EncodedObjectStorer, h plumbing.Hash) ([]byte, error) {
	obj, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		return nil, err
	}
	r, err := obj.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
