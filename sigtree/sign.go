package sigtree

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/sug0/git-signify/keys"
)

// Sign signs the object stored at target with key and writes the
// resulting v1 signature object to s, returning its id.
//
// Encoding is deterministic: the wrapper commit pins its identity and
// timestamp and both signing algorithms produce deterministic
// signatures, so signing the same object with the same key always
// yields the same id. Blob and tree targets are recorded as an "object"
// tree entry; a commit target becomes the sole parent of the wrapper
// commit. Tags cannot be signed.
func Sign(s storer.EncodedObjectStorer, key *keys.PrivateKey, target plumbing.Hash) (plumbing.Hash, error) {
	obj, err := s.EncodedObject(plumbing.AnyObject, target)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: look-up object %s to sign: %w", target, err)
	}

	var (
		targetMode filemode.FileMode
		parents    []plumbing.Hash
	)
	switch obj.Type() {
	case plumbing.BlobObject:
		targetMode = filemode.Regular
	case plumbing.TreeObject:
		targetMode = filemode.Dir
	case plumbing.CommitObject:
		parents = []plumbing.Hash{target}
	default:
		return plumbing.ZeroHash, fmt.Errorf("%w: cannot sign %s object %s",
			ErrUnsupportedObjectKind, obj.Type(), target)
	}

	signature, err := key.Sign(target[:])
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: sign object %s: %w", target, err)
	}

	versionBlob, err := putBlob(s, []byte(Current().String()))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: store %q blob: %w", entryVersion, err)
	}
	algorithmBlob, err := putBlob(s, []byte(key.Algorithm().String()))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: store %q blob: %w", entryAlgorithm, err)
	}
	signatureBlob, err := putBlob(s, signature)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: store %q blob: %w", entrySignature, err)
	}

	// Entries must be in git tree order. With these fixed names the
	// order is the same whether "object" is a blob or a subtree.
	entries := []object.TreeEntry{
		{Name: entryAlgorithm, Mode: filemode.Regular, Hash: algorithmBlob},
	}
	if parents == nil {
		entries = append(entries, object.TreeEntry{Name: entryObject, Mode: targetMode, Hash: target})
	}
	entries = append(entries,
		object.TreeEntry{Name: entrySignature, Mode: filemode.Regular, Hash: signatureBlob},
		object.TreeEntry{Name: entryVersion, Mode: filemode.Regular, Hash: versionBlob},
	)

	tree := object.Tree{Entries: entries}
	treeObj := s.NewEncodedObject()
	if err := tree.Encode(treeObj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: encode signature tree: %w", err)
	}
	treeHash, err := s.SetEncodedObject(treeObj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: store signature tree: %w", err)
	}

	identity := wrapperIdentity()
	commit := object.Commit{
		Author:       identity,
		Committer:    identity,
		Message:      fmt.Sprintf("signature over %s\n", target),
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitObj := s.NewEncodedObject()
	if err := commit.Encode(commitObj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: encode signature commit: %w", err)
	}
	commitHash, err := s.SetEncodedObject(commitObj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("sigtree: store signature commit: %w", err)
	}

	return commitHash, nil
}

// wrapperIdentity is the fixed author and committer of signature
// commits. A real identity and timestamp would make the commit id vary
// between runs and break idempotent re-signing.
func wrapperIdentity() object.Signature {
	return object.Signature{
		Name:  "git-signify",
		Email: "git-signify@localhost",
		When:  time.Unix(0, 0).UTC(),
	}
}

func putBlob(s storer.EncodedObjectStorer, content []byte) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
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

	return s.SetEncodedObject(obj)
}
