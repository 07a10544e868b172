package signify_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"aead.dev/minisign"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	signify "github.com/sug0/git-signify"
	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/keys/signifyenc"
	"github.com/sug0/git-signify/sigrefs"
)

func initRepo(t *testing.T) *git.Repository {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), nil)
	require.NoError(t, err)
	return repo
}

func writeBlob(t *testing.T, repo *git.Repository, content []byte) plumbing.Hash {
	t.Helper()
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	h, err := repo.Storer.SetEncodedObject(obj)
	require.NoError(t, err)
	return h
}

// writeSignifyKeyPair writes a fresh key pair under dir and returns the
// two file paths.
func writeSignifyKeyPair(t *testing.T, fs billy.Filesystem, dir string) (pubPath, secPath string) {
	t.Helper()
	pub, priv, err := signifyenc.GenerateKey()
	require.NoError(t, err)

	pubText, err := pub.MarshalText()
	require.NoError(t, err)
	secText, err := signifyenc.MarshalPrivateKey(priv, nil)
	require.NoError(t, err)

	pubPath = dir + "/id.pub"
	secPath = dir + "/id.sec"
	require.NoError(t, util.WriteFile(fs, pubPath, pubText, 0o644))
	require.NoError(t, util.WriteFile(fs, secPath, secText, 0o600))
	return pubPath, secPath
}

func writeMinisignKeyPair(t *testing.T, fs billy.Filesystem, dir string) (pubPath, secPath string) {
	t.Helper()
	pub, priv, err := minisign.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pubPayload, err := pub.MarshalText()
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(pubPayload), []byte{'\n'})
	pubText := append([]byte("untrusted comment: minisign public key\n"), lines[len(lines)-1]...)
	pubText = append(pubText, '\n')

	secText, err := priv.MarshalText()
	require.NoError(t, err)

	pubPath = dir + "/id.pub"
	secPath = dir + "/id.sec"
	require.NoError(t, util.WriteFile(fs, pubPath, pubText, 0o644))
	require.NoError(t, util.WriteFile(fs, secPath, secText, 0o600))
	return pubPath, secPath
}

func TestSignVerifyRoundTrip(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, secPath := writeSignifyKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))

	results, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].AlreadySigned)
	require.Equal(t, target, results[0].Object)
	require.Equal(t, sigrefs.Signature(results[0].Fingerprint, target), results[0].Reference)

	ref, err := repo.Storer.Reference(results[0].Reference)
	require.NoError(t, err)
	require.Equal(t, results[0].Signature, ref.Hash())

	verified, err := signify.Verify(repo, fs, pubPath, target.String())
	require.NoError(t, err)
	require.Len(t, verified, 1)
	require.True(t, verified[0].Found)
	require.Equal(t, results[0].Fingerprint, verified[0].Fingerprint)
}

func TestSignIsIdempotent(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	_, secPath := writeSignifyKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))

	first, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)
	second, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)

	require.False(t, first[0].AlreadySigned)
	require.True(t, second[0].AlreadySigned)
	require.Equal(t, first[0].Signature, second[0].Signature)
}

func TestVerifyWithUnusedKey(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	_, secPath := writeSignifyKeyPair(t, fs, "/signer")
	strangerPub, _ := writeSignifyKeyPair(t, fs, "/stranger")

	target := writeBlob(t, repo, []byte("hello"))

	_, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)

	results, err := signify.Verify(repo, fs, strangerPub, target.String())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Found)
}

func TestMinisignEndToEnd(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, secPath := writeMinisignKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))

	results, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	verified, err := signify.Verify(repo, fs, pubPath, target.String())
	require.NoError(t, err)
	require.True(t, verified[0].Found)

	// the stored signature dereferences back to the signed object
	pubEntries, err := keys.LoadPublicKeys(fs, pubPath)
	require.NoError(t, err)
	recovered, err := signify.RawVerify(repo, pubEntries[0].Key, results[0].Signature.String())
	require.NoError(t, err)
	require.Equal(t, target, recovered)
}

func TestRawSignAndVerify(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, secPath := writeSignifyKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))

	secEntries, err := keys.LoadPrivateKeys(fs, secPath, nil)
	require.NoError(t, err)
	sigOID, err := signify.RawSign(repo, secEntries[0].Key, target.String())
	require.NoError(t, err)

	// no reference is created by the raw form
	signers, err := signify.ListSignatures(repo)
	require.NoError(t, err)
	require.Empty(t, signers)

	pubEntries, err := keys.LoadPublicKeys(fs, pubPath)
	require.NoError(t, err)
	recovered, err := signify.RawVerify(repo, pubEntries[0].Key, sigOID.String())
	require.NoError(t, err)
	require.Equal(t, target, recovered)
}

func TestListAndLookup(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, secPath := writeSignifyKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))
	other := writeBlob(t, repo, []byte("other"))

	results, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)
	fingerprint := results[0].Fingerprint

	signers, err := signify.ListSignatures(repo)
	require.NoError(t, err)
	require.Equal(t, sigrefs.Signers{target: {fingerprint}}, signers)

	found, err := signify.RevLookup(repo, fs, pubPath, target.String())
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.True(t, found[0].Found)
	require.Equal(t, results[0].Signature, found[0].Signature)

	missing, err := signify.RevLookup(repo, fs, pubPath, other.String())
	require.NoError(t, err)
	require.False(t, missing[0].Found)
}

func TestRemoveSignature(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, secPath := writeSignifyKeyPair(t, fs, "/keys")

	target := writeBlob(t, repo, []byte("hello"))

	_, err := signify.Sign(repo, fs, secPath, target.String(), nil)
	require.NoError(t, err)

	require.NoError(t, signify.RemoveSignature(repo, fs, pubPath, target.String()))

	signers, err := signify.ListSignatures(repo)
	require.NoError(t, err)
	require.Empty(t, signers)

	// removing an absent signature is not an error
	require.NoError(t, signify.RemoveSignature(repo, fs, pubPath, target.String()))
}

func TestStoreKey(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	pubPath, _ := writeSignifyKeyPair(t, fs, "/keys")

	results, err := signify.StoreKey(repo, fs, pubPath)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, sigrefs.PublicKey(results[0].Fingerprint), results[0].Reference)

	ref, err := repo.Storer.Reference(results[0].Reference)
	require.NoError(t, err)

	// the referenced blob holds the raw key material, whose blob id is
	// the fingerprint itself
	require.Equal(t, results[0].Fingerprint, ref.Hash())

	entries, err := keys.LoadPublicKeys(fs, pubPath)
	require.NoError(t, err)
	raw, err := entries[0].Key.Raw()
	require.NoError(t, err)

	obj, err := repo.Storer.EncodedObject(plumbing.BlobObject, ref.Hash())
	require.NoError(t, err)
	r, err := obj.Reader()
	require.NoError(t, err)
	stored, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, raw, stored)
}

func TestResolveRevisionRejectsUnknownName(t *testing.T) {
	repo := initRepo(t)
	fs := memfs.New()
	_, secPath := writeSignifyKeyPair(t, fs, "/keys")

	_, err := signify.Sign(repo, fs, secPath, "refs/tags/nope", nil)
	require.Error(t, err)
}
