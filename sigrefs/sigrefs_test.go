package sigrefs_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"github.com/sug0/git-signify/sigrefs"
)

var (
	fpAlpha  = plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	fpBravo  = plumbing.NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	objFirst = plumbing.NewHash("1111111111111111111111111111111111111111")
	objLast  = plumbing.NewHash("2222222222222222222222222222222222222222")
)

func TestSignatureNameRoundTrip(t *testing.T) {
	name := sigrefs.Signature(fpAlpha, objFirst)
	require.Equal(t,
		plumbing.ReferenceName("refs/signify/signatures/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/1111111111111111111111111111111111111111"),
		name)

	signer, object, ok := sigrefs.ParseSignature(name)
	require.True(t, ok)
	require.Equal(t, fpAlpha, signer)
	require.Equal(t, objFirst, object)
}

func TestPublicKeyName(t *testing.T) {
	require.Equal(t,
		plumbing.ReferenceName("refs/signify/keys/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		sigrefs.PublicKey(fpAlpha))
}

func TestParseSignatureRejectsMalformedNames(t *testing.T) {
	for _, name := range []string{
		"refs/heads/main",
		"refs/signify/keys/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"refs/signify/signatures/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"refs/signify/signatures/nothex/1111111111111111111111111111111111111111",
		"refs/signify/signatures/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/nothex",
		"refs/signify/signatures/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/1111111111111111111111111111111111111111/extra",
	} {
		_, _, ok := sigrefs.ParseSignature(plumbing.ReferenceName(name))
		require.False(t, ok, "name %q should not parse", name)
	}
}

func TestFindSigners(t *testing.T) {
	st := memory.NewStorage()
	sig := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")

	set := func(name plumbing.ReferenceName) {
		require.NoError(t, st.SetReference(plumbing.NewHashReference(name, sig)))
	}
	set(sigrefs.Signature(fpAlpha, objFirst))
	set(sigrefs.Signature(fpBravo, objFirst))
	set(sigrefs.Signature(fpAlpha, objLast))
	// unrelated and malformed references are skipped
	set("refs/heads/main")
	set(sigrefs.PublicKey(fpAlpha))
	set("refs/signify/signatures/garbage")

	signers, err := sigrefs.FindSigners(st)
	require.NoError(t, err)
	require.Len(t, signers, 2)
	require.ElementsMatch(t, []plumbing.Hash{fpAlpha, fpBravo}, signers[objFirst])
	require.Equal(t, []plumbing.Hash{fpAlpha}, signers[objLast])

	require.Equal(t, []plumbing.Hash{objFirst, objLast}, signers.SignedObjects())
}

func TestLookup(t *testing.T) {
	st := memory.NewStorage()
	sig := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")

	_, found, err := sigrefs.Lookup(st, fpAlpha, objFirst)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, st.SetReference(plumbing.NewHashReference(sigrefs.Signature(fpAlpha, objFirst), sig)))

	got, found, err := sigrefs.Lookup(st, fpAlpha, objFirst)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, sig, got)
}
