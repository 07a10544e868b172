package keys_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"aead.dev/minisign"
	"github.com/stretchr/testify/require"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/keys/signifyenc"
)

func signifyKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	pub, priv, err := signifyenc.GenerateKey()
	require.NoError(t, err)

	pubText, err := pub.MarshalText()
	require.NoError(t, err)
	privText, err := signifyenc.MarshalPrivateKey(priv, nil)
	require.NoError(t, err)
	return pubText, privText
}

func minisignKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	pub, priv, err := minisign.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pubPayload, err := pub.MarshalText()
	require.NoError(t, err)
	pubText := []byte("untrusted comment: minisign public key\n")
	pubText = append(pubText, lastLine(pubPayload)...)
	pubText = append(pubText, '\n')

	privText, err := priv.MarshalText()
	require.NoError(t, err)
	return pubText, privText
}

func lastLine(data []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(data), []byte{'\n'})
	return bytes.TrimSpace(lines[len(lines)-1])
}

func TestLoadSignifyKeyPair(t *testing.T) {
	pubText, privText := signifyKeyPair(t)

	pub, err := keys.LoadPublicKey(pubText)
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmSignify, pub.Algorithm())

	priv, err := keys.LoadPrivateKey(privText, nil)
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmSignify, priv.Algorithm())

	derived, err := priv.Public()
	require.NoError(t, err)

	want, err := pub.Fingerprint()
	require.NoError(t, err)
	got, err := derived.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadMinisignKeyPair(t *testing.T) {
	pubText, privText := minisignKeyPair(t)

	pub, err := keys.LoadPublicKey(pubText)
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmMinisign, pub.Algorithm())

	priv, err := keys.LoadPrivateKey(privText, nil)
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmMinisign, priv.Algorithm())

	derived, err := priv.Public()
	require.NoError(t, err)

	want, err := pub.Fingerprint()
	require.NoError(t, err)
	got, err := derived.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadEncryptedMinisignKey(t *testing.T) {
	_, priv, err := minisign.GenerateKey(rand.Reader)
	require.NoError(t, err)

	encText, err := minisign.EncryptKey("hunter2", priv)
	require.NoError(t, err)

	loaded, err := keys.LoadPrivateKey(encText, func() ([]byte, error) {
		return []byte("hunter2"), nil
	})
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmMinisign, loaded.Algorithm())

	_, err = keys.LoadPrivateKey(encText, func() ([]byte, error) {
		return []byte("wrong"), nil
	})
	require.ErrorIs(t, err, keys.ErrDecryptionFailed)

	_, err = keys.LoadPrivateKey(encText, nil)
	require.ErrorIs(t, err, keys.ErrPassphraseRequired)
}

func TestLoadEncryptedSignifyKey(t *testing.T) {
	_, priv, err := signifyenc.GenerateKey()
	require.NoError(t, err)
	privText, err := signifyenc.MarshalPrivateKey(priv, []byte("hunter2"))
	require.NoError(t, err)

	loaded, err := keys.LoadPrivateKey(privText, func() ([]byte, error) {
		return []byte("hunter2"), nil
	})
	require.NoError(t, err)
	require.Equal(t, keys.AlgorithmSignify, loaded.Algorithm())

	_, err = keys.LoadPrivateKey(privText, func() ([]byte, error) {
		return []byte("wrong"), nil
	})
	require.ErrorIs(t, err, keys.ErrDecryptionFailed)
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := keys.LoadPublicKey([]byte("-----BEGIN PGP PUBLIC KEY BLOCK-----\n"))
	require.ErrorIs(t, err, keys.ErrUnknownKeyFormat)

	_, err = keys.LoadPublicKey([]byte("untrusted comment: ssh public key\nQUFBQQ==\n"))
	require.ErrorIs(t, err, keys.ErrUnknownKeyFormat)

	_, err = keys.LoadPrivateKey([]byte("untrusted comment: ssh secret key\nQUFBQQ==\n"), nil)
	require.ErrorIs(t, err, keys.ErrUnknownKeyFormat)
}

func TestFingerprintStability(t *testing.T) {
	pubText, _ := signifyKeyPair(t)

	first, err := keys.LoadPublicKey(pubText)
	require.NoError(t, err)
	second, err := keys.LoadPublicKey(pubText)
	require.NoError(t, err)

	a, err := first.Fingerprint()
	require.NoError(t, err)
	b, err := second.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, a, b)

	otherText, _ := signifyKeyPair(t)
	other, err := keys.LoadPublicKey(otherText)
	require.NoError(t, err)
	c, err := other.Fingerprint()
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestSignProducesTextualSignature(t *testing.T) {
	_, privText := signifyKeyPair(t)
	priv, err := keys.LoadPrivateKey(privText, nil)
	require.NoError(t, err)

	sig, err := priv.Sign([]byte("message"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(sig, []byte(signifyenc.CommentHeader)))

	_, msText := minisignKeyPair(t)
	ms, err := keys.LoadPrivateKey(msText, nil)
	require.NoError(t, err)

	sig, err = ms.Sign([]byte("message"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(sig, []byte(signifyenc.CommentHeader)))

	// comments are pinned, so minisign signing stays deterministic
	again, err := ms.Sign([]byte("message"))
	require.NoError(t, err)
	require.Equal(t, sig, again)
}
