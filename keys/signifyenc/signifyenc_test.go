package signifyenc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyRoundTrip(t *testing.T) {
	pub, _, err := GenerateKey()
	require.NoError(t, err)

	text, err := pub.MarshalText()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(text, []byte(CommentHeader)))

	parsed, err := ParsePublicKey(text)
	require.NoError(t, err)
	require.Equal(t, pub.Raw(), parsed.Raw())
	require.Equal(t, pub.keyNum, parsed.keyNum)
}

func TestPrivateKeyRoundTripUnencrypted(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	text, err := MarshalPrivateKey(priv, nil)
	require.NoError(t, err)

	enc, err := ParsePrivateKey(text)
	require.NoError(t, err)
	require.False(t, enc.Encrypted())

	key, err := enc.Decrypt(nil)
	require.NoError(t, err)
	require.Equal(t, pub.Raw(), key.Public().Raw())
}

func TestPrivateKeyRoundTripEncrypted(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	text, err := MarshalPrivateKey(priv, []byte("hunter2"))
	require.NoError(t, err)

	enc, err := ParsePrivateKey(text)
	require.NoError(t, err)
	require.True(t, enc.Encrypted())

	key, err := enc.Decrypt([]byte("hunter2"))
	require.NoError(t, err)
	require.Equal(t, pub.Raw(), key.Public().Raw())
}

func TestPrivateKeyWrongPassphrase(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)

	text, err := MarshalPrivateKey(priv, []byte("hunter2"))
	require.NoError(t, err)

	enc, err := ParsePrivateKey(text)
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte("*******"))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSignatureRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("arbitrary message")
	sig := priv.Sign(msg)
	require.NoError(t, pub.Verify(msg, sig))

	text, err := sig.MarshalText()
	require.NoError(t, err)

	parsed, err := ParseSignature(text)
	require.NoError(t, err)
	require.NoError(t, pub.Verify(msg, parsed))

	raw, err := ParseRawSignature(sig.raw())
	require.NoError(t, err)
	require.NoError(t, pub.Verify(msg, raw))
}

func TestSignatureDeterministic(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("same input")
	require.Equal(t, priv.Sign(msg).raw(), priv.Sign(msg).raw())
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	sig := priv.Sign([]byte("message"))
	require.ErrorIs(t, pub.Verify([]byte("other message"), sig), ErrInvalidSignature)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)
	other, _, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("message")
	require.ErrorIs(t, other.Verify(msg, priv.Sign(msg)), ErrMismatchedKey)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey([]byte("untrusted comment: signify public key\nnot base64!!\n"))
	require.ErrorIs(t, err, ErrMalformedKey)

	_, err = ParsePublicKey([]byte("no comment line here"))
	require.ErrorIs(t, err, ErrMalformedKey)

	_, err = ParseRawSignature(bytes.Repeat([]byte{0x41}, 10))
	require.ErrorIs(t, err, ErrMalformedSignature)

	_, err = ParsePrivateKey([]byte(CommentHeader + "signify secret key\nQUFBQQ==\n"))
	require.ErrorIs(t, err, ErrMalformedKey)
}
