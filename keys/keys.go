// Package keys abstracts over the signing key formats understood by
// git-signify: OpenBSD signify keys and minisign keys.
//
// The algorithm set is closed. Adding an algorithm means adding a new
// Algorithm constant, extending both sum types and the loader dispatch,
// and declaring the new combinations in the sigtree compatibility
// matrix.
package keys

import (
	"encoding/base64"
	"errors"
	"fmt"

	"aead.dev/minisign"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys/signifyenc"
)

// Algorithm identifies a supported signing algorithm.
type Algorithm int8

const (
	// AlgorithmSignify is the OpenBSD signify algorithm.
	AlgorithmSignify Algorithm = iota
	// AlgorithmMinisign is the minisign algorithm.
	AlgorithmMinisign
)

// String returns the wire tag of the algorithm, as stored in signature
// tree objects.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSignify:
		return "signify"
	case AlgorithmMinisign:
		return "minisign"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownKeyFormat is returned when key data is not in a
	// recognized untrusted-comment encoding.
	ErrUnknownKeyFormat = errors.New("keys: unknown key format")

	// ErrDecryptionFailed is returned when an encrypted secret key could
	// not be decrypted, typically because the passphrase was wrong.
	ErrDecryptionFailed = errors.New("keys: secret key decryption failed")

	// ErrMalformedKey is returned when key data matches a known format
	// but cannot be decoded.
	ErrMalformedKey = errors.New("keys: malformed key")
)

// PublicKey is a verification key of one of the supported algorithms.
type PublicKey struct {
	algo     Algorithm
	signify  *signifyenc.PublicKey
	minisign minisign.PublicKey
}

// NewSignifyPublicKey wraps a signify public key.
func NewSignifyPublicKey(key *signifyenc.PublicKey) *PublicKey {
	return &PublicKey{algo: AlgorithmSignify, signify: key}
}

// NewMinisignPublicKey wraps a minisign public key.
func NewMinisignPublicKey(key minisign.PublicKey) *PublicKey {
	return &PublicKey{algo: AlgorithmMinisign, minisign: key}
}

// Algorithm returns the algorithm of the key.
func (k *PublicKey) Algorithm() Algorithm { return k.algo }

// Signify returns the underlying signify key. It is only valid for
// AlgorithmSignify keys.
func (k *PublicKey) Signify() *signifyenc.PublicKey { return k.signify }

// Minisign returns the underlying minisign key. It is only valid for
// AlgorithmMinisign keys.
func (k *PublicKey) Minisign() minisign.PublicKey { return k.minisign }

// Raw returns the raw key material the fingerprint is computed over.
func (k *PublicKey) Raw() ([]byte, error) {
	switch k.algo {
	case AlgorithmSignify:
		return k.signify.Raw(), nil
	case AlgorithmMinisign:
		return rawMinisignKey(k.minisign)
	default:
		return nil, fmt.Errorf("%w: algorithm %d", ErrUnknownKeyFormat, k.algo)
	}
}

// Fingerprint returns the stable identifier of the key: the git blob
// hash of its raw key material. Keys with byte-identical raw material
// always fingerprint identically.
func (k *PublicKey) Fingerprint() (plumbing.Hash, error) {
	raw, err := k.Raw()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return plumbing.ComputeHash(plumbing.BlobObject, raw), nil
}

// PrivateKey is a signing key of one of the supported algorithms.
type PrivateKey struct {
	algo     Algorithm
	signify  *signifyenc.PrivateKey
	minisign minisign.PrivateKey
}

// NewSignifyPrivateKey wraps a signify private key.
func NewSignifyPrivateKey(key *signifyenc.PrivateKey) *PrivateKey {
	return &PrivateKey{algo: AlgorithmSignify, signify: key}
}

// NewMinisignPrivateKey wraps a minisign private key.
func NewMinisignPrivateKey(key minisign.PrivateKey) *PrivateKey {
	return &PrivateKey{algo: AlgorithmMinisign, minisign: key}
}

// Algorithm returns the algorithm of the key.
func (k *PrivateKey) Algorithm() Algorithm { return k.algo }

// Public returns the verification key of this key pair.
func (k *PrivateKey) Public() (*PublicKey, error) {
	switch k.algo {
	case AlgorithmSignify:
		return NewSignifyPublicKey(k.signify.Public()), nil
	case AlgorithmMinisign:
		pub, ok := k.minisign.Public().(minisign.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected minisign public key type", ErrMalformedKey)
		}
		return NewMinisignPublicKey(pub), nil
	default:
		return nil, fmt.Errorf("%w: algorithm %d", ErrUnknownKeyFormat, k.algo)
	}
}

// Sign signs msg and returns the signature in its textual wire form.
// Signing is deterministic for both algorithms: comments carrying
// timestamps are pinned so the same key and message always yield the
// same bytes.
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	switch k.algo {
	case AlgorithmSignify:
		return k.signify.Sign(msg).MarshalText()
	case AlgorithmMinisign:
		return minisign.SignWithComments(k.minisign, msg,
			"signed with git-signify",
			"signature from git-signify secret key",
		), nil
	default:
		return nil, fmt.Errorf("%w: algorithm %d", ErrUnknownKeyFormat, k.algo)
	}
}

// Wipe zeroes the secret key material where the underlying
// implementation permits it.
func (k *PrivateKey) Wipe() {
	if k.algo == AlgorithmSignify && k.signify != nil {
		k.signify.Wipe()
	}
}

// rawMinisignKey recovers the raw binary key material (algorithm
// marker, key ID and Ed25519 key) from a minisign public key.
func rawMinisignKey(key minisign.PublicKey) ([]byte, error) {
	text, err := key.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	payload := lastNonEmptyLine(text)
	raw, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	return raw, nil
}
