package sigtree

import (
	"errors"
	"fmt"

	"aead.dev/minisign"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/sug0/git-signify/keys"
	"github.com/sug0/git-signify/keys/signifyenc"
)

var (
	// ErrIncompatibleKeyType is returned when the public key cannot
	// possibly verify the signature, before any cryptographic work.
	ErrIncompatibleKeyType = errors.New("sigtree: incompatible public key for signature")

	// ErrSignatureEncoding is returned when the stored signature bytes
	// cannot be parsed in the serialization of the declared algorithm
	// and version.
	ErrSignatureEncoding = errors.New("sigtree: cannot parse signature bytes")

	// ErrInvalidSignature is returned when the cryptographic check
	// fails.
	ErrInvalidSignature = errors.New("sigtree: invalid signature")
)

// compatKey is a (layout version, algorithm tag, key algorithm) triple.
type compatKey struct {
	version Version
	algo    keys.Algorithm
	key     keys.Algorithm
}

// compatible is the closed set of triples a verification may proceed
// under. Every combination producible by Sign has an entry; anything
// absent fails fast with ErrIncompatibleKeyType.
var compatible = map[compatKey]struct{}{
	{V0, keys.AlgorithmSignify, keys.AlgorithmSignify}:   {},
	{V1, keys.AlgorithmSignify, keys.AlgorithmSignify}:   {},
	{V1, keys.AlgorithmMinisign, keys.AlgorithmMinisign}: {},
}

// Verify checks the authenticity of the signature with pub.
//
// Verification is all or nothing: the key must be compatible with the
// layout version and declared algorithm, the signature bytes must parse
// and the cryptographic check over the signed object id must pass.
func (t *TreeSignature) Verify(pub *keys.PublicKey) error {
	_, err := t.verify(pub)
	return err
}

// VerifyAndRecover is like Verify but additionally returns the id of
// the signed object. The id is only returned after the signature
// checked out.
func (t *TreeSignature) VerifyAndRecover(pub *keys.PublicKey) (plumbing.Hash, error) {
	return t.verify(pub)
}

func (t *TreeSignature) verify(pub *keys.PublicKey) (plumbing.Hash, error) {
	if _, ok := compatible[compatKey{t.Version, t.Algorithm, pub.Algorithm()}]; !ok {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s signature in %s layout against %s key",
			ErrIncompatibleKeyType, t.Algorithm, t.Version, pub.Algorithm())
	}

	switch t.Algorithm {
	case keys.AlgorithmSignify:
		return t.verifySignify(pub)
	default: // keys.AlgorithmMinisign, by the compatibility matrix
		return t.verifyMinisign(pub)
	}
}

func (t *TreeSignature) verifySignify(pub *keys.PublicKey) (plumbing.Hash, error) {
	var (
		sig *signifyenc.Signature
		err error
	)
	// v0 stored the binary framing of the signature; v1 stores the
	// two-line file form.
	switch t.Version {
	case V0:
		sig, err = signifyenc.ParseRawSignature(t.signature)
	default:
		sig, err = signifyenc.ParseSignature(t.signature)
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s signature in %s: %w",
			ErrSignatureEncoding, t.Algorithm, t.hash, err)
	}

	target, err := t.Dereference()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if err := pub.Signify().Verify(target[:], sig); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: over object %s: %w", ErrInvalidSignature, target, err)
	}
	return target, nil
}

func (t *TreeSignature) verifyMinisign(pub *keys.PublicKey) (plumbing.Hash, error) {
	var sig minisign.Signature
	if err := sig.UnmarshalText(t.signature); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s signature in %s: %w",
			ErrSignatureEncoding, t.Algorithm, t.hash, err)
	}

	target, err := t.Dereference()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if !minisign.Verify(pub.Minisign(), target[:], t.signature) {
		return plumbing.ZeroHash, fmt.Errorf("%w: over object %s", ErrInvalidSignature, target)
	}
	return target, nil
}
