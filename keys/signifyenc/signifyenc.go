// Package signifyenc implements the OpenBSD signify key and signature
// encodings over Ed25519.
//
// Keys and signatures are stored as two lines of text: an untrusted
// comment line followed by a base64 payload. Secret keys may be
// protected with a passphrase, in which case the Ed25519 seed is XORed
// with a bcrypt_pbkdf derived stream and guarded by a SHA-512 checksum.
package signifyenc

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dchest/bcrypt_pbkdf"
)

// CommentHeader prefixes the first line of every signify file.
const CommentHeader = "untrusted comment: "

const (
	algoEd25519 = "Ed"
	kdfBcrypt   = "BK"

	keyNumSize    = 8
	saltSize      = 16
	checksumSize  = 8
	rawPublicSize = 2 + keyNumSize + ed25519.PublicKeySize
	rawSecretSize = 2 + 2 + 4 + saltSize + checksumSize + keyNumSize + ed25519.PrivateKeySize
	rawSigSize    = 2 + keyNumSize + ed25519.SignatureSize

	// defaultKDFRounds matches the signify(1) default for encrypted keys.
	defaultKDFRounds = 42
)

var (
	// ErrMalformedKey is returned when key data cannot be decoded.
	ErrMalformedKey = errors.New("signifyenc: malformed key")

	// ErrMalformedSignature is returned when signature data cannot be decoded.
	ErrMalformedSignature = errors.New("signifyenc: malformed signature")

	// ErrUnknownAlgorithm is returned when the two-byte algorithm marker
	// is not Ed25519.
	ErrUnknownAlgorithm = errors.New("signifyenc: unknown algorithm")

	// ErrDecryptionFailed is returned when the checksum of a decrypted
	// secret key does not match, i.e. the passphrase was wrong.
	ErrDecryptionFailed = errors.New("signifyenc: secret key decryption failed")

	// ErrMismatchedKey is returned when a signature was produced by a key
	// pair other than the one verifying it.
	ErrMismatchedKey = errors.New("signifyenc: signature key number does not match public key")

	// ErrInvalidSignature is returned when the Ed25519 check fails.
	ErrInvalidSignature = errors.New("signifyenc: invalid signature")
)

// PublicKey is a signify public key.
type PublicKey struct {
	keyNum [keyNumSize]byte
	key    ed25519.PublicKey
}

// Raw returns the raw Ed25519 public key bytes.
func (k *PublicKey) Raw() []byte {
	raw := make([]byte, ed25519.PublicKeySize)
	copy(raw, k.key)
	return raw
}

// Verify checks sig over msg. It fails with ErrMismatchedKey when sig
// was produced by a different key pair, and with ErrInvalidSignature
// when the cryptographic check fails.
func (k *PublicKey) Verify(msg []byte, sig *Signature) error {
	if k.keyNum != sig.keyNum {
		return ErrMismatchedKey
	}
	if !ed25519.Verify(k.key, msg, sig.sig[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// MarshalText encodes the key in the signify file format.
func (k *PublicKey) MarshalText() ([]byte, error) {
	raw := make([]byte, 0, rawPublicSize)
	raw = append(raw, algoEd25519...)
	raw = append(raw, k.keyNum[:]...)
	raw = append(raw, k.key...)
	return marshalFile("signify public key", raw), nil
}

// PrivateKey is a decrypted signify secret key, ready for signing.
type PrivateKey struct {
	keyNum [keyNumSize]byte
	key    ed25519.PrivateKey
}

// Public returns the public half of the key pair.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{
		keyNum: k.keyNum,
		key:    k.key.Public().(ed25519.PublicKey),
	}
}

// Sign signs msg. Ed25519 signatures are deterministic: the same key
// and message always produce the same signature.
func (k *PrivateKey) Sign(msg []byte) *Signature {
	sig := Signature{keyNum: k.keyNum}
	copy(sig.sig[:], ed25519.Sign(k.key, msg))
	return &sig
}

// Wipe zeroes the secret key material.
func (k *PrivateKey) Wipe() {
	for i := range k.key {
		k.key[i] = 0
	}
}

// EncodedPrivateKey is a parsed but not yet decrypted secret key.
type EncodedPrivateKey struct {
	kdfRounds uint32
	salt      [saltSize]byte
	checksum  [checksumSize]byte
	keyNum    [keyNumSize]byte
	body      [ed25519.PrivateKeySize]byte
}

// Encrypted reports whether decryption requires a passphrase.
func (k *EncodedPrivateKey) Encrypted() bool {
	return k.kdfRounds != 0
}

// Decrypt recovers the signing key. The passphrase may be nil for
// unencrypted keys. The intermediate key stream and the passphrase are
// not retained.
func (k *EncodedPrivateKey) Decrypt(passphrase []byte) (*PrivateKey, error) {
	key := make([]byte, ed25519.PrivateKeySize)
	copy(key, k.body[:])

	if k.Encrypted() {
		xor, err := bcrypt_pbkdf.Key(passphrase, k.salt[:], int(k.kdfRounds), ed25519.PrivateKeySize)
		if err != nil {
			wipe(key)
			return nil, fmt.Errorf("signifyenc: bcrypt_pbkdf: %w", err)
		}
		for i := range key {
			key[i] ^= xor[i]
		}
		wipe(xor)
	}

	digest := sha512.Sum512(key)
	if subtle.ConstantTimeCompare(digest[:checksumSize], k.checksum[:]) != 1 {
		wipe(key)
		return nil, ErrDecryptionFailed
	}

	return &PrivateKey{keyNum: k.keyNum, key: ed25519.PrivateKey(key)}, nil
}

// Signature is a signify signature.
type Signature struct {
	keyNum [keyNumSize]byte
	sig    [ed25519.SignatureSize]byte
}

// MarshalText encodes the signature in the two-line signify file format.
func (s *Signature) MarshalText() ([]byte, error) {
	return marshalFile("signature from git-signify secret key", s.raw()), nil
}

func (s *Signature) raw() []byte {
	raw := make([]byte, 0, rawSigSize)
	raw = append(raw, algoEd25519...)
	raw = append(raw, s.keyNum[:]...)
	raw = append(raw, s.sig[:]...)
	return raw
}

// GenerateKey creates a new signify key pair.
func GenerateKey() (*PublicKey, *PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	var keyNum [keyNumSize]byte
	if _, err := rand.Read(keyNum[:]); err != nil {
		return nil, nil, err
	}
	return &PublicKey{keyNum: keyNum, key: pub},
		&PrivateKey{keyNum: keyNum, key: priv}, nil
}

// ParsePublicKey decodes a public key from the signify file format.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	raw, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if len(raw) != rawPublicSize {
		return nil, fmt.Errorf("%w: got %d raw bytes, want %d", ErrMalformedKey, len(raw), rawPublicSize)
	}
	if string(raw[:2]) != algoEd25519 {
		return nil, ErrUnknownAlgorithm
	}

	k := PublicKey{key: make([]byte, ed25519.PublicKeySize)}
	copy(k.keyNum[:], raw[2:2+keyNumSize])
	copy(k.key, raw[2+keyNumSize:])
	return &k, nil
}

// ParsePrivateKey decodes a secret key from the signify file format.
// The result still has to be decrypted before it can sign.
func ParsePrivateKey(data []byte) (*EncodedPrivateKey, error) {
	raw, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if len(raw) != rawSecretSize {
		return nil, fmt.Errorf("%w: got %d raw bytes, want %d", ErrMalformedKey, len(raw), rawSecretSize)
	}
	if string(raw[:2]) != algoEd25519 {
		return nil, ErrUnknownAlgorithm
	}
	if string(raw[2:4]) != kdfBcrypt {
		return nil, fmt.Errorf("%w: unknown KDF %q", ErrMalformedKey, raw[2:4])
	}

	var k EncodedPrivateKey
	raw = raw[4:]
	k.kdfRounds = binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	raw = raw[copy(k.salt[:], raw):]
	raw = raw[copy(k.checksum[:], raw):]
	raw = raw[copy(k.keyNum[:], raw):]
	copy(k.body[:], raw)
	return &k, nil
}

// ParseSignature decodes a signature from the two-line file format.
func ParseSignature(data []byte) (*Signature, error) {
	raw, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	return ParseRawSignature(raw)
}

// ParseRawSignature decodes a signature from its raw binary framing,
// without the comment line or base64 wrapping.
func ParseRawSignature(raw []byte) (*Signature, error) {
	if len(raw) != rawSigSize {
		return nil, fmt.Errorf("%w: got %d raw bytes, want %d", ErrMalformedSignature, len(raw), rawSigSize)
	}
	if string(raw[:2]) != algoEd25519 {
		return nil, ErrUnknownAlgorithm
	}

	var s Signature
	copy(s.keyNum[:], raw[2:2+keyNumSize])
	copy(s.sig[:], raw[2+keyNumSize:])
	return &s, nil
}

// MarshalPrivateKey encodes a secret key in the signify file format,
// encrypting it with the given passphrase unless it is empty.
func MarshalPrivateKey(k *PrivateKey, passphrase []byte) ([]byte, error) {
	var (
		rounds uint32
		salt   [saltSize]byte
	)
	if len(passphrase) > 0 {
		rounds = defaultKDFRounds
		if _, err := rand.Read(salt[:]); err != nil {
			return nil, err
		}
	}

	digest := sha512.Sum512(k.key)

	body := make([]byte, ed25519.PrivateKeySize)
	copy(body, k.key)
	if rounds != 0 {
		xor, err := bcrypt_pbkdf.Key(passphrase, salt[:], int(rounds), ed25519.PrivateKeySize)
		if err != nil {
			return nil, fmt.Errorf("signifyenc: bcrypt_pbkdf: %w", err)
		}
		for i := range body {
			body[i] ^= xor[i]
		}
		wipe(xor)
	}

	raw := make([]byte, 0, rawSecretSize)
	raw = append(raw, algoEd25519...)
	raw = append(raw, kdfBcrypt...)
	raw = binary.BigEndian.AppendUint32(raw, rounds)
	raw = append(raw, salt[:]...)
	raw = append(raw, digest[:checksumSize]...)
	raw = append(raw, k.keyNum[:]...)
	raw = append(raw, body...)
	return marshalFile("signify secret key", raw), nil
}

func marshalFile(comment string, raw []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(CommentHeader)
	buf.WriteString(comment)
	buf.WriteByte('\n')
	buf.WriteString(base64.StdEncoding.EncodeToString(raw))
	buf.WriteByte('\n')
	return buf.Bytes()
}

// decodeFile splits the two-line file format and decodes the base64
// payload from the second line.
func decodeFile(data []byte) ([]byte, error) {
	comment, rest, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, errors.New("missing comment line")
	}
	if !bytes.HasPrefix(comment, []byte(CommentHeader)) {
		return nil, fmt.Errorf("first line does not start with %q", CommentHeader)
	}
	payload, _, _ := bytes.Cut(rest, []byte{'\n'})

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, bytes.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	return raw[:n], nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
