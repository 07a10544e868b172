package keys

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"aead.dev/minisign"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sug0/git-signify/keys/signifyenc"
)

// PassphraseFunc supplies the passphrase protecting an encrypted secret
// key. The returned bytes are zeroed by the loader once decryption is
// done. Interactive callers typically wire a no-echo terminal prompt
// here; non-interactive callers must substitute their own source.
type PassphraseFunc func() ([]byte, error)

// ErrPassphraseRequired is returned when a secret key is encrypted and
// no PassphraseFunc was provided.
var ErrPassphraseRequired = errors.New("keys: secret key is encrypted and no passphrase source was given")

// PublicKeyEntry pairs a loaded public key with the path it came from.
type PublicKeyEntry struct {
	Path string
	Key  *PublicKey
}

// PrivateKeyEntry pairs a loaded private key with the path it came from.
type PrivateKeyEntry struct {
	Path string
	Key  *PrivateKey
}

// LoadPublicKey decodes a public key, dispatching on the format token
// of the untrusted comment line.
func LoadPublicKey(data []byte) (*PublicKey, error) {
	algo, err := detectAlgorithm(data)
	if err != nil {
		return nil, err
	}

	switch algo {
	case AlgorithmSignify:
		key, err := signifyenc.ParsePublicKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
		}
		return NewSignifyPublicKey(key), nil
	default: // AlgorithmMinisign
		var key minisign.PublicKey
		if err := key.UnmarshalText(stripComment(data)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
		}
		return NewMinisignPublicKey(key), nil
	}
}

// LoadPrivateKey decodes a secret key, dispatching on the format token
// of the untrusted comment line. Encrypted keys are decrypted with a
// passphrase obtained from prompt; a wrong passphrase fails with
// ErrDecryptionFailed and is not retried.
func LoadPrivateKey(data []byte, prompt PassphraseFunc) (*PrivateKey, error) {
	algo, err := detectAlgorithm(data)
	if err != nil {
		return nil, err
	}

	switch algo {
	case AlgorithmSignify:
		enc, err := signifyenc.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
		}

		var passphrase []byte
		if enc.Encrypted() {
			if passphrase, err = acquirePassphrase(prompt); err != nil {
				return nil, err
			}
			defer wipe(passphrase)
		}

		key, err := enc.Decrypt(passphrase)
		if err != nil {
			if errors.Is(err, signifyenc.ErrDecryptionFailed) {
				return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
		}
		return NewSignifyPrivateKey(key), nil
	default: // AlgorithmMinisign
		if minisign.IsEncrypted(data) {
			passphrase, err := acquirePassphrase(prompt)
			if err != nil {
				return nil, err
			}
			key, err := minisign.DecryptKey(string(passphrase), data)
			wipe(passphrase)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
			}
			return NewMinisignPrivateKey(key), nil
		}

		var key minisign.PrivateKey
		if err := key.UnmarshalText(data); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
		}
		return NewMinisignPrivateKey(key), nil
	}
}

// LoadPublicKeys resolves path to an ordered set of public keys. A
// directory is filtered by the .pub extension; a single file is loaded
// as-is. Entries are sorted by path for deterministic iteration.
func LoadPublicKeys(fs billy.Filesystem, path string) ([]PublicKeyEntry, error) {
	entries, err := loadKeyEntries(fs, path, ".pub", func(data []byte) (*PublicKey, error) {
		return LoadPublicKey(data)
	})
	if err != nil {
		return nil, err
	}

	out := make([]PublicKeyEntry, len(entries))
	for i, e := range entries {
		out[i] = PublicKeyEntry{Path: e.path, Key: e.key}
	}
	return out, nil
}

// LoadPrivateKeys resolves path to an ordered set of secret keys. A
// directory is filtered by the .sec extension; a single file is loaded
// as-is. Entries are sorted by path for deterministic iteration.
func LoadPrivateKeys(fs billy.Filesystem, path string, prompt PassphraseFunc) ([]PrivateKeyEntry, error) {
	entries, err := loadKeyEntries(fs, path, ".sec", func(data []byte) (*PrivateKey, error) {
		return LoadPrivateKey(data, prompt)
	})
	if err != nil {
		return nil, err
	}

	out := make([]PrivateKeyEntry, len(entries))
	for i, e := range entries {
		out[i] = PrivateKeyEntry{Path: e.path, Key: e.key}
	}
	return out, nil
}

type keyEntry[K any] struct {
	path string
	key  K
}

func loadKeyEntries[K any](fs billy.Filesystem, path, ext string, load func([]byte) (K, error)) ([]keyEntry[K], error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys: stat %s: %w", path, err)
	}

	if !info.IsDir() {
		key, err := loadKeyFile(fs, path, load)
		if err != nil {
			return nil, err
		}
		return []keyEntry[K]{{path: path, key: key}}, nil
	}

	dirents, err := fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read key directory %s: %w", path, err)
	}

	var entries []keyEntry[K]
	for _, ent := range dirents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ext) {
			continue
		}
		name := fs.Join(path, ent.Name())
		key, err := loadKeyFile(fs, name, load)
		if err != nil {
			return nil, err
		}
		entries = append(entries, keyEntry[K]{path: name, key: key})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	return entries, nil
}

func loadKeyFile[K any](fs billy.Filesystem, path string, load func([]byte) (K, error)) (K, error) {
	var zero K
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return zero, fmt.Errorf("keys: read %s: %w", path, err)
	}
	key, err := load(data)
	wipe(data)
	if err != nil {
		return zero, fmt.Errorf("keys: load %s: %w", path, err)
	}
	return key, nil
}

// detectAlgorithm inspects the untrusted comment line. The token right
// after the header selects the decoder, the same way signify and
// minisign tooling label their own key files.
func detectAlgorithm(data []byte) (Algorithm, error) {
	comment, _, ok := bytes.Cut(data, []byte{'\n'})
	if !ok || !bytes.HasPrefix(comment, []byte(signifyenc.CommentHeader)) {
		return 0, ErrUnknownKeyFormat
	}

	switch token := comment[len(signifyenc.CommentHeader):]; {
	case bytes.HasPrefix(token, []byte("signify")):
		return AlgorithmSignify, nil
	case bytes.HasPrefix(token, []byte("minisign")):
		return AlgorithmMinisign, nil
	default:
		return 0, ErrUnknownKeyFormat
	}
}

func acquirePassphrase(prompt PassphraseFunc) ([]byte, error) {
	if prompt == nil {
		return nil, ErrPassphraseRequired
	}
	passphrase, err := prompt()
	if err != nil {
		return nil, fmt.Errorf("keys: read passphrase: %w", err)
	}
	return passphrase, nil
}

// stripComment drops leading untrusted comment lines, leaving the
// base64 payload.
func stripComment(data []byte) []byte {
	for bytes.HasPrefix(data, []byte(signifyenc.CommentHeader)) {
		_, rest, ok := bytes.Cut(data, []byte{'\n'})
		if !ok {
			return nil
		}
		data = rest
	}
	return data
}

func lastNonEmptyLine(data []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(data), []byte{'\n'})
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return line
		}
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
