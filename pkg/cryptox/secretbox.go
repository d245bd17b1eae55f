package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Envelope format for encrypted secrets at rest:
//
//	base64(iv):base64(tag):base64(ciphertext)
//
// AES-256-GCM with a fresh random IV per call. The tag is split out of the
// sealed output so the stored shape is self-describing and tamper checks are
// explicit at decrypt time.

var (
	// ErrCipherFormat reports an envelope that is not three colon-joined
	// base64 parts with a non-empty iv and tag. The ciphertext part may be
	// empty: GCM of an empty plaintext is just the tag.
	ErrCipherFormat = errors.New("cryptox: invalid ciphertext envelope")

	// ErrCipherAuth reports a failed authentication tag. Wrong key,
	// tampering, and corruption are deliberately indistinguishable.
	ErrCipherAuth = errors.New("cryptox: ciphertext authentication failed")
)

// SecretKeySize is the required key length for EncryptSecret/DecryptSecret.
const SecretKeySize = 32

// EncryptSecret seals plaintext under key and returns the envelope string.
// The key must be exactly SecretKeySize bytes; this package never derives or
// stores keys itself.
func EncryptSecret(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate iv: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; peel it off so the
	// envelope carries the three parts separately.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagAt := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagAt], sealed[tagAt:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, ":"), nil
}

// DecryptSecret opens an envelope produced by EncryptSecret. It fails with
// ErrCipherFormat unless the envelope has exactly three parts with a
// non-empty iv and tag, and ErrCipherAuth when the tag does not verify. It
// never returns partial plaintext.
func DecryptSecret(envelope string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", ErrCipherFormat
	}
	if parts[0] == "" || parts[1] == "" {
		return "", ErrCipherFormat
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrCipherFormat
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrCipherFormat
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrCipherFormat
	}
	if len(iv) != gcm.NonceSize() {
		return "", ErrCipherFormat
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrCipherAuth
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SecretKeySize {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", SecretKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}
	return gcm, nil
}
