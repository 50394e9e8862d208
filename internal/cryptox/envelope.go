// Package cryptox implements the authenticated encryption envelope that
// keeps secret payloads and passphrases unreadable at rest. Values are
// sealed with AES-GCM under a single process-wide key and stored as
// unpadded base64url of nonce||ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/0101Programmer/one-time-secrets/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length expected by NewEnvelope.
	KeySize = 32

	nonceSize = 12
)

// DeriveKey stretches configured key material into a KeySize-byte AES key
// using argon2id. The same material and salt always produce the same key,
// so a restarted process can open previously sealed values.
func DeriveKey(material, salt []byte) []byte {
	return argon2.IDKey(material, salt, 1, 64*1024, 4, KeySize)
}

// Envelope seals and opens short text values under one process-wide key.
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope constructs an Envelope from a KeySize-byte key,
// typically produced by DeriveKey.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("envelope key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Envelope{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce and returns the
// base64url encoding of nonce||ciphertext. The empty string is a valid
// plaintext and seals to a non-empty value.
func (e *Envelope) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Tampered or corrupted input
// fails with common.ErrDecryption; such a failure is an internal fault,
// never a caller error.
func (e *Envelope) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}
	plaintext, err := e.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return string(plaintext), nil
}

// SealOptional maps an absent value to an absent ciphertext. A nil input
// stays nil; it is never conflated with an empty-string encryption.
func (e *Envelope) SealOptional(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	sealed, err := e.Seal(*plaintext)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

// OpenOptional is the inverse of SealOptional: nil in, nil out.
func (e *Envelope) OpenOptional(sealed *string) (*string, error) {
	if sealed == nil {
		return nil, nil
	}
	plaintext, err := e.Open(*sealed)
	if err != nil {
		return nil, err
	}
	return &plaintext, nil
}
