// Package sealer encrypts message payloads at rest.
//
// Ciphertexts are encoded as base64(nonce) ":" base64(tag) ":" base64(data).
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	CipherAESGCM  = "aes-256-gcm"
	CipherXChaCha = "xchacha20-poly1305"

	KeySize = 32

	// DevelopmentKey is used when no key is configured outside production.
	DevelopmentKey = "0123456789abcdef0123456789abcdef"
)

var (
	ErrInvalidFormat = errors.New("invalid encrypted text format")
	ErrInvalidKey    = errors.New("encryption key must be 32 bytes (64 hex characters or 32-byte UTF-8 string)")

	hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type aeadSealer struct {
	aead cipher.AEAD
}

// New builds a Sealer for the named cipher. An empty name selects AES-256-GCM.
func New(cipherName string, key []byte) (Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch strings.ToLower(cipherName) {
	case "", CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherXChaCha:
		aead, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("unsupported cipher %q", cipherName)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cipherName, err)
	}

	return &aeadSealer{aead: aead}, nil
}

// ParseKey accepts a 64-character hex string or a 32-byte UTF-8 string.
func ParseKey(raw string) ([]byte, error) {
	if hexKeyPattern.MatchString(raw) {
		return hex.DecodeString(raw)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(raw))
	}
	return []byte(raw), nil
}

func (s *aeadSealer) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - s.aead.Overhead()
	data, tag := sealed[:tagStart], sealed[tagStart:]

	enc := base64.StdEncoding
	return enc.EncodeToString(nonce) + ":" + enc.EncodeToString(tag) + ":" + enc.EncodeToString(data), nil
}

func (s *aeadSealer) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", ErrInvalidFormat
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return "", ErrInvalidFormat
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil || len(tag) != s.aead.Overhead() {
		return "", ErrInvalidFormat
	}
	data, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidFormat
	}

	plain, err := s.aead.Open(nil, nonce, append(data, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
