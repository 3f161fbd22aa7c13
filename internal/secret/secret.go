// Package secret seals small blobs with per-owner symmetric keys.
//
// Keys and sealed payloads are base64 (std encoding) strings so they can be
// stored in text columns. A sealed payload is nonce || secretbox(plaintext).
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrInvalidKey = errors.New("invalid encryption key")
	ErrDecrypt    = errors.New("decryption failed")
)

// GenerateKey returns a fresh random key.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", fmt.Errorf("read random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func Seal(key string, plaintext []byte) (string, error) {
	k, err := decodeKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	out := secretbox.Seal(nonce[:], plaintext, &nonce, k)
	return base64.StdEncoding.EncodeToString(out), nil
}

func Open(key string, sealed string) ([]byte, error) {
	k, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: payload too short", ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, k)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func decodeKey(key string) (*[keySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	var k [keySize]byte
	copy(k[:], raw)
	return &k, nil
}
