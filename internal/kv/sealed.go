package kv

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix marks values written by Sealed so plaintext written before
// encryption was enabled can still be read.
const sealedPrefix = "xc1:"

// Sealed encrypts values with XChaCha20-Poly1305 before handing them to the
// wrapped Store. The key is bound as additional data so a value cannot be
// moved to a different key undetected.
type Sealed struct {
	next Store
	aead cipher.AEAD
}

// NewSealed wraps next with a 32-byte key.
func NewSealed(next Store, key []byte) (*Sealed, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed store: %w", err)
	}
	return &Sealed{next: next, aead: aead}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	raw, found, err := s.next.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	if len(raw) < len(sealedPrefix) || raw[:len(sealedPrefix)] != sealedPrefix {
		return raw, true, nil
	}
	blob, err := base64.StdEncoding.DecodeString(raw[len(sealedPrefix):])
	if err != nil {
		return "", true, fmt.Errorf("sealed store: decode %s: %w", key, err)
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns+s.aead.Overhead() {
		return "", true, errors.New("sealed store: ciphertext too short")
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], []byte(key))
	if err != nil {
		return "", true, fmt.Errorf("sealed store: open %s: %w", key, err)
	}
	return string(plain), true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed store: nonce: %w", err)
	}
	blob := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.next.Set(ctx, key, sealedPrefix+base64.StdEncoding.EncodeToString(blob))
}

func (s *Sealed) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Sealed) Close() error { return s.next.Close() }
