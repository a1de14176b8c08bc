package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	signKeyInfo = "pokedex-token-signing"
	sealKeyInfo = "pokedex-token-sealing"
)

var errInvalidEnvelope = errors.New("invalid token envelope")

func deriveKey(secret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal wraps a signed JWT as base64url(nonce || AES-GCM ciphertext).
func (s *Service) seal(signed string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(signed), []byte(Issuer))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Service) open(raw string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", errInvalidEnvelope
	}
	ns := s.aead.NonceSize()
	if len(data) <= ns {
		return "", errInvalidEnvelope
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], []byte(Issuer))
	if err != nil {
		return "", errInvalidEnvelope
	}
	return string(plain), nil
}
