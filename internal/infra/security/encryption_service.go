// Package security seals log explanations and cached lists at rest.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// EncryptionService is AES-GCM with a fresh random nonce per message.
// Every sealed value is bound to an owner string (for example
// "user_id/chat_id"); opening it under another owner fails.
type EncryptionService struct {
	gcm cipher.AEAD
}

// NewEncryptionService builds the service from a 16, 24 or 32 byte key.
func NewEncryptionService(key string) (*EncryptionService, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm}, nil
}

// LogOwner is the binding used for a stored log.
func LogOwner(userID, chatID string) string { return userID + "/" + chatID }

// Encrypt seals plaintext for owner and returns base64(nonce || ciphertext).
func (e *EncryptionService) Encrypt(plaintext, owner string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(owner))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *EncryptionService) Decrypt(sealed, owner string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := e.gcm.NonceSize()
	if len(raw) < ns {
		return "", ErrCiphertextTooShort
	}
	pt, err := e.gcm.Open(nil, raw[:ns], raw[ns:], []byte(owner))
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}
