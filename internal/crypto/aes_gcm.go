package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrInvalidKeySize = errors.New("master key must be 32 bytes")
	ErrDecryption     = errors.New("sealed value could not be opened")
	ErrShortBlob      = errors.New("sealed blob too short")
)

// SealBlob encrypts plaintext with AES-256-GCM and returns nonce|ciphertext|tag.
func SealBlob(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, blob); err != nil {
		return nil, err
	}
	return aead.Seal(blob, blob[:NonceSize], plaintext, aad), nil
}

// OpenBlob reverses SealBlob. A wrong key, tampered blob or different aad all yield ErrDecryption.
func OpenBlob(key, blob, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < NonceSize+TagSize {
		return nil, ErrShortBlob
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], aad)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// GenerateKey returns fresh key material for MASTER_KEYS.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
