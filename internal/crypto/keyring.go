package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrKeyNotFound    = errors.New("key not found in keyring")
	ErrActiveKeyUnset = errors.New("active master key identifier not set or found")
	ErrMalformedValue = errors.New("malformed sealed value")
)

// SealedPrefix marks a column value produced by Keyring.Seal.
const SealedPrefix = "enc:v1:"

type MasterKey struct {
	KID      string `json:"kid"`
	Material string `json:"material"` // Base64
}

type Keyring struct {
	keys      map[string][]byte
	activeKID string
}

func NewKeyring() *Keyring {
	return &Keyring{
		keys: make(map[string][]byte),
	}
}

// LoadFromEnv loads MASTER_KEYS (JSON) and ACTIVE_MASTER_KID from the environment.
func (k *Keyring) LoadFromEnv() error {
	keysJSON := os.Getenv("MASTER_KEYS")
	activeKID := os.Getenv("ACTIVE_MASTER_KID")

	if keysJSON == "" {
		return errors.New("MASTER_KEYS environment variable is empty")
	}
	if activeKID == "" {
		return errors.New("ACTIVE_MASTER_KID environment variable is empty")
	}

	var rawKeys []MasterKey
	if err := json.Unmarshal([]byte(keysJSON), &rawKeys); err != nil {
		return fmt.Errorf("failed to parse MASTER_KEYS: %w", err)
	}
	return k.Load(rawKeys, activeKID)
}

// Load replaces the keyring contents. Every key must be 32 bytes and the active KID must exist.
func (k *Keyring) Load(rawKeys []MasterKey, activeKID string) error {
	keys := make(map[string][]byte, len(rawKeys))
	for _, rk := range rawKeys {
		if rk.KID == "" {
			return errors.New("found master key with empty KID")
		}
		if strings.Contains(rk.KID, ":") {
			return fmt.Errorf("master key KID %q must not contain ':'", rk.KID)
		}
		if _, exists := keys[rk.KID]; exists {
			return fmt.Errorf("duplicate master key KID: %s", rk.KID)
		}

		decoded, err := base64.StdEncoding.DecodeString(rk.Material)
		if err != nil {
			return fmt.Errorf("invalid base64 for key %s: %w", rk.KID, err)
		}
		if len(decoded) != KeySize {
			return fmt.Errorf("invalid key length for %s: expected 32 bytes (AES-256), got %d", rk.KID, len(decoded))
		}
		keys[rk.KID] = decoded
	}

	if _, ok := keys[activeKID]; !ok {
		return fmt.Errorf("active key %s not found in MASTER_KEYS", activeKID)
	}
	k.keys = keys
	k.activeKID = activeKID
	return nil
}

// IsSealed reports whether a stored value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Seal encrypts a column value with the active master key.
// Format: enc:v1:<kid>:<base64(nonce|ciphertext|tag)>. Empty input stays empty.
func (k *Keyring) Seal(plaintext string, aad []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, ok := k.keys[k.activeKID]
	if k.activeKID == "" || !ok {
		return "", ErrActiveKeyUnset
	}

	blob, err := SealBlob(key, []byte(plaintext), aad)
	if err != nil {
		return "", err
	}

	return SealedPrefix + k.activeKID + ":" + base64.StdEncoding.EncodeToString(blob), nil
}

// Open reverses Seal. Values without the sealed prefix are returned unchanged.
func (k *Keyring) Open(value string, aad []byte) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	kid, encoded, found := strings.Cut(strings.TrimPrefix(value, SealedPrefix), ":")
	if !found || kid == "" {
		return "", ErrMalformedValue
	}
	key, ok := k.keys[kid]
	if !ok {
		return "", ErrKeyNotFound
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedValue
	}
	plaintext, err := OpenBlob(key, blob, aad)
	if errors.Is(err, ErrShortBlob) {
		return "", ErrMalformedValue
	}
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
