// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package cache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// encryptedValue is the envelope stored in Redis in place of the plaintext
// value. KeyVersion records which key in the configured key set produced
// Ciphertext, so a rotation window can still decrypt values written under
// the previous key until they naturally expire.
type encryptedValue struct {
	KeyVersion int    `json:"v"`
	Nonce      []byte `json:"n"`
	Ciphertext []byte `json:"c"`
}

// keyring holds the AES-256-GCM ciphers for every configured key, index 0
// being the active write key.
type keyring struct {
	ciphers []cipher.AEAD
}

func newKeyring(hexKeys []string) (*keyring, error) {
	if len(hexKeys) == 0 {
		return nil, fmt.Errorf("cache: at least one encryption key is required")
	}
	kr := &keyring{ciphers: make([]cipher.AEAD, 0, len(hexKeys))}
	for i, hexKey := range hexKeys {
		raw, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("cache: encryption key %d is not valid hex: %w", i, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("cache: encryption key %d must decode to 32 bytes, got %d", i, len(raw))
		}
		block, err := aes.NewCipher(raw)
		if err != nil {
			return nil, fmt.Errorf("cache: encryption key %d: %w", i, err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("cache: encryption key %d: %w", i, err)
		}
		kr.ciphers = append(kr.ciphers, gcm)
	}
	return kr, nil
}

func (k *keyring) seal(plaintext []byte) ([]byte, error) {
	gcm := k.ciphers[0]
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cache: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	env := encryptedValue{KeyVersion: 0, Nonce: nonce, Ciphertext: ciphertext}
	return json.Marshal(env)
}

// open decrypts an envelope using whichever keyring entry matches its
// recorded KeyVersion. Returns an error if that key has been retired.
func (k *keyring) open(stored []byte) ([]byte, error) {
	var env encryptedValue
	if err := json.Unmarshal(stored, &env); err != nil {
		return nil, fmt.Errorf("cache: decode envelope: %w", err)
	}
	if env.KeyVersion < 0 || env.KeyVersion >= len(k.ciphers) {
		return nil, fmt.Errorf("cache: envelope key version %d is not in the active keyring", env.KeyVersion)
	}
	gcm := k.ciphers[env.KeyVersion]
	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: decrypt: %w", err)
	}
	return plaintext, nil
}
