// Package envcrypto implements the password-based payload envelope:
// PBKDF2-HMAC-SHA256 key derivation (600,000 iterations, 16-byte salt,
// 32-byte key) feeding AES-256-GCM with a fresh 12-byte nonce per
// encryption. Decrypt collapses every failure mode — wrong password,
// truncated input, tampered ciphertext — into a single error so callers
// cannot distinguish authentication failure from tampering.
package envcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	"github.com/capsulenv/capsulenv/internal/cerr"
)

const (
	SaltSize       = 16
	NonceSize      = 12
	KeySize        = 32
	PBKDF2Iterations = 600_000
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt derives a key from password and a fresh random salt, then
// seals plaintext with AES-256-GCM under a fresh random nonce. Returns
// salt || nonce || ciphertext.
func Encrypt(password string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, cerr.CouldNotEncryptFile()
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, cerr.CouldNotEncryptFile()
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cerr.CouldNotEncryptFile()
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.CouldNotEncryptFile()
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, SaltSize+NonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt parses salt || nonce || ciphertext and opens it with the key
// derived from password. Any failure — bad password, truncated input,
// or tampered ciphertext — surfaces as cerr.InvalidPassword, never a
// more specific diagnosis.
func Decrypt(password string, sealed []byte) ([]byte, error) {
	if len(sealed) < SaltSize+NonceSize {
		return nil, cerr.InvalidPassword()
	}
	salt := sealed[:SaltSize]
	nonce := sealed[SaltSize : SaltSize+NonceSize]
	ciphertext := sealed[SaltSize+NonceSize:]

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cerr.InvalidPassword()
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.InvalidPassword()
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cerr.InvalidPassword()
	}
	return plaintext, nil
}
