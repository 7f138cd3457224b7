package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	Prefix = "ENC[AES256:"
	Suffix = "]"

	keySize = 32
)

var ErrInvalidFormat = errors.New("invalid encrypted format")

// GenerateKey generates a random 32-byte key and returns it as a hex string.
func GenerateKey() (string, error) {
	bytes := make([]byte, keySize)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// DeriveKey stretches a passphrase into a hex-encoded AES-256 key with scrypt.
// The same passphrase and salt always produce the same key.
func DeriveKey(passphrase, salt string) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase is empty")
	}
	if salt == "" {
		salt = "calswitch"
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(salt), 1<<15, 8, 1, keySize)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext with AES-GCM and returns ENC[AES256:<base64>].
func Encrypt(plaintext, keyHex string) (string, error) {
	gcm, err := newGCM(keyHex)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed) + Suffix, nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(encrypted, keyHex string) (string, error) {
	if !IsEncrypted(encrypted) {
		return "", ErrInvalidFormat
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted[len(Prefix) : len(encrypted)-len(Suffix)])
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}

	gcm, err := newGCM(keyHex)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// Reveal decrypts value when it is encrypted and returns it unchanged otherwise.
func Reveal(value, keyHex string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if keyHex == "" {
		return "", errors.New("value is encrypted but no master key is available")
	}
	return Decrypt(value, keyHex)
}

// IsEncrypted checks if a string follows the encrypted format.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, Prefix) && strings.HasSuffix(s, Suffix)
}

func newGCM(keyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
