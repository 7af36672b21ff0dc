package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	encryptionKeyInfo = "ekaya-datasource/password-encryption"
	nonceKeyInfo      = "ekaya-datasource/password-nonce"
)

// CredentialEncryptor provides deterministic AES-256-GCM encryption for datasource
// passwords. The nonce is an HMAC-SHA256 of the plaintext under a separate key, so
// the same password under the same key always yields the same ciphertext and
// Decrypt can verify the nonce it was given.
type CredentialEncryptor struct {
	gcm      cipher.AEAD
	nonceKey []byte
}

// NewCredentialEncryptor creates a new encryptor from a key string.
// The key can be:
//   - A base64-encoded 32-byte key (e.g., from: openssl rand -base64 32)
//   - Any passphrase (will be hashed to 32 bytes with SHA-256)
//
// Encryption and nonce keys are both derived from it with HKDF-SHA256.
func NewCredentialEncryptor(keyInput string) (*CredentialEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var master []byte
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		master = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		master = hash[:]
	}

	encKey, err := deriveKey(master, encryptionKeyInfo)
	if err != nil {
		return nil, err
	}
	nonceKey, err := deriveKey(master, nonceKeyInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CredentialEncryptor{gcm: gcm, nonceKey: nonceKey}, nil
}

func deriveKey(master []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}

func (e *CredentialEncryptor) syntheticNonce(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, e.nonceKey)
	mac.Write(plaintext)
	return mac.Sum(nil)[:e.gcm.NonceSize()]
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext || tag).
// Empty strings are returned as-is (not encrypted).
func (e *CredentialEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := e.syntheticNonce([]byte(plaintext))
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts base64(nonce || ciphertext || tag) and returns plaintext.
// Empty strings are returned as-is (not decrypted).
func (e *CredentialEncryptor) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize+e.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	if !hmac.Equal(nonce, e.syntheticNonce(plaintext)) {
		return "", fmt.Errorf("%w: nonce mismatch", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// Encode implements SecretCodec.
func (e *CredentialEncryptor) Encode(secret string) (string, error) {
	return e.Encrypt(secret)
}

// Decode implements SecretCodec.
func (e *CredentialEncryptor) Decode(encoded string) (string, error) {
	return e.Decrypt(encoded)
}

var _ SecretCodec = (*CredentialEncryptor)(nil)
