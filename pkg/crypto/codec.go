// Package crypto provides the codecs that protect datasource passwords at rest.
package crypto

import (
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when decoding fails due to invalid input or wrong key material.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// SecretCodec encodes passwords for storage and decodes them when a live
// connection is opened. Encode must be deterministic for a fixed secret and
// fixed key material. Empty input is returned unchanged by every codec.
type SecretCodec interface {
	Encode(secret string) (string, error)
	Decode(encoded string) (string, error)
}

// Codec names accepted by NewCodec.
const (
	CodecSalted = "salted"
	CodecAES    = "aes"
	CodecVault  = "vault"
)

// CodecOptions carries the key material for every codec kind. Only the fields
// used by the selected kind are read.
type CodecOptions struct {
	Salt         string
	Key          string
	Vault        *vault.Client
	VaultMount   string
	VaultKey     string
	VaultContext string
}

// NewCodec returns the codec registered under kind.
func NewCodec(kind string, opts CodecOptions) (SecretCodec, error) {
	switch kind {
	case "", CodecSalted:
		return NewSaltedCodec(opts.Salt), nil
	case CodecAES:
		return NewCredentialEncryptor(opts.Key)
	case CodecVault:
		if opts.Vault == nil {
			return nil, fmt.Errorf("vault codec requires a vault client")
		}
		return NewVaultTransitCodec(opts.Vault, opts.VaultMount, opts.VaultKey, opts.VaultContext)
	default:
		return nil, fmt.Errorf("unknown secret codec: %q", kind)
	}
}
