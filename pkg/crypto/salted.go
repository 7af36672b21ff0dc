package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultSalt is used when no salt is configured.
const DefaultSalt = "!@#$%^&*"

// SaltedCodec stores base64(salt + base64(secret)). It hides passwords from casual
// inspection and keeps the stored format readable by other schedulers sharing the
// datasource table; it is not encryption.
type SaltedCodec struct {
	salt string
}

// NewSaltedCodec creates a codec with the given salt, falling back to DefaultSalt.
func NewSaltedCodec(salt string) *SaltedCodec {
	if salt == "" {
		salt = DefaultSalt
	}
	return &SaltedCodec{salt: salt}
}

// Encode implements SecretCodec.
func (c *SaltedCodec) Encode(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	inner := base64.StdEncoding.EncodeToString([]byte(secret))
	return base64.StdEncoding.EncodeToString([]byte(c.salt + inner)), nil
}

// Decode implements SecretCodec.
func (c *SaltedCodec) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	outer, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}
	inner, ok := strings.CutPrefix(string(outer), c.salt)
	if !ok {
		return "", fmt.Errorf("%w: salt mismatch", ErrDecryptionFailed)
	}
	plain, err := base64.StdEncoding.DecodeString(inner)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}
	return string(plain), nil
}

var _ SecretCodec = (*SaltedCodec)(nil)
