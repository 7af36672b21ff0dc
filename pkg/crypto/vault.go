package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// DefaultVaultTimeout bounds each transit call.
const DefaultVaultTimeout = 5 * time.Second

// VaultTransitCodec delegates encryption to a Vault transit key. The key must be
// created with convergent_encryption=true and derived=true; with a fixed derivation
// context Vault then returns the same ciphertext for the same password.
type VaultTransitCodec struct {
	client  *vault.Client
	mount   string
	key     string
	context string
	timeout time.Duration
}

// NewVaultTransitCodec creates a codec for the transit key at mount/key.
func NewVaultTransitCodec(client *vault.Client, mount, key, derivationContext string) (*VaultTransitCodec, error) {
	if key == "" {
		return nil, fmt.Errorf("vault transit key name is required")
	}
	if derivationContext == "" {
		return nil, fmt.Errorf("vault transit derivation context is required for convergent encryption")
	}
	if mount == "" {
		mount = "transit"
	}
	return &VaultTransitCodec{
		client:  client,
		mount:   mount,
		key:     key,
		context: base64.StdEncoding.EncodeToString([]byte(derivationContext)),
		timeout: DefaultVaultTimeout,
	}, nil
}

// Encode implements SecretCodec.
func (c *VaultTransitCodec) Encode(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Logical().WriteWithContext(ctx, fmt.Sprintf("%s/encrypt/%s", c.mount, c.key), map[string]any{
		"plaintext": base64.StdEncoding.EncodeToString([]byte(secret)),
		"context":   c.context,
	})
	if err != nil {
		return "", fmt.Errorf("vault transit encrypt: %w", err)
	}
	if resp == nil || resp.Data == nil {
		return "", fmt.Errorf("vault transit encrypt: empty response")
	}
	ciphertext, ok := resp.Data["ciphertext"].(string)
	if !ok || ciphertext == "" {
		return "", fmt.Errorf("vault transit encrypt: response has no ciphertext")
	}
	return ciphertext, nil
}

// Decode implements SecretCodec.
func (c *VaultTransitCodec) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.client.Logical().WriteWithContext(ctx, fmt.Sprintf("%s/decrypt/%s", c.mount, c.key), map[string]any{
		"ciphertext": encoded,
		"context":    c.context,
	})
	if err != nil {
		return "", fmt.Errorf("%w: vault transit decrypt: %v", ErrDecryptionFailed, err)
	}
	if resp == nil || resp.Data == nil {
		return "", fmt.Errorf("%w: vault transit decrypt: empty response", ErrDecryptionFailed)
	}
	plaintext, ok := resp.Data["plaintext"].(string)
	if !ok {
		return "", fmt.Errorf("%w: vault transit decrypt: response has no plaintext", ErrDecryptionFailed)
	}
	raw, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}
	return string(raw), nil
}

var _ SecretCodec = (*VaultTransitCodec)(nil)
