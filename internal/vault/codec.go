// Package vault implements authenticated encryption for credential bundles at
// rest. Blobs are AES-256-GCM sealed and encoded as three colon-separated hex
// fields, nonce:tag:ciphertext. The format is the only externally durable
// artifact and must stay stable for existing stored records.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

const (
	// KeySize is the required master key length in bytes.
	KeySize = 32

	nonceSize = 12
	tagSize   = 16
)

// Codec seals and opens credential blobs under a single process-wide master key.
type Codec struct {
	aead cipher.AEAD
}

// New creates a codec from a hex-encoded 256-bit master key. Malformed or
// wrong-length keys are rejected so startup fails before any blob is written.
func New(masterKeyHex string) (*Codec, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext under the master key with a fresh random 96-bit
// nonce. Two calls with identical plaintext produce different blobs.
func (c *Codec) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	// Go appends the tag to the ciphertext; the stored format keeps the tag as
	// its own field, so split it back out.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(nonce) + ":" +
		hex.EncodeToString(tag) + ":" +
		hex.EncodeToString(ciphertext), nil
}

// Open decrypts a blob previously produced by Seal. Any parse failure or tag
// mismatch yields an integrity error and no plaintext.
func (c *Codec) Open(blob string) ([]byte, error) {
	fields := strings.Split(blob, ":")
	if len(fields) != 3 {
		return nil, domain.ErrIntegrity(fmt.Errorf("expected 3 blob fields, got %d", len(fields)))
	}

	nonce, err := hex.DecodeString(fields[0])
	if err != nil {
		return nil, domain.ErrIntegrity(fmt.Errorf("nonce field is not valid hex: %w", err))
	}
	if len(nonce) != nonceSize {
		return nil, domain.ErrIntegrity(fmt.Errorf("nonce must be %d bytes, got %d", nonceSize, len(nonce)))
	}

	tag, err := hex.DecodeString(fields[1])
	if err != nil {
		return nil, domain.ErrIntegrity(fmt.Errorf("tag field is not valid hex: %w", err))
	}
	if len(tag) != tagSize {
		return nil, domain.ErrIntegrity(fmt.Errorf("tag must be %d bytes, got %d", tagSize, len(tag)))
	}

	ciphertext, err := hex.DecodeString(fields[2])
	if err != nil {
		return nil, domain.ErrIntegrity(fmt.Errorf("ciphertext field is not valid hex: %w", err))
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, domain.ErrIntegrity(err)
	}

	return plaintext, nil
}
