package license

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// APIKeyLength is the length of generated API keys. At 32 characters over a
// 62-symbol alphabet an API key carries just over 190 bits of entropy.
const APIKeyLength = 32

const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SecretGenerator produces opaque bearer secrets, independent of any signing
// key. The zero value is not usable; construct with NewSecretGenerator or
// NewSecretGeneratorFrom.
type SecretGenerator struct {
	random io.Reader
}

// NewSecretGenerator returns a generator backed by crypto/rand.
func NewSecretGenerator() *SecretGenerator {
	return &SecretGenerator{random: rand.Reader}
}

// NewSecretGeneratorFrom returns a generator drawing from the given entropy
// source. Tests pass a deterministic reader.
func NewSecretGeneratorFrom(random io.Reader) *SecretGenerator {
	return &SecretGenerator{random: random}
}

// Generate draws length characters uniformly from the alphanumeric alphabet.
// Selection goes through crypto/rand.Int, which rejects and redraws rather
// than folding, so no character is favored.
func (g *SecretGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(secretCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrKeyGenFailed, err)
		}
		b[i] = secretCharset[n.Int64()]
	}
	return string(b), nil
}

// GenerateAPIKey draws a secret of the standard API key length.
func (g *SecretGenerator) GenerateAPIKey() (string, error) {
	return g.Generate(APIKeyLength)
}
