package license

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"io"
)

// KeyPair holds an Ed25519 signing key and its public half. The private key
// stays with the issuing process; the public half is handed to verifiers.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair draws a fresh key pair from crypto/rand.
func GenerateKeyPair() (KeyPair, error) {
	return GenerateKeyPairFrom(rand.Reader)
}

// GenerateKeyPairFrom draws a fresh key pair from the given entropy source.
// Tests pass a deterministic reader to get reproducible keys.
func GenerateKeyPairFrom(random io.Reader) (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(random)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGenFailed, err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// LoadPrivateKey parses a PKCS#8 DER blob produced by MarshalPrivate back
// into a usable key pair.
func LoadPrivateKey(der []byte) (KeyPair, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return KeyPair{}, fmt.Errorf("%w: not an Ed25519 key", ErrInvalidKeyMaterial)
	}
	return KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

// MarshalPrivate serializes the private key as PKCS#8 DER, the container
// format LoadPrivateKey accepts.
func (kp KeyPair) MarshalPrivate() ([]byte, error) {
	if len(kp.Private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKeyMaterial, len(kp.Private), ed25519.PrivateKeySize)
	}
	der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return der, nil
}

// PublicBytes returns the raw 32-byte public key for distribution to
// verifiers. The returned slice is a copy.
func (kp KeyPair) PublicBytes() []byte {
	return append([]byte(nil), kp.Public...)
}

// Zero wipes the private key material. The pair is unusable afterwards.
func (kp *KeyPair) Zero() {
	for i := range kp.Private {
		kp.Private[i] = 0
	}
	kp.Private = nil
}
