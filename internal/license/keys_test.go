package license

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, kp.Public, ed25519.PublicKeySize)
	assert.Len(t, kp.Private, ed25519.PrivateKeySize)

	token, err := Issue(kp.Private, Claims{ValidFrom: 1, ValidTo: ^uint64(0), Accounts: 10, Domain: "example.com"})
	require.NoError(t, err)
	_, err = Verify(kp.Public, token, time.Unix(1700000000, 0))
	assert.NoError(t, err)
}

func TestGenerateKeyPairFromIsDeterministic(t *testing.T) {
	a, err := GenerateKeyPairFrom(bytes.NewReader(bytes.Repeat([]byte{0x5a}, ed25519.SeedSize)))
	require.NoError(t, err)
	b, err := GenerateKeyPairFrom(bytes.NewReader(bytes.Repeat([]byte{0x5a}, ed25519.SeedSize)))
	require.NoError(t, err)

	assert.Equal(t, a.Private, b.Private)
	assert.Equal(t, a.Public, b.Public)
}

func TestGenerateKeyPairEntropyFailure(t *testing.T) {
	_, err := GenerateKeyPairFrom(failingReader{})
	assert.ErrorIs(t, err, ErrKeyGenFailed)
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	der, err := kp.MarshalPrivate()
	require.NoError(t, err)

	loaded, err := LoadPrivateKey(der)
	require.NoError(t, err)
	assert.Equal(t, kp.Private, loaded.Private)
	assert.Equal(t, kp.PublicBytes(), loaded.PublicBytes())

	// A token signed by the reloaded key verifies under the original public
	// key.
	token, err := Issue(loaded.Private, Claims{ValidFrom: 1, ValidTo: ^uint64(0), Accounts: 2, Domain: "example.com"})
	require.NoError(t, err)
	_, err = Verify(kp.Public, token, time.Unix(1700000000, 0))
	assert.NoError(t, err)
}

func TestLoadPrivateKeyRejectsBadMaterial(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	valid, err := GenerateKeyPair()
	require.NoError(t, err)
	validDER, err := valid.MarshalPrivate()
	require.NoError(t, err)

	tests := []struct {
		name string
		der  []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a key at all")},
		{"truncated", validDER[:len(validDER)/2]},
		{"wrong algorithm", ecDER},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrivateKey(tt.der)
			assert.ErrorIs(t, err, ErrInvalidKeyMaterial)
		})
	}
}

func TestMarshalPrivateRejectsBrokenKey(t *testing.T) {
	kp := KeyPair{Private: make(ed25519.PrivateKey, 5)}
	_, err := kp.MarshalPrivate()
	assert.ErrorIs(t, err, ErrInvalidKeyMaterial)
}

func TestZeroWipesPrivateKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	held := kp.Private
	kp.Zero()

	assert.Nil(t, kp.Private)
	assert.Equal(t, bytes.Repeat([]byte{0}, ed25519.PrivateKeySize), []byte(held))
}

func TestPublicBytesIsACopy(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	pub := kp.PublicBytes()
	pub[0] ^= 0xff
	assert.NotEqual(t, pub[0], kp.Public[0])
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}
