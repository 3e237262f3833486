package license

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// SignatureSize is the length in bytes of the detached signature appended to
// the canonical encoding. It is a protocol constant; verifiers split the last
// SignatureSize bytes off the decoded wire token.
const SignatureSize = ed25519.SignatureSize

// Sign produces a detached Ed25519 signature over exactly the bytes passed
// in, with no extra framing. ed25519.Sign panics on a short key, so the key
// length is checked here and reported as ErrSignFailed instead.
func Sign(priv ed25519.PrivateKey, canonical []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrSignFailed, len(priv), ed25519.PrivateKeySize)
	}
	return ed25519.Sign(priv, canonical), nil
}

// Issue builds the wire token for the given claims: canonical encoding,
// detached signature appended, the whole thing base64 encoded with the
// standard padded alphabet. Every license key in the system comes from this
// one path.
func Issue(priv ed25519.PrivateKey, c Claims) (string, error) {
	canonical, err := Encode(c)
	if err != nil {
		return "", err
	}
	sig, err := Sign(priv, canonical)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(append(canonical, sig...)), nil
}
