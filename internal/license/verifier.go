package license

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"
)

// Verify checks a wire token against the issuer's public key and the given
// instant, and returns the decoded claims on success. The signature is
// always checked before the validity window. Window bounds are inclusive.
func Verify(pub ed25519.PublicKey, token string, now time.Time) (Claims, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < SignatureSize {
		return Claims{}, fmt.Errorf("%w: %d bytes is shorter than the signature", ErrMalformed, len(raw))
	}

	canonical, sig := raw[:len(raw)-SignatureSize], raw[len(raw)-SignatureSize:]
	claims, err := Decode(canonical)
	if err != nil {
		return Claims{}, err
	}

	if len(pub) != ed25519.PublicKeySize || !ed25519.Verify(pub, canonical, sig) {
		return Claims{}, ErrSignatureInvalid
	}

	ts := epochSeconds(now)
	if ts < claims.ValidFrom {
		return Claims{}, ErrNotYetValid
	}
	if ts > claims.ValidTo {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

// Peek decodes a token's claims without checking the signature or the
// validity window. The result carries no authenticity guarantee and must
// only be used for diagnostics.
func Peek(token string) (Claims, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < SignatureSize {
		return Claims{}, fmt.Errorf("%w: %d bytes is shorter than the signature", ErrMalformed, len(raw))
	}
	return Decode(raw[:len(raw)-SignatureSize])
}

// epochSeconds clamps instants before 1970 to zero so they compare as earlier
// than any validity window.
func epochSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
