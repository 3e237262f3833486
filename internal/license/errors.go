package license

import "errors"

var (
	// ErrKeyGenFailed is returned when the random source or key derivation
	// cannot produce usable key material.
	ErrKeyGenFailed = errors.New("key generation failed")

	// ErrInvalidKeyMaterial is returned when private key bytes are malformed,
	// truncated, or not an Ed25519 key.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrSignFailed is returned when the signing backend cannot produce a
	// signature, e.g. a private key of the wrong size.
	ErrSignFailed = errors.New("signing failed")
)

var (
	// ErrMalformed is returned when a license key cannot be decoded: bad
	// base64, a truncated buffer, a domain length that disagrees with the
	// remaining bytes, or a domain that is not valid UTF-8.
	ErrMalformed = errors.New("malformed license key")

	// ErrSignatureInvalid is returned when the signature does not match the
	// encoded fields under the given public key.
	ErrSignatureInvalid = errors.New("license signature invalid")

	// ErrExpired is returned when the license validity window has passed.
	ErrExpired = errors.New("license expired")

	// ErrNotYetValid is returned when the license validity window has not
	// started.
	ErrNotYetValid = errors.New("license not yet valid")
)
