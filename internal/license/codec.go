// Package license implements the wire format for offline-verifiable license
// keys: a canonical binary encoding of the license fields, an Ed25519
// signature over that encoding, and the key and API-key generation that goes
// with it. The package performs no I/O and all functions are safe for
// concurrent use.
package license

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// headerSize is the fixed-width portion of the canonical encoding:
// valid_from (8) + valid_to (8) + accounts (4) + domain length (4).
const headerSize = 24

// Claims are the fields bound into a license key.
type Claims struct {
	ValidFrom uint64 // epoch seconds, inclusive
	ValidTo   uint64 // epoch seconds, inclusive
	Accounts  uint32
	Domain    string
}

// Encode serializes claims into their canonical byte form: little-endian
// fixed-width integers in a fixed order, followed by the raw domain bytes.
// Two claim values are equal exactly when their encodings are equal.
func Encode(c Claims) ([]byte, error) {
	if uint64(len(c.Domain)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: domain of %d bytes does not fit", ErrMalformed, len(c.Domain))
	}
	if !utf8.ValidString(c.Domain) {
		return nil, fmt.Errorf("%w: domain is not valid UTF-8", ErrMalformed)
	}

	buf := make([]byte, 0, headerSize+len(c.Domain))
	buf = binary.LittleEndian.AppendUint64(buf, c.ValidFrom)
	buf = binary.LittleEndian.AppendUint64(buf, c.ValidTo)
	buf = binary.LittleEndian.AppendUint32(buf, c.Accounts)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Domain)))
	buf = append(buf, c.Domain...)
	return buf, nil
}

// Decode is the inverse of Encode. It fails with ErrMalformed when the buffer
// is shorter than the fixed-width header, when the declared domain length does
// not match the remaining bytes, or when the domain is not valid UTF-8. Decode
// knows nothing about signatures; callers hand it the field region only.
func Decode(data []byte) (Claims, error) {
	if len(data) < headerSize {
		return Claims{}, fmt.Errorf("%w: %d bytes, want at least %d", ErrMalformed, len(data), headerSize)
	}

	domainLen := binary.LittleEndian.Uint32(data[20:24])
	domain := data[headerSize:]
	if uint64(len(domain)) != uint64(domainLen) {
		return Claims{}, fmt.Errorf("%w: declared domain length %d, have %d bytes", ErrMalformed, domainLen, len(domain))
	}
	if !utf8.Valid(domain) {
		return Claims{}, fmt.Errorf("%w: domain is not valid UTF-8", ErrMalformed)
	}

	return Claims{
		ValidFrom: binary.LittleEndian.Uint64(data[0:8]),
		ValidTo:   binary.LittleEndian.Uint64(data[8:16]),
		Accounts:  binary.LittleEndian.Uint32(data[16:20]),
		Domain:    string(domain),
	}, nil
}
