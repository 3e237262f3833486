package license

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
	}{
		{"typical", Claims{ValidFrom: 1700000000, ValidTo: 1857680000, Accounts: 100, Domain: "example.com"}},
		{"zero accounts", Claims{ValidFrom: 1, ValidTo: 2, Accounts: 0, Domain: "zero.example"}},
		{"empty domain", Claims{ValidFrom: 0, ValidTo: 0, Accounts: 1, Domain: ""}},
		{"max values", Claims{ValidFrom: ^uint64(0), ValidTo: ^uint64(0), Accounts: ^uint32(0), Domain: "max.example"}},
		{"unicode domain", Claims{ValidFrom: 10, ValidTo: 20, Accounts: 5, Domain: "bücher.example"}},
		{"long domain", Claims{ValidFrom: 10, ValidTo: 20, Accounts: 5, Domain: strings.Repeat("sub.", 50) + "example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.claims)
			if err != nil {
				t.Fatalf("Encode(%+v) unexpected error: %v", tt.claims, err)
			}
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode of encoded claims failed: %v", err)
			}
			if decoded != tt.claims {
				t.Errorf("round trip changed claims: got %+v, want %+v", decoded, tt.claims)
			}
		})
	}
}

func TestEncodeCanonicalLayout(t *testing.T) {
	claims := Claims{ValidFrom: 1700000000, ValidTo: 1857680000, Accounts: 100, Domain: "example.com"}

	encoded, err := Encode(claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encoded) != 35 {
		t.Fatalf("expected 35 canonical bytes, got %d", len(encoded))
	}

	want := "00f153650000000080f2b96e00000000640000000b0000006578616d706c652e636f6d"
	if got := hex.EncodeToString(encoded); got != want {
		t.Errorf("canonical bytes = %s, want %s", got, want)
	}
}

func TestEncodeRejectsInvalidDomain(t *testing.T) {
	_, err := Encode(Claims{ValidFrom: 1, ValidTo: 2, Domain: "bad\xff\xfedomain"})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for invalid UTF-8 domain, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid, err := Encode(Claims{ValidFrom: 1700000000, ValidTo: 1857680000, Accounts: 100, Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"shorter than header", valid[:10]},
		{"header only, declared domain missing", valid[:24]},
		{"truncated domain", valid[:len(valid)-3]},
		{"trailing bytes", append(append([]byte{}, valid...), 'x')},
		{"invalid utf8 domain", func() []byte {
			b := append([]byte{}, valid...)
			b[24] = 0xff
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) = %v, want ErrMalformed", tt.data, err)
			}
		})
	}
}
