package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash32 is a 32-byte digest (order hash, hashlock, secret) that marshals
// to/from the 0x-prefixed lowercase hex strings the wire protocol and REST
// bodies use throughout §6.
type Hash32 [32]byte

func (h Hash32) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash32) String() string { return h.Hex() }

// MarshalJSON renders the 0x-prefixed hex form.
func (h Hash32) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON parses the 0x-prefixed hex form.
func (h *Hash32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash32(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash32 parses a 0x-prefixed (or bare) hex string into a Hash32.
func ParseHash32(s string) (Hash32, error) {
	trimmed := s
	if len(trimmed) >= 2 && trimmed[0:2] == "0x" {
		trimmed = trimmed[2:]
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return Hash32{}, fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(b) != 32 {
		return Hash32{}, fmt.Errorf("parse hash %q: want 32 bytes, got %d", s, len(b))
	}
	var h Hash32
	copy(h[:], b)
	return h, nil
}
