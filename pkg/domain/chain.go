package domain

import (
	"encoding/json"
	"fmt"
)

// ChainFamily distinguishes the two ecosystems this coordinator bridges.
type ChainFamily int

const (
	FamilyEVM ChainFamily = iota
	FamilyChainB
)

func (f ChainFamily) String() string {
	if f == FamilyEVM {
		return "evm"
	}
	return "chain-b"
}

// ChainID is the tagged union from the design notes: either an EVM chain id
// (any uint64, e.g. 1 for mainnet) or the single non-EVM chain-B. It is
// never modeled as a subclass hierarchy — family() and isEvm() are the only
// accessors callers need.
type ChainID struct {
	family ChainFamily
	evmID  uint64
}

// EVMChainID constructs an EVM-family chain id.
func EVMChainID(id uint64) ChainID {
	return ChainID{family: FamilyEVM, evmID: id}
}

// ChainBID is the singleton chain-B chain id.
var ChainBID = ChainID{family: FamilyChainB}

// Family reports which ecosystem this id belongs to.
func (c ChainID) Family() ChainFamily { return c.family }

// IsEVM reports whether this id is in the EVM family.
func (c ChainID) IsEVM() bool { return c.family == FamilyEVM }

// EVMID returns the numeric EVM chain id. Only valid when IsEVM() is true.
func (c ChainID) EVMID() uint64 { return c.evmID }

func (c ChainID) String() string {
	if c.IsEVM() {
		return fmt.Sprintf("evm:%d", c.evmID)
	}
	return "chain-b"
}

// ParseChainID accepts either a decimal EVM chain id or the literal
// "chain-b" / "cosmos" used by order JSON and wire messages.
func ParseChainID(s string) (ChainID, error) {
	if s == "chain-b" || s == "cosmos" {
		return ChainBID, nil
	}
	var id uint64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return ChainID{}, fmt.Errorf("parse chain id %q: %w", s, err)
	}
	return EVMChainID(id), nil
}

// MarshalJSON renders the chain id the way order JSON and wire messages
// expect: the decimal EVM chain id, or the literal "chain-b".
func (c ChainID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wireString())
}

func (c ChainID) wireString() string {
	if c.IsEVM() {
		return fmt.Sprintf("%d", c.evmID)
	}
	return "chain-b"
}

// UnmarshalJSON parses the wire representation produced by MarshalJSON.
func (c *ChainID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseChainID(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
