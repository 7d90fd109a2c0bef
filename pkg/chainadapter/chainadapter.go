// Package chainadapter defines the read-only facade (§4.1) both concrete
// chain clients (pkg/chainadapter/evm, pkg/chainadapter/chainb) implement.
// Adapters never build, sign, or submit transactions.
package chainadapter

import (
	"context"
	"math/big"
	"time"

	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
)

// Immutables mirrors the escrow contract's immutable constructor
// arguments as observed on-chain. It carries no side tag; Timelocks holds
// both sides' deadlines.
type Immutables struct {
	OrderHash     domain.Hash32
	Hashlock      domain.Hash32
	Maker         string
	Taker         string
	Token         string
	Amount        *big.Int
	SafetyDeposit *big.Int
	Timelocks     domain.Timelocks
}

// DstComplement carries the destination-side fields a SrcEscrowCreated
// event reports about the matching destination escrow.
type DstComplement struct {
	Maker         string
	Amount        *big.Int
	Token         string
	SafetyDeposit *big.Int
	ChainID       domain.ChainID
}

// SrcEscrowCreated is the parsed event + derived address §4.1 requires for
// the source-side escrow.
type SrcEscrowCreated struct {
	Immutables    Immutables
	DstComplement DstComplement
	EscrowAddress string
	BlockTime     time.Time
}

// DstEscrowCreated is the parsed event for the destination-side escrow.
type DstEscrowCreated struct {
	Escrow    string
	Hashlock  domain.Hash32
	Taker     string
	BlockTime time.Time
}

// ChainAdapter is the read-only facade over one chain. Both the EVM and
// chain-B implementations satisfy it identically from the Manager's point
// of view.
type ChainAdapter interface {
	// SrcEscrowCreated fetches and parses the SrcEscrowCreated event emitted
	// by the given transaction. Returns EventNotFound if absent,
	// ChainUnreachable on RPC failure.
	SrcEscrowCreated(ctx context.Context, txHash string) (*SrcEscrowCreated, error)

	// DstEscrowCreated fetches and parses the DstEscrowCreated event emitted
	// by the given transaction.
	DstEscrowCreated(ctx context.Context, txHash string) (*DstEscrowCreated, error)

	// ERC20Balance returns the token balance of account (the escrow's own
	// balance, typically).
	ERC20Balance(ctx context.Context, token, account string) (*big.Int, error)
}
