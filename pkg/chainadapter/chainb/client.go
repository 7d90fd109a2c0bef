// Package chainb implements the chain-B adapter (§4.1), modeling chain-B's
// Move-style escrow events as Cosmos-SDK ABCI events over a CometBFT RPC
// endpoint — the same client library the relayer's original Cronos client
// dialed into, but used here only to fetch and decode transaction events,
// never to build or sign transactions. Event attributes are flattened with
// cosmos-sdk's own StringifyEvents rather than hand-decoding the ABCI
// key/value pairs.
package chainb

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter"
	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
)

const (
	eventSrcEscrowCreated = "src_escrow_created"
	eventDstEscrowCreated = "dst_escrow_created"
)

// Client is a read-only facade over chain-B's ABCI transaction events.
type Client struct {
	rpc    *rpchttp.HTTP
	logger *zap.Logger
}

// Config is the subset of chain configuration the chain-B adapter needs.
type Config struct {
	RPCURL string
}

// NewClient dials the CometBFT RPC endpoint.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	rpc, err := rpchttp.New(cfg.RPCURL, "/websocket")
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "dial chain-b rpc", err)
	}
	if err := rpc.Start(); err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "start chain-b rpc client", err)
	}
	return &Client{rpc: rpc, logger: logger}, nil
}

var _ chainadapter.ChainAdapter = (*Client)(nil)

// SrcEscrowCreated fetches the transaction's ABCI events and parses the
// src_escrow_created event's attributes.
func (c *Client) SrcEscrowCreated(ctx context.Context, txHash string) (*chainadapter.SrcEscrowCreated, error) {
	attrs, blockTime, err := c.eventAttrs(ctx, txHash, eventSrcEscrowCreated)
	if err != nil {
		return nil, err
	}

	orderHash, err := domain.ParseHash32(attrs["order_hash"])
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "parse order_hash attribute", err)
	}
	hashlock, err := domain.ParseHash32(attrs["hashlock"])
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "parse hashlock attribute", err)
	}
	amount, ok := new(big.Int).SetString(attrs["amount"], 10)
	if !ok {
		return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "malformed amount attribute")
	}
	safetyDeposit, ok := new(big.Int).SetString(attrs["safety_deposit"], 10)
	if !ok {
		return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "malformed safety_deposit attribute")
	}
	dstAmount, ok := new(big.Int).SetString(attrs["dst_amount"], 10)
	if !ok {
		return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "malformed dst_amount attribute")
	}

	dstChainID, err := domain.ParseChainID(attrs["dst_chain_id"])
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "parse dst_chain_id attribute", err)
	}

	return &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     orderHash,
			Hashlock:      hashlock,
			Maker:         attrs["maker"],
			Taker:         attrs["taker"],
			Token:         attrs["token"],
			Amount:        amount,
			SafetyDeposit: safetyDeposit,
			Timelocks:     parseTimelocks(attrs),
		},
		DstComplement: chainadapter.DstComplement{
			Maker:         attrs["dst_maker"],
			Amount:        dstAmount,
			Token:         attrs["dst_token"],
			SafetyDeposit: safetyDeposit,
			ChainID:       dstChainID,
		},
		EscrowAddress: attrs["escrow"],
		BlockTime:     blockTime,
	}, nil
}

// DstEscrowCreated fetches the transaction's ABCI events and parses the
// dst_escrow_created event's attributes.
func (c *Client) DstEscrowCreated(ctx context.Context, txHash string) (*chainadapter.DstEscrowCreated, error) {
	attrs, blockTime, err := c.eventAttrs(ctx, txHash, eventDstEscrowCreated)
	if err != nil {
		return nil, err
	}

	hashlock, err := domain.ParseHash32(attrs["hashlock"])
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "parse hashlock attribute", err)
	}

	return &chainadapter.DstEscrowCreated{
		Escrow:    attrs["escrow"],
		Hashlock:  hashlock,
		Taker:     attrs["taker"],
		BlockTime: blockTime,
	}, nil
}

// ERC20Balance is named for interface symmetry with the EVM adapter. This
// adapter does not query balances: it always returns a ChainUnreachable
// error, so the Manager's escrow-balance check fails for any escrow on
// chain-B.
func (c *Client) ERC20Balance(ctx context.Context, token, account string) (*big.Int, error) {
	return nil, coordinatorerr.New(coordinatorerr.KindChainUnreachable, "balance queries not supported on chain-b adapter")
}

// eventAttrs fetches the transaction via RPC and flattens the named ABCI
// event's attributes into a string map.
func (c *Client) eventAttrs(ctx context.Context, txHash, eventType string) (map[string]string, time.Time, error) {
	hashBytes, err := decodeTxHash(txHash)
	if err != nil {
		return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "decode tx hash", err)
	}

	result, err := c.rpc.Tx(ctx, hashBytes, false)
	if err != nil {
		return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "fetch tx", err)
	}

	blockResult, err := c.rpc.Block(ctx, &result.Height)
	if err != nil {
		return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "fetch block", err)
	}

	for _, ev := range sdk.StringifyEvents(result.TxResult.Events) {
		if ev.Type != eventType {
			continue
		}
		attrs := make(map[string]string, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs[a.Key] = a.Value
		}
		return attrs, blockResult.Block.Time, nil
	}

	return nil, time.Time{}, coordinatorerr.New(coordinatorerr.KindEventNotFound, eventType+" not found in tx "+txHash)
}

func parseTimelocks(attrs map[string]string) domain.Timelocks {
	field := func(key string) uint64 {
		v, _ := strconv.ParseUint(attrs[key], 10, 64)
		return v
	}
	return domain.Timelocks{
		SrcWithdrawal:         field("src_withdrawal"),
		SrcPublicWithdrawal:   field("src_public_withdrawal"),
		SrcCancellation:       field("src_cancellation"),
		SrcPublicCancellation: field("src_public_cancellation"),
		DstWithdrawal:         field("dst_withdrawal"),
		DstPublicWithdrawal:   field("dst_public_withdrawal"),
		DstCancellation:       field("dst_cancellation"),
	}
}

func decodeTxHash(txHash string) ([]byte, error) {
	trimmed := txHash
	if len(trimmed) >= 2 && trimmed[0:2] == "0x" {
		trimmed = trimmed[2:]
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode tx hash %q: %w", txHash, err)
	}
	return b, nil
}
