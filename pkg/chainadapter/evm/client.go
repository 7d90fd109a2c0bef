// Package evm implements the EVM-side chain adapter (§4.1), adapted from
// the relayer's original Ethereum client: same ethclient.Dial + ABI-parsing
// approach, but read-only — no private key, no transaction signing or
// submission.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter"
	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
)

// Client is a read-only facade over an EVM chain's escrow factory and
// escrow contracts.
type Client struct {
	client      *ethclient.Client
	factoryAddr common.Address
	logger      *zap.Logger

	factoryABI abi.ABI
	erc20ABI   abi.ABI
}

// Config is the subset of chain configuration the EVM adapter needs.
type Config struct {
	RPCURL         string
	FactoryAddress string
}

// NewClient dials the EVM RPC endpoint and parses the ABI fragments the
// adapter needs to unpack escrow-creation events and call
// addressOfEscrowSrc / balanceOf.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "dial evm rpc", err)
	}

	factoryABI, err := abi.JSON(strings.NewReader(escrowFactoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse escrow factory abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &Client{
		client:      ec,
		factoryAddr: common.HexToAddress(cfg.FactoryAddress),
		logger:      logger,
		factoryABI:  factoryABI,
		erc20ABI:    erc20ABI,
	}, nil
}

var _ chainadapter.ChainAdapter = (*Client)(nil)

// immutablesTuple mirrors the escrow factory's Immutables struct argument
// layout for ABI encoding/decoding of addressOfEscrowSrc.
type immutablesTuple struct {
	OrderHash     [32]byte
	Hashlock      [32]byte
	Maker         common.Address
	Taker         common.Address
	Token         common.Address
	Amount        *big.Int
	SafetyDeposit *big.Int
	Timelocks     *big.Int
}

// SrcEscrowCreated fetches the transaction receipt, locates the
// SrcEscrowCreated log emitted by the factory, unpacks its immutables, and
// derives the escrow address via addressOfEscrowSrc.
func (c *Client) SrcEscrowCreated(ctx context.Context, txHash string) (*chainadapter.SrcEscrowCreated, error) {
	receipt, blockTime, err := c.receiptAndTime(ctx, txHash)
	if err != nil {
		return nil, err
	}

	topic := c.factoryABI.Events["SrcEscrowCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != c.factoryAddr || len(lg.Topics) == 0 || lg.Topics[0] != topic {
			continue
		}

		var raw struct {
			OrderHash     [32]byte
			Hashlock      [32]byte
			Maker         common.Address
			Taker         common.Address
			Token         common.Address
			Amount        *big.Int
			SafetyDeposit *big.Int
			Timelocks     *big.Int
			DstMaker      common.Address
			DstAmount     *big.Int
			DstToken      common.Address
			DstChainID    *big.Int
		}
		if err := c.factoryABI.UnpackIntoInterface(&raw, "SrcEscrowCreated", lg.Data); err != nil {
			return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "unpack SrcEscrowCreated", err)
		}

		immutables := chainadapter.Immutables{
			OrderHash:     raw.OrderHash,
			Hashlock:      raw.Hashlock,
			Maker:         raw.Maker.Hex(),
			Taker:         raw.Taker.Hex(),
			Token:         raw.Token.Hex(),
			Amount:        raw.Amount,
			SafetyDeposit: raw.SafetyDeposit,
			Timelocks:     unpackTimelocks(raw.Timelocks),
		}

		escrowAddr, err := c.addressOfEscrowSrc(ctx, immutablesTuple{
			OrderHash:     raw.OrderHash,
			Hashlock:      raw.Hashlock,
			Maker:         raw.Maker,
			Taker:         raw.Taker,
			Token:         raw.Token,
			Amount:        raw.Amount,
			SafetyDeposit: raw.SafetyDeposit,
			Timelocks:     raw.Timelocks,
		})
		if err != nil {
			return nil, err
		}

		return &chainadapter.SrcEscrowCreated{
			Immutables: immutables,
			DstComplement: chainadapter.DstComplement{
				Maker:         raw.DstMaker.Hex(),
				Amount:        raw.DstAmount,
				Token:         raw.DstToken.Hex(),
				SafetyDeposit: raw.SafetyDeposit,
				ChainID:       domain.EVMChainID(raw.DstChainID.Uint64()),
			},
			EscrowAddress: escrowAddr,
			BlockTime:     blockTime,
		}, nil
	}

	return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "SrcEscrowCreated not found in tx "+txHash)
}

// DstEscrowCreated fetches the transaction receipt and locates the
// DstEscrowCreated log.
func (c *Client) DstEscrowCreated(ctx context.Context, txHash string) (*chainadapter.DstEscrowCreated, error) {
	receipt, blockTime, err := c.receiptAndTime(ctx, txHash)
	if err != nil {
		return nil, err
	}

	topic := c.factoryABI.Events["DstEscrowCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != c.factoryAddr || len(lg.Topics) == 0 || lg.Topics[0] != topic {
			continue
		}

		var raw struct {
			Escrow   common.Address
			Hashlock [32]byte
			Taker    common.Address
		}
		if err := c.factoryABI.UnpackIntoInterface(&raw, "DstEscrowCreated", lg.Data); err != nil {
			return nil, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "unpack DstEscrowCreated", err)
		}

		return &chainadapter.DstEscrowCreated{
			Escrow:    raw.Escrow.Hex(),
			Hashlock:  raw.Hashlock,
			Taker:     raw.Taker.Hex(),
			BlockTime: blockTime,
		}, nil
	}

	return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "DstEscrowCreated not found in tx "+txHash)
}

// ERC20Balance calls balanceOf(account) on token.
func (c *Client) ERC20Balance(ctx context.Context, token, account string) (*big.Int, error) {
	data, err := c.erc20ABI.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	tokenAddr := common.HexToAddress(token)
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "call balanceOf", err)
	}

	var balance *big.Int
	if err := c.erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return balance, nil
}

// addressOfEscrowSrc calls the factory's addressOfEscrowSrc(immutables)
// view function to derive the deterministic escrow address.
func (c *Client) addressOfEscrowSrc(ctx context.Context, imm immutablesTuple) (string, error) {
	data, err := c.factoryABI.Pack("addressOfEscrowSrc", imm)
	if err != nil {
		return "", fmt.Errorf("pack addressOfEscrowSrc: %w", err)
	}

	factoryAddr := c.factoryAddr
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &factoryAddr, Data: data}, nil)
	if err != nil {
		return "", coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "call addressOfEscrowSrc", err)
	}

	var addr common.Address
	if err := c.factoryABI.UnpackIntoInterface(&addr, "addressOfEscrowSrc", result); err != nil {
		return "", fmt.Errorf("unpack addressOfEscrowSrc: %w", err)
	}
	return addr.Hex(), nil
}

func (c *Client) receiptAndTime(ctx context.Context, txHash string) (*types.Receipt, time.Time, error) {
	hash := common.HexToHash(txHash)
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindEventNotFound, "receipt not found", err)
		}
		return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "fetch receipt", err)
	}

	header, err := c.client.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, time.Time{}, coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "fetch block header", err)
	}

	return receipt, time.Unix(int64(header.Time), 0), nil
}

// unpackTimelocks splits the packed on-chain timelocks word into the seven
// durations §4.1/§4.2 work with. The escrow contract packs each deadline
// into a 32-bit-aligned offset; this mirrors that layout.
func unpackTimelocks(packed *big.Int) domain.Timelocks {
	if packed == nil {
		return domain.Timelocks{}
	}
	mask := new(big.Int).SetUint64(0xFFFFFFFF)
	word := new(big.Int).Set(packed)
	field := func(shift uint) uint64 {
		v := new(big.Int).Rsh(word, shift)
		v.And(v, mask)
		return v.Uint64()
	}
	return domain.Timelocks{
		SrcWithdrawal:         field(0),
		SrcPublicWithdrawal:   field(32),
		SrcCancellation:       field(64),
		SrcPublicCancellation: field(96),
		DstWithdrawal:         field(128),
		DstPublicWithdrawal:   field(160),
		DstCancellation:       field(192),
	}
}
