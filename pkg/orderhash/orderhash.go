// Package orderhash implements the deterministic 32-byte order-hash
// primitive of spec §4.2: one branch per chain family, built on the same
// go-ethereum crypto/abi primitives the chain adapters already use.
package orderhash

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
)

// aggregationRouterAddress is the verifyingContract of the EIP-712 domain,
// per spec §4.2.
const aggregationRouterAddress = "0x111111125421cA6dc452d289314280a0f8842A65"

// Hash computes the order hash for the given chain id and order, dispatching
// on family exactly as §4.2 specifies.
func Hash(chainID domain.ChainID, order domain.LimitOrder) (domain.Hash32, error) {
	if chainID.IsEVM() {
		return hashEVM(chainID.EVMID(), order)
	}
	return hashChainB(order)
}

// hashEVM computes the EIP-712 typed-data hash over the 1inch Aggregation
// Router domain and Order struct schema.
func hashEVM(chainID uint64, order domain.LimitOrder) (domain.Hash32, error) {
	if order.Salt == nil || order.MakingAmount == nil || order.TakingAmount == nil || order.MakerTraits == nil {
		return domain.Hash32{}, coordinatorerr.New(coordinatorerr.KindBadOrder, "missing numeric order field")
	}
	if !common.IsHexAddress(order.Maker) || !common.IsHexAddress(order.Receiver) ||
		!common.IsHexAddress(order.MakerAsset) || !common.IsHexAddress(order.TakerAsset) {
		return domain.Hash32{}, coordinatorerr.New(coordinatorerr.KindBadOrder, "malformed address field")
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "receiver", Type: "address"},
				{Name: "makerAsset", Type: "address"},
				{Name: "takerAsset", Type: "address"},
				{Name: "makingAmount", Type: "uint256"},
				{Name: "takingAmount", Type: "uint256"},
				{Name: "makerTraits", Type: "uint256"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "1inch Aggregation Router",
			Version:           "6",
			ChainId:           math.NewHexOrDecimal256(int64(chainID)),
			VerifyingContract: aggregationRouterAddress,
		},
		Message: apitypes.TypedDataMessage{
			"salt":         order.Salt.String(),
			"maker":        order.Maker,
			"receiver":     order.Receiver,
			"makerAsset":   order.MakerAsset,
			"takerAsset":   order.TakerAsset,
			"makingAmount": order.MakingAmount.String(),
			"takingAmount": order.TakingAmount.String(),
			"makerTraits":  order.MakerTraits.String(),
		},
	}

	domainSep, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return domain.Hash32{}, coordinatorerr.Wrap(coordinatorerr.KindBadOrder, "hash EIP-712 domain", err)
	}
	msgHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return domain.Hash32{}, coordinatorerr.Wrap(coordinatorerr.KindBadOrder, "hash EIP-712 message", err)
	}

	digest := crypto.Keccak256(
		[]byte{0x19, 0x01},
		domainSep,
		msgHash,
	)
	var out domain.Hash32
	copy(out[:], digest)
	return out, nil
}

// hashChainB computes keccak256 of the canonical field concatenation for
// the non-EVM family: big-endian salt bytes, 20-byte maker/receiver
// addresses, and u64 making/taking amounts.
func hashChainB(order domain.LimitOrder) (domain.Hash32, error) {
	if order.Salt == nil || order.MakingAmount == nil || order.TakingAmount == nil {
		return domain.Hash32{}, coordinatorerr.New(coordinatorerr.KindBadOrder, "missing numeric order field")
	}
	if !order.MakingAmount.IsUint64() || !order.TakingAmount.IsUint64() {
		return domain.Hash32{}, coordinatorerr.New(coordinatorerr.KindBadOrder, "amount exceeds u64 range")
	}

	makerBytes, err := addressBytes20(order.Maker)
	if err != nil {
		return domain.Hash32{}, coordinatorerr.Wrap(coordinatorerr.KindBadOrder, "parse maker address", err)
	}
	receiverBytes, err := addressBytes20(order.Receiver)
	if err != nil {
		return domain.Hash32{}, coordinatorerr.Wrap(coordinatorerr.KindBadOrder, "parse receiver address", err)
	}

	buf := make([]byte, 0, 32+20+20+8+8)
	buf = append(buf, leftPadBigEndian(order.Salt.Bytes(), 32)...)
	buf = append(buf, makerBytes[:]...)
	buf = append(buf, receiverBytes[:]...)
	buf = appendUint64BE(buf, order.MakingAmount.Uint64())
	buf = appendUint64BE(buf, order.TakingAmount.Uint64())

	digest := crypto.Keccak256(buf)
	var out domain.Hash32
	copy(out[:], digest)
	return out, nil
}

func addressBytes20(s string) ([20]byte, error) {
	var out [20]byte
	if !common.IsHexAddress(s) {
		return out, fmt.Errorf("not a 20-byte address: %q", s)
	}
	copy(out[:], common.HexToAddress(s).Bytes())
	return out, nil
}

func leftPadBigEndian(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

func appendUint64BE(buf []byte, v uint64) []byte {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return append(buf, b[:]...)
}
