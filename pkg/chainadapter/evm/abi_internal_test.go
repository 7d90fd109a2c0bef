package evm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnpackTimelocks_SplitsPackedWord(t *testing.T) {
	packed := new(big.Int)
	set := func(shift uint, v uint64) {
		word := new(big.Int).Lsh(new(big.Int).SetUint64(v), shift)
		packed.Or(packed, word)
	}
	set(0, 10)
	set(32, 20)
	set(64, 30)
	set(96, 40)
	set(128, 50)
	set(160, 60)
	set(192, 70)

	tl := unpackTimelocks(packed)
	require.Equal(t, uint64(10), tl.SrcWithdrawal)
	require.Equal(t, uint64(20), tl.SrcPublicWithdrawal)
	require.Equal(t, uint64(30), tl.SrcCancellation)
	require.Equal(t, uint64(40), tl.SrcPublicCancellation)
	require.Equal(t, uint64(50), tl.DstWithdrawal)
	require.Equal(t, uint64(60), tl.DstPublicWithdrawal)
	require.Equal(t, uint64(70), tl.DstCancellation)
}

func TestUnpackTimelocks_NilReturnsZeroValue(t *testing.T) {
	tl := unpackTimelocks(nil)
	require.Zero(t, tl.SrcWithdrawal)
	require.Zero(t, tl.DstCancellation)
}
