package chainb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTimelocks_ParsesAllSevenFields(t *testing.T) {
	attrs := map[string]string{
		"src_withdrawal":          "10",
		"src_public_withdrawal":   "20",
		"src_cancellation":        "30",
		"src_public_cancellation": "40",
		"dst_withdrawal":          "50",
		"dst_public_withdrawal":   "60",
		"dst_cancellation":        "70",
	}
	tl := parseTimelocks(attrs)
	require.Equal(t, uint64(10), tl.SrcWithdrawal)
	require.Equal(t, uint64(70), tl.DstCancellation)
}

func TestParseTimelocks_MissingFieldsDefaultToZero(t *testing.T) {
	tl := parseTimelocks(map[string]string{})
	require.Zero(t, tl.SrcWithdrawal)
	require.Zero(t, tl.DstCancellation)
}

func TestDecodeTxHash_StripsOptionalPrefix(t *testing.T) {
	withPrefix, err := decodeTxHash("0xAABBCC")
	require.NoError(t, err)
	withoutPrefix, err := decodeTxHash("AABBCC")
	require.NoError(t, err)
	require.Equal(t, withPrefix, withoutPrefix)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, withPrefix)
}

func TestDecodeTxHash_RejectsInvalidHex(t *testing.T) {
	_, err := decodeTxHash("0xzz")
	require.Error(t, err)
}
