package quoteprovider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
	"github.com/crosschain-labs/swap-coordinator/pkg/quoteprovider"
)

func TestFetch_DevMode_ReturnsFixedTemplateWithoutNetwork(t *testing.T) {
	p := quoteprovider.New("http://upstream.invalid", "", true, zap.NewNop())

	quote, err := p.Fetch(context.Background(), quoteprovider.Params{
		SrcChainID:   domain.EVMChainID(1),
		DstChainID:   domain.ChainBID,
		SrcTokenAddr: "0xabc",
		DstTokenAddr: "0xdef",
		Amount:       "1000",
	})
	require.NoError(t, err)
	require.NotEmpty(t, quote.QuoteID)
	require.Equal(t, []int64{0, 100}, quote.Preset.Points)
	require.Equal(t, uint64(10), quote.Timelocks.SrcWithdrawal)
	require.Zero(t, quote.SrcSafetyDeposit.Sign())
}

func TestFetch_DevMode_AssignsFreshQuoteIDEachCall(t *testing.T) {
	p := quoteprovider.New("", "", true, zap.NewNop())

	first, err := p.Fetch(context.Background(), quoteprovider.Params{})
	require.NoError(t, err)
	second, err := p.Fetch(context.Background(), quoteprovider.Params{})
	require.NoError(t, err)

	require.NotEqual(t, first.QuoteID, second.QuoteID)
}
