package manager_test

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter"
	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
	"github.com/crosschain-labs/swap-coordinator/pkg/manager"
)

const (
	testMaker     = "0xmaker"
	testReceiver  = "0xreceiver"
	testSrcToken  = "0xsrctoken"
	testDstToken  = "0xdsttoken"
	testSrcEscrow = "0xsrcescrow"
	testDstEscrow = "0xdstescrow"
)

// fakeAdapter lets tests script exactly which events and balances a chain
// "emits"/"holds" without touching a real RPC endpoint.
type fakeAdapter struct {
	srcEvents map[string]*chainadapter.SrcEscrowCreated
	dstEvents map[string]*chainadapter.DstEscrowCreated
	balances  map[string]*big.Int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		srcEvents: map[string]*chainadapter.SrcEscrowCreated{},
		dstEvents: map[string]*chainadapter.DstEscrowCreated{},
		balances:  map[string]*big.Int{},
	}
}

func (f *fakeAdapter) SrcEscrowCreated(_ context.Context, txHash string) (*chainadapter.SrcEscrowCreated, error) {
	evt, ok := f.srcEvents[txHash]
	if !ok {
		return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "no such tx")
	}
	return evt, nil
}

func (f *fakeAdapter) DstEscrowCreated(_ context.Context, txHash string) (*chainadapter.DstEscrowCreated, error) {
	evt, ok := f.dstEvents[txHash]
	if !ok {
		return nil, coordinatorerr.New(coordinatorerr.KindEventNotFound, "no such tx")
	}
	return evt, nil
}

func (f *fakeAdapter) ERC20Balance(_ context.Context, token, account string) (*big.Int, error) {
	if bal, ok := f.balances[token+"|"+account]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeAdapter) setBalance(token, account string, amount *big.Int) {
	f.balances[token+"|"+account] = amount
}

func newTestManager(t *testing.T) (*manager.Manager, *fakeAdapter, *fakeAdapter) {
	t.Helper()
	evmAdapter := newFakeAdapter()
	chainBAdapter := newFakeAdapter()
	mgr := manager.New(manager.Config{
		QuoteTTL: time.Minute,
		OrderTTL: time.Minute,
	}, evmAdapter, chainBAdapter, zap.NewNop())
	t.Cleanup(mgr.Close)
	return mgr, evmAdapter, chainBAdapter
}

// submitTestOrder submits a SINGLE_FILL order whose quote and limit-order
// fields are internally consistent, so that a src/dst pair built from
// matching amounts/maker/token/safety-deposit passes verification.
func submitTestOrder(t *testing.T, mgr *manager.Manager, hashlock domain.Hash32) (string, domain.Hash32) {
	t.Helper()
	return submitTestOrderWithHashes(t, mgr, []domain.Hash32{hashlock})
}

func submitTestOrderWithHashes(t *testing.T, mgr *manager.Manager, hashes []domain.Hash32) (string, domain.Hash32) {
	t.Helper()
	quote := &domain.QuoteEntry{
		QuoteID:          "quote-1",
		SrcChainID:       domain.EVMChainID(1),
		DstChainID:       domain.ChainBID,
		SrcTokenAddress:  testSrcToken,
		DstTokenAddress:  testDstToken,
		SrcSafetyDeposit: big.NewInt(5),
		Preset:           domain.Preset{Points: []int64{0, 100}},
	}
	mgr.SetQuote(quote)

	order := domain.Order{
		SrcChainID: domain.EVMChainID(1),
		LimitOrder: domain.LimitOrder{
			Salt:         big.NewInt(1),
			Maker:        testMaker,
			Receiver:     testReceiver,
			MakerAsset:   "0x00000000000000000000000000000000000000a3",
			TakerAsset:   "0x00000000000000000000000000000000000000a4",
			MakingAmount: big.NewInt(1000),
			TakingAmount: big.NewInt(2000),
			MakerTraits:  big.NewInt(0),
		},
		QuoteID:      "quote-1",
		SecretHashes: hashes,
	}

	orderHash := domain.Hash32{9, 9, 9}
	entry, err := mgr.SubmitOrder(context.Background(), order, orderHash)
	require.NoError(t, err)
	return entry.OrderHash, orderHash
}

func TestSubmitOrder_SeedsStatusFromQuotePreset(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, _ := submitTestOrder(t, mgr, hashlock)

	entry, err := mgr.GetOrder(orderHash)
	require.NoError(t, err)
	require.Equal(t, domain.StateCreated, entry.Status.Status)
	require.Equal(t, []int64{0, 100}, entry.Status.Points)
}

func TestSubmitOrder_UnknownQuoteIsRejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	order := domain.Order{QuoteID: "does-not-exist"}
	_, err := mgr.SubmitOrder(context.Background(), order, domain.Hash32{1})
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindNotFound, coordinatorerr.KindOf(err))
}

func TestSubmitOrder_BroadcastsOrderAsJSON(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	sub := mgr.Subscribe()
	defer mgr.Unsubscribe(sub.ID)

	hashlock := domain.Hash32{1, 2, 3}
	_, _ = submitTestOrder(t, mgr, hashlock)

	msg := <-sub.Outbox
	require.True(t, strings.HasPrefix(string(msg), "BROADC "))

	var got domain.Order
	require.NoError(t, json.Unmarshal(msg[len("BROADC "):], &got))
	require.Equal(t, "quote-1", got.QuoteID)
	require.Equal(t, testMaker, got.LimitOrder.Maker)
}

func TestHandleTxHash_MismatchedHashlockIsRejected(t *testing.T) {
	mgr, evmAdapter, _ := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, parsedHash := submitTestOrder(t, mgr, hashlock)

	evmAdapter.srcEvents["0xsrc"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash: parsedHash,
			Hashlock:  domain.Hash32{9, 9, 9}, // wrong hashlock
			Maker:     testMaker,
			Amount:    big.NewInt(1000),
		},
		BlockTime: time.Now(),
	}

	err := mgr.HandleTxHash(context.Background(), orderHash, "0xsrc", "")
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindVerificationMismatch, coordinatorerr.KindOf(err))
}

func TestHandleTxHash_AmountMismatchIsRejected(t *testing.T) {
	mgr, evmAdapter, _ := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, parsedHash := submitTestOrder(t, mgr, hashlock)

	evmAdapter.srcEvents["0xsrc"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashlock,
			Maker:         testMaker,
			Amount:        big.NewInt(999), // order's making amount is 1000
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now(),
	}
	evmAdapter.setBalance(testSrcToken, testSrcEscrow, big.NewInt(999))

	err := mgr.HandleTxHash(context.Background(), orderHash, "0xsrc", "")
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindVerificationMismatch, coordinatorerr.KindOf(err))

	entry, getErr := mgr.GetOrder(orderHash)
	require.NoError(t, getErr)
	require.Equal(t, domain.StateCreated, entry.Status.Status, "a failed verification must not advance order state")
}

func TestHandleTxHash_BalanceMismatchIsRejected(t *testing.T) {
	mgr, evmAdapter, _ := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, parsedHash := submitTestOrder(t, mgr, hashlock)

	evmAdapter.srcEvents["0xsrc"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashlock,
			Maker:         testMaker,
			Amount:        big.NewInt(1000),
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now(),
	}
	// No balance set on the fake adapter -> defaults to zero, which does
	// not match the order's making amount.

	err := mgr.HandleTxHash(context.Background(), orderHash, "0xsrc", "")
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindVerificationMismatch, coordinatorerr.KindOf(err))
}

func TestHandleTxHash_BothSidesObservedRecordsTxHashesInReadyFill(t *testing.T) {
	mgr, evmAdapter, chainBAdapter := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, parsedHash := submitTestOrder(t, mgr, hashlock)

	// Block times old enough that both finality windows have fully
	// elapsed, so the release fires synchronously (ttl == 0).
	evmAdapter.srcEvents["0xsrc"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashlock,
			Maker:         testMaker,
			Amount:        big.NewInt(1000),
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now().Add(-3 * time.Minute),
	}
	evmAdapter.setBalance(testSrcToken, testSrcEscrow, big.NewInt(1000))

	chainBAdapter.dstEvents["0xdst"] = &chainadapter.DstEscrowCreated{
		Hashlock:  hashlock,
		Taker:     "0xtaker",
		Escrow:    testDstEscrow,
		BlockTime: time.Now().Add(-1 * time.Minute),
	}
	chainBAdapter.setBalance(testDstToken, testDstEscrow, big.NewInt(2000))

	err := mgr.HandleTxHash(context.Background(), orderHash, "0xsrc", "0xdst")
	require.NoError(t, err)

	entry, err := mgr.GetOrder(orderHash)
	require.NoError(t, err)
	require.Equal(t, domain.StateReady, entry.Status.Status)

	fills := entry.DrainFills()
	require.Len(t, fills, 1)
	require.Equal(t, domain.ReadyFill{Idx: 0, SrcTxHash: "0xsrc", DstTxHash: "0xdst"}, fills[0])
}

func TestHandleTxHash_MultiFillAppendsIndexMatchingObservedHashlock(t *testing.T) {
	mgr, evmAdapter, chainBAdapter := newTestManager(t)
	hashA := domain.Hash32{0xa}
	hashB := domain.Hash32{0xb}
	hashC := domain.Hash32{0xc}
	orderHash, parsedHash := submitTestOrderWithHashes(t, mgr, []domain.Hash32{hashA, hashB, hashC})

	entry, err := mgr.GetOrder(orderHash)
	require.NoError(t, err)
	require.Equal(t, domain.OrderTypeMultiFill, entry.OrderType)

	evmAdapter.setBalance(testSrcToken, testSrcEscrow, big.NewInt(1000))
	chainBAdapter.setBalance(testDstToken, testDstEscrow, big.NewInt(2000))

	evmAdapter.srcEvents["0xsrc1"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashB,
			Maker:         testMaker,
			Amount:        big.NewInt(1000),
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now().Add(-3 * time.Minute),
	}
	chainBAdapter.dstEvents["0xdst1"] = &chainadapter.DstEscrowCreated{
		Hashlock:  hashB,
		Taker:     "0xtaker",
		Escrow:    testDstEscrow,
		BlockTime: time.Now().Add(-1 * time.Minute),
	}

	require.NoError(t, mgr.HandleTxHash(context.Background(), orderHash, "0xsrc1", "0xdst1"))

	fills := entry.DrainFills()
	require.Len(t, fills, 1)
	require.Equal(t, 1, fills[0].Idx)

	evmAdapter.srcEvents["0xsrc2"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashC,
			Maker:         testMaker,
			Amount:        big.NewInt(1000),
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now().Add(-3 * time.Minute),
	}
	chainBAdapter.dstEvents["0xdst2"] = &chainadapter.DstEscrowCreated{
		Hashlock:  hashC,
		Taker:     "0xtaker",
		Escrow:    testDstEscrow,
		BlockTime: time.Now().Add(-1 * time.Minute),
	}

	require.NoError(t, mgr.HandleTxHash(context.Background(), orderHash, "0xsrc2", "0xdst2"))

	fills = entry.DrainFills()
	require.Len(t, fills, 1)
	require.Equal(t, 2, fills[0].Idx)
}

func TestHandleSecretEvent_RejectsWhenNoReadyFillYet(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, _ := submitTestOrder(t, mgr, hashlock)

	err := mgr.HandleSecretEvent(orderHash, "0x"+strings.Repeat("00", 32))
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindBadRequest, coordinatorerr.KindOf(err))
}

func TestHandleSecretEvent_BroadcastsSecretFrameOnceReady(t *testing.T) {
	mgr, evmAdapter, chainBAdapter := newTestManager(t)
	hashlock := domain.Hash32{1, 2, 3}
	orderHash, parsedHash := submitTestOrder(t, mgr, hashlock)

	evmAdapter.srcEvents["0xsrc"] = &chainadapter.SrcEscrowCreated{
		Immutables: chainadapter.Immutables{
			OrderHash:     parsedHash,
			Hashlock:      hashlock,
			Maker:         testMaker,
			Amount:        big.NewInt(1000),
			SafetyDeposit: big.NewInt(5),
			Token:         testSrcToken,
		},
		EscrowAddress: testSrcEscrow,
		BlockTime:     time.Now().Add(-3 * time.Minute),
	}
	evmAdapter.setBalance(testSrcToken, testSrcEscrow, big.NewInt(1000))
	chainBAdapter.dstEvents["0xdst"] = &chainadapter.DstEscrowCreated{
		Hashlock:  hashlock,
		Taker:     "0xtaker",
		Escrow:    testDstEscrow,
		BlockTime: time.Now().Add(-1 * time.Minute),
	}
	chainBAdapter.setBalance(testDstToken, testDstEscrow, big.NewInt(2000))

	require.NoError(t, mgr.HandleTxHash(context.Background(), orderHash, "0xsrc", "0xdst"))

	sub := mgr.Subscribe()
	defer mgr.Unsubscribe(sub.ID)

	secretHex := "0x" + strings.Repeat("ad", 32)
	require.NoError(t, mgr.HandleSecretEvent(orderHash, secretHex))

	msg := <-sub.Outbox
	require.Equal(t, "SECRET "+orderHash+" "+secretHex, string(msg))
}

func TestHandleReceiveEvent_UnknownKindReturnsError(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	err := mgr.HandleReceiveEvent(context.Background(), "NONSENSE", nil)
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindUnknownEvent, coordinatorerr.KindOf(err))
}

func TestHandleReceiveEvent_SecretKindIsUnknown(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	err := mgr.HandleReceiveEvent(context.Background(), "SECRET", map[string]string{"orderHash": "0xabc"})
	require.Error(t, err)
	require.Equal(t, coordinatorerr.KindUnknownEvent, coordinatorerr.KindOf(err))
}
