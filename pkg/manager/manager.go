// Package manager implements the coordination core (§4.5): the in-memory
// state machine that accepts submitted orders and quotes, verifies secret
// release against both chains, and fans events out to WS subscribers.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/broadcaster"
	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter"
	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
	"github.com/crosschain-labs/swap-coordinator/pkg/ttlstore"
)

// Config tunes the Manager's TTL and broadcast behavior.
type Config struct {
	QuoteTTL        time.Duration
	OrderTTL        time.Duration
	BroadcastOutbox int
}

func (c Config) withDefaults() Config {
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = 5 * time.Minute
	}
	if c.OrderTTL <= 0 {
		c.OrderTTL = 24 * time.Hour
	}
	if c.BroadcastOutbox <= 0 {
		c.BroadcastOutbox = 32
	}
	return c
}

// Manager is the coordination core. It owns no chain state of its own: it
// reads from the two ChainAdapters and keeps everything else in its two
// TTL stores.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	evm    chainadapter.ChainAdapter
	chainB chainadapter.ChainAdapter

	quotes *ttlstore.Store[*domain.QuoteEntry]
	orders *ttlstore.Store[*domain.OrderEntry]

	broadcast *broadcaster.Broadcaster
}

// New wires a Manager around the two chain adapters, per-kind TTL stores,
// and a broadcaster for the WS fan-out.
func New(cfg Config, evm, chainB chainadapter.ChainAdapter, logger *zap.Logger) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		evm:       evm,
		chainB:    chainB,
		broadcast: broadcaster.New(cfg.BroadcastOutbox),
	}
	m.quotes = ttlstore.New[*domain.QuoteEntry](
		ttlstore.WithOnWillExpire(func(id string, _ *domain.QuoteEntry) {
			logger.Debug("quote expired", zap.String("quoteId", id))
		}),
	)
	m.orders = ttlstore.New[*domain.OrderEntry](
		ttlstore.WithOnWillExpire(func(hash string, entry *domain.OrderEntry) {
			logger.Info("order expired", zap.String("orderHash", hash), zap.String("status", string(entry.Status.Status)))
		}),
	)
	return m
}

// SetQuote stores a freshly fetched upstream quote under the coordinator's
// own TTL, keyed by quote id.
func (m *Manager) SetQuote(entry *domain.QuoteEntry) {
	m.quotes.Set(entry.QuoteID, entry, m.cfg.QuoteTTL)
}

// GetQuote returns the stored quote, or NotFound once it has expired or was
// never seen.
func (m *Manager) GetQuote(quoteID string) (*domain.QuoteEntry, error) {
	entry, err := m.quotes.Get(quoteID)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindNotFound, "quote not found", err)
	}
	return entry, nil
}

// SubmitOrder requires the order's quote to exist (NotFound otherwise),
// stores a fresh CREATED-state entry keyed by order hash, and broadcasts
// "BROADC <order-json>" to every connected resolver (§4.5 HandleOrderEvent).
func (m *Manager) SubmitOrder(ctx context.Context, order domain.Order, orderHash domain.Hash32) (*domain.OrderEntry, error) {
	quote, err := m.GetQuote(order.QuoteID)
	if err != nil {
		return nil, err
	}

	status := domain.OrderStatus{
		OrderHash:       orderHash.Hex(),
		Order:           order,
		Status:          domain.StateCreated,
		Points:          quote.Preset.Points,
		InitialRateBump: quote.Preset.InitialRateBump,
		SrcChainID:      quote.SrcChainID,
		DstChainID:      quote.DstChainID,
		SrcUSDPrice:     quote.Preset.SrcUSDPrice,
		DstUSDPrice:     quote.Preset.DstUSDPrice,
		CreatedAt:       time.Now(),
	}

	entry := domain.NewOrderEntry(orderHash.Hex(), order, status)
	m.orders.Set(entry.OrderHash, entry, m.cfg.OrderTTL)
	m.logger.Info("order submitted",
		zap.String("orderHash", entry.OrderHash),
		zap.String("mode", string(entry.OrderType)),
		zap.String("quoteId", order.QuoteID),
	)

	m.broadcastOrder(entry.OrderHash, order)
	return entry, nil
}

// broadcastOrder implements HandleOrderEvent: serialize the order as JSON,
// prepend "BROADC ", and fan it out. Side effect only; no ack.
func (m *Manager) broadcastOrder(orderHash string, order domain.Order) {
	body, err := json.Marshal(order)
	if err != nil {
		m.logger.Error("failed to marshal order for broadcast", zap.String("orderHash", orderHash), zap.Error(err))
		return
	}
	msg := append([]byte("BROADC "), body...)
	m.broadcast.Broadcast(msg)
}

// GetOrder returns the order entry, or NotFound.
func (m *Manager) GetOrder(orderHash string) (*domain.OrderEntry, error) {
	entry, err := m.orders.Get(orderHash)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.KindNotFound, "order not found", err)
	}
	return entry, nil
}

// HandleTxHash is handleTxHashEvent (§4.5): a resolver reports that it
// broadcast a transaction claiming to create the escrow for orderHash on
// one side. It fetches the event from that side's adapter, runs the full
// verification set against both the order and its quote, and if both sides
// are now observed, computes the release TTL and schedules the ReadyFill.
func (m *Manager) HandleTxHash(ctx context.Context, orderHash, srcTxHash, dstTxHash string) error {
	entry, err := m.GetOrder(orderHash)
	if err != nil {
		return err
	}
	quote, err := m.GetQuote(entry.Order.QuoteID)
	if err != nil {
		return err
	}

	var srcEvt *chainadapter.SrcEscrowCreated
	var dstEvt *chainadapter.DstEscrowCreated
	var hashlock domain.Hash32

	if srcTxHash != "" {
		adapter := m.adapterFor(entry.Status.SrcChainID)
		evt, err := adapter.SrcEscrowCreated(ctx, srcTxHash)
		if err != nil {
			return err
		}
		if err := m.verifySrcEvent(ctx, entry, quote, evt); err != nil {
			return err
		}
		srcEvt = evt
		hashlock = evt.Immutables.Hashlock
	}

	if dstTxHash != "" {
		adapter := m.adapterFor(entry.Status.DstChainID)
		evt, err := adapter.DstEscrowCreated(ctx, dstTxHash)
		if err != nil {
			return err
		}
		if err := m.verifyDstEvent(ctx, entry, quote, evt); err != nil {
			return err
		}
		dstEvt = evt
		hashlock = evt.Hashlock
	}

	entry.SetObserved()

	if srcEvt != nil && dstEvt != nil {
		ttl := computeTTL(srcEvt.BlockTime, dstEvt.BlockTime, entry.Status.SrcChainID, entry.Status.DstChainID)
		m.logger.Info("both escrows observed, computed release ttl",
			zap.String("orderHash", orderHash),
			zap.Duration("ttl", ttl),
		)
		m.scheduleSecretRelease(orderHash, hashlock, srcTxHash, dstTxHash, ttl)
	}

	return nil
}

// verifySrcEvent runs the full verification set (§4.5 step 4) against the
// parsed source escrow event: order hash, hashlock membership, amount,
// maker, safety deposit, token, and the escrow's actual on-chain balance.
// Both the EVM-source and chain-B-source branches run the identical set —
// neither branch gets a reduced check (Open Question (a)).
func (m *Manager) verifySrcEvent(ctx context.Context, entry *domain.OrderEntry, quote *domain.QuoteEntry, evt *chainadapter.SrcEscrowCreated) error {
	if evt.Immutables.OrderHash.Hex() != entry.OrderHash {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow order hash mismatch")
	}
	if !hashlockMatchesOrder(evt.Immutables.Hashlock, entry.Order) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow hashlock not among order's secret hashes")
	}
	if !amountsEqual(evt.Immutables.Amount, entry.Order.LimitOrder.MakingAmount) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow amount does not match order's making amount")
	}
	if !addressesEqual(evt.Immutables.Maker, entry.Order.LimitOrder.Maker) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow maker does not match order's maker")
	}
	if !amountsEqual(evt.Immutables.SafetyDeposit, quote.SrcSafetyDeposit) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow safety deposit does not match quote")
	}
	if !addressesEqual(evt.Immutables.Token, quote.SrcTokenAddress) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow token does not match quote's source token")
	}

	balance, err := m.adapterFor(entry.Status.SrcChainID).ERC20Balance(ctx, evt.Immutables.Token, evt.EscrowAddress)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "check source escrow balance", err)
	}
	if !amountsEqual(balance, entry.Order.LimitOrder.MakingAmount) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "source escrow balance does not match order's making amount")
	}
	return nil
}

// verifyDstEvent applies the symmetric checks to the destination escrow
// event: hashlock consistency plus the destination escrow's balance against
// the order's taking amount — the same full set verifySrcEvent runs, scaled
// to what a destination-side event actually carries.
func (m *Manager) verifyDstEvent(ctx context.Context, entry *domain.OrderEntry, quote *domain.QuoteEntry, evt *chainadapter.DstEscrowCreated) error {
	if !hashlockMatchesOrder(evt.Hashlock, entry.Order) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "escrow hashlock not among order's secret hashes")
	}

	balance, err := m.adapterFor(entry.Status.DstChainID).ERC20Balance(ctx, quote.DstTokenAddress, evt.Escrow)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.KindChainUnreachable, "check destination escrow balance", err)
	}
	if !amountsEqual(balance, entry.Order.LimitOrder.TakingAmount) {
		return coordinatorerr.New(coordinatorerr.KindVerificationMismatch, "destination escrow balance does not match order's taking amount")
	}
	return nil
}

func hashlockMatchesOrder(hashlock domain.Hash32, order domain.Order) bool {
	if len(order.SecretHashes) == 0 {
		return true
	}
	for _, h := range order.SecretHashes {
		if h == hashlock {
			return true
		}
	}
	return false
}

func amountsEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Cmp(b) == 0
}

func addressesEqual(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// computeTTL is the corrected formula from the design notes: each side
// contributes its own elapsed time since its escrow's block time, and a
// side that has not yet been observed contributes zero elapsed time rather
// than borrowing "now" — so the TTL never shrinks just because one side's
// event hasn't arrived yet.
func computeTTL(srcBlockTime, dstBlockTime time.Time, srcChain, dstChain domain.ChainID) time.Duration {
	now := time.Now()

	var srcElapsed, dstElapsed time.Duration
	if !srcBlockTime.IsZero() {
		srcElapsed = now.Sub(srcBlockTime)
	}
	if !dstBlockTime.IsZero() {
		dstElapsed = now.Sub(dstBlockTime)
	}

	srcWindow := finalityWindow(srcChain)
	dstWindow := finalityWindow(dstChain)

	srcRemaining := srcWindow - srcElapsed
	dstRemaining := dstWindow - dstElapsed

	remaining := srcRemaining
	if dstRemaining > remaining {
		remaining = dstRemaining
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// finalityWindow is the minimum time a resolver must wait for finality on
// each chain family before a secret may safely be released.
func finalityWindow(chainID domain.ChainID) time.Duration {
	if chainID.IsEVM() {
		return 2 * time.Minute
	}
	return 30 * time.Second
}

// scheduleSecretRelease marks the order ready once its release TTL has
// elapsed. A zero or already-elapsed TTL releases immediately. The timer
// callback re-reads the order and tolerates it having been evicted in the
// meantime (GetOrder returning NotFound is a silent no-op, never a panic).
func (m *Manager) scheduleSecretRelease(orderHash string, hashlock domain.Hash32, srcTxHash, dstTxHash string, ttl time.Duration) {
	release := func() {
		entry, err := m.GetOrder(orderHash)
		if err != nil {
			return
		}
		m.appendReadyFills(entry, hashlock, srcTxHash, dstTxHash)
	}
	if ttl <= 0 {
		release()
		return
	}
	time.AfterFunc(ttl, release)
}

// appendReadyFills is allowSecretRelease (§4.5): for SINGLE_FILL orders it
// appends {idx: 0, srcTxHash, dstTxHash} unconditionally; for MULTI_FILL
// orders it appends one ReadyFill for every index whose secretHashes entry
// equals the observed hashlock (multiple matches are legal).
func (m *Manager) appendReadyFills(entry *domain.OrderEntry, hashlock domain.Hash32, srcTxHash, dstTxHash string) {
	if entry.OrderType == domain.OrderTypeSingleFill {
		entry.AppendFill(domain.ReadyFill{Idx: 0, SrcTxHash: srcTxHash, DstTxHash: dstTxHash})
		return
	}
	for i, h := range entry.Order.SecretHashes {
		if h == hashlock {
			entry.AppendFill(domain.ReadyFill{Idx: i, SrcTxHash: srcTxHash, DstTxHash: dstTxHash})
		}
	}
}

// HandleSecretEvent implements §4.5's HandleSecretEvent: the maker has
// revealed a secret for an order that already has at least one ReadyFill
// (it never creates one itself — that is appendReadyFills's job, triggered
// only by on-chain verification). It broadcasts
// "SECRET <orderHashHex> <secretHex>" for resolvers to consume.
func (m *Manager) HandleSecretEvent(orderHash, secretHex string) error {
	entry, err := m.GetOrder(orderHash)
	if err != nil {
		return err
	}
	secret, err := domain.ParseHash32(secretHex)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "parse secret", err)
	}
	if entry.Status.Status != domain.StateReady {
		return coordinatorerr.New(coordinatorerr.KindBadRequest, "no ready fill for order")
	}

	msg := []byte(fmt.Sprintf("SECRET %s %s", entry.OrderHash, secret.Hex()))
	m.broadcast.Broadcast(msg)
	m.logger.Info("secret broadcast", zap.String("orderHash", entry.OrderHash))
	return nil
}

// HandleReceiveEvent is the ingress point for inbound wire frames from
// resolvers (§4.5/§6). Exactly one kind is recognized — TXHASH; everything
// else, including any frame claiming to be a maker-originated SECRET event
// (the wire protocol only ever sends SECRET *to* resolvers, never accepts
// it from them), is UnknownEvent: logged and discarded, connection stays
// open.
func (m *Manager) HandleReceiveEvent(ctx context.Context, kind string, payload map[string]string) error {
	if kind != "TXHASH" {
		return coordinatorerr.New(coordinatorerr.KindUnknownEvent, "unknown event kind: "+kind)
	}
	return m.HandleTxHash(ctx, payload["orderHash"], payload["srcTxHash"], payload["dstTxHash"])
}

// Subscribe registers a new broadcast subscriber (one per WS connection).
func (m *Manager) Subscribe() *broadcaster.Subscriber { return m.broadcast.Register() }

// Unsubscribe removes a broadcast subscriber.
func (m *Manager) Unsubscribe(id uint64) { m.broadcast.Unregister(id) }

func (m *Manager) adapterFor(chainID domain.ChainID) chainadapter.ChainAdapter {
	if chainID.IsEVM() {
		return m.evm
	}
	return m.chainB
}

// Stats mirrors the relayer's own order-statistics endpoint. It reports the
// live subscriber count only; orders are not counted by state.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"subscribers": m.broadcast.Count(),
	}
}

// Close drains both TTL stores and shuts down the broadcaster. Call during
// graceful shutdown, after the HTTP/WS servers have stopped accepting.
func (m *Manager) Close() {
	m.quotes.Drain()
	m.orders.Drain()
	m.quotes.Close()
	m.orders.Close()
	m.broadcast.Close()
}
