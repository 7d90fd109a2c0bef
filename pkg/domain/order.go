package domain

import (
	"encoding/json"
	"math/big"
	"sync"
	"time"
)

// OrderType distinguishes single-secret orders from partial-fill orders
// keyed by a sequence of secret hashes.
type OrderType string

const (
	OrderTypeSingleFill OrderType = "SINGLE_FILL"
	OrderTypeMultiFill  OrderType = "MULTI_FILL"
)

// OrderState is the per-order lifecycle state of §4.5's state machine.
type OrderState string

const (
	StateCreated   OrderState = "pending"
	StateObserved  OrderState = "observed"
	StateReady     OrderState = "ready"
	StateSettled   OrderState = "settled"
	StateExpired   OrderState = "expired"
	StateCancelled OrderState = "cancelled"
)

// LimitOrder is the maker's signed limit order, field-for-field the
// §3 schema (1inch Aggregation-Router-compatible on the EVM side).
type LimitOrder struct {
	Salt         *big.Int `json:"salt"`
	Maker        string   `json:"maker"`
	Receiver     string   `json:"receiver"`
	MakerAsset   string   `json:"makerAsset"`
	TakerAsset   string   `json:"takerAsset"`
	MakingAmount *big.Int `json:"makingAmount"`
	TakingAmount *big.Int `json:"takingAmount"`
	MakerTraits  *big.Int `json:"makerTraits"`
}

// Order is the wire/REST representation a maker submits to
// POST /relayer/v1.0/submit.
type Order struct {
	SrcChainID   ChainID    `json:"srcChainId"`
	LimitOrder   LimitOrder `json:"limitOrder"`
	Signature    string     `json:"signature"`
	QuoteID      string     `json:"quoteId"`
	Extension    string     `json:"extension,omitempty"`
	SecretHashes []Hash32   `json:"secretHashes,omitempty"`
}

// Mode reports SINGLE_FILL vs MULTI_FILL from the length of SecretHashes,
// per §3: "MULTI iff |secretHashes| > 1".
func (o *Order) Mode() OrderType {
	if len(o.SecretHashes) > 1 {
		return OrderTypeMultiFill
	}
	return OrderTypeSingleFill
}

// ReadyFill is one (index, tx-pair) the maker may now safely reveal a
// secret for. For SINGLE_FILL orders Idx is always 0.
type ReadyFill struct {
	Idx       int    `json:"idx"`
	SrcTxHash string `json:"srcTxHash"`
	DstTxHash string `json:"dstTxHash"`
}

// Preset is the upstream quote's recommended execution parameters, echoed
// into the seeded OrderStatus on submit.
type Preset struct {
	Points          []int64 `json:"points,omitempty"`
	InitialRateBump int64   `json:"initialRateBump"`
	SrcUSDPrice     string  `json:"srcUsdPrice,omitempty"`
	DstUSDPrice     string  `json:"dstUsdPrice,omitempty"`
}

// QuoteEntry is the Quote data model of §3: the upstream-supplied bundle
// plus the coordinator's own bookkeeping fields.
type QuoteEntry struct {
	QuoteID          string    `json:"quoteId"`
	SrcChainID       ChainID   `json:"srcChainId"`
	DstChainID       ChainID   `json:"dstChainId"`
	SrcTokenAddress  string    `json:"srcTokenAddress"`
	DstTokenAddress  string    `json:"dstTokenAddress"`
	SrcSafetyDeposit *big.Int  `json:"srcSafetyDeposit"`
	Timelocks        Timelocks `json:"timelocks"`
	Preset           Preset    `json:"preset"`
	// Raw is the opaque upstream bundle (pricing, presets, etc.) returned
	// verbatim to the maker alongside the fields above.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// OrderStatus is the read model returned by GET /orders/v1.0/order/status.
type OrderStatus struct {
	OrderHash       string     `json:"orderHash"`
	Order           Order      `json:"order"`
	Status          OrderState `json:"status"`
	Points          []int64    `json:"points,omitempty"`
	InitialRateBump int64      `json:"initialRateBump"`
	SrcChainID      ChainID    `json:"srcChainId"`
	DstChainID      ChainID    `json:"dstChainId"`
	SrcUSDPrice     string     `json:"srcUsdPrice,omitempty"`
	DstUSDPrice     string     `json:"dstUsdPrice,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// OrderEntry is the stored, keyed-by-order-hash record §3 describes.
type OrderEntry struct {
	OrderType OrderType
	OrderHash string
	Order     Order
	Status    OrderStatus

	fillsMutex sync.Mutex
	fills      []ReadyFill
}

// NewOrderEntry builds the initial CREATED-state entry for a freshly
// submitted order.
func NewOrderEntry(orderHash string, order Order, status OrderStatus) *OrderEntry {
	return &OrderEntry{
		OrderType: order.Mode(),
		OrderHash: orderHash,
		Order:     order,
		Status:    status,
		fills:     make([]ReadyFill, 0, 2),
	}
}

// AppendFill adds one ReadyFill under the entry's fills mutex. No
// deduplication: resolvers key on (orderHash, idx) and duplicates are
// harmless, per §4.5.
func (e *OrderEntry) AppendFill(fill ReadyFill) {
	e.fillsMutex.Lock()
	e.fills = append(e.fills, fill)
	if e.Status.Status == StateCreated || e.Status.Status == StateObserved {
		e.Status.Status = StateReady
	}
	e.fillsMutex.Unlock()
}

// DrainFills atomically swaps the fills slice for a fresh, half-capacity
// one and returns what was there — the "swap-out on read" pattern from the
// design notes. AppendFill takes the same mutex, so writers wait only for
// the swap itself.
func (e *OrderEntry) DrainFills() []ReadyFill {
	e.fillsMutex.Lock()
	out := e.fills
	newCap := cap(e.fills) / 2
	e.fills = make([]ReadyFill, 0, newCap)
	e.fillsMutex.Unlock()
	return out
}

// SetObserved transitions CREATED -> OBSERVED once a chain verification has
// passed and a release timer is pending.
func (e *OrderEntry) SetObserved() {
	e.fillsMutex.Lock()
	if e.Status.Status == StateCreated {
		e.Status.Status = StateObserved
	}
	e.fillsMutex.Unlock()
}
