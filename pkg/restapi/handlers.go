package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/coordinatorerr"
	"github.com/crosschain-labs/swap-coordinator/pkg/domain"
	"github.com/crosschain-labs/swap-coordinator/pkg/orderhash"
	"github.com/crosschain-labs/swap-coordinator/pkg/quoteprovider"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := coordinatorerr.KindOf(err)
	status := coordinatorerr.HTTPStatus(kind)
	logger.Warn("request failed", zap.String("kind", string(kind)), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// getQuote handles GET /quoter/v1.0/quote/receive.
func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	srcChain, err := domain.ParseChainID(q.Get("srcChain"))
	if err != nil {
		writeError(w, s.logger, coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "parse srcChain", err))
		return
	}
	dstChain, err := domain.ParseChainID(q.Get("dstChain"))
	if err != nil {
		writeError(w, s.logger, coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "parse dstChain", err))
		return
	}

	params := quoteprovider.Params{
		SrcChainID:    srcChain,
		DstChainID:    dstChain,
		SrcTokenAddr:  q.Get("srcTokenAddress"),
		DstTokenAddr:  q.Get("dstTokenAddress"),
		Amount:        q.Get("amount"),
		WalletAddress: q.Get("walletAddress"),
	}

	quote, err := s.quotes.Fetch(r.Context(), params)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.mgr.SetQuote(quote)
	writeJSON(w, http.StatusOK, quote)
}

// submitOrder handles POST /relayer/v1.0/submit.
func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, s.logger, coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "decode order body", err))
		return
	}

	orderHash, err := orderhash.Hash(order.SrcChainID, order.LimitOrder)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	entry, err := s.mgr.SubmitOrder(r.Context(), order, orderHash)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry.Status)
}

// getOrderStatus handles GET /orders/v1.0/order/status/{orderHash}, and
// also GET /orders/v1.0/order/status?orderHash=... .
func (s *Server) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderHash := mux.Vars(r)["orderHash"]
	if orderHash == "" {
		orderHash = r.URL.Query().Get("orderHash")
	}
	if orderHash == "" {
		writeError(w, s.logger, coordinatorerr.New(coordinatorerr.KindBadRequest, "orderHash is required"))
		return
	}

	entry, err := s.mgr.GetOrder(orderHash)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.Status)
}

// submitSecret handles POST /relayer/v1.0/submit/secret — a maker revealing
// a secret once the coordinator has signaled a fill is ready. This only
// broadcasts "SECRET <orderHashHex> <secretHex>" to resolvers; it requires
// a ReadyFill to already exist and never creates one itself.
func (s *Server) submitSecret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderHash string `json:"orderHash"`
		Secret    string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, coordinatorerr.Wrap(coordinatorerr.KindBadRequest, "decode secret body", err))
		return
	}

	if err := s.mgr.HandleSecretEvent(req.OrderHash, req.Secret); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// readyToAcceptSecretFills handles
// GET /orders/v1.0/order/ready-to-accept-secret-fills/:orderHash — it
// atomically drains and returns the order's pending ReadyFills, resetting
// the order's queue to empty.
func (s *Server) readyToAcceptSecretFills(w http.ResponseWriter, r *http.Request) {
	orderHash := mux.Vars(r)["orderHash"]
	entry, err := s.mgr.GetOrder(orderHash)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.DrainFills())
}

// health reports liveness for process supervisors.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "stats": s.mgr.Stats()})
}
