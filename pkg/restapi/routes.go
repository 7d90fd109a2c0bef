// Package restapi implements the REST endpoint surface (§4.6): quote
// lookup, order submission, and order-status polling, routed with
// gorilla/mux the way the rest of the pack's HTTP servers are.
package restapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/manager"
	"github.com/crosschain-labs/swap-coordinator/pkg/quoteprovider"
)

// Server bundles the dependencies the REST handlers close over.
type Server struct {
	mgr    *manager.Manager
	quotes *quoteprovider.Provider
	logger *zap.Logger
}

// NewRouter builds the mux.Router for all REST routes, wired with request
// logging, JSON-response headers, and permissive CORS for browser clients.
func NewRouter(mgr *manager.Manager, quotes *quoteprovider.Provider, logger *zap.Logger) *mux.Router {
	s := &Server{mgr: mgr, quotes: quotes, logger: logger}

	r := mux.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(jsonHeaders)
	r.Use(cors)

	r.HandleFunc("/quoter/v1.0/quote/receive", s.getQuote).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/relayer/v1.0/submit", s.submitOrder).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/orders/v1.0/order/status", s.getOrderStatus).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/orders/v1.0/order/status/{orderHash}", s.getOrderStatus).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/relayer/v1.0/submit/secret", s.submitSecret).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/orders/v1.0/order/ready-to-accept-secret-fills/{orderHash}", s.readyToAcceptSecretFills).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	return r
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("incoming request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

func jsonHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// cors allows any origin, matching §4.6's requirement that browser-based
// makers/resolvers can call the REST surface directly without a proxy.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
