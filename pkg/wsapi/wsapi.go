// Package wsapi implements the WS endpoint surface (§4.7): resolvers
// subscribe to the broadcaster's event stream and push TXHASH frames back
// for the Manager to ingest.
package wsapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/manager"
)

const writeWait = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades connections and pumps broadcaster output to each one
// while reading inbound event frames back into the Manager.
type Handler struct {
	mgr    *manager.Manager
	logger *zap.Logger
}

// NewHandler builds a Handler bound to mgr.
func NewHandler(mgr *manager.Manager, logger *zap.Logger) *Handler {
	return &Handler{mgr: mgr, logger: logger}
}

// ServeHTTP upgrades the connection, registers it with the Manager's
// broadcaster, and runs the read and write pumps until either side closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.mgr.Subscribe()
	ctx, cancel := context.WithCancel(r.Context())

	go h.writePump(ctx, conn, sub.Outbox)
	h.readPump(ctx, conn)

	cancel()
	h.mgr.Unsubscribe(sub.ID)
	_ = conn.Close()
}

// writePump drains the subscriber's outbox to the socket, one frame at a
// time, with a short per-write deadline so a stalled client never blocks
// the broadcaster's non-blocking sends indefinitely.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, outbox <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-outbox:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound ASCII-space-separated text frames and hands them
// to the Manager. The only frame a resolver ever sends is
// "TXHASH <orderHashHex> <srcTxHash> <dstTxHash>" (§6); anything else is
// routed to HandleReceiveEvent under its own first token and comes back as
// UnknownEvent. A frame that starts with "TXHASH" but has the wrong field
// count reaches HandleTxHash with empty fields and fails there with
// NotFound. Either way the error is logged and the connection stays open.
// No resolver authentication or authorization is performed: a TXHASH frame
// from any connected client is processed.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		fields := strings.Fields(string(data))
		if len(fields) == 0 {
			h.logger.Warn("empty ws frame")
			continue
		}

		kind := fields[0]
		var payload map[string]string
		if kind == "TXHASH" && len(fields) == 4 {
			payload = map[string]string{
				"orderHash": fields[1],
				"srcTxHash": fields[2],
				"dstTxHash": fields[3],
			}
		}

		if err := h.mgr.HandleReceiveEvent(ctx, kind, payload); err != nil {
			h.logger.Warn("failed to handle ws event", zap.String("type", kind), zap.Error(err))
		}
	}
}
