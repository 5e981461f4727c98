package stream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Serve upgrades the request and writes every event for tradeID (0 for all)
// as a JSON text frame until the client goes away or ctx ends.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, tradeID uint64, writeTimeout time.Duration) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	sub := h.Subscribe(tradeID)
	defer h.Unsubscribe(sub)

	// Clients only listen; CloseRead handles their close frames.
	ctx = conn.CloseRead(ctx)
	h.logger.Debug("trade stream subscriber joined", zap.Uint64("trade_id", tradeID))

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case evt, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "unsubscribed")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, evt)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
