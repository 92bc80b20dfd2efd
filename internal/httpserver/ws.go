package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"papertrade/internal/quotes"
	"papertrade/internal/types"

	"github.com/gorilla/websocket"
)

// WSHandler streams the current price lists to connected clients on a
// fixed interval. No auth: prices are public data.
type WSHandler struct {
	quotes   *quotes.Service
	origin   string
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewWSHandler(q *quotes.Service, origin string, interval time.Duration) *WSHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &WSHandler{
		quotes:   q,
		origin:   origin,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// Allow both localhost and 127.0.0.1 variants for development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

type pricesMessage struct {
	Type    string              `json:"type"`
	Futures []quotes.AssetPrice `json:"futures"`
	Spot    []quotes.AssetPrice `json:"spot"`
	TS      int64               `json:"ts"`
}

func (h *WSHandler) snapshot(ctx context.Context) pricesMessage {
	msg := pricesMessage{Type: "prices", TS: time.Now().UnixMilli()}
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	if futures, err := h.quotes.Current(ctx, types.MarketFutures); err == nil {
		msg.Futures = futures
	}
	if spot, err := h.quotes.Current(ctx, types.MarketSpot); err == nil {
		msg.Spot = spot
	}
	return msg
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.snapshot(r.Context())); err != nil {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(h.snapshot(r.Context())); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
