package health

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"papertrade/internal/httputil"
	"papertrade/internal/quotes"
	"papertrade/internal/store"
	"papertrade/internal/types"
)

type Handler struct {
	store     store.Store
	quotes    *quotes.Service
	startedAt time.Time
	httpAddr  string
	backend   string
}

func NewHandler(st store.Store, q *quotes.Service, startedAt time.Time, httpAddr, backend string) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{store: st, quotes: q, startedAt: start, httpAddr: httpAddr, backend: backend}
}

type healthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	UptimeSec int64        `json:"uptime_sec"`
	Uptime    string       `json:"uptime"`
	App       appStats     `json:"app"`
	Runtime   runtimeStats `json:"runtime"`
	Storage   storageStats `json:"storage"`
	Quotes    quoteStats   `json:"quotes"`
}

type appStats struct {
	HTTPAddr     string `json:"http_addr"`
	StoreBackend string `json:"store_backend"`
	PID          int    `json:"pid"`
}

type runtimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	AllocBytes uint64 `json:"alloc_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

type storageStats struct {
	Reachable bool   `json:"reachable"`
	Accounts  int    `json:"accounts"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

type quoteStats struct {
	FuturesCached int `json:"futures_cached"`
	SpotCached    int `json:"spot_cached"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	storage := storageStats{}
	pingStart := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	accounts, err := h.store.Load(ctx)
	cancel()
	storage.PingMs = time.Since(pingStart).Milliseconds()
	if err != nil {
		storage.Error = err.Error()
	} else {
		storage.Reachable = true
		storage.Accounts = len(accounts)
	}

	status := "ok"
	code := http.StatusOK
	if !storage.Reachable {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httputil.WriteJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.Truncate(time.Second).String(),
		App: appStats{
			HTTPAddr:     h.httpAddr,
			StoreBackend: h.backend,
			PID:          os.Getpid(),
		},
		Runtime: runtimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			AllocBytes: mem.Alloc,
			NumGC:      mem.NumGC,
		},
		Storage: storage,
		Quotes: quoteStats{
			FuturesCached: len(h.quotes.Cached(types.MarketFutures)),
			SpotCached:    len(h.quotes.Cached(types.MarketSpot)),
		},
	})
}
