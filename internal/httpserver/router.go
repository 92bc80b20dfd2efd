package httpserver

import (
	"net/http"
	"os"
	"path/filepath"

	"papertrade/internal/auth"
	"papertrade/internal/health"
	"papertrade/internal/httputil"
	"papertrade/internal/ledger"
	"papertrade/internal/quotes"
	"papertrade/internal/withdraw"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler     *auth.Handler
	LedgerHandler   *ledger.Handler
	QuoteHandler    *quotes.Handler
	WithdrawHandler *withdraw.Handler
	HealthHandler   *health.Handler
	AuthService     *auth.Service
	WSHandler       http.Handler
	UIDist          string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Security Middleware
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	authed := func(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			username, ok := Username(r)
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
				return
			}
			fn(w, r, username)
		}
	}

	r.Get("/health", d.HealthHandler.Health)
	r.Post("/register", d.AuthHandler.Register)
	r.Post("/login", d.AuthHandler.Login)

	r.Route("/api", func(r chi.Router) {
		r.Post("/getCurrentPrice", d.QuoteHandler.GetCurrentPrice)
		r.Get("/futures_kline", d.QuoteHandler.FuturesKlines)
		r.Get("/spot_kline", d.QuoteHandler.SpotKlines)
		r.Get("/ws/prices", d.WSHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Post("/getBalance", authed(d.LedgerHandler.GetBalance))
			r.Post("/getPositions", authed(d.LedgerHandler.GetPositions))
			r.Post("/openFuturesPosition", authed(d.LedgerHandler.OpenFutures))
			r.Post("/openSpotPosition", authed(d.LedgerHandler.OpenSpot))
			r.Post("/closeFuturesPosition", authed(d.LedgerHandler.CloseFutures))
			r.Post("/closeSpotPosition", authed(d.LedgerHandler.CloseSpot))
			r.Post("/partialClosePosition", authed(d.LedgerHandler.PartialClose))
			r.Post("/saveTPSL", authed(d.LedgerHandler.SaveTPSL))
			r.Post("/startTrade", authed(d.LedgerHandler.StartTrade))
			r.Post("/updateValue", authed(d.LedgerHandler.UpdateValue))
			r.Post("/updateBalance", authed(d.LedgerHandler.UpdateBalance))
			r.Post("/withdrawRequest", authed(d.WithdrawHandler.Request))
		})
	})

	if d.UIDist != "" {
		r.NotFound(spaHandler(d.UIDist).ServeHTTP)
	}
	return r
}

func spaHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}
		clean := filepath.Clean(path)
		full := filepath.Join(dir, clean)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			http.ServeFile(w, r, full)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
