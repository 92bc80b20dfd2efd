package quotes

import (
	"errors"
	"net/http"

	"papertrade/internal/httputil"
	"papertrade/internal/types"
)

type Handler struct {
	svc    *Service
	klines *KlineProxy
}

func NewHandler(svc *Service, klines *KlineProxy) *Handler {
	return &Handler{svc: svc, klines: klines}
}

type currentPriceRequest struct {
	AccountType string `json:"account_type"`
}

type currentPriceResponse struct {
	CurrentPrices []AssetPrice `json:"current_prices"`
}

func (h *Handler) GetCurrentPrice(w http.ResponseWriter, r *http.Request) {
	var req currentPriceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	market, err := types.ParseMarket(req.AccountType)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	prices, err := h.svc.Current(r.Context(), market)
	if err != nil {
		if errors.Is(err, ErrPriceUnavailable) {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "failed to fetch price, please try again later"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, currentPriceResponse{CurrentPrices: prices})
}

func (h *Handler) FuturesKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "BTC_USDT"
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "Min1"
	}
	data, err := h.klines.Klines(r.Context(), types.MarketFutures, symbol, interval)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: "failed to fetch kline data"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (h *Handler) SpotKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "BTC_USDT"
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1m"
	}
	data, err := h.klines.Klines(r.Context(), types.MarketSpot, symbol, interval)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: "failed to fetch kline data"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}
