package ledger

import (
	"context"
	"errors"
	"net/http"

	"papertrade/internal/httputil"
	"papertrade/internal/model"
	"papertrade/internal/notify"
	"papertrade/internal/quotes"
	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc      *Service
	notifier *notify.Notifier
}

func NewHandler(svc *Service, notifier *notify.Notifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

// dispatch fans events out without blocking the response.
func (h *Handler) dispatch(events []notify.Event) {
	if h.notifier == nil || len(events) == 0 {
		return
	}
	go h.notifier.Dispatch(context.Background(), events)
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrPositionNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrLimitOrderCapExceeded),
		errors.Is(err, ErrInvalidCloseState),
		errors.Is(err, ErrInvalidRequest):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, quotes.ErrPriceUnavailable):
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "market price unavailable"})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}

func parseOptionalDecimal(s string, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &d, nil
}

type openFuturesRequest struct {
	Asset      string          `json:"asset"`
	Side       string          `json:"side"`
	OrderType  string          `json:"order_type"`
	Amount     decimal.Decimal `json:"amount"`
	Leverage   int64           `json:"leverage"`
	LimitPrice string          `json:"limit_price"`
}

type openFuturesResponse struct {
	FuturesPositions []model.Position `json:"futures_positions"`
	FuturesBalance   decimal.Decimal  `json:"futures_balance"`
}

func (h *Handler) OpenFutures(w http.ResponseWriter, r *http.Request, username string) {
	var req openFuturesRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	limitPrice, err := parseOptionalDecimal(req.LimitPrice, "limit_price")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, events, err := h.svc.OpenFutures(r.Context(), username, OpenFuturesRequest{
		Asset:      req.Asset,
		Side:       types.Side(req.Side),
		OrderKind:  types.OrderKind(req.OrderType),
		Amount:     req.Amount,
		Leverage:   req.Leverage,
		LimitPrice: limitPrice,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, openFuturesResponse{
		FuturesPositions: res.Positions,
		FuturesBalance:   res.NewBalance,
	})
}

type openSpotRequest struct {
	Asset      string          `json:"asset"`
	Side       string          `json:"side"`
	OrderType  string          `json:"order_type"`
	Amount     decimal.Decimal `json:"amount"`
	LimitPrice string          `json:"limit_price"`
}

type openSpotResponse struct {
	SpotPositions []model.Position `json:"spot_positions"`
	SpotBalance   decimal.Decimal  `json:"spot_balance"`
}

func (h *Handler) OpenSpot(w http.ResponseWriter, r *http.Request, username string) {
	var req openSpotRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	limitPrice, err := parseOptionalDecimal(req.LimitPrice, "limit_price")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, events, err := h.svc.OpenSpot(r.Context(), username, OpenSpotRequest{
		Asset:      req.Asset,
		Side:       types.Side(req.Side),
		OrderKind:  types.OrderKind(req.OrderType),
		Amount:     req.Amount,
		LimitPrice: limitPrice,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, openSpotResponse{
		SpotPositions: res.Positions,
		SpotBalance:   res.NewBalance,
	})
}

type closeFuturesRequest struct {
	PositionID int64  `json:"position_id"`
	Reason     string `json:"reason"`
}

type closeFuturesResponse struct {
	FuturesPositions []model.Position `json:"futures_positions"`
	FuturesBalance   decimal.Decimal  `json:"futures_balance"`
	ProfitLoss       decimal.Decimal  `json:"profit_loss"`
}

func (h *Handler) CloseFutures(w http.ResponseWriter, r *http.Request, username string) {
	var req closeFuturesRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	reason, err := types.ParseCloseReason(req.Reason)
	if err != nil || reason == types.CloseReasonPartial {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid close reason"})
		return
	}
	res, events, err := h.svc.CloseFutures(r.Context(), username, req.PositionID, reason)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, closeFuturesResponse{
		FuturesPositions: res.Positions,
		FuturesBalance:   res.NewBalance,
		ProfitLoss:       res.ProfitLoss,
	})
}

type closeSpotRequest struct {
	PositionID int64 `json:"position_id"`
}

type closeSpotResponse struct {
	SpotPositions []model.Position `json:"spot_positions"`
	SpotBalance   decimal.Decimal  `json:"spot_balance"`
}

func (h *Handler) CloseSpot(w http.ResponseWriter, r *http.Request, username string) {
	var req closeSpotRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, events, err := h.svc.CloseSpot(r.Context(), username, req.PositionID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, closeSpotResponse{
		SpotPositions: res.Positions,
		SpotBalance:   res.NewBalance,
	})
}

type partialCloseRequest struct {
	PositionID int64           `json:"position_id"`
	Percent    decimal.Decimal `json:"percent"`
}

func (h *Handler) PartialClose(w http.ResponseWriter, r *http.Request, username string) {
	var req partialCloseRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, events, err := h.svc.PartialClose(r.Context(), username, req.PositionID, req.Percent)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, closeFuturesResponse{
		FuturesPositions: res.Positions,
		FuturesBalance:   res.NewBalance,
		ProfitLoss:       res.ProfitLoss,
	})
}

type saveTPSLRequest struct {
	PositionID int64  `json:"position_id"`
	TakeProfit string `json:"tp"`
	StopLoss   string `json:"sl"`
}

func (h *Handler) SaveTPSL(w http.ResponseWriter, r *http.Request, username string) {
	var req saveTPSLRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	tp, err := parseOptionalDecimal(req.TakeProfit, "tp")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	sl, err := parseOptionalDecimal(req.StopLoss, "sl")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	positions, events, err := h.svc.SetTPSL(r.Context(), username, req.PositionID, tp, sl)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.dispatch(events)
	httputil.WriteJSON(w, http.StatusOK, map[string][]model.Position{"futures_positions": positions})
}

type startTradeRequest struct {
	PositionID int64 `json:"position_id"`
}

type startTradeResponse struct {
	FuturesPositions []model.Position `json:"futures_positions"`
	SpotPositions    []model.Position `json:"spot_positions"`
}

func (h *Handler) StartTrade(w http.ResponseWriter, r *http.Request, username string) {
	var req startTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.Activate(r.Context(), username, req.PositionID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, startTradeResponse{
		FuturesPositions: res.Futures,
		SpotPositions:    res.Spot,
	})
}

type positionsResponse struct {
	FuturesPositions       []model.Position       `json:"futures_positions"`
	ClosedFuturesPositions []model.ClosedPosition `json:"closed_futures_positions"`
	SpotPositions          []model.Position       `json:"spot_positions"`
	ClosedSpotPositions    []model.ClosedPosition `json:"closed_spot_positions"`
}

func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request, username string) {
	snap, err := h.svc.GetPositions(r.Context(), username)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, positionsResponse{
		FuturesPositions:       snap.FuturesOpen,
		ClosedFuturesPositions: snap.FuturesClosed,
		SpotPositions:          snap.SpotOpen,
		ClosedSpotPositions:    snap.SpotClosed,
	})
}

type balanceResponse struct {
	Username       string          `json:"username"`
	FuturesBalance decimal.Decimal `json:"futures_balance"`
	SpotBalance    decimal.Decimal `json:"spot_balance"`
	Address        string          `json:"address"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request, username string) {
	info, err := h.svc.GetBalance(r.Context(), username)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{
		Username:       info.Username,
		FuturesBalance: info.FuturesBalance,
		SpotBalance:    info.SpotBalance,
		Address:        info.WalletAddress,
	})
}

type updateValueRequest struct {
	FuturesPositionsAmount decimal.Decimal `json:"futures_positions_amount"`
	FuturesUnrealizedPL    decimal.Decimal `json:"futures_unrealized_pl"`
	SpotValue              decimal.Decimal `json:"spot_value"`
	TotalValue             decimal.Decimal `json:"total_value"`
}

type updateValueResponse struct {
	FuturesValue decimal.Decimal `json:"futures_value"`
	SpotValue    decimal.Decimal `json:"spot_value"`
}

func (h *Handler) UpdateValue(w http.ResponseWriter, r *http.Request, username string) {
	var req updateValueRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.UpdateValue(r.Context(), username, UpdateValueRequest{
		FuturesPositionsAmount: req.FuturesPositionsAmount,
		FuturesUnrealizedPL:    req.FuturesUnrealizedPL,
		SpotValue:              req.SpotValue,
		TotalValue:             req.TotalValue,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updateValueResponse{
		FuturesValue: res.FuturesValue,
		SpotValue:    res.SpotValue,
	})
}

type updateBalanceRequest struct {
	FuturesBalance decimal.Decimal `json:"futures_balance"`
	SpotBalance    decimal.Decimal `json:"spot_balance"`
}

type updateBalanceResponse struct {
	FuturesBalance decimal.Decimal `json:"futures_balance"`
	SpotBalance    decimal.Decimal `json:"spot_balance"`
}

func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request, username string) {
	var req updateBalanceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := h.svc.UpdateBalance(r.Context(), username, req.FuturesBalance, req.SpotBalance)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updateBalanceResponse{
		FuturesBalance: res.FuturesBalance,
		SpotBalance:    res.SpotBalance,
	})
}
