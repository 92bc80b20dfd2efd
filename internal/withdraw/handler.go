package withdraw

import (
	"context"
	"errors"
	"net/http"

	"papertrade/internal/httputil"
	"papertrade/internal/notify"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc      *Service
	notifier *notify.Notifier
}

func NewHandler(svc *Service, notifier *notify.Notifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

type withdrawRequest struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request, username string) {
	var req withdrawRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	rec, events, err := h.svc.Request(r.Context(), username, req.Address, req.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if h.notifier != nil && len(events) > 0 {
		go h.notifier.Dispatch(context.Background(), events)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": rec.ID, "status": "received"})
}
