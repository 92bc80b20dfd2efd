package withdraw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papertrade/internal/notify"
	"papertrade/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid withdrawal request")

// Log records withdrawal requests for operator review.
type Log interface {
	Append(ctx context.Context, req store.WithdrawalRequest) error
	List(ctx context.Context) ([]store.WithdrawalRequest, error)
}

// Service records withdrawal requests. Balances are not touched here;
// payout happens out of band once the operator approves the request.
type Service struct {
	log Log
	now func() time.Time
}

func NewService(log Log) *Service {
	return &Service{log: log, now: time.Now}
}

func (s *Service) Request(ctx context.Context, username, address string, amount decimal.Decimal) (store.WithdrawalRequest, []notify.Event, error) {
	if address == "" {
		return store.WithdrawalRequest{}, nil, fmt.Errorf("%w: address required", ErrInvalidRequest)
	}
	if !amount.IsPositive() {
		return store.WithdrawalRequest{}, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	req := store.WithdrawalRequest{
		ID:       uuid.NewString(),
		Username: username,
		Address:  address,
		Amount:   amount,
		Date:     s.now().UTC(),
	}
	if err := s.log.Append(ctx, req); err != nil {
		return store.WithdrawalRequest{}, nil, err
	}
	events := []notify.Event{{
		Type:     notify.EventWithdrawalRequested,
		Username: username,
		Address:  address,
		Amount:   amount,
	}}
	return req, events, nil
}

func (s *Service) List(ctx context.Context) ([]store.WithdrawalRequest, error) {
	return s.log.List(ctx)
}
