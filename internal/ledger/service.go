package ledger

import (
	"context"
	"fmt"
	"time"

	"papertrade/internal/model"
	"papertrade/internal/notify"
	"papertrade/internal/quotes"
	"papertrade/internal/store"
	"papertrade/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service owns the position lifecycle and balance settlement. Every
// mutating operation runs as a single load -> transform -> save cycle
// under the account's exclusive lock, so concurrent requests against
// one username are linearized and no partial mutation is ever
// persisted.
type Service struct {
	store  store.Store
	quotes *quotes.Service
	guard  *store.Guard
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(st store.Store, q *quotes.Service, log zerolog.Logger) *Service {
	return &Service{
		store:  st,
		quotes: q,
		guard:  store.NewGuard(),
		log:    log.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
}

func (s *Service) mutate(ctx context.Context, username string, fn func(acc *model.Account) error) error {
	unlock := s.guard.Lock(username)
	defer unlock()
	accounts, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	acc, ok := accounts[username]
	if !ok {
		return ErrAccountNotFound
	}
	if err := fn(acc); err != nil {
		return err
	}
	return s.store.SaveAccount(ctx, username, acc)
}

type OpenFuturesRequest struct {
	Asset      string
	Side       types.Side
	OrderKind  types.OrderKind
	Amount     decimal.Decimal
	Leverage   int64
	LimitPrice *decimal.Decimal
}

type OpenSpotRequest struct {
	Asset      string
	Side       types.Side
	OrderKind  types.OrderKind
	Amount     decimal.Decimal
	LimitPrice *decimal.Decimal
}

type OpenResult struct {
	Positions  []model.Position
	NewBalance decimal.Decimal
}

type CloseResult struct {
	Positions  []model.Position
	NewBalance decimal.Decimal
	ProfitLoss decimal.Decimal
}

// OpenFutures reserves the margin up front for every order kind; a
// limit order holds margin before it is ever activated.
func (s *Service) OpenFutures(ctx context.Context, username string, req OpenFuturesRequest) (OpenResult, []notify.Event, error) {
	if !quotes.KnownAsset(req.Asset) {
		return OpenResult{}, nil, fmt.Errorf("%w: unknown asset %q", ErrInvalidRequest, req.Asset)
	}
	if !types.ValidFuturesSide(req.Side) {
		return OpenResult{}, nil, fmt.Errorf("%w: futures side must be Long or Short", ErrInvalidRequest)
	}
	if req.OrderKind != types.OrderKindMarket && req.OrderKind != types.OrderKindLimit {
		return OpenResult{}, nil, fmt.Errorf("%w: unknown order kind", ErrInvalidRequest)
	}
	if !req.Amount.IsPositive() {
		return OpenResult{}, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if req.Leverage < 1 {
		return OpenResult{}, nil, fmt.Errorf("%w: leverage must be at least 1", ErrInvalidRequest)
	}

	var result OpenResult
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		if req.OrderKind == types.OrderKindLimit && acc.PendingCount(types.MarketFutures) >= maxPendingPerMarket {
			return ErrLimitOrderCapExceeded
		}
		balance := acc.Balance(types.MarketFutures)
		if balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}
		price, err := s.quotes.GetPrice(ctx, types.MarketFutures, req.Asset)
		if err != nil {
			return err
		}
		pos := model.Position{
			ID:                acc.NextPositionID(s.now().UnixMilli()),
			AssetType:         req.Asset,
			Side:              req.Side,
			OrderKind:         req.OrderKind,
			PendingActivation: req.OrderKind == types.OrderKindLimit,
			Amount:            req.Amount,
			Leverage:          req.Leverage,
			LimitPrice:        req.LimitPrice,
			EntryPrice:        price,
			OpenedAt:          s.now().UTC(),
		}
		acc.SetBalance(types.MarketFutures, balance.Sub(req.Amount))
		acc.AppendOpen(types.MarketFutures, pos)

		result = OpenResult{Positions: acc.Open[types.MarketFutures], NewBalance: acc.Balance(types.MarketFutures)}
		events = append(events, notify.Event{
			Type:     notify.EventPositionOpened,
			Username: username,
			Market:   types.MarketFutures,
			Position: &pos,
		})
		return nil
	})
	if err != nil {
		return OpenResult{}, nil, err
	}
	return result, events, nil
}

// OpenSpot settles cash at open: a buy pays amount*price out of the
// balance, a sell credits it. The sell credit has no borrow check;
// that asymmetry is inherited from the product design.
func (s *Service) OpenSpot(ctx context.Context, username string, req OpenSpotRequest) (OpenResult, []notify.Event, error) {
	if !quotes.KnownAsset(req.Asset) {
		return OpenResult{}, nil, fmt.Errorf("%w: unknown asset %q", ErrInvalidRequest, req.Asset)
	}
	if !types.ValidSpotSide(req.Side) {
		return OpenResult{}, nil, fmt.Errorf("%w: spot side must be buy or sell", ErrInvalidRequest)
	}
	if req.OrderKind != types.OrderKindMarket && req.OrderKind != types.OrderKindLimit {
		return OpenResult{}, nil, fmt.Errorf("%w: unknown order kind", ErrInvalidRequest)
	}
	if !req.Amount.IsPositive() {
		return OpenResult{}, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	var result OpenResult
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		if req.OrderKind == types.OrderKindLimit && acc.PendingCount(types.MarketSpot) >= maxPendingPerMarket {
			return ErrLimitOrderCapExceeded
		}
		price, err := s.quotes.GetPrice(ctx, types.MarketSpot, req.Asset)
		if err != nil {
			return err
		}
		cost := req.Amount.Mul(price)
		balance := acc.Balance(types.MarketSpot)
		switch req.Side {
		case types.SideBuy:
			if balance.LessThan(cost) {
				return ErrInsufficientBalance
			}
			acc.SetBalance(types.MarketSpot, balance.Sub(cost))
		case types.SideSell:
			acc.SetBalance(types.MarketSpot, balance.Add(cost))
		}
		pos := model.Position{
			ID:                acc.NextPositionID(s.now().UnixMilli()),
			AssetType:         req.Asset,
			Side:              req.Side,
			OrderKind:         req.OrderKind,
			PendingActivation: req.OrderKind == types.OrderKindLimit,
			Amount:            req.Amount,
			LimitPrice:        req.LimitPrice,
			EntryPrice:        price,
			OpenedAt:          s.now().UTC(),
		}
		acc.AppendOpen(types.MarketSpot, pos)

		result = OpenResult{Positions: acc.Open[types.MarketSpot], NewBalance: acc.Balance(types.MarketSpot)}
		events = append(events, notify.Event{
			Type:     notify.EventPositionOpened,
			Username: username,
			Market:   types.MarketSpot,
			Position: &pos,
		})
		return nil
	})
	if err != nil {
		return OpenResult{}, nil, err
	}
	return result, events, nil
}

type PositionsPair struct {
	Futures []model.Position
	Spot    []model.Position
}

// Activate marks a pending limit position as filled. Margin was
// reserved at open, so no balance moves and no price is fetched.
func (s *Service) Activate(ctx context.Context, username string, positionID int64) (PositionsPair, error) {
	var result PositionsPair
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		if i := acc.FindOpen(types.MarketFutures, positionID); i >= 0 {
			acc.Open[types.MarketFutures][i].PendingActivation = false
		} else if i := acc.FindOpen(types.MarketSpot, positionID); i >= 0 {
			acc.Open[types.MarketSpot][i].PendingActivation = false
		} else {
			return ErrPositionNotFound
		}
		result = PositionsPair{Futures: acc.Open[types.MarketFutures], Spot: acc.Open[types.MarketSpot]}
		return nil
	})
	if err != nil {
		return PositionsPair{}, err
	}
	return result, nil
}

// SetTPSL overwrites take-profit and stop-loss on a futures position.
// A nil value means "never triggers". A change notification is emitted
// only for the field that actually changed.
func (s *Service) SetTPSL(ctx context.Context, username string, positionID int64, tp, sl *decimal.Decimal) ([]model.Position, []notify.Event, error) {
	var result []model.Position
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		i := acc.FindOpen(types.MarketFutures, positionID)
		if i < 0 {
			return ErrPositionNotFound
		}
		pos := &acc.Open[types.MarketFutures][i]
		if !decimalPtrEqual(pos.TakeProfit, tp) {
			pos.TakeProfit = tp
			snapshot := *pos
			events = append(events, notify.Event{Type: notify.EventTakeProfitSet, Username: username, Market: types.MarketFutures, Position: &snapshot})
		}
		if !decimalPtrEqual(pos.StopLoss, sl) {
			pos.StopLoss = sl
			snapshot := *pos
			events = append(events, notify.Event{Type: notify.EventStopLossSet, Username: username, Market: types.MarketFutures, Position: &snapshot})
		}
		result = acc.Open[types.MarketFutures]
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, events, nil
}

// CloseFutures settles the whole position at the current market price
// and returns the margin plus realized P/L to the balance.
func (s *Service) CloseFutures(ctx context.Context, username string, positionID int64, reason types.CloseReason) (CloseResult, []notify.Event, error) {
	var result CloseResult
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		var err error
		result, events, err = s.closeFuturesLocked(ctx, username, acc, positionID, reason)
		return err
	})
	if err != nil {
		return CloseResult{}, nil, err
	}
	return result, events, nil
}

func (s *Service) closeFuturesLocked(ctx context.Context, username string, acc *model.Account, positionID int64, reason types.CloseReason) (CloseResult, []notify.Event, error) {
	i := acc.FindOpen(types.MarketFutures, positionID)
	if i < 0 {
		return CloseResult{}, nil, ErrPositionNotFound
	}
	exitPrice, err := s.quotes.GetPrice(ctx, types.MarketFutures, acc.Open[types.MarketFutures][i].AssetType)
	if err != nil {
		return CloseResult{}, nil, err
	}
	pos := acc.RemoveOpen(types.MarketFutures, i)
	profitLoss := futuresProfitLoss(pos, exitPrice, reason)
	acc.SetBalance(types.MarketFutures, acc.Balance(types.MarketFutures).Add(pos.Amount).Add(profitLoss))
	acc.AppendClosed(types.MarketFutures, model.ClosedPosition{
		Position:   pos,
		ExitPrice:  exitPrice,
		RealizedPL: profitLoss,
		Reason:     reason,
		ClosedAt:   s.now().UTC(),
	})

	eventType := notify.EventPositionClosed
	if reason == types.CloseReasonPartial {
		eventType = notify.EventPositionPartialClosed
	}
	events := []notify.Event{{
		Type:       eventType,
		Username:   username,
		Market:     types.MarketFutures,
		Position:   &pos,
		ExitPrice:  exitPrice,
		ProfitLoss: profitLoss,
	}}
	return CloseResult{
		Positions:  acc.Open[types.MarketFutures],
		NewBalance: acc.Balance(types.MarketFutures),
		ProfitLoss: profitLoss,
	}, events, nil
}

// PartialClose settles a fraction of a futures position and shrinks the
// remaining amount, leaving the position open. A 100% partial close is
// routed through the full close path so the position leaves the open
// set.
func (s *Service) PartialClose(ctx context.Context, username string, positionID int64, percent decimal.Decimal) (CloseResult, []notify.Event, error) {
	if !percent.IsPositive() || percent.GreaterThan(hundred) {
		return CloseResult{}, nil, fmt.Errorf("%w: percent must be in (0,100]", ErrInvalidRequest)
	}

	var result CloseResult
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		if percent.Equal(hundred) {
			var err error
			result, events, err = s.closeFuturesLocked(ctx, username, acc, positionID, types.CloseReasonPartial)
			return err
		}
		i := acc.FindOpen(types.MarketFutures, positionID)
		if i < 0 {
			return ErrPositionNotFound
		}
		pos := acc.Open[types.MarketFutures][i]
		exitPrice, err := s.quotes.GetPrice(ctx, types.MarketFutures, pos.AssetType)
		if err != nil {
			return err
		}
		fraction := percent.Div(hundred)
		closed := pos
		closed.Amount = pos.Amount.Mul(fraction)
		profitLoss := futuresProfitLoss(closed, exitPrice, types.CloseReasonPartial)

		acc.SetBalance(types.MarketFutures, acc.Balance(types.MarketFutures).Add(closed.Amount).Add(profitLoss))
		acc.Open[types.MarketFutures][i].Amount = pos.Amount.Sub(closed.Amount)
		acc.AppendClosed(types.MarketFutures, model.ClosedPosition{
			Position:   closed,
			ExitPrice:  exitPrice,
			RealizedPL: profitLoss,
			Reason:     types.CloseReasonPartial,
			ClosedAt:   s.now().UTC(),
		})

		result = CloseResult{
			Positions:  acc.Open[types.MarketFutures],
			NewBalance: acc.Balance(types.MarketFutures),
			ProfitLoss: profitLoss,
		}
		events = append(events, notify.Event{
			Type:       notify.EventPositionPartialClosed,
			Username:   username,
			Market:     types.MarketFutures,
			Position:   &closed,
			ExitPrice:  exitPrice,
			ProfitLoss: profitLoss,
		})
		return nil
	})
	if err != nil {
		return CloseResult{}, nil, err
	}
	return result, events, nil
}

// CloseSpot cancels a pending spot limit position, unwinding the cash
// movement made at open at the entry price. Activated spot positions
// represent delivered assets and cannot be closed here.
func (s *Service) CloseSpot(ctx context.Context, username string, positionID int64) (CloseResult, []notify.Event, error) {
	var result CloseResult
	var events []notify.Event
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		i := acc.FindOpen(types.MarketSpot, positionID)
		if i < 0 {
			return ErrPositionNotFound
		}
		if !acc.Open[types.MarketSpot][i].PendingActivation {
			return ErrInvalidCloseState
		}
		exitPrice, err := s.quotes.GetPrice(ctx, types.MarketSpot, acc.Open[types.MarketSpot][i].AssetType)
		if err != nil {
			return err
		}
		pos := acc.RemoveOpen(types.MarketSpot, i)
		acc.SetBalance(types.MarketSpot, acc.Balance(types.MarketSpot).Add(spotCloseDelta(pos)))
		acc.AppendClosed(types.MarketSpot, model.ClosedPosition{
			Position:   pos,
			ExitPrice:  exitPrice,
			RealizedPL: decimal.Zero,
			Reason:     types.CloseReasonUser,
			ClosedAt:   s.now().UTC(),
		})

		result = CloseResult{
			Positions:  acc.Open[types.MarketSpot],
			NewBalance: acc.Balance(types.MarketSpot),
			ProfitLoss: decimal.Zero,
		}
		events = append(events, notify.Event{
			Type:      notify.EventPositionClosed,
			Username:  username,
			Market:    types.MarketSpot,
			Position:  &pos,
			ExitPrice: exitPrice,
		})
		return nil
	})
	if err != nil {
		return CloseResult{}, nil, err
	}
	return result, events, nil
}

type PositionsSnapshot struct {
	FuturesOpen   []model.Position
	FuturesClosed []model.ClosedPosition
	SpotOpen      []model.Position
	SpotClosed    []model.ClosedPosition
}

func (s *Service) GetPositions(ctx context.Context, username string) (PositionsSnapshot, error) {
	accounts, err := s.store.Load(ctx)
	if err != nil {
		return PositionsSnapshot{}, err
	}
	acc, ok := accounts[username]
	if !ok {
		return PositionsSnapshot{}, ErrAccountNotFound
	}
	return PositionsSnapshot{
		FuturesOpen:   acc.Open[types.MarketFutures],
		FuturesClosed: acc.Closed[types.MarketFutures],
		SpotOpen:      acc.Open[types.MarketSpot],
		SpotClosed:    acc.Closed[types.MarketSpot],
	}, nil
}

type BalanceInfo struct {
	Username       string
	FuturesBalance decimal.Decimal
	SpotBalance    decimal.Decimal
	WalletAddress  string
}

func (s *Service) GetBalance(ctx context.Context, username string) (BalanceInfo, error) {
	accounts, err := s.store.Load(ctx)
	if err != nil {
		return BalanceInfo{}, err
	}
	acc, ok := accounts[username]
	if !ok {
		return BalanceInfo{}, ErrAccountNotFound
	}
	return BalanceInfo{
		Username:       acc.Username,
		FuturesBalance: acc.Balance(types.MarketFutures),
		SpotBalance:    acc.Balance(types.MarketSpot),
		WalletAddress:  acc.WalletAddress,
	}, nil
}

type UpdateValueRequest struct {
	FuturesPositionsAmount decimal.Decimal
	FuturesUnrealizedPL    decimal.Decimal
	SpotValue              decimal.Decimal
	TotalValue             decimal.Decimal
}

type ValueResult struct {
	FuturesValue decimal.Decimal
	SpotValue    decimal.Decimal
}

// UpdateValue records the client-computed portfolio valuation.
// Unrealized P/L lives on the client, which watches live quotes; the
// server only keeps the reported snapshot.
func (s *Service) UpdateValue(ctx context.Context, username string, req UpdateValueRequest) (ValueResult, error) {
	var result ValueResult
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		acc.FuturesValue = acc.Balance(types.MarketFutures).Add(req.FuturesPositionsAmount).Add(req.FuturesUnrealizedPL)
		acc.SpotValue = req.SpotValue
		acc.TotalValue = req.TotalValue
		acc.TotalBalance = acc.Balance(types.MarketFutures).Add(acc.Balance(types.MarketSpot))
		result = ValueResult{FuturesValue: acc.FuturesValue, SpotValue: acc.SpotValue}
		return nil
	})
	if err != nil {
		return ValueResult{}, err
	}
	return result, nil
}

type BalancesResult struct {
	FuturesBalance decimal.Decimal
	SpotBalance    decimal.Decimal
}

// UpdateBalance overwrites both cash balances (admin/deposit tooling).
func (s *Service) UpdateBalance(ctx context.Context, username string, futures, spot decimal.Decimal) (BalancesResult, error) {
	var result BalancesResult
	err := s.mutate(ctx, username, func(acc *model.Account) error {
		acc.SetBalance(types.MarketFutures, futures)
		acc.SetBalance(types.MarketSpot, spot)
		acc.TotalBalance = futures.Add(spot)
		result = BalancesResult{FuturesBalance: futures, SpotBalance: spot}
		return nil
	})
	if err != nil {
		return BalancesResult{}, err
	}
	return result, nil
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
