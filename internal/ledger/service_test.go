package ledger

import (
	"context"
	"testing"
	"time"

	"papertrade/internal/model"
	"papertrade/internal/notify"
	"papertrade/internal/quotes"
	"papertrade/internal/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	accounts map[string]*model.Account
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*model.Account{}}
}

func (m *memStore) Load(ctx context.Context) (map[string]*model.Account, error) {
	return m.accounts, nil
}

func (m *memStore) SaveAccount(ctx context.Context, username string, acc *model.Account) error {
	m.accounts[username] = acc
	return nil
}

func (m *memStore) Save(ctx context.Context, accounts map[string]*model.Account) error {
	m.accounts = accounts
	return nil
}

type stubFetcher struct {
	futures map[string]string
	spot    map[string]string
	fail    bool
}

func (f *stubFetcher) Fetch(ctx context.Context, market types.Market) ([]quotes.AssetPrice, error) {
	if f.fail {
		return nil, quotes.ErrPriceUnavailable
	}
	src := f.futures
	if market == types.MarketSpot {
		src = f.spot
	}
	var out []quotes.AssetPrice
	for asset, price := range src {
		out = append(out, quotes.AssetPrice{AssetType: asset, Price: dec(price)})
	}
	return out, nil
}

func newTestService(t *testing.T, fetcher *stubFetcher) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	q := quotes.NewService(fetcher, zerolog.Nop())
	svc := NewService(st, q, zerolog.Nop())
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, st
}

func seedAccount(st *memStore, username string, futuresBalance, spotBalance string) *model.Account {
	acc := model.NewAccount(username, "hash", "0xabc", "0xkey")
	acc.SetBalance(types.MarketFutures, dec(futuresBalance))
	acc.SetBalance(types.MarketSpot, dec(spotBalance))
	st.accounts[username] = acc
	return acc
}

func btcFetcher(price string) *stubFetcher {
	return &stubFetcher{
		futures: map[string]string{"BTC": price},
		spot:    map[string]string{"BTC": price},
	}
}

func TestOpenFuturesDeductsMargin(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "1000", "0")

	res, events, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(dec("900")))
	require.Len(t, res.Positions, 1)
	pos := res.Positions[0]
	assert.Equal(t, "BTC", pos.AssetType)
	assert.True(t, pos.EntryPrice.Equal(dec("50000")))
	assert.False(t, pos.PendingActivation)
	assert.Nil(t, pos.TakeProfit)
	assert.Nil(t, pos.StopLoss)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventPositionOpened, events[0].Type)
}

func TestOpenFuturesInsufficientBalance(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "50", "0")

	_, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestOpenFuturesLimitOrderCap(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "10000", "0")

	limit := dec("49000")
	for i := 0; i < maxPendingPerMarket; i++ {
		_, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
			Asset:      "BTC",
			Side:       types.SideLong,
			OrderKind:  types.OrderKindLimit,
			Amount:     dec("10"),
			Leverage:   5,
			LimitPrice: &limit,
		})
		require.NoError(t, err)
	}
	_, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:      "BTC",
		Side:       types.SideLong,
		OrderKind:  types.OrderKindLimit,
		Amount:     dec("10"),
		Leverage:   5,
		LimitPrice: &limit,
	})
	assert.ErrorIs(t, err, ErrLimitOrderCapExceeded)
}

func TestOpenFuturesUnknownAsset(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "1000", "0")

	_, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "DOGE",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCloseFuturesRealizesProfit(t *testing.T) {
	fetcher := btcFetcher("50000")
	svc, st := newTestService(t, fetcher)
	seedAccount(st, "alice", "1000", "0")

	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)
	id := res.Positions[0].ID

	fetcher.futures["BTC"] = "55000"
	closeRes, events, err := svc.CloseFutures(context.Background(), "alice", id, types.CloseReasonUser)
	require.NoError(t, err)
	// 100 * 10 * (5000/50000) = 100 profit, margin returned
	assert.True(t, closeRes.ProfitLoss.Equal(dec("100")))
	assert.True(t, closeRes.NewBalance.Equal(dec("1100")))
	assert.Empty(t, closeRes.Positions)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventPositionClosed, events[0].Type)

	acc := st.accounts["alice"]
	require.Len(t, acc.Closed[types.MarketFutures], 1)
	closed := acc.Closed[types.MarketFutures][0]
	assert.True(t, closed.ExitPrice.Equal(dec("55000")))
	assert.Equal(t, types.CloseReasonUser, closed.Reason)
}

func TestCloseFuturesLiquidationLosesMargin(t *testing.T) {
	fetcher := btcFetcher("50000")
	svc, st := newTestService(t, fetcher)
	seedAccount(st, "alice", "1000", "0")

	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)

	fetcher.futures["BTC"] = "45100"
	closeRes, _, err := svc.CloseFutures(context.Background(), "alice", res.Positions[0].ID, types.CloseReasonLiquidation)
	require.NoError(t, err)
	assert.True(t, closeRes.ProfitLoss.Equal(dec("-100")))
	// Margin comes back, P/L takes it away again: balance is unchanged
	// from the post-open 900.
	assert.True(t, closeRes.NewBalance.Equal(dec("900")))
}

func TestClosePendingLimitSettlesFlat(t *testing.T) {
	fetcher := btcFetcher("50000")
	svc, st := newTestService(t, fetcher)
	seedAccount(st, "alice", "1000", "0")

	limit := dec("49000")
	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:      "BTC",
		Side:       types.SideLong,
		OrderKind:  types.OrderKindLimit,
		Amount:     dec("100"),
		Leverage:   10,
		LimitPrice: &limit,
	})
	require.NoError(t, err)

	fetcher.futures["BTC"] = "60000"
	closeRes, _, err := svc.CloseFutures(context.Background(), "alice", res.Positions[0].ID, types.CloseReasonUser)
	require.NoError(t, err)
	assert.True(t, closeRes.ProfitLoss.IsZero())
	assert.True(t, closeRes.NewBalance.Equal(dec("1000")))
}

func TestPartialCloseShrinksPosition(t *testing.T) {
	fetcher := btcFetcher("50000")
	svc, st := newTestService(t, fetcher)
	seedAccount(st, "alice", "1000", "0")

	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)
	id := res.Positions[0].ID

	fetcher.futures["BTC"] = "55000"
	partial, events, err := svc.PartialClose(context.Background(), "alice", id, dec("40"))
	require.NoError(t, err)
	// Closed slice: 40 margin, P/L = 40*10*(5000/50000) = 40
	assert.True(t, partial.ProfitLoss.Equal(dec("40")))
	assert.True(t, partial.NewBalance.Equal(dec("980")))
	require.Len(t, partial.Positions, 1)
	assert.True(t, partial.Positions[0].Amount.Equal(dec("60")))
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventPositionPartialClosed, events[0].Type)

	// Closing the remainder matches closing the whole thing in one go.
	rest, _, err := svc.CloseFutures(context.Background(), "alice", id, types.CloseReasonUser)
	require.NoError(t, err)
	assert.True(t, rest.ProfitLoss.Equal(dec("60")))
	assert.True(t, rest.NewBalance.Equal(dec("1100")))
}

func TestPartialCloseFullPercentRemovesPosition(t *testing.T) {
	fetcher := btcFetcher("50000")
	svc, st := newTestService(t, fetcher)
	seedAccount(st, "alice", "1000", "0")

	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)

	partial, _, err := svc.PartialClose(context.Background(), "alice", res.Positions[0].ID, dec("100"))
	require.NoError(t, err)
	assert.Empty(t, partial.Positions)
	assert.True(t, partial.NewBalance.Equal(dec("1000")))

	acc := st.accounts["alice"]
	require.Len(t, acc.Closed[types.MarketFutures], 1)
	assert.Equal(t, types.CloseReasonPartial, acc.Closed[types.MarketFutures][0].Reason)
}

func TestPartialCloseRejectsBadPercent(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "1000", "0")

	_, _, err := svc.PartialClose(context.Background(), "alice", 1, dec("0"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, _, err = svc.PartialClose(context.Background(), "alice", 1, dec("101"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOpenSpotBuyAndSell(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("30000"))
	seedAccount(st, "alice", "0", "100000")

	buy, _, err := svc.OpenSpot(context.Background(), "alice", OpenSpotRequest{
		Asset:     "BTC",
		Side:      types.SideBuy,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("2"),
	})
	require.NoError(t, err)
	assert.True(t, buy.NewBalance.Equal(dec("40000")))

	sell, _, err := svc.OpenSpot(context.Background(), "alice", OpenSpotRequest{
		Asset:     "BTC",
		Side:      types.SideSell,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("1"),
	})
	require.NoError(t, err)
	assert.True(t, sell.NewBalance.Equal(dec("70000")))
}

func TestOpenSpotBuyInsufficientBalance(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("30000"))
	seedAccount(st, "alice", "0", "100")

	_, _, err := svc.OpenSpot(context.Background(), "alice", OpenSpotRequest{
		Asset:     "BTC",
		Side:      types.SideBuy,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("1"),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCloseSpotOnlyPendingLimit(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("30000"))
	seedAccount(st, "alice", "0", "100000")

	market, _, err := svc.OpenSpot(context.Background(), "alice", OpenSpotRequest{
		Asset:     "BTC",
		Side:      types.SideBuy,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("1"),
	})
	require.NoError(t, err)
	_, _, err = svc.CloseSpot(context.Background(), "alice", market.Positions[0].ID)
	assert.ErrorIs(t, err, ErrInvalidCloseState)

	limit := dec("29000")
	pending, _, err := svc.OpenSpot(context.Background(), "alice", OpenSpotRequest{
		Asset:      "BTC",
		Side:       types.SideBuy,
		OrderKind:  types.OrderKindLimit,
		Amount:     dec("1"),
		LimitPrice: &limit,
	})
	require.NoError(t, err)
	pendingID := pending.Positions[1].ID

	before := pending.NewBalance
	closeRes, _, err := svc.CloseSpot(context.Background(), "alice", pendingID)
	require.NoError(t, err)
	// Pending buy is unwound at the entry price.
	assert.True(t, closeRes.NewBalance.Equal(before.Add(dec("30000"))))
	require.Len(t, closeRes.Positions, 1)
}

func TestActivateClearsPendingFlag(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "1000", "0")

	limit := dec("49000")
	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:      "BTC",
		Side:       types.SideLong,
		OrderKind:  types.OrderKindLimit,
		Amount:     dec("100"),
		Leverage:   10,
		LimitPrice: &limit,
	})
	require.NoError(t, err)

	pair, err := svc.Activate(context.Background(), "alice", res.Positions[0].ID)
	require.NoError(t, err)
	require.Len(t, pair.Futures, 1)
	assert.False(t, pair.Futures[0].PendingActivation)

	_, err = svc.Activate(context.Background(), "alice", 42)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestSetTPSLEmitsEventsOnlyOnChange(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "1000", "0")

	res, _, err := svc.OpenFutures(context.Background(), "alice", OpenFuturesRequest{
		Asset:     "BTC",
		Side:      types.SideLong,
		OrderKind: types.OrderKindMarket,
		Amount:    dec("100"),
		Leverage:  10,
	})
	require.NoError(t, err)
	id := res.Positions[0].ID

	tp := dec("60000")
	sl := dec("45000")
	positions, events, err := svc.SetTPSL(context.Background(), "alice", id, &tp, &sl)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.NotNil(t, positions[0].TakeProfit)
	assert.True(t, positions[0].TakeProfit.Equal(tp))
	assert.Len(t, events, 2)

	// Same values again: no change, no events.
	_, events, err = svc.SetTPSL(context.Background(), "alice", id, &tp, &sl)
	require.NoError(t, err)
	assert.Empty(t, events)

	// Clearing only the stop loss emits one event.
	_, events, err = svc.SetTPSL(context.Background(), "alice", id, &tp, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventStopLossSet, events[0].Type)
}

func TestUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t, btcFetcher("50000"))

	_, err := svc.GetBalance(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, _, err = svc.CloseFutures(context.Background(), "ghost", 1, types.CloseReasonUser)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateValueAndBalance(t *testing.T) {
	svc, st := newTestService(t, btcFetcher("50000"))
	seedAccount(st, "alice", "900", "500")

	val, err := svc.UpdateValue(context.Background(), "alice", UpdateValueRequest{
		FuturesPositionsAmount: dec("100"),
		FuturesUnrealizedPL:    dec("25"),
		SpotValue:              dec("500"),
		TotalValue:             dec("1525"),
	})
	require.NoError(t, err)
	assert.True(t, val.FuturesValue.Equal(dec("1025")))
	assert.True(t, st.accounts["alice"].TotalBalance.Equal(dec("1400")))

	bal, err := svc.UpdateBalance(context.Background(), "alice", dec("2000"), dec("1000"))
	require.NoError(t, err)
	assert.True(t, bal.FuturesBalance.Equal(dec("2000")))
	assert.True(t, st.accounts["alice"].TotalBalance.Equal(dec("3000")))
}
