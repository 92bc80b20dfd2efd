package quotes

import (
	"context"
	"testing"

	"papertrade/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	prices []AssetPrice
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, market types.Market) ([]AssetPrice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func TestCurrentFetchesAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{prices: []AssetPrice{{AssetType: "BTC", Price: decimal.NewFromInt(50000)}}}
	svc := NewService(fetcher, zerolog.Nop())

	prices, err := svc.Current(context.Background(), types.MarketFutures)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "BTC", prices[0].AssetType)
	assert.Len(t, svc.Cached(types.MarketFutures), 1)
}

func TestCurrentFallsBackToCacheOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{prices: []AssetPrice{{AssetType: "ETH", Price: decimal.NewFromInt(3000)}}}
	svc := NewService(fetcher, zerolog.Nop())

	_, err := svc.Current(context.Background(), types.MarketFutures)
	require.NoError(t, err)

	fetcher.err = context.DeadlineExceeded
	prices, err := svc.Current(context.Background(), types.MarketFutures)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "ETH", prices[0].AssetType)
}

func TestCurrentErrorsWhenNothingCached(t *testing.T) {
	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	svc := NewService(fetcher, zerolog.Nop())

	_, err := svc.Current(context.Background(), types.MarketFutures)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestGetPrice(t *testing.T) {
	fetcher := &fakeFetcher{prices: []AssetPrice{
		{AssetType: "BTC", Price: decimal.NewFromInt(50000)},
		{AssetType: "SOL", Price: decimal.NewFromInt(150)},
	}}
	svc := NewService(fetcher, zerolog.Nop())

	price, err := svc.GetPrice(context.Background(), types.MarketFutures, "SOL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))

	_, err = svc.GetPrice(context.Background(), types.MarketFutures, "XRP")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestKnownAsset(t *testing.T) {
	assert.True(t, KnownAsset("BTC"))
	assert.True(t, KnownAsset("NEO"))
	assert.False(t, KnownAsset("DOGE"))
	assert.False(t, KnownAsset(""))
}
