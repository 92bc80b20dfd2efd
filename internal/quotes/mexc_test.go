package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"papertrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFuturesFiltersWhitelist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"symbol":"BTC_USDT","lastPrice":50000.5},
			{"symbol":"DOGE_USDT","lastPrice":0.1},
			{"symbol":"ETH_BTC","lastPrice":0.06},
			{"symbol":"SOL_USDT","lastPrice":150}
		]}`))
	}))
	defer srv.Close()

	fetcher := NewMexcFetcher(srv.URL, srv.URL, time.Second)
	prices, err := fetcher.Fetch(context.Background(), types.MarketFutures)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "BTC", prices[0].AssetType)
	assert.True(t, prices[0].Price.Equal(decimal.NewFromFloat(50000.5)))
	assert.Equal(t, "SOL", prices[1].AssetType)
}

func TestFetchSpotParsesStringPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"symbol":"ETH_USDT","last":"3000.25"},
			{"symbol":"XRP_USDT","last":"not-a-number"},
			{"symbol":"LTC_USDT","last":"80"}
		]}`))
	}))
	defer srv.Close()

	fetcher := NewMexcFetcher(srv.URL, srv.URL, time.Second)
	prices, err := fetcher.Fetch(context.Background(), types.MarketSpot)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "ETH", prices[0].AssetType)
	assert.True(t, prices[0].Price.Equal(decimal.NewFromFloat(3000.25)))
	assert.Equal(t, "LTC", prices[1].AssetType)
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewMexcFetcher(srv.URL, srv.URL, time.Second)
	_, err := fetcher.Fetch(context.Background(), types.MarketFutures)
	assert.Error(t, err)
}

func TestUsdtBase(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		ok     bool
	}{
		{"BTC_USDT", "BTC", true},
		{"NEO_USDT", "NEO", true},
		{"DOGE_USDT", "", false},
		{"ETH_BTC", "", false},
		{"BTCUSDT", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		base, ok := usdtBase(tt.symbol)
		assert.Equal(t, tt.ok, ok, tt.symbol)
		assert.Equal(t, tt.base, base, tt.symbol)
	}
}
