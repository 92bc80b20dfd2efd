package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// MexcFetcher mirrors the MEXC public ticker endpoints. Futures and
// spot use different APIs with different price field shapes.
type MexcFetcher struct {
	futuresURL string
	spotURL    string
	client     *http.Client
}

func NewMexcFetcher(futuresURL, spotURL string, timeout time.Duration) *MexcFetcher {
	return &MexcFetcher{
		futuresURL: futuresURL,
		spotURL:    spotURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type futuresTickerResponse struct {
	Data []struct {
		Symbol    string          `json:"symbol"`
		LastPrice decimal.Decimal `json:"lastPrice"`
	} `json:"data"`
}

type spotTickerResponse struct {
	Data []struct {
		Symbol string `json:"symbol"`
		Last   string `json:"last"`
	} `json:"data"`
}

func (f *MexcFetcher) Fetch(ctx context.Context, market types.Market) ([]AssetPrice, error) {
	switch market {
	case types.MarketFutures:
		return f.fetchFutures(ctx)
	case types.MarketSpot:
		return f.fetchSpot(ctx)
	}
	return nil, fmt.Errorf("unknown market %q", market)
}

func (f *MexcFetcher) fetchFutures(ctx context.Context) ([]AssetPrice, error) {
	body, err := f.get(ctx, f.futuresURL)
	if err != nil {
		return nil, err
	}
	var resp futuresTickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode futures ticker: %w", err)
	}
	prices := make([]AssetPrice, 0, len(AssetTypes))
	for _, item := range resp.Data {
		base, ok := usdtBase(item.Symbol)
		if !ok {
			continue
		}
		prices = append(prices, AssetPrice{AssetType: base, Price: item.LastPrice})
	}
	return prices, nil
}

func (f *MexcFetcher) fetchSpot(ctx context.Context) ([]AssetPrice, error) {
	body, err := f.get(ctx, f.spotURL)
	if err != nil {
		return nil, err
	}
	var resp spotTickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode spot ticker: %w", err)
	}
	prices := make([]AssetPrice, 0, len(AssetTypes))
	for _, item := range resp.Data {
		base, ok := usdtBase(item.Symbol)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(item.Last)
		if err != nil {
			continue
		}
		prices = append(prices, AssetPrice{AssetType: base, Price: price})
	}
	return prices, nil
}

// usdtBase extracts the base asset from a BASE_USDT symbol and checks
// it against the whitelist.
func usdtBase(symbol string) (string, bool) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[1] != "USDT" {
		return "", false
	}
	if !KnownAsset(parts[0]) {
		return "", false
	}
	return parts[0], true
}

func (f *MexcFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote source returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
