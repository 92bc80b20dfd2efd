package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"papertrade/internal/types"
)

// Candle window sizes in minutes per futures interval name.
var futuresIntervalMinutes = map[string]int64{
	"Min1":   1,
	"Min5":   5,
	"Min30":  30,
	"Min60":  60,
	"Hour4":  240,
	"Day1":   1440,
	"Week1":  10080,
	"Month1": 1440 * 30,
}

const klineCandles = 50

// KlineProxy forwards candle requests to the quote source so the web
// UI can chart without talking to the exchange directly.
type KlineProxy struct {
	futuresBase string
	spotBase    string
	client      *http.Client
	now         func() time.Time
}

func NewKlineProxy(timeout time.Duration) *KlineProxy {
	return &KlineProxy{
		futuresBase: "https://contract.mexc.com/api/v1/contract/kline",
		spotBase:    "https://www.mexc.com/open/api/v2/market/kline",
		client:      &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

// Klines fetches the last 50 candles for the symbol. Futures intervals
// use the Min1/Hour4 naming, spot intervals the 1m/4h naming.
func (k *KlineProxy) Klines(ctx context.Context, market types.Market, symbol, interval string) (json.RawMessage, error) {
	var u string
	switch market {
	case types.MarketFutures:
		minutes, ok := futuresIntervalMinutes[interval]
		if !ok {
			return nil, fmt.Errorf("unknown interval %q", interval)
		}
		end := k.now().Unix()
		start := end - minutes*60*klineCandles
		u = fmt.Sprintf("%s/%s?interval=%s&start=%d&end=%d", k.futuresBase, url.PathEscape(symbol), url.QueryEscape(interval), start, end)
	case types.MarketSpot:
		u = fmt.Sprintf("%s?symbol=%s&interval=%s&limit=%d", k.spotBase, url.QueryEscape(symbol), url.QueryEscape(interval), klineCandles)
	default:
		return nil, fmt.Errorf("unknown market %q", market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kline source returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode kline response: %w", err)
	}
	return envelope.Data, nil
}
