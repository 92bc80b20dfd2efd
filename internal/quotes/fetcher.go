package quotes

import (
	"context"
	"errors"

	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// AssetTypes is the fixed symbol whitelist; quotes for anything else
// are discarded at ingestion.
var AssetTypes = []string{"BTC", "ETH", "BNB", "NEO", "LTC", "SOL", "XRP", "DOT"}

var assetSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AssetTypes))
	for _, a := range AssetTypes {
		m[a] = struct{}{}
	}
	return m
}()

// KnownAsset reports whether the symbol is on the whitelist.
func KnownAsset(symbol string) bool {
	_, ok := assetSet[symbol]
	return ok
}

type AssetPrice struct {
	AssetType string          `json:"asset_type"`
	Price     decimal.Decimal `json:"price"`
}

// ErrPriceUnavailable means the live fetch failed and no price was ever
// cached for the market, or the asset is missing from the list.
var ErrPriceUnavailable = errors.New("price unavailable")

// Fetcher pulls the full price list for one market from an external
// quote source.
type Fetcher interface {
	Fetch(ctx context.Context, market types.Market) ([]AssetPrice, error)
}
