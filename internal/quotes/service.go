package quotes

import (
	"context"
	"sync"

	"papertrade/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service is the price cache. Every read goes to the live source first;
// on a transient fetch failure the previously cached list is returned
// unchanged, so callers never observe "no price" once any fetch has
// ever succeeded.
type Service struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu    sync.RWMutex
	cache map[types.Market][]AssetPrice
}

func NewService(fetcher Fetcher, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		log:     log.With().Str("component", "quotes").Logger(),
		cache:   map[types.Market][]AssetPrice{},
	}
}

// Current returns the price list for the market, refreshing the cache
// on success and falling back to stale data on failure.
func (s *Service) Current(ctx context.Context, market types.Market) ([]AssetPrice, error) {
	prices, err := s.fetcher.Fetch(ctx, market)
	if err == nil && len(prices) > 0 {
		s.mu.Lock()
		s.cache[market] = prices
		s.mu.Unlock()
		return prices, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("market", string(market)).Msg("quote fetch failed, serving cached prices")
	}
	s.mu.RLock()
	cached := s.cache[market]
	s.mu.RUnlock()
	if len(cached) == 0 {
		return nil, ErrPriceUnavailable
	}
	return cached, nil
}

// GetPrice returns the last price for one asset on the market.
func (s *Service) GetPrice(ctx context.Context, market types.Market, asset string) (decimal.Decimal, error) {
	prices, err := s.Current(ctx, market)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range prices {
		if p.AssetType == asset {
			return p.Price, nil
		}
	}
	return decimal.Zero, ErrPriceUnavailable
}

// Cached returns the cached list without hitting the quote source.
func (s *Service) Cached(market types.Market) []AssetPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[market]
}
