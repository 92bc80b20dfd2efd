package types

import "fmt"

type Market string

type Side string

type OrderKind string

type CloseReason string

const (
	MarketFutures Market = "futures"
	MarketSpot    Market = "spot"
)

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
	SideBuy   Side = "buy"
	SideSell  Side = "sell"
)

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

const (
	CloseReasonUser        CloseReason = "user_close"
	CloseReasonTakeProfit  CloseReason = "take_profit"
	CloseReasonStopLoss    CloseReason = "stop_loss"
	CloseReasonLiquidation CloseReason = "liquidation"
	CloseReasonPartial     CloseReason = "partial_close"
)

func ParseMarket(s string) (Market, error) {
	switch Market(s) {
	case MarketFutures, MarketSpot:
		return Market(s), nil
	}
	return "", fmt.Errorf("unknown market %q", s)
}

func ParseCloseReason(s string) (CloseReason, error) {
	switch CloseReason(s) {
	case CloseReasonUser, CloseReasonTakeProfit, CloseReasonStopLoss, CloseReasonLiquidation, CloseReasonPartial:
		return CloseReason(s), nil
	}
	return "", fmt.Errorf("unknown close reason %q", s)
}

// ValidFuturesSide reports whether s is a side usable on the futures market.
func ValidFuturesSide(s Side) bool {
	return s == SideLong || s == SideShort
}

// ValidSpotSide reports whether s is a side usable on the spot market.
func ValidSpotSide(s Side) bool {
	return s == SideBuy || s == SideSell
}
