package ledger

import (
	"papertrade/internal/model"
	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// maxPendingPerMarket caps not-yet-activated limit positions per
// account and market.
const maxPendingPerMarket = 5

var hundred = decimal.NewFromInt(100)

// futuresProfitLoss computes the realized P/L for settling a futures
// position at exitPrice:
//
//	P/L = amount * leverage * (priceDelta / entryPrice)
//
// where priceDelta is signed by the position side. A position that was
// never activated carries no exposure and settles flat; a liquidation
// forfeits the whole margin regardless of price.
func futuresProfitLoss(p model.Position, exitPrice decimal.Decimal, reason types.CloseReason) decimal.Decimal {
	if reason == types.CloseReasonLiquidation {
		return p.Amount.Neg()
	}
	if p.PendingActivation {
		return decimal.Zero
	}
	direction := decimal.NewFromInt(1)
	if p.Side == types.SideShort {
		direction = decimal.NewFromInt(-1)
	}
	priceDelta := exitPrice.Sub(p.EntryPrice).Mul(direction)
	return p.Amount.Mul(decimal.NewFromInt(p.Leverage)).Mul(priceDelta.Div(p.EntryPrice))
}

// spotCloseDelta is the balance movement for closing a spot position:
// a buy releases its reserved cost back, a sell pays back the credit
// taken at open. Spot settles at the entry price, not the exit price.
func spotCloseDelta(p model.Position) decimal.Decimal {
	cost := p.Amount.Mul(p.EntryPrice)
	if p.Side == types.SideSell {
		return cost.Neg()
	}
	return cost
}
