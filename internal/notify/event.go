package notify

import (
	"fmt"

	"papertrade/internal/model"
	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPositionOpened        EventType = "position_opened"
	EventPositionClosed        EventType = "position_closed"
	EventPositionPartialClosed EventType = "position_partial_closed"
	EventTakeProfitSet         EventType = "take_profit_set"
	EventStopLossSet           EventType = "stop_loss_set"
	EventWithdrawalRequested   EventType = "withdrawal_requested"
)

// Event is emitted by the ledger and dispatched by the HTTP layer;
// settlement math never waits on delivery.
type Event struct {
	Type       EventType
	Username   string
	Market     types.Market
	Position   *model.Position
	ExitPrice  decimal.Decimal
	ProfitLoss decimal.Decimal
	Address    string
	Amount     decimal.Decimal
}

// Subject and Body render the admin notification for the event.
func (e Event) Subject() string {
	switch e.Type {
	case EventPositionOpened:
		return "New Position Opened"
	case EventPositionClosed:
		return "Position closed"
	case EventPositionPartialClosed:
		return "Position partially closed"
	case EventTakeProfitSet:
		return "Position TP set"
	case EventStopLossSet:
		return "Position SL set"
	case EventWithdrawalRequested:
		return "New Withdrawal Request"
	}
	return string(e.Type)
}

func (e Event) Body() string {
	switch e.Type {
	case EventPositionOpened:
		p := e.Position
		body := fmt.Sprintf("%d user %s opened %s %s %s Amount: %s Entry: %s",
			p.ID, e.Username, p.Side, p.OrderKind, p.AssetType, p.Amount, p.EntryPrice)
		if e.Market == types.MarketFutures {
			body += fmt.Sprintf(" Leverage: %d Liquidation: %s", p.Leverage, estimateLiquidationPrice(p))
		}
		return body
	case EventPositionClosed:
		return fmt.Sprintf("%d user %s closes position, Exit price: %s P/L: %s",
			e.Position.ID, e.Username, e.ExitPrice, e.ProfitLoss)
	case EventPositionPartialClosed:
		return fmt.Sprintf("%d user %s partially closes position, Exit price: %s P/L: %s",
			e.Position.ID, e.Username, e.ExitPrice, e.ProfitLoss)
	case EventTakeProfitSet:
		return fmt.Sprintf("%d user %s set tp %s", e.Position.ID, e.Username, optional(e.Position.TakeProfit))
	case EventStopLossSet:
		return fmt.Sprintf("%d user %s set sl %s", e.Position.ID, e.Username, optional(e.Position.StopLoss))
	case EventWithdrawalRequested:
		return fmt.Sprintf("User %s has requested a withdrawal on the exchange. Amount: %s Address: %s",
			e.Username, e.Amount, e.Address)
	}
	return ""
}

func optional(v *decimal.Decimal) string {
	if v == nil {
		return "none"
	}
	return v.String()
}

// estimateLiquidationPrice is the rough admin-mail estimate; the server
// never liquidates on its own, so this is informational only.
func estimateLiquidationPrice(p *model.Position) decimal.Decimal {
	if p.Leverage <= 0 {
		return decimal.Zero
	}
	lev := decimal.NewFromInt(p.Leverage)
	base := decimal.NewFromInt(125)
	hundred := decimal.NewFromInt(100)
	switch p.Side {
	case types.SideShort:
		return p.EntryPrice.Mul(base.Add(lev.Div(hundred))).Div(base)
	case types.SideLong:
		return p.EntryPrice.Mul(base.Sub(hundred.Div(lev))).Div(base)
	}
	return decimal.Zero
}
