package model

import (
	"time"

	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// Position is a single open position. On the futures market Amount is
// the margin reserved from the account balance and Leverage multiplies
// price movement; on the spot market Amount is the asset quantity and
// Leverage is unused.
type Position struct {
	ID                int64            `json:"id"`
	AssetType         string           `json:"asset_type"`
	Side              types.Side       `json:"side"`
	OrderKind         types.OrderKind  `json:"order_kind"`
	PendingActivation bool             `json:"pending_activation"`
	Amount            decimal.Decimal  `json:"amount"`
	Leverage          int64            `json:"leverage,omitempty"`
	TakeProfit        *decimal.Decimal `json:"take_profit,omitempty"`
	StopLoss          *decimal.Decimal `json:"stop_loss,omitempty"`
	LimitPrice        *decimal.Decimal `json:"limit_price,omitempty"`
	EntryPrice        decimal.Decimal  `json:"entry_price"`
	OpenedAt          time.Time        `json:"opened_at"`
}

// ClosedPosition is the permanent record appended when a position (or a
// fraction of one) is settled.
type ClosedPosition struct {
	Position
	ExitPrice  decimal.Decimal   `json:"exit_price"`
	RealizedPL decimal.Decimal   `json:"realized_pl"`
	Reason     types.CloseReason `json:"close_reason"`
	ClosedAt   time.Time         `json:"closed_at"`
}
