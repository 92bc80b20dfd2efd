package model

import (
	"papertrade/internal/types"

	"github.com/shopspring/decimal"
)

// Account is the whole persisted state of one user: credentials, the
// assigned deposit wallet, one cash balance per market and the open and
// closed position sets. A position lives in exactly one of Open/Closed.
type Account struct {
	Username      string `json:"username"`
	PasswordHash  string `json:"password_hash"`
	WalletAddress string `json:"wallet_address"`
	PrivateKey    string `json:"private_key"`

	Balances map[types.Market]decimal.Decimal `json:"balances"`

	// Valuation snapshots reported by the client (unrealized P/L is
	// computed against live quotes on the client side).
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	FuturesValue decimal.Decimal `json:"futures_value"`
	SpotValue    decimal.Decimal `json:"spot_value"`

	Open   map[types.Market][]Position       `json:"open_positions"`
	Closed map[types.Market][]ClosedPosition `json:"closed_positions"`
}

func NewAccount(username, passwordHash, address, privateKey string) *Account {
	return &Account{
		Username:      username,
		PasswordHash:  passwordHash,
		WalletAddress: address,
		PrivateKey:    privateKey,
		Balances: map[types.Market]decimal.Decimal{
			types.MarketFutures: decimal.Zero,
			types.MarketSpot:    decimal.Zero,
		},
		Open:   map[types.Market][]Position{},
		Closed: map[types.Market][]ClosedPosition{},
	}
}

func (a *Account) Balance(m types.Market) decimal.Decimal {
	return a.Balances[m]
}

func (a *Account) SetBalance(m types.Market, v decimal.Decimal) {
	if a.Balances == nil {
		a.Balances = map[types.Market]decimal.Decimal{}
	}
	a.Balances[m] = v
}

// PendingCount returns the number of not-yet-activated limit positions
// on the given market.
func (a *Account) PendingCount(m types.Market) int {
	n := 0
	for _, p := range a.Open[m] {
		if p.PendingActivation {
			n++
		}
	}
	return n
}

// FindOpen returns the index of the open position with the given id on
// the given market, or -1.
func (a *Account) FindOpen(m types.Market, id int64) int {
	for i, p := range a.Open[m] {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// NextPositionID derives a fresh position id from the wall clock while
// keeping ids strictly increasing even when two opens land on the same
// millisecond.
func (a *Account) NextPositionID(nowMilli int64) int64 {
	id := nowMilli
	for _, positions := range a.Open {
		for _, p := range positions {
			if p.ID >= id {
				id = p.ID + 1
			}
		}
	}
	for _, positions := range a.Closed {
		for _, p := range positions {
			if p.ID >= id {
				id = p.ID + 1
			}
		}
	}
	return id
}

// AppendOpen adds a position to the market's open set.
func (a *Account) AppendOpen(m types.Market, p Position) {
	if a.Open == nil {
		a.Open = map[types.Market][]Position{}
	}
	a.Open[m] = append(a.Open[m], p)
}

// AppendClosed adds a settlement record to the market's history.
func (a *Account) AppendClosed(m types.Market, p ClosedPosition) {
	if a.Closed == nil {
		a.Closed = map[types.Market][]ClosedPosition{}
	}
	a.Closed[m] = append(a.Closed[m], p)
}

// RemoveOpen deletes the open position at index i, preserving order.
func (a *Account) RemoveOpen(m types.Market, i int) Position {
	positions := a.Open[m]
	p := positions[i]
	a.Open[m] = append(positions[:i], positions[i+1:]...)
	return p
}
