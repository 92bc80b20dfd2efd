package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"papertrade/internal/model"
	"papertrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	accounts, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	st := NewFileStore(path)

	acc := model.NewAccount("alice", "hash", "0xaddr", "0xkey")
	acc.SetBalance(types.MarketFutures, decimal.NewFromInt(1000))
	acc.AppendOpen(types.MarketFutures, model.Position{
		ID:         1700000000000,
		AssetType:  "BTC",
		Side:       types.SideLong,
		OrderKind:  types.OrderKindMarket,
		Amount:     decimal.NewFromInt(100),
		Leverage:   10,
		EntryPrice: decimal.NewFromInt(50000),
	})
	require.NoError(t, st.SaveAccount(context.Background(), "alice", acc))

	reloaded := NewFileStore(path)
	accounts, err := reloaded.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, accounts, "alice")
	got := accounts["alice"]
	assert.Equal(t, "0xaddr", got.WalletAddress)
	assert.True(t, got.Balance(types.MarketFutures).Equal(decimal.NewFromInt(1000)))
	require.Len(t, got.Open[types.MarketFutures], 1)
	assert.True(t, got.Open[types.MarketFutures][0].EntryPrice.Equal(decimal.NewFromInt(50000)))
}

func TestFileStoreSaveAccountKeepsOthers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	st := NewFileStore(path)

	require.NoError(t, st.SaveAccount(context.Background(), "alice", model.NewAccount("alice", "h", "a", "k")))
	require.NoError(t, st.SaveAccount(context.Background(), "bob", model.NewAccount("bob", "h", "b", "k")))

	accounts, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestFileKeyPoolTake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"privateKey":"0x01","address":"0xa"},
		{"privateKey":"0x02","address":"0xb"}
	]`), 0o600))

	pool := NewFileKeyPool(path)
	n, err := pool.Remaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		key, err := pool.Take(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[key.Address], "key handed out twice")
		seen[key.Address] = true
	}

	_, err = pool.Take(context.Background())
	assert.ErrorIs(t, err, ErrPoolEmpty)
}

func TestFileWithdrawalLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "withdrawals.json")
	log := NewFileWithdrawalLog(path)

	require.NoError(t, log.Append(context.Background(), WithdrawalRequest{
		ID:       "req-1",
		Username: "alice",
		Address:  "0xdest",
		Amount:   decimal.NewFromInt(250),
	}))
	require.NoError(t, log.Append(context.Background(), WithdrawalRequest{
		ID:       "req-2",
		Username: "bob",
		Address:  "0xother",
		Amount:   decimal.NewFromInt(10),
	}))

	requests, err := log.List(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "req-1", requests[0].ID)
	assert.True(t, requests[1].Amount.Equal(decimal.NewFromInt(10)))
}

func TestGuardSerializesPerKey(t *testing.T) {
	g := NewGuard()
	unlock := g.Lock("alice")

	done := make(chan struct{})
	go func() {
		u := g.Lock("alice")
		u()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second lock acquired while first still held")
	default:
	}
	unlock()
	<-done

	// A different key is independent.
	u := g.Lock("bob")
	u()
}
