package store

import (
	"context"
	"encoding/json"
	"fmt"

	"papertrade/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists one jsonb row per account. It implements the same
// whole-map contract as FileStore but lets deployments move off local
// files without touching the ledger.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates the accounts table if it does not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			username   text PRIMARY KEY,
			data       jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (s *PGStore) Load(ctx context.Context) (map[string]*model.Account, error) {
	rows, err := s.pool.Query(ctx, "SELECT username, data FROM accounts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := map[string]*model.Account{}
	for rows.Next() {
		var username string
		var data []byte
		if err := rows.Scan(&username, &data); err != nil {
			return nil, err
		}
		var acc model.Account
		if err := json.Unmarshal(data, &acc); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", username, err)
		}
		accounts[username] = &acc
	}
	return accounts, rows.Err()
}

func (s *PGStore) SaveAccount(ctx context.Context, username string, acc *model.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO accounts (username, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, username, data)
	return err
}

func (s *PGStore) Save(ctx context.Context, accounts map[string]*model.Account) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, "DELETE FROM accounts"); err != nil {
		return err
	}
	for username, acc := range accounts {
		data, err := json.Marshal(acc)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "INSERT INTO accounts (username, data, updated_at) VALUES ($1, $2, NOW())", username, data); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
