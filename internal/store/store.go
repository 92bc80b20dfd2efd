package store

import (
	"context"

	"papertrade/internal/model"
)

// Store is the durable username -> Account mapping. Load returns the
// whole map; SaveAccount persists a single account without touching the
// rest of the map, which keeps concurrent writers on different accounts
// from clobbering each other; Save rewrites everything and exists for
// tooling and tests.
type Store interface {
	Load(ctx context.Context) (map[string]*model.Account, error)
	SaveAccount(ctx context.Context, username string, acc *model.Account) error
	Save(ctx context.Context, accounts map[string]*model.Account) error
}
