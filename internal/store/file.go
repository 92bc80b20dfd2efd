package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"papertrade/internal/model"
)

// FileStore keeps the whole account map in one pretty-printed JSON
// file. A missing file reads as an empty map. Writes go through a
// temp-file rename so a crash mid-write never truncates the data.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (map[string]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (map[string]*model.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*model.Account{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	accounts := map[string]*model.Account{}
	if len(data) == 0 {
		return accounts, nil
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return accounts, nil
}

func (s *FileStore) SaveAccount(ctx context.Context, username string, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts, err := s.loadLocked()
	if err != nil {
		return err
	}
	accounts[username] = acc
	return s.writeLocked(accounts)
}

func (s *FileStore) Save(ctx context.Context, accounts map[string]*model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(accounts)
}

func (s *FileStore) writeLocked(accounts map[string]*model.Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
