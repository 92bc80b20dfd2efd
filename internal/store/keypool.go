package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

// Key is a pre-generated deposit wallet handed to a user at
// registration. The pool file is operator-maintained.
type Key struct {
	PrivateKey string `json:"privateKey"`
	Address    string `json:"address"`
}

var ErrPoolEmpty = errors.New("no registration keys available")

// FileKeyPool draws random keys from a JSON array file, removing each
// taken key so it is assigned at most once.
type FileKeyPool struct {
	path string
	mu   sync.Mutex
}

func NewFileKeyPool(path string) *FileKeyPool {
	return &FileKeyPool{path: path}
}

// Take removes and returns a random key from the pool.
func (p *FileKeyPool) Take(ctx context.Context) (Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys, err := p.load()
	if err != nil {
		return Key{}, err
	}
	if len(keys) == 0 {
		return Key{}, ErrPoolEmpty
	}
	i := rand.Intn(len(keys))
	k := keys[i]
	keys = append(keys[:i], keys[i+1:]...)
	if err := p.write(keys); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Remaining reports how many keys are left.
func (p *FileKeyPool) Remaining(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys, err := p.load()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (p *FileKeyPool) load() ([]Key, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	var keys []Key
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return keys, nil
}

func (p *FileKeyPool) write(keys []Key) error {
	if keys == nil {
		keys = []Key{}
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
