package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalRequest is an audit record; requests are reviewed and paid
// out manually by the operator.
type WithdrawalRequest struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Address  string          `json:"address"`
	Amount   decimal.Decimal `json:"amount"`
	Date     time.Time       `json:"date"`
}

// FileWithdrawalLog appends withdrawal requests to a JSON array file.
type FileWithdrawalLog struct {
	path string
	mu   sync.Mutex
}

func NewFileWithdrawalLog(path string) *FileWithdrawalLog {
	return &FileWithdrawalLog{path: path}
}

func (l *FileWithdrawalLog) Append(ctx context.Context, req WithdrawalRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	requests, err := l.load()
	if err != nil {
		return err
	}
	requests = append(requests, req)
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

func (l *FileWithdrawalLog) List(ctx context.Context) ([]WithdrawalRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *FileWithdrawalLog) load() ([]WithdrawalRequest, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	var requests []WithdrawalRequest
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	return requests, nil
}
