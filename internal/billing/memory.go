package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

// Memory is an in-memory billing store for tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account // by account number, lowercased
	bills    map[string][]*Bill  // by account ID string
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*Account),
		bills:    make(map[string][]*Bill),
	}
}

func (s *Memory) CreateAccount(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(a.AccountNumber)
	if _, taken := s.accounts[key]; taken {
		return fmt.Errorf("account number: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *a
	s.accounts[key] = &cp
	return nil
}

func (s *Memory) GetAccountByNumber(ctx context.Context, accountNumber string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[strings.ToLower(accountNumber)]
	if !ok {
		return nil, fmt.Errorf("billing account %q: %w", accountNumber, sentinel.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *Memory) CreateBill(ctx context.Context, b *Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	key := b.AccountID.String()
	s.bills[key] = append(s.bills[key], &cp)
	return nil
}

// ListOpenBills returns the account's unpaid bills, oldest month first.
func (s *Memory) ListOpenBills(ctx context.Context, accountID string) ([]*Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Bill
	for _, b := range s.bills[accountID] {
		if b.Open() {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillMonth < out[j].BillMonth })
	return out, nil
}

// LastOpenBill returns the most recent unpaid bill on the account.
func (s *Memory) LastOpenBill(ctx context.Context, accountID string) (*Bill, error) {
	open, err := s.ListOpenBills(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("open bill for account %s: %w", accountID, sentinel.ErrNotFound)
	}
	return open[len(open)-1], nil
}
