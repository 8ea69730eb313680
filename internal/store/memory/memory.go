// Package memory provides an in-memory Store used by tests and the
// headless CLI path.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu         sync.Mutex
	accounts   map[string]*store.Account // keyed by lower-cased name
	categories map[string]string
	tags       map[string]string
	txns       []model.ExistingTransaction

	// FailBatchAfter makes SaveBatch fail once the given number of
	// batches have succeeded. Zero disables the fault.
	FailBatchAfter int
	savedBatches   int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:   make(map[string]*store.Account),
		categories: make(map[string]string),
		tags:       make(map[string]string),
	}
}

// Seed inserts existing transactions, bypassing batch semantics.
func (s *Store) Seed(txns ...model.ExistingTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, txns...)
}

// TransactionsInRange returns persisted transactions within [from, to].
func (s *Store) TransactionsInRange(_ context.Context, from, to time.Time) ([]model.ExistingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ExistingTransaction
	for _, t := range s.txns {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// EnsureAccount fetches or creates an account by name.
func (s *Store) EnsureAccount(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", fmt.Errorf("account name cannot be empty")
	}
	if a, ok := s.accounts[key]; ok {
		return a.ID, nil
	}
	a := &store.Account{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	s.accounts[key] = a
	return a.ID, nil
}

// EnsureCategory fetches or creates a category by name.
func (s *Store) EnsureCategory(_ context.Context, name string) (string, error) {
	return s.ensureNamed(s.categories, name, "category")
}

// EnsureTag fetches or creates a tag by name.
func (s *Store) EnsureTag(_ context.Context, name string) (string, error) {
	return s.ensureNamed(s.tags, name, "tag")
}

func (s *Store) ensureNamed(m map[string]string, name, what string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", fmt.Errorf("%s name cannot be empty", what)
	}
	if id, ok := m[key]; ok {
		return id, nil
	}
	id := uuid.NewString()
	m[key] = id
	return id, nil
}

// SaveBatch persists a batch atomically and updates account balances.
func (s *Store) SaveBatch(_ context.Context, txns []model.ExistingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailBatchAfter > 0 && s.savedBatches >= s.FailBatchAfter {
		return fmt.Errorf("simulated batch save failure")
	}

	for i := range txns {
		if txns[i].ID == "" {
			txns[i].ID = uuid.NewString()
		}
	}
	s.txns = append(s.txns, txns...)
	for _, t := range txns {
		for _, a := range s.accounts {
			if a.ID == t.AccountID {
				a.Balance = a.Balance.Add(t.Amount)
			}
		}
	}
	s.savedBatches++
	return nil
}

// Transactions returns a copy of everything persisted so far.
func (s *Store) Transactions() []model.ExistingTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ExistingTransaction, len(s.txns))
	copy(out, s.txns)
	return out
}

// AccountBalance returns the running balance for an account id.
func (s *Store) AccountBalance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a.Balance
		}
	}
	return decimal.Zero
}
