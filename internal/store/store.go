// Package store defines the persistence boundary the import pipeline
// writes through. The pipeline assumes single-writer access for the
// duration of one import.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Store is the persistent collaborator for one import session.
type Store interface {
	// TransactionsInRange returns persisted transactions whose date
	// falls within [from, to], inclusive, for duplicate checking.
	TransactionsInRange(ctx context.Context, from, to time.Time) ([]model.ExistingTransaction, error)

	// EnsureAccount returns the id of the account with the given name,
	// creating it if absent. Name matching is case-insensitive.
	EnsureAccount(ctx context.Context, name string) (string, error)

	// EnsureCategory behaves like EnsureAccount for categories.
	EnsureCategory(ctx context.Context, name string) (string, error)

	// EnsureTag behaves like EnsureAccount for tags.
	EnsureTag(ctx context.Context, name string) (string, error)

	// SaveBatch persists one batch transactionally: either every
	// transaction in the batch lands and the account balances are
	// updated, or none are. Batches already saved by earlier calls are
	// not affected by a later failure.
	SaveBatch(ctx context.Context, txns []model.ExistingTransaction) error
}

// Account is a persisted account.
type Account struct {
	ID      string
	Name    string
	Balance decimal.Decimal
}

// PostCommitHook receives committed transaction ids paired with the
// original, pre-normalization payee text, so external payee-cleanup
// and auto-rule passes can match raw bank text.
type PostCommitHook func(ctx context.Context, committed []CommittedRef) error

// CommittedRef identifies one committed transaction for the
// post-commit collaborators.
type CommittedRef struct {
	ID            string
	OriginalPayee string
}
