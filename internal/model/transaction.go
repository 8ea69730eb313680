package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the clearing state of a transaction.
type TransactionStatus string

const (
	StatusUncleared  TransactionStatus = "uncleared"
	StatusCleared    TransactionStatus = "cleared"
	StatusReconciled TransactionStatus = "reconciled"
)

// TransactionKind distinguishes ordinary transactions from transfers,
// ignored rows, and balance adjustments.
type TransactionKind string

const (
	KindStandard   TransactionKind = "standard"
	KindTransfer   TransactionKind = "transfer"
	KindIgnored    TransactionKind = "ignored"
	KindAdjustment TransactionKind = "adjustment"
)

// StagedTransaction is a not-yet-persisted transaction produced by the
// row extractor. It is owned by a single import session and mutated in
// place by the payee-normalization, duplicate-detection, and
// transfer-linking passes before commit.
type StagedTransaction struct {
	ID            string
	Date          time.Time
	Payee         string
	OriginalPayee string // raw bank text, kept for rule matching after display cleanup
	Amount        decimal.Decimal
	Memo          string

	// Unresolved references. These are names from the file, resolved to
	// persisted entities only at mapping/commit time.
	RawCategory string
	RawAccount  string
	RawTags     []string

	Status TransactionStatus
	Kind   TransactionKind

	TransferGroupID        string
	ExternalTransferLabel  string
	TransferInboxDismissed bool
	PurchaseItems          string

	// Review flags.
	IsSelected      bool
	IsDuplicate     bool
	DuplicateReason string
}

// SameDay reports whether the staged transaction falls on the same
// calendar day as t.
func (s *StagedTransaction) SameDay(t time.Time) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ExistingTransaction is the persisted shape the store returns for
// duplicate checking and accepts at commit.
type ExistingTransaction struct {
	ID              string
	AccountID       string
	Date            time.Time
	Payee           string
	OriginalPayee   string
	Memo            string
	Amount          decimal.Decimal
	CategoryID      string
	TagIDs          []string
	Status          TransactionStatus
	Kind            TransactionKind
	TransferGroupID string
}
