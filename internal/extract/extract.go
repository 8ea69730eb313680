// Package extract converts raw rows into staged transactions, applying
// the sign conventions and per-row validation of the import pipeline.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/dates"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/money"
)

// SkipCode classifies why a row was rejected.
type SkipCode string

const (
	SkipInvalidDate   SkipCode = "invalid_date"
	SkipInvalidAmount SkipCode = "invalid_amount"
	SkipInvalidBoth   SkipCode = "invalid_date_and_amount"
)

// SkipReason reports one rejected row. RawDate and RawAmount hold the
// offending cell values so the orchestrator can surface diagnostics.
type SkipReason struct {
	Row       int
	Code      SkipCode
	RawDate   string
	RawAmount string
}

func (s SkipReason) String() string {
	switch s.Code {
	case SkipInvalidDate:
		return fmt.Sprintf("row %d: missing or invalid date %q", s.Row, s.RawDate)
	case SkipInvalidAmount:
		return fmt.Sprintf("row %d: missing or invalid amount %q", s.Row, s.RawAmount)
	default:
		return fmt.Sprintf("row %d: invalid date %q and amount %q", s.Row, s.RawDate, s.RawAmount)
	}
}

// Options configure extraction for one import run.
type Options struct {
	DateFormat     dates.Format
	SignConvention model.SignConvention
}

// tagDelimiters split a tags cell into individual tags.
const tagDelimiters = ",;|"

// Extract converts one raw row into a staged transaction, or a skip
// reason when the date or amount cannot be parsed. Cells are trimmed
// before interpretation; unmapped columns are ignored.
func Extract(row []string, rowNum int, mapping model.ColumnMapping, opts Options) (model.StagedTransaction, *SkipReason) {
	txn := model.StagedTransaction{
		Status:     model.StatusUncleared,
		Kind:       model.KindStandard,
		IsSelected: true,
	}

	var (
		rawDate, rawAmount      string
		rawInflow, rawOutflow   string
		haveInflow, haveOutflow bool
		haveAmount              bool
	)

	// Ascending column order keeps the outcome deterministic when a tag
	// was assigned to more than one column (highest column wins).
	cols := make([]int, 0, len(mapping))
	for col := range mapping {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	for _, col := range cols {
		if col < 0 || col >= len(row) {
			continue
		}
		tag := mapping[col]
		cell := strings.TrimSpace(row[col])

		switch tag {
		case model.FieldDate:
			rawDate = cell
		case model.FieldPayee:
			txn.Payee = cell
			txn.OriginalPayee = cell
		case model.FieldMemo:
			txn.Memo = cell
		case model.FieldAmount:
			rawAmount = cell
			haveAmount = true
		case model.FieldInflow:
			rawInflow = cell
			haveInflow = true
		case model.FieldOutflow:
			rawOutflow = cell
			haveOutflow = true
		case model.FieldCategory:
			txn.RawCategory = cell
		case model.FieldAccount:
			txn.RawAccount = cell
		case model.FieldTags:
			txn.RawTags = splitTags(cell)
		case model.FieldStatus:
			txn.Status = parseStatus(cell)
		case model.FieldKind:
			txn.Kind = parseKind(cell)
		case model.FieldTransferID:
			txn.TransferGroupID = cell
		case model.FieldExternalTransferLabel:
			txn.ExternalTransferLabel = cell
		case model.FieldTransferInboxDismissed:
			txn.TransferInboxDismissed = parseBool(cell)
		case model.FieldPurchaseItems:
			txn.PurchaseItems = cell
		}
	}

	date, dateOK := dates.Parse(rawDate, opts.DateFormat)

	amount, amountOK := resolveAmount(rawAmount, rawInflow, rawOutflow, haveAmount, haveInflow, haveOutflow, opts.SignConvention)

	if !dateOK || !amountOK {
		code := SkipInvalidBoth
		switch {
		case !dateOK && amountOK:
			code = SkipInvalidDate
		case dateOK && !amountOK:
			code = SkipInvalidAmount
		}
		return model.StagedTransaction{}, &SkipReason{Row: rowNum, Code: code, RawDate: rawDate, RawAmount: rawAmount}
	}

	txn.Date = date
	txn.Amount = amount

	// Transfers are categorized implicitly by their link, never by a
	// category reference.
	if txn.Kind == model.KindTransfer {
		txn.RawCategory = ""
	}

	return txn, nil
}

// resolveAmount applies the two-column ledger convention and the
// configured sign convention.
func resolveAmount(rawAmount, rawInflow, rawOutflow string, haveAmount, haveInflow, haveOutflow bool, sign model.SignConvention) (decimal.Decimal, bool) {
	switch {
	case haveInflow && haveOutflow:
		in, okIn := money.Parse(rawInflow)
		out, okOut := money.Parse(rawOutflow)
		if !okIn || !okOut {
			return decimal.Zero, false
		}
		return in.Sub(out), true
	case haveInflow:
		return money.Parse(rawInflow)
	case haveOutflow:
		// Outflow cells hold unsigned magnitudes of money leaving the
		// account.
		out, ok := money.Parse(rawOutflow)
		if !ok {
			return decimal.Zero, false
		}
		return out.Neg(), true
	case haveAmount:
		amt, ok := money.Parse(rawAmount)
		if !ok {
			return decimal.Zero, false
		}
		if sign == model.SignPositiveIsExpense {
			amt = amt.Neg()
		}
		return amt, true
	default:
		return decimal.Zero, false
	}
}

// parseKind maps a kind cell onto a TransactionKind by case-insensitive
// substring.
func parseKind(cell string) model.TransactionKind {
	c := strings.ToLower(cell)
	switch {
	case strings.Contains(c, "transfer"):
		return model.KindTransfer
	case strings.Contains(c, "ignored"):
		return model.KindIgnored
	case strings.Contains(c, "adjust"):
		return model.KindAdjustment
	default:
		return model.KindStandard
	}
}

func parseStatus(cell string) model.TransactionStatus {
	c := strings.ToLower(cell)
	switch {
	case strings.Contains(c, "reconciled"):
		return model.StatusReconciled
	// "uncleared" contains "cleared", so it must be ruled out first.
	case strings.Contains(c, "uncleared"):
		return model.StatusUncleared
	case strings.Contains(c, "cleared"):
		return model.StatusCleared
	default:
		return model.StatusUncleared
	}
}

func parseBool(cell string) bool {
	switch strings.ToLower(cell) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// splitTags splits a delimited tags cell and de-duplicates
// case-sensitively. Case-insensitive folding happens later, at tag
// resolution against the store.
func splitTags(cell string) []string {
	if cell == "" {
		return nil
	}
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return strings.ContainsRune(tagDelimiters, r)
	})
	seen := make(map[string]struct{}, len(fields))
	var tags []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tags = append(tags, f)
	}
	return tags
}
