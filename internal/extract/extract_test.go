package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/dates"
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func defaultOpts() Options {
	return Options{
		DateFormat:     dates.FormatMDYSlash,
		SignConvention: model.SignNegativeIsExpense,
	}
}

func TestExtract_SingleAmountColumn(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldPayee, 2: model.FieldAmount}

	txn, skip := Extract([]string{"1/2/2025", "COFFEE SHOP", "-4.50"}, 1, mapping, defaultOpts())
	require.Nil(t, skip)
	assert.Equal(t, "-4.5", txn.Amount.String())
	assert.Equal(t, "COFFEE SHOP", txn.Payee)
	assert.Equal(t, "COFFEE SHOP", txn.OriginalPayee)
	assert.Equal(t, 2025, txn.Date.Year())
	assert.True(t, txn.IsSelected)
	assert.Equal(t, model.KindStandard, txn.Kind)
}

func TestExtract_TwoColumnLedger(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldInflow, 2: model.FieldOutflow}
	opts := defaultOpts()

	txn, skip := Extract([]string{"1/2/2025", "100.00", "0"}, 1, mapping, opts)
	require.Nil(t, skip)
	assert.Equal(t, "100", txn.Amount.String())

	txn, skip = Extract([]string{"1/2/2025", "0", "40.00"}, 2, mapping, opts)
	require.Nil(t, skip)
	assert.Equal(t, "-40", txn.Amount.String())
}

func TestExtract_OutflowOnlyNegates(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldOutflow}

	txn, skip := Extract([]string{"1/2/2025", "25.00"}, 1, mapping, defaultOpts())
	require.Nil(t, skip)
	assert.Equal(t, "-25", txn.Amount.String())
}

func TestExtract_InflowOnlyStaysPositive(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldInflow}

	txn, skip := Extract([]string{"1/2/2025", "25.00"}, 1, mapping, defaultOpts())
	require.Nil(t, skip)
	assert.Equal(t, "25", txn.Amount.String())
}

func TestExtract_PositiveMeansExpense(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldAmount}
	opts := defaultOpts()
	opts.SignConvention = model.SignPositiveIsExpense

	txn, skip := Extract([]string{"1/2/2025", "12.00"}, 1, mapping, opts)
	require.Nil(t, skip)
	assert.Equal(t, "-12", txn.Amount.String())

	txn, skip = Extract([]string{"1/2/2025", "-50.00"}, 2, mapping, opts)
	require.Nil(t, skip)
	assert.Equal(t, "50", txn.Amount.String())
}

func TestExtract_KindKeywords(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldAmount, 2: model.FieldKind}
	opts := defaultOpts()

	for _, tc := range []struct {
		cell string
		want model.TransactionKind
	}{
		{"Transfer", model.KindTransfer},
		{"ACCOUNT TRANSFER", model.KindTransfer},
		{"ignored", model.KindIgnored},
		{"Balance Adjustment", model.KindAdjustment},
		{"purchase", model.KindStandard},
		{"", model.KindStandard},
	} {
		cell, want := tc.cell, tc.want
		txn, skip := Extract([]string{"1/2/2025", "5.00", cell}, 1, mapping, opts)
		require.Nil(t, skip, "cell %q", cell)
		assert.Equal(t, want, txn.Kind, "cell %q", cell)
	}
}

func TestExtract_TransferDropsCategory(t *testing.T) {
	mapping := model.ColumnMapping{
		0: model.FieldDate, 1: model.FieldAmount, 2: model.FieldKind, 3: model.FieldCategory,
	}

	txn, skip := Extract([]string{"1/2/2025", "5.00", "transfer", "Dining Out"}, 1, mapping, defaultOpts())
	require.Nil(t, skip)
	assert.Equal(t, model.KindTransfer, txn.Kind)
	assert.Empty(t, txn.RawCategory)

	txn, skip = Extract([]string{"1/2/2025", "5.00", "purchase", "Dining Out"}, 2, mapping, defaultOpts())
	require.Nil(t, skip)
	assert.Equal(t, "Dining Out", txn.RawCategory)
}

func TestExtract_StatusKeywords(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldAmount, 2: model.FieldStatus}

	for _, tc := range []struct {
		cell string
		want model.TransactionStatus
	}{
		{"Reconciled", model.StatusReconciled},
		{"Cleared", model.StatusCleared},
		{"Uncleared", model.StatusUncleared},
		{"pending", model.StatusUncleared},
		{"", model.StatusUncleared},
	} {
		cell, want := tc.cell, tc.want
		txn, skip := Extract([]string{"1/2/2025", "5.00", cell}, 1, mapping, defaultOpts())
		require.Nil(t, skip)
		assert.Equal(t, want, txn.Status, "cell %q", cell)
	}
}

func TestExtract_Tags(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldAmount, 2: model.FieldTags}

	txn, skip := Extract([]string{"1/2/2025", "5.00", "work, travel; work | Travel"}, 1, mapping, defaultOpts())
	require.Nil(t, skip)
	// Case-sensitive de-dup: "work" collapses, "Travel" survives.
	assert.Equal(t, []string{"work", "travel", "Travel"}, txn.RawTags)
}

func TestExtract_SkipReasons(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 1: model.FieldAmount}
	opts := defaultOpts()

	_, skip := Extract([]string{"garbage", "5.00"}, 3, mapping, opts)
	require.NotNil(t, skip)
	assert.Equal(t, SkipInvalidDate, skip.Code)
	assert.Equal(t, "garbage", skip.RawDate)
	assert.Equal(t, 3, skip.Row)

	_, skip = Extract([]string{"1/2/2025", "not-money"}, 4, mapping, opts)
	require.NotNil(t, skip)
	assert.Equal(t, SkipInvalidAmount, skip.Code)

	_, skip = Extract([]string{"garbage", "not-money"}, 5, mapping, opts)
	require.NotNil(t, skip)
	assert.Equal(t, SkipInvalidBoth, skip.Code)
}

func TestExtract_ShortRowSkips(t *testing.T) {
	mapping := model.ColumnMapping{0: model.FieldDate, 5: model.FieldAmount}

	_, skip := Extract([]string{"1/2/2025"}, 1, mapping, defaultOpts())
	require.NotNil(t, skip)
	assert.Equal(t, SkipInvalidAmount, skip.Code)
}
