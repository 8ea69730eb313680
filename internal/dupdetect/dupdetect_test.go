package dupdetect

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func stagedTxn(d int, amount, payee string) *model.StagedTransaction {
	return &model.StagedTransaction{
		Date:       day(d),
		Payee:      payee,
		Amount:     decimal.RequireFromString(amount),
		Kind:       model.KindStandard,
		IsSelected: true,
	}
}

func existingTxn(d int, amount, payee string) model.ExistingTransaction {
	return model.ExistingTransaction{
		Date:   day(d),
		Payee:  payee,
		Amount: decimal.RequireFromString(amount),
	}
}

func TestEvaluate_ExactNormalizedPayee(t *testing.T) {
	m := Evaluate(stagedTxn(5, "-4.50", "STARBUCKS #1234"), existingTxn(5, "-4.50", "Starbucks 1234"), DefaultConfig())
	assert.True(t, m.IsDuplicate)
	assert.Equal(t, "same date, amount, and payee", m.Reason)
}

func TestEvaluate_RawPayeeCaseInsensitive(t *testing.T) {
	cfg := Config{UseNormalizedPayee: false, SimilarityThreshold: 0.99}

	m := Evaluate(stagedTxn(5, "-4.50", "coffee shop"), existingTxn(5, "-4.50", "COFFEE SHOP"), cfg)
	assert.True(t, m.IsDuplicate)
	assert.Equal(t, "same date, amount, and payee", m.Reason)

	// Punctuation breaks raw equality on the exact tier, but the fuzzy
	// tier always compares normalized forms, so this pair still matches
	// there.
	m = Evaluate(stagedTxn(5, "-4.50", "STARBUCKS #1234"), existingTxn(5, "-4.50", "Starbucks 1234"), cfg)
	assert.True(t, m.IsDuplicate)
	assert.Contains(t, m.Reason, "similar payee")
}

func TestEvaluate_DifferentDayNeverMatches(t *testing.T) {
	m := Evaluate(stagedTxn(6, "-4.50", "STARBUCKS #1234"), existingTxn(5, "-4.50", "STARBUCKS #1234"), DefaultConfig())
	assert.False(t, m.IsDuplicate)
}

func TestEvaluate_DifferentAmountNeverMatches(t *testing.T) {
	m := Evaluate(stagedTxn(5, "-4.51", "STARBUCKS #1234"), existingTxn(5, "-4.50", "STARBUCKS #1234"), DefaultConfig())
	assert.False(t, m.IsDuplicate)
}

func TestEvaluate_MemoMatchBeatsFuzzy(t *testing.T) {
	staged := stagedTxn(5, "-99.00", "TOTALLY DIFFERENT PAYEE")
	staged.Memo = "REF 8841-220"
	existing := existingTxn(5, "-99.00", "Some Rewritten Name")
	existing.Memo = "REF 8841-220"

	m := Evaluate(staged, existing, DefaultConfig())
	assert.True(t, m.IsDuplicate)
	assert.Equal(t, "same date, amount, and memo", m.Reason)
}

func TestEvaluate_EmptyMemosNeverMatch(t *testing.T) {
	m := Evaluate(stagedTxn(5, "-99.00", "ACME HARDWARE"), existingTxn(5, "-99.00", "CITY UTILITIES"), DefaultConfig())
	assert.False(t, m.IsDuplicate)
}

func TestEvaluate_FuzzyPayee(t *testing.T) {
	m := Evaluate(stagedTxn(5, "-12.00", "WHOLEFDS MKT 10352"), existingTxn(5, "-12.00", "WHOLEFDS MKT 10353"), DefaultConfig())
	assert.True(t, m.IsDuplicate)
	assert.Contains(t, m.Reason, "similar payee")
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("STARBUCKS", "starbucks"), 0.001)
	assert.Less(t, Similarity("STARBUCKS", "WALGREENS"), 0.5)
}

func TestMarkBatch(t *testing.T) {
	staged := []*model.StagedTransaction{
		stagedTxn(5, "-4.50", "STARBUCKS #1234"),
		stagedTxn(6, "-80.00", "GROCER"),
	}
	existing := []model.ExistingTransaction{
		existingTxn(5, "-4.50", "Starbucks 1234"),
	}

	dups := MarkBatch(staged, existing, DefaultConfig())
	assert.Equal(t, 1, dups)

	assert.True(t, staged[0].IsDuplicate)
	assert.False(t, staged[0].IsSelected, "duplicates default to unselected")
	assert.NotEmpty(t, staged[0].DuplicateReason)

	assert.False(t, staged[1].IsDuplicate)
	assert.True(t, staged[1].IsSelected)
}

func TestMarkBatch_WindowBound(t *testing.T) {
	staged := []*model.StagedTransaction{stagedTxn(10, "-4.50", "SHOP")}
	existing := []model.ExistingTransaction{
		existingTxn(1, "-4.50", "SHOP"),
		existingTxn(20, "-4.50", "SHOP"),
	}

	dups := MarkBatch(staged, existing, DefaultConfig())
	assert.Zero(t, dups)
}

func TestMarkBatch_Rerunnable(t *testing.T) {
	staged := []*model.StagedTransaction{stagedTxn(5, "-4.50", "SHOP")}
	existing := []model.ExistingTransaction{existingTxn(5, "-4.50", "SHOP")}

	MarkBatch(staged, existing, DefaultConfig())
	first := *staged[0]
	MarkBatch(staged, existing, DefaultConfig())
	assert.Equal(t, first, *staged[0])
}

func TestDateWindow(t *testing.T) {
	staged := []*model.StagedTransaction{stagedTxn(12, "1", "A"), stagedTxn(3, "1", "B"), stagedTxn(9, "1", "C")}
	min, max := DateWindow(staged)
	assert.Equal(t, 3, min.Day())
	assert.Equal(t, 12, max.Day())
}
