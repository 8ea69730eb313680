// Package dupdetect flags staged transactions that already exist in
// the store, using exact, memo, and fuzzy payee matching.
package dupdetect

import (
	"fmt"
	"strings"
	"time"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/payee"
)

// Config tunes duplicate matching for one import run.
type Config struct {
	// UseNormalizedPayee compares normalized payee forms instead of
	// raw case-insensitive equality.
	UseNormalizedPayee bool
	// SimilarityThreshold is the minimum normalized similarity in
	// [0,1] for the fuzzy payee rule.
	SimilarityThreshold float64
}

// DefaultConfig matches the thresholds the interactive review screen
// was tuned against.
func DefaultConfig() Config {
	return Config{UseNormalizedPayee: true, SimilarityThreshold: 0.85}
}

// Match is the outcome of comparing one staged transaction against one
// persisted candidate.
type Match struct {
	IsDuplicate bool
	Reason      string
}

// Evaluate applies the matching policy in fixed order: exact payee,
// then memo, then fuzzy payee. The first rule to hit supplies the
// reason. All rules require the same calendar day and an exactly equal
// amount.
func Evaluate(staged *model.StagedTransaction, existing model.ExistingTransaction, cfg Config) Match {
	if !staged.SameDay(existing.Date) || !staged.Amount.Equal(existing.Amount) {
		return Match{}
	}

	if payeesEqual(staged.Payee, existing.Payee, cfg.UseNormalizedPayee) {
		return Match{IsDuplicate: true, Reason: "same date, amount, and payee"}
	}

	stagedMemo := strings.TrimSpace(staged.Memo)
	if stagedMemo != "" && stagedMemo == strings.TrimSpace(existing.Memo) {
		return Match{IsDuplicate: true, Reason: "same date, amount, and memo"}
	}

	if sim := Similarity(staged.Payee, existing.Payee); sim >= cfg.SimilarityThreshold {
		return Match{IsDuplicate: true, Reason: fmt.Sprintf("similar payee (%.0f%% match)", sim*100)}
	}

	return Match{}
}

func payeesEqual(a, b string, normalized bool) bool {
	if normalized {
		return payee.Equal(a, b)
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Similarity returns a normalized string-similarity score in [0,1]
// between the normalized forms of two payees: 1 minus the edit
// distance over the longer length.
func Similarity(a, b string) float64 {
	na := []rune(payee.Normalize(a))
	nb := []rune(payee.Normalize(b))
	if len(na) == 0 && len(nb) == 0 {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	dist := levenshtein.DistanceForStrings(na, nb, levenshtein.DefaultOptions)
	return 1 - float64(dist)/float64(longest)
}

// MarkBatch evaluates every staged transaction against the persisted
// candidates, sets the duplicate flags, and applies the selection
// defaults: duplicates start unselected so the user opts back in,
// everything else starts selected. Candidates outside the staged
// batch's [min date, max date] window can never match and are skipped.
func MarkBatch(staged []*model.StagedTransaction, existing []model.ExistingTransaction, cfg Config) int {
	if len(staged) == 0 {
		return 0
	}

	min, max := dateWindow(staged)
	var candidates []model.ExistingTransaction
	for _, e := range existing {
		if e.Date.Before(min) || e.Date.After(max) {
			continue
		}
		candidates = append(candidates, e)
	}

	dups := 0
	for _, s := range staged {
		s.IsDuplicate = false
		s.DuplicateReason = ""
		for _, e := range candidates {
			if m := Evaluate(s, e, cfg); m.IsDuplicate {
				s.IsDuplicate = true
				s.DuplicateReason = m.Reason
				break
			}
		}
		s.IsSelected = !s.IsDuplicate
		if s.IsDuplicate {
			dups++
		}
	}
	return dups
}

// DateWindow returns the inclusive [min, max] calendar-day bounds of a
// staged batch, for fetching persisted candidates. An empty batch
// yields zero times.
func DateWindow(staged []*model.StagedTransaction) (time.Time, time.Time) {
	if len(staged) == 0 {
		return time.Time{}, time.Time{}
	}
	return dateWindow(staged)
}

func dateWindow(staged []*model.StagedTransaction) (time.Time, time.Time) {
	min, max := staged[0].Date, staged[0].Date
	for _, s := range staged[1:] {
		if s.Date.Before(min) {
			min = s.Date
		}
		if s.Date.After(max) {
			max = s.Date
		}
	}
	// Widen to whole days so time-of-day on either side cannot clip a
	// same-day candidate.
	min = time.Date(min.Year(), min.Month(), min.Day(), 0, 0, 0, 0, min.Location())
	max = time.Date(max.Year(), max.Month(), max.Day(), 23, 59, 59, 0, max.Location())
	return min, max
}
