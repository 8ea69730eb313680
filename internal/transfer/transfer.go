// Package transfer pairs opposite legs of internal money movements
// among staged transactions and manages linking them.
package transfer

import (
	"sort"

	"github.com/google/uuid"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Config tunes suggestion generation.
type Config struct {
	// MaxDaysApart is the largest date gap between the two legs.
	MaxDaysApart int
	// MaxSuggestions caps the suggestions returned per pass.
	MaxSuggestions int
	// MinScore filters weak pairings.
	MinScore float64
}

// DefaultConfig mirrors the review screen's tuning.
func DefaultConfig() Config {
	return Config{MaxDaysApart: 3, MaxSuggestions: 50, MinScore: 0.5}
}

// hintBoost is added per leg that looks like a transfer (no category,
// or a category in a transfer-type group).
const hintBoost = 0.25

// AccountResolver resolves a staged transaction to a persisted account
// identity. The second return is false when the account is unknown.
type AccountResolver func(*model.StagedTransaction) (string, bool)

// HintPredicate reports whether a staged transaction carries a weak
// transfer signal beyond its amount and account.
type HintPredicate func(*model.StagedTransaction) bool

// Suggestion proposes linking two staged transactions as the legs of
// one transfer.
type Suggestion struct {
	ID        string
	OutflowID string
	InflowID  string
	Score     float64
}

// NoCategoryHint is the default HintPredicate: transactions with no
// category at all are plausible transfer legs.
func NoCategoryHint(s *model.StagedTransaction) bool {
	return s.RawCategory == ""
}

// Suggest scans eligible staged transactions for opposite-sign,
// equal-magnitude pairs in different accounts within the configured
// date window, scores them, and greedily keeps the best
// non-overlapping set in score-descending order. Re-running after a
// selection change is idempotent; already-linked legs are excluded by
// the transfer-group eligibility rule, so accepted pairs are never
// resurrected.
func Suggest(staged []*model.StagedTransaction, cfg Config, resolve AccountResolver, hint HintPredicate) []Suggestion {
	if hint == nil {
		hint = NoCategoryHint
	}

	type leg struct {
		txn     *model.StagedTransaction
		account string
	}
	var legs []leg
	for _, s := range staged {
		if !eligible(s) {
			continue
		}
		account, ok := resolve(s)
		if !ok {
			continue
		}
		legs = append(legs, leg{txn: s, account: account})
	}

	type candidate struct {
		out, in *model.StagedTransaction
		score   float64
	}
	var candidates []candidate
	for i, a := range legs {
		for _, b := range legs[i+1:] {
			out, in := a, b
			if out.txn.Amount.IsPositive() {
				out, in = b, a
			}
			if !out.txn.Amount.IsNegative() || !in.txn.Amount.IsPositive() {
				continue
			}
			if !out.txn.Amount.Neg().Equal(in.txn.Amount) {
				continue
			}
			if out.account == in.account {
				continue
			}
			days := daysApart(out.txn, in.txn)
			if days > cfg.MaxDaysApart {
				continue
			}

			score := 1 - float64(days)/float64(cfg.MaxDaysApart+1)
			if hint(out.txn) {
				score += hintBoost
			}
			if hint(in.txn) {
				score += hintBoost
			}
			if score < cfg.MinScore {
				continue
			}
			candidates = append(candidates, candidate{out: out.txn, in: in.txn, score: score})
		}
	}

	// Greedy assignment: best score first, each transaction used once.
	// Ties break on transaction IDs so reruns are deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].out.ID != candidates[j].out.ID {
			return candidates[i].out.ID < candidates[j].out.ID
		}
		return candidates[i].in.ID < candidates[j].in.ID
	})

	used := make(map[*model.StagedTransaction]struct{})
	var suggestions []Suggestion
	for _, c := range candidates {
		if len(suggestions) >= cfg.MaxSuggestions {
			break
		}
		if _, taken := used[c.out]; taken {
			continue
		}
		if _, taken := used[c.in]; taken {
			continue
		}
		used[c.out] = struct{}{}
		used[c.in] = struct{}{}
		suggestions = append(suggestions, Suggestion{
			ID:        uuid.NewString(),
			OutflowID: c.out.ID,
			InflowID:  c.in.ID,
			Score:     c.score,
		})
	}
	return suggestions
}

// eligible applies the filters from the suggestion contract.
func eligible(s *model.StagedTransaction) bool {
	return s.IsSelected &&
		!s.IsDuplicate &&
		s.Kind == model.KindStandard &&
		s.TransferGroupID == "" &&
		!s.Amount.IsZero()
}

// daysApart returns the whole-day gap between two staged transactions.
func daysApart(a, b *model.StagedTransaction) int {
	d := a.Date.Sub(b.Date)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// Link assigns a fresh shared transfer-group identifier to both legs,
// flips their kind to transfer, and clears their categories. Linking
// an already-linked pair is a no-op.
func Link(out, in *model.StagedTransaction) string {
	if out.TransferGroupID != "" && out.TransferGroupID == in.TransferGroupID {
		return out.TransferGroupID
	}
	group := uuid.NewString()
	for _, leg := range []*model.StagedTransaction{out, in} {
		leg.TransferGroupID = group
		leg.Kind = model.KindTransfer
		leg.RawCategory = ""
	}
	return group
}

// Unlink reverses Link exactly: clears the group identifier and
// reverts kind to standard on both legs. Safe to call on an unlinked
// pair.
func Unlink(out, in *model.StagedTransaction) {
	for _, leg := range []*model.StagedTransaction{out, in} {
		leg.TransferGroupID = ""
		leg.Kind = model.KindStandard
	}
}
