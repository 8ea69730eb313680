package session

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bankfeed-dev/bankfeed/internal/dupdetect"
	"github.com/bankfeed-dev/bankfeed/internal/extract"
	"github.com/bankfeed-dev/bankfeed/internal/history"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/store"
	"github.com/bankfeed-dev/bankfeed/internal/tabular"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

// RunImport streams the working copy through extraction and stages the
// results. On success the session lands on the first mapping step that
// has unresolved names, or directly on Review. Cancellation via ctx
// returns ErrCancelled with the session back at Preview.
func (s *Session) RunImport(ctx context.Context) error {
	if s.step != StepPreview {
		return &InvalidStepError{Op: "RunImport", Step: s.step}
	}
	if s.cfg.DefaultAccount == "" {
		return ErrNoDefaultAccount
	}
	if s.mapping.Has(model.FieldAmount) && s.cfg.SignConvention == model.SignUnset {
		return ErrSignConventionUnset
	}

	s.step = StepImporting
	s.staged = nil
	s.skipped = 0
	s.skipSamples = nil

	if err := s.parseAndStage(ctx); err != nil {
		s.Cancel()
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return err
	}

	// Zero staged rows is only an error when rows were actually
	// rejected; a header-only file lands on Review with nothing staged.
	if len(s.staged) == 0 && s.skipped > 0 {
		err := &NothingImportedError{Skipped: s.skipped, Samples: s.skipSamples}
		s.step = StepPreview
		return err
	}

	s.logger.Info("parse complete", "session", s.ID,
		"staged", len(s.staged), "skipped", s.skipped)
	s.step = s.nextMappingStep(StepImporting)
	if s.step == StepReview {
		return s.enterReview(ctx)
	}
	return nil
}

func (s *Session) parseAndStage(ctx context.Context) error {
	r, err := tabular.Open(s.tempPath, s.delimiter)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := extract.Options{
		DateFormat:     s.cfg.DateFormat,
		SignConvention: s.cfg.SignConvention,
	}

	rowNum := 0
	for {
		row, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parsing row %d: %w", rowNum+1, err)
		}
		rowNum++
		if rowNum <= s.headerRow+1 {
			continue // preamble and header
		}

		txn, skip := extract.Extract(row, rowNum, s.mapping, opts)
		if skip != nil {
			s.skipped++
			if len(s.skipSamples) < maxSkipSamples {
				s.skipSamples = append(s.skipSamples, *skip)
			}
		} else {
			staged := txn
			staged.ID = uuid.NewString()
			s.staged = append(s.staged, &staged)
		}

		if rowNum%parseProgressEvery == 0 {
			s.progress(model.Progress{
				Phase:     model.PhaseParsing,
				Current:   rowNum,
				Total:     -1,
				Message:   fmt.Sprintf("Read %d rows", rowNum),
				CanCancel: true,
			})
		}
	}

	s.progress(model.Progress{
		Phase:   model.PhaseParsing,
		Current: rowNum,
		Total:   rowNum,
		Message: fmt.Sprintf("Read %d rows", rowNum),
	})
	return nil
}

// nextMappingStep returns the first step after `after` whose unresolved
// names are non-empty; steps with nothing to map are skipped.
func (s *Session) nextMappingStep(after Step) Step {
	order := []struct {
		step Step
		has  func() bool
	}{
		{StepMapAccounts, func() bool { return len(s.RawAccountNames()) > 0 }},
		{StepMapCategories, func() bool { return len(s.RawCategoryNames()) > 0 }},
		{StepMapTags, func() bool { return len(s.RawTagNames()) > 0 }},
	}
	past := after == StepImporting
	for _, o := range order {
		if o.step == after {
			past = true
			continue
		}
		if past && o.has() {
			return o.step
		}
	}
	return StepReview
}

// ConfirmMappingStep resolves the current mapping step's names against
// the store (fetch-or-create, case-insensitive) and advances to the
// next step with work, entering Review if there is none.
func (s *Session) ConfirmMappingStep(ctx context.Context) error {
	var names []string
	var ensure func(context.Context, string) (string, error)
	switch s.step {
	case StepMapAccounts:
		names, ensure = s.RawAccountNames(), s.st.EnsureAccount
	case StepMapCategories:
		names, ensure = s.RawCategoryNames(), s.st.EnsureCategory
	case StepMapTags:
		names, ensure = s.RawTagNames(), s.st.EnsureTag
	default:
		return &InvalidStepError{Op: "ConfirmMappingStep", Step: s.step}
	}

	for _, n := range names {
		if _, err := ensure(ctx, n); err != nil {
			return fmt.Errorf("resolving %q: %w", n, err)
		}
	}

	s.step = s.nextMappingStep(s.step)
	if s.step == StepReview {
		return s.enterReview(ctx)
	}
	return nil
}

// enterReview runs the pure review-preparation passes: duplicate
// marking against the store and transfer suggestion.
func (s *Session) enterReview(ctx context.Context) error {
	s.step = StepReview

	if s.cfg.Options.DetectDuplicates && len(s.staged) > 0 {
		from, to := dupdetect.DateWindow(s.staged)
		existing, err := s.st.TransactionsInRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("loading transactions for duplicate check: %w", err)
		}
		cfg := dupdetect.DefaultConfig()
		if s.cfg.Duplicates.SimilarityThreshold > 0 {
			cfg.SimilarityThreshold = s.cfg.Duplicates.SimilarityThreshold
		}
		dups := dupdetect.MarkBatch(s.staged, existing, cfg)
		s.logger.Info("duplicates marked", "session", s.ID, "duplicates", dups)
	} else {
		for _, t := range s.staged {
			t.IsSelected = true
		}
	}

	if s.cfg.Options.SuggestTransfers {
		s.refreshSuggestions()
	}
	return nil
}

func (s *Session) refreshSuggestions() {
	resolve := func(t *model.StagedTransaction) (string, bool) {
		if t.RawAccount != "" {
			return t.RawAccount, true
		}
		return s.cfg.DefaultAccount, s.cfg.DefaultAccount != ""
	}
	s.suggestions = transfer.Suggest(s.staged, s.cfg.Transfers, resolve, transfer.NoCategoryHint)
}

// Summary is the final report for one run.
type Summary struct {
	Staged      int
	Skipped     int
	SkipSamples []extract.SkipReason
	Duplicates  int
	Transfers   int
	Committed   int
}

// Commit persists the selected staged transactions in fixed-size
// batches. A failed batch aborts the rest; already-saved batches stay
// saved and the session returns to Review so the user can retry or
// cancel.
func (s *Session) Commit(ctx context.Context) (Summary, error) {
	if s.step != StepReview {
		return Summary{}, &InvalidStepError{Op: "Commit", Step: s.step}
	}

	selected := make([]*model.StagedTransaction, 0, len(s.staged))
	for _, t := range s.staged {
		if t.IsSelected && t.Kind != model.KindIgnored {
			selected = append(selected, t)
		}
	}

	var refs []store.CommittedRef
	for start := 0; start < len(selected); start += s.cfg.CommitBatch {
		if err := ctx.Err(); err != nil {
			s.Cancel()
			return Summary{}, ErrCancelled
		}
		end := start + s.cfg.CommitBatch
		if end > len(selected) {
			end = len(selected)
		}

		batch, err := s.buildBatch(ctx, selected[start:end])
		if err != nil {
			return Summary{}, err
		}
		if err := s.st.SaveBatch(ctx, batch); err != nil {
			return Summary{}, fmt.Errorf("saving batch %d-%d: %w", start+1, end, err)
		}
		s.committed = end
		for i, txn := range batch {
			refs = append(refs, store.CommittedRef{
				ID:            txn.ID,
				OriginalPayee: selected[start+i].OriginalPayee,
			})
		}

		s.progress(model.Progress{
			Phase:     model.PhaseSaving,
			Current:   end,
			Total:     len(selected),
			Message:   fmt.Sprintf("Saved %d of %d transactions", end, len(selected)),
			CanCancel: true,
		})
	}

	if err := s.runPostCommit(ctx, refs); err != nil {
		// Committed data is already durable; hook failures are
		// reported but do not unwind the commit.
		s.logger.Warn("post-commit pass failed", "session", s.ID, "error", err)
	}

	sum := s.buildSummary()
	if s.cfg.Options.SaveProcessingHistory {
		s.appendHistory(sum)
	}

	s.removeTemp()
	s.staged = nil
	s.suggestions = nil
	s.step = StepComplete
	s.logger.Info("import complete", "session", s.ID, "committed", sum.Committed)
	return sum, nil
}

// buildBatch resolves raw names to ids and converts staged
// transactions to their persisted shape.
func (s *Session) buildBatch(ctx context.Context, staged []*model.StagedTransaction) ([]model.ExistingTransaction, error) {
	batch := make([]model.ExistingTransaction, 0, len(staged))
	for _, t := range staged {
		accountName := t.RawAccount
		if accountName == "" {
			accountName = s.cfg.DefaultAccount
		}
		accountID, err := s.st.EnsureAccount(ctx, accountName)
		if err != nil {
			return nil, fmt.Errorf("resolving account %q: %w", accountName, err)
		}

		var categoryID string
		if t.RawCategory != "" {
			categoryID, err = s.st.EnsureCategory(ctx, t.RawCategory)
			if err != nil {
				return nil, fmt.Errorf("resolving category %q: %w", t.RawCategory, err)
			}
		}

		var tagIDs []string
		for _, tag := range t.RawTags {
			id, err := s.st.EnsureTag(ctx, tag)
			if err != nil {
				return nil, fmt.Errorf("resolving tag %q: %w", tag, err)
			}
			tagIDs = append(tagIDs, id)
		}

		batch = append(batch, model.ExistingTransaction{
			ID:              t.ID,
			AccountID:       accountID,
			Date:            t.Date,
			Payee:           t.Payee,
			OriginalPayee:   t.OriginalPayee,
			Memo:            t.Memo,
			Amount:          t.Amount,
			CategoryID:      categoryID,
			TagIDs:          tagIDs,
			Status:          t.Status,
			Kind:            t.Kind,
			TransferGroupID: t.TransferGroupID,
		})
	}
	return batch, nil
}

// normalizeHook and autoRuleHook are the external rewrite passes; each
// receives the committed ids paired with original payee text.
func (s *Session) runPostCommit(ctx context.Context, refs []store.CommittedRef) error {
	if len(refs) == 0 {
		return nil
	}
	if s.cfg.Options.NormalizePayee && s.normalizeHook != nil {
		if err := s.normalizeHook(ctx, refs); err != nil {
			return fmt.Errorf("payee normalization: %w", err)
		}
	}
	if s.cfg.Options.ApplyAutoRules && s.autoRuleHook != nil {
		if err := s.autoRuleHook(ctx, refs); err != nil {
			return fmt.Errorf("auto rules: %w", err)
		}
	}
	return nil
}

// SetNormalizeHook installs the payee-normalization collaborator.
func (s *Session) SetNormalizeHook(h store.PostCommitHook) { s.normalizeHook = h }

// SetAutoRuleHook installs the auto-rule collaborator.
func (s *Session) SetAutoRuleHook(h store.PostCommitHook) { s.autoRuleHook = h }

func (s *Session) buildSummary() Summary {
	sum := Summary{
		Staged:      len(s.staged),
		Skipped:     s.skipped,
		SkipSamples: s.skipSamples,
		Committed:   s.committed,
	}
	for _, t := range s.staged {
		if t.IsDuplicate {
			sum.Duplicates++
		}
		if t.Kind == model.KindTransfer {
			sum.Transfers++
		}
	}
	sum.Transfers /= 2 // count pairs, not legs
	return sum
}

func (s *Session) appendHistory(sum Summary) {
	entry := history.Entry{
		Timestamp:  time.Now(),
		SessionID:  s.ID,
		FileName:   filepath.Base(s.sourcePath),
		Profile:    string(s.prof),
		Staged:     sum.Staged,
		Skipped:    sum.Skipped,
		Duplicates: sum.Duplicates,
		Committed:  sum.Committed,
	}
	if err := history.Append(s.historyRoot, []history.Entry{entry}); err != nil {
		s.logger.Warn("writing import history", "session", s.ID, "error", err)
	}
}

// SetHistoryRoot sets the directory under which logs/import-history.csv
// lives. Defaults to the current directory.
func (s *Session) SetHistoryRoot(root string) { s.historyRoot = root }
