// Package session owns the state machine that sequences one import
// from file selection through commit.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/bankfeed-dev/bankfeed/internal/dates"
	"github.com/bankfeed-dev/bankfeed/internal/extract"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/profile"
	"github.com/bankfeed-dev/bankfeed/internal/store"
	"github.com/bankfeed-dev/bankfeed/internal/tabular"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

// Step is one wizard state. Steps advance linearly with conditional
// skips of the three mapping steps.
type Step string

const (
	StepSelectFile    Step = "select_file"
	StepSelectHeader  Step = "select_header"
	StepMapColumns    Step = "map_columns"
	StepPreview       Step = "preview"
	StepImporting     Step = "importing"
	StepMapAccounts   Step = "map_accounts"
	StepMapCategories Step = "map_categories"
	StepMapTags       Step = "map_tags"
	StepReview        Step = "review"
	StepComplete      Step = "complete"
)

var (
	// ErrCancelled is the clean termination result of a cancelled run.
	// It is not a failure; staged work is discarded and temp files are
	// removed either way.
	ErrCancelled = errors.New("import cancelled")

	// ErrUnsupportedFileType rejects files at selection time.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrSignConventionUnset blocks entry into Importing: an unset sign
	// convention would silently change the meaning of every amount.
	ErrSignConventionUnset = errors.New("sign convention must be set before importing")

	// ErrNoDefaultAccount blocks entry into Importing without a
	// resolved account for rows that carry none of their own.
	ErrNoDefaultAccount = errors.New("default account must be set before importing")
)

// InvalidStepError reports an operation attempted in the wrong state.
type InvalidStepError struct {
	Op   string
	Step Step
}

func (e *InvalidStepError) Error() string {
	return fmt.Sprintf("%s not valid in step %s", e.Op, e.Step)
}

// NothingImportedError escalates an all-rows-skipped run into a
// user-facing error carrying sample reasons.
type NothingImportedError struct {
	Skipped int
	Samples []extract.SkipReason
}

func (e *NothingImportedError) Error() string {
	msgs := make([]string, len(e.Samples))
	for i, s := range e.Samples {
		msgs[i] = s.String()
	}
	return fmt.Sprintf("nothing could be imported: all %d rows were skipped (%s)",
		e.Skipped, strings.Join(msgs, "; "))
}

// Decryptor is the external collaborator that turns an encrypted
// export wrapper into plaintext CSV.
type Decryptor interface {
	Decrypt(src io.Reader, dst io.Writer, password string) error
}

// EncryptedExt is the wrapper extension requiring a Decryptor.
const EncryptedExt = ".ebk"

// plainExts are accepted without decryption.
var plainExts = map[string]bool{".csv": true, ".tsv": true, ".txt": true}

// maxSkipSamples bounds how many rejected-row examples are retained
// for diagnostics.
const maxSkipSamples = 5

// parseProgressEvery is the row interval between progress snapshots
// during parsing. Per-row reporting would dominate runtime on large
// files.
const parseProgressEvery = 50

// Config carries the pipeline tuning for one session.
type Config struct {
	Options        model.ProcessingOptions
	DateFormat     dates.Format
	SignConvention model.SignConvention
	DefaultAccount string
	Duplicates     DuplicatesConfig
	Transfers      transfer.Config
	CommitBatch    int
	Password       string // for the encrypted wrapper, when used
}

// DuplicatesConfig mirrors dupdetect.Config at the session boundary.
type DuplicatesConfig struct {
	SimilarityThreshold float64
}

// Session is the explicit, owned staging state of one import. It is
// not safe for concurrent use; the background worker owns it while a
// run is in flight.
type Session struct {
	ID   string
	step Step

	st        store.Store
	logger    *log.Logger
	progress  func(model.Progress)
	decryptor Decryptor

	normalizeHook store.PostCommitHook
	autoRuleHook  store.PostCommitHook
	historyRoot   string

	cfg        Config
	sourcePath string
	tempPath   string

	delimiter rune
	headerRow int
	header    []string
	prof      profile.Profile
	mapping   model.ColumnMapping

	staged      []*model.StagedTransaction
	skipped     int
	skipSamples []extract.SkipReason
	suggestions []transfer.Suggestion
	committed   int
}

// New creates a session in the SelectFile step. The progress callback
// may be nil.
func New(st store.Store, cfg Config, logger *log.Logger, progress func(model.Progress)) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if progress == nil {
		progress = func(model.Progress) {}
	}
	if cfg.CommitBatch <= 0 {
		cfg.CommitBatch = 100
	}
	if cfg.Transfers == (transfer.Config{}) {
		cfg.Transfers = transfer.DefaultConfig()
	}
	return &Session{
		ID:       uuid.NewString(),
		step:     StepSelectFile,
		st:       st,
		logger:   logger,
		progress: progress,
		cfg:      cfg,
	}
}

// SetDecryptor installs the collaborator for encrypted wrappers.
func (s *Session) SetDecryptor(d Decryptor) { s.decryptor = d }

// Step returns the current wizard step.
func (s *Session) Step() Step { return s.step }

// Profile returns the detected (or overridden) format profile.
func (s *Session) Profile() profile.Profile { return s.prof }

// Mapping returns the live column mapping; edits apply directly.
func (s *Session) Mapping() model.ColumnMapping { return s.mapping }

// Header returns the chosen header row's cells.
func (s *Session) Header() []string { return s.header }

// Staged returns the staged transactions for review.
func (s *Session) Staged() []*model.StagedTransaction { return s.staged }

// Suggestions returns the current transfer suggestions.
func (s *Session) Suggestions() []transfer.Suggestion { return s.suggestions }

// SelectFile validates the file, makes the plaintext working copy, and
// advances to SelectHeader.
func (s *Session) SelectFile(path string) error {
	if s.step != StepSelectFile {
		return &InvalidStepError{Op: "SelectFile", Step: s.step}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !plainExts[ext] && ext != EncryptedExt {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading file info: %w", err)
	}
	if info.Size() > tabular.MaxFileBytes {
		return &tabular.SizeError{Size: info.Size(), Limit: tabular.MaxFileBytes}
	}

	s.sourcePath = path
	if err := s.prepareWorkingCopy(); err != nil {
		return err
	}

	s.step = StepSelectHeader
	s.logger.Info("file selected", "session", s.ID, "file", filepath.Base(path))
	return nil
}

// prepareWorkingCopy copies (and if needed decrypts) the source into a
// temp file owned by the session.
func (s *Session) prepareWorkingCopy() error {
	src, err := os.Open(s.sourcePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.sourcePath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "bankfeed-import-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp copy: %w", err)
	}

	if strings.ToLower(filepath.Ext(s.sourcePath)) == EncryptedExt {
		if s.decryptor == nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("%w: encrypted export requires a decryptor", ErrUnsupportedFileType)
		}
		err = s.decryptor.Decrypt(src, tmp, s.cfg.Password)
	} else {
		_, err = io.Copy(tmp, src)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("preparing working copy: %w", err)
	}

	s.tempPath = tmp.Name()
	return nil
}

// DetectLayout inspects the head of the working copy, locates the
// header row, detects the profile, and proposes the column mapping.
// Advances to MapColumns.
func (s *Session) DetectLayout(ctx context.Context) error {
	if s.step != StepSelectHeader {
		return &InvalidStepError{Op: "DetectLayout", Step: s.step}
	}

	r, err := tabular.Open(s.tempPath, 0)
	if err != nil {
		return err
	}
	defer r.Close()
	s.delimiter = r.Delimiter()

	var head [][]string
	for len(head) < profile.HeaderInspectRows {
		row, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading file head: %w", err)
		}
		head = append(head, row)
	}

	s.headerRow = profile.DetectHeaderRow(head)
	if s.headerRow < len(head) {
		s.header = head[s.headerRow]
	}
	s.prof = profile.Detect(s.header)
	s.mapping = profile.ProposeMapping(s.prof, s.header)

	s.step = StepMapColumns
	s.logger.Info("layout detected", "session", s.ID,
		"profile", s.prof, "header_row", s.headerRow, "delimiter", string(s.delimiter))
	return nil
}

// OverrideProfile re-proposes the mapping under a user-chosen profile.
func (s *Session) OverrideProfile(p profile.Profile) error {
	if s.step != StepMapColumns {
		return &InvalidStepError{Op: "OverrideProfile", Step: s.step}
	}
	s.prof = p
	s.mapping = profile.ProposeMapping(p, s.header)
	return nil
}

// ConfirmMapping accepts the (possibly edited) mapping and advances to
// Preview.
func (s *Session) ConfirmMapping() error {
	if s.step != StepMapColumns {
		return &InvalidStepError{Op: "ConfirmMapping", Step: s.step}
	}
	s.step = StepPreview
	return nil
}

// Cancel aborts an in-flight run: staged work is discarded, the temp
// copy is deleted, and the machine returns to Preview. Safe to call
// more than once.
func (s *Session) Cancel() {
	s.staged = nil
	s.skipped = 0
	s.skipSamples = nil
	s.suggestions = nil
	s.removeTemp()
	if s.step == StepImporting || s.stepAfterImporting() {
		s.step = StepPreview
	}
	s.logger.Info("import cancelled", "session", s.ID)
}

func (s *Session) stepAfterImporting() bool {
	switch s.step {
	case StepMapAccounts, StepMapCategories, StepMapTags, StepReview:
		return true
	}
	return false
}

func (s *Session) removeTemp() {
	if s.tempPath == "" {
		return
	}
	if err := os.Remove(s.tempPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing temp copy", "session", s.ID, "error", err)
	}
	s.tempPath = ""
}

// RawAccountNames returns the distinct unresolved account names among
// staged transactions; empty means the MapAccounts step is skipped.
func (s *Session) RawAccountNames() []string {
	return s.distinctRaw(func(t *model.StagedTransaction) []string {
		if t.RawAccount == "" {
			return nil
		}
		return []string{t.RawAccount}
	})
}

// RawCategoryNames returns the distinct unresolved category names.
func (s *Session) RawCategoryNames() []string {
	return s.distinctRaw(func(t *model.StagedTransaction) []string {
		if t.RawCategory == "" {
			return nil
		}
		return []string{t.RawCategory}
	})
}

// RawTagNames returns the distinct unresolved tag names.
func (s *Session) RawTagNames() []string {
	return s.distinctRaw(func(t *model.StagedTransaction) []string { return t.RawTags })
}

func (s *Session) distinctRaw(get func(*model.StagedTransaction) []string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, t := range s.staged {
		for _, n := range get(t) {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	return names
}

// SetSelected flips the review selection on one staged transaction and
// recomputes transfer suggestions, which are always rebuilt rather
// than patched so they stay consistent with selection state.
func (s *Session) SetSelected(id string, selected bool) error {
	if s.step != StepReview {
		return &InvalidStepError{Op: "SetSelected", Step: s.step}
	}
	for _, t := range s.staged {
		if t.ID == id {
			t.IsSelected = selected
			if s.cfg.Options.SuggestTransfers {
				s.refreshSuggestions()
			}
			return nil
		}
	}
	return fmt.Errorf("no staged transaction %s", id)
}

// LinkSuggestion applies one suggestion: both legs get the shared
// transfer-group id, kind transfer, and no category.
func (s *Session) LinkSuggestion(suggestionID string) error {
	if s.step != StepReview {
		return &InvalidStepError{Op: "LinkSuggestion", Step: s.step}
	}
	for _, sug := range s.suggestions {
		if sug.ID != suggestionID {
			continue
		}
		out := s.findStaged(sug.OutflowID)
		in := s.findStaged(sug.InflowID)
		if out == nil || in == nil {
			return fmt.Errorf("suggestion %s references missing transactions", suggestionID)
		}
		transfer.Link(out, in)
		s.refreshSuggestions()
		return nil
	}
	return fmt.Errorf("no suggestion %s", suggestionID)
}

// UnlinkPair reverts a linked pair back to standard transactions.
func (s *Session) UnlinkPair(outID, inID string) error {
	if s.step != StepReview {
		return &InvalidStepError{Op: "UnlinkPair", Step: s.step}
	}
	out := s.findStaged(outID)
	in := s.findStaged(inID)
	if out == nil || in == nil {
		return fmt.Errorf("unknown staged transactions %s/%s", outID, inID)
	}
	transfer.Unlink(out, in)
	s.refreshSuggestions()
	return nil
}

func (s *Session) findStaged(id string) *model.StagedTransaction {
	for _, t := range s.staged {
		if t.ID == id {
			return t
		}
	}
	return nil
}
