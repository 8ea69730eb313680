package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed-dev/bankfeed/internal/history"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/store"
	"github.com/bankfeed-dev/bankfeed/internal/store/memory"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig() Config {
	return Config{
		Options: model.ProcessingOptions{
			DetectDuplicates: true,
			SuggestTransfers: true,
		},
		SignConvention: model.SignNegativeIsExpense,
		DefaultAccount: "Checking",
	}
}

func newTestSession(t *testing.T, st *memory.Store, cfg Config) *Session {
	t.Helper()
	return New(st, cfg, log.New(io.Discard), nil)
}

// advance drives the session from file selection to Review.
func advance(t *testing.T, s *Session, path string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SelectFile(path))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())
	require.NoError(t, s.RunImport(ctx))
	for s.Step() != StepReview && s.Step() != StepComplete {
		require.NoError(t, s.ConfirmMappingStep(ctx))
	}
}

const ynabFile = `Account,Date,Payee,Category,Memo,Outflow,Inflow
Checking,2024-03-01,Grocer,Food,weekly run,54.10,
Checking,2024-03-02,Employer,,salary,,2500.00
Savings,2024-03-03,Grocer,Food,,12.00,
`

func TestHappyPath(t *testing.T) {
	st := memory.New()
	s := newTestSession(t, st, testConfig())

	advance(t, s, writeFile(t, "export.csv", ynabFile))
	require.Equal(t, StepReview, s.Step())
	require.Len(t, s.Staged(), 3)

	sum, err := s.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Committed)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, StepComplete, s.Step())

	txns := st.Transactions()
	require.Len(t, txns, 3)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-54.10")))
}

func TestSelectFile_RejectsUnknownExtension(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	err := s.SelectFile(writeFile(t, "export.xlsx", "not csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Equal(t, StepSelectFile, s.Step())
}

func TestRunImport_Preconditions(t *testing.T) {
	ctx := context.Background()
	file := "Date,Amount,Payee\n2024-03-01,-5.00,Grocer\n"

	cfg := testConfig()
	cfg.DefaultAccount = ""
	s := newTestSession(t, memory.New(), cfg)
	require.NoError(t, s.SelectFile(writeFile(t, "a.csv", file)))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())
	assert.ErrorIs(t, s.RunImport(ctx), ErrNoDefaultAccount)

	cfg = testConfig()
	cfg.SignConvention = model.SignUnset
	s = newTestSession(t, memory.New(), cfg)
	require.NoError(t, s.SelectFile(writeFile(t, "b.csv", file)))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())
	assert.ErrorIs(t, s.RunImport(ctx), ErrSignConventionUnset)
}

func TestRunImport_NothingImported(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	ctx := context.Background()

	file := "Date,Amount,Payee\nnot-a-date,9.00,A\n2024-03-01,garbage,B\n"
	require.NoError(t, s.SelectFile(writeFile(t, "bad.csv", file)))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())

	err := s.RunImport(ctx)
	var nothing *NothingImportedError
	require.ErrorAs(t, err, &nothing)
	assert.Equal(t, 2, nothing.Skipped)
	assert.Len(t, nothing.Samples, 2)
	assert.Equal(t, StepPreview, s.Step())
}

func TestRunImport_HeaderOnlyFileIsNotAnError(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	ctx := context.Background()

	require.NoError(t, s.SelectFile(writeFile(t, "empty.csv", "Date,Payee,Amount\n")))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())

	require.NoError(t, s.RunImport(ctx))
	assert.Equal(t, StepReview, s.Step())
	assert.Empty(t, s.Staged())
	assert.Empty(t, s.Suggestions())

	sum, err := s.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Committed)
}

func TestRunImport_Cancellation(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.SelectFile(writeFile(t, "c.csv", ynabFile)))
	require.NoError(t, s.DetectLayout(context.Background()))
	require.NoError(t, s.ConfirmMapping())

	temp := s.tempPath
	cancel()
	assert.ErrorIs(t, s.RunImport(ctx), ErrCancelled)
	assert.Equal(t, StepPreview, s.Step())
	_, err := os.Stat(temp)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, s.Staged())
}

func TestMappingSteps_SkippedWhenNoRawNames(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	ctx := context.Background()

	file := "Date,Amount,Payee\n2024-03-01,-5.00,Grocer\n"
	require.NoError(t, s.SelectFile(writeFile(t, "plain.csv", file)))
	require.NoError(t, s.DetectLayout(ctx))
	require.NoError(t, s.ConfirmMapping())
	require.NoError(t, s.RunImport(ctx))
	assert.Equal(t, StepReview, s.Step())
}

func TestDuplicatesUnselectedAndNotCommitted(t *testing.T) {
	st := memory.New()
	existingDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	st.Seed(model.ExistingTransaction{
		ID:     "existing-1",
		Date:   existingDate,
		Payee:  "Grocer",
		Amount: decimal.RequireFromString("-54.10"),
	})

	s := newTestSession(t, st, testConfig())
	advance(t, s, writeFile(t, "dup.csv", ynabFile))

	var dup *model.StagedTransaction
	for _, txn := range s.Staged() {
		if txn.IsDuplicate {
			dup = txn
		}
	}
	require.NotNil(t, dup)
	assert.False(t, dup.IsSelected)

	sum, err := s.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Committed)
	assert.Equal(t, 1, sum.Duplicates)
}

func TestTransferSuggestAndLink(t *testing.T) {
	st := memory.New()
	cfg := testConfig()
	s := newTestSession(t, st, cfg)

	file := `Account,Date,Payee,Amount
Checking,2024-03-05,Transfer to savings,-200.00
Savings,2024-03-05,Transfer from checking,200.00
`
	advance(t, s, writeFile(t, "transfer.csv", file))
	require.Len(t, s.Suggestions(), 1)

	sug := s.Suggestions()[0]
	require.NoError(t, s.LinkSuggestion(sug.ID))
	assert.Empty(t, s.Suggestions())

	out := s.findStaged(sug.OutflowID)
	in := s.findStaged(sug.InflowID)
	require.NotNil(t, out)
	require.NotNil(t, in)
	assert.Equal(t, model.KindTransfer, out.Kind)
	assert.Equal(t, out.TransferGroupID, in.TransferGroupID)
	assert.NotEmpty(t, out.TransferGroupID)

	sum, err := s.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Transfers)
}

func TestUnlinkRestoresSuggestion(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	file := `Account,Date,Payee,Amount
Checking,2024-03-05,Transfer out,-75.00
Savings,2024-03-05,Transfer in,75.00
`
	advance(t, s, writeFile(t, "t.csv", file))
	require.Len(t, s.Suggestions(), 1)
	sug := s.Suggestions()[0]

	require.NoError(t, s.LinkSuggestion(sug.ID))
	require.NoError(t, s.UnlinkPair(sug.OutflowID, sug.InflowID))
	assert.Len(t, s.Suggestions(), 1)

	out := s.findStaged(sug.OutflowID)
	assert.Equal(t, model.KindStandard, out.Kind)
	assert.Empty(t, out.TransferGroupID)
}

func TestCommit_PartialBatchFailure(t *testing.T) {
	st := memory.New()
	st.FailBatchAfter = 1

	cfg := testConfig()
	cfg.CommitBatch = 2
	s := newTestSession(t, st, cfg)
	advance(t, s, writeFile(t, "batch.csv", ynabFile))

	_, err := s.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepReview, s.Step())

	// The first batch stays saved.
	assert.Len(t, st.Transactions(), 2)
}

func TestSetSelected_RefreshesSuggestions(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())
	file := `Account,Date,Payee,Amount
Checking,2024-03-05,Transfer out,-75.00
Savings,2024-03-05,Transfer in,75.00
`
	advance(t, s, writeFile(t, "sel.csv", file))
	require.Len(t, s.Suggestions(), 1)

	outID := s.Suggestions()[0].OutflowID
	require.NoError(t, s.SetSelected(outID, false))
	assert.Empty(t, s.Suggestions())

	require.NoError(t, s.SetSelected(outID, true))
	assert.Len(t, s.Suggestions(), 1)
}

// xorDecryptor is the test stand-in for the encrypted-wrapper
// collaborator: XOR with a single key byte derived from the password.
type xorDecryptor struct{}

func (xorDecryptor) Decrypt(src io.Reader, dst io.Writer, password string) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	key := byte(0)
	for i := 0; i < len(password); i++ {
		key ^= password[i]
	}
	for i := range data {
		data[i] ^= key
	}
	_, err = dst.Write(data)
	return err
}

func xorEncrypt(plain, password string) []byte {
	key := byte(0)
	for i := 0; i < len(password); i++ {
		key ^= password[i]
	}
	data := []byte(plain)
	for i := range data {
		data[i] ^= key
	}
	return data
}

func TestEncryptedWrapper(t *testing.T) {
	plain := "Date,Amount,Payee\n2024-03-01,-5.00,Grocer\n"
	path := filepath.Join(t.TempDir(), "export.ebk")
	require.NoError(t, os.WriteFile(path, xorEncrypt(plain, "pw"), 0o644))

	cfg := testConfig()
	cfg.Password = "pw"
	s := newTestSession(t, memory.New(), cfg)
	s.SetDecryptor(xorDecryptor{})

	advance(t, s, path)
	require.Len(t, s.Staged(), 1)
	assert.Equal(t, "Grocer", s.Staged()[0].Payee)
}

func TestEncryptedWrapper_RequiresDecryptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.ebk")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	s := newTestSession(t, memory.New(), testConfig())
	err := s.SelectFile(path)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestPostCommitHooksReceiveOriginalPayee(t *testing.T) {
	cfg := testConfig()
	cfg.Options.NormalizePayee = true
	s := newTestSession(t, memory.New(), cfg)

	var got []store.CommittedRef
	s.SetNormalizeHook(func(_ context.Context, refs []store.CommittedRef) error {
		got = refs
		return nil
	})

	advance(t, s, writeFile(t, "hooks.csv", ynabFile))
	_, err := s.Commit(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, ref := range got {
		assert.NotEmpty(t, ref.ID)
		assert.NotEmpty(t, ref.OriginalPayee)
	}
}

func TestHistoryAppendedWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Options.SaveProcessingHistory = true
	s := newTestSession(t, memory.New(), cfg)

	root := t.TempDir()
	s.SetHistoryRoot(root)
	advance(t, s, writeFile(t, "hist.csv", ynabFile))
	_, err := s.Commit(context.Background())
	require.NoError(t, err)

	entries, err := history.Read(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Committed)
	assert.Equal(t, "hist.csv", entries[0].FileName)
}

func TestWrongStepOperationsFail(t *testing.T) {
	s := newTestSession(t, memory.New(), testConfig())

	var stepErr *InvalidStepError
	assert.ErrorAs(t, s.RunImport(context.Background()), &stepErr)
	_, err := s.Commit(context.Background())
	assert.ErrorAs(t, err, &stepErr)
	assert.ErrorAs(t, s.ConfirmMapping(), &stepErr)
}
