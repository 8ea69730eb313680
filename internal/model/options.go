package model

// SignConvention is the user-chosen meaning of positive amounts in a
// single-amount-column file. It has no silent default: an unset value
// is a precondition failure at import time, because it inverts the
// meaning of every amount.
type SignConvention int

const (
	SignUnset SignConvention = iota
	// SignNegativeIsExpense matches the internal convention: negative
	// amounts are money leaving the account.
	SignNegativeIsExpense
	// SignPositiveIsExpense inverts parsed amounts from a single signed
	// amount column.
	SignPositiveIsExpense
)

// ProcessingOptions are the per-run pipeline toggles. Passed by value
// into the orchestrator; never mutated mid-run.
type ProcessingOptions struct {
	NormalizePayee        bool
	ApplyAutoRules        bool
	DetectDuplicates      bool
	SuggestTransfers      bool
	SaveProcessingHistory bool
}

// Phase identifies which stage of the pipeline a progress snapshot
// belongs to.
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhasePreparing  Phase = "preparing"
	PhaseSaving     Phase = "saving"
	PhaseProcessing Phase = "processing"
)

// Progress is a snapshot delivered to the UI collaborator. Total is -1
// when the total is unknown.
type Progress struct {
	Phase     Phase
	Current   int
	Total     int
	Message   string
	CanCancel bool
}
