// Package bureau builds the typed credit-bureau report model from parser
// output and provides the deterministic calculators (DPD buckets, flag
// presence, active-loan counts) that derived parameters are computed from.
//
// A Report is built once per document and treated as immutable afterwards;
// per-parameter extractions read it concurrently without synchronization.
package bureau

// PaymentEntry is a single month of payment history: the month label and
// the raw delinquency status code as printed in the document.
type PaymentEntry struct {
	Month  string `json:"month"`
	Status string `json:"status"`
}

// Account is one credit facility in the report.
type Account struct {
	Number           string         `json:"number"`
	Type             string         `json:"type"`
	Active           bool           `json:"active"`
	Secured          bool           `json:"secured"`
	CurrentBalance   float64        `json:"current_balance"`
	OverdueAmount    float64        `json:"overdue_amount"`
	SanctionedAmount float64        `json:"sanctioned_amount"`
	History          []PaymentEntry `json:"history"`
	Remarks          string         `json:"remarks"`
}

// WorstDPD returns the maximum DPD bucket across the account's payment
// history, or 0 when the history is empty.
func (a *Account) WorstDPD() int {
	worst := 0
	for _, e := range a.History {
		if d := DPD(e.Status); d > worst {
			worst = d
		}
	}
	return worst
}

// Diagnostics counts structural problems encountered during Build. None
// of them abort report construction; they are surfaced for transparency.
type Diagnostics struct {
	// MissingStructures counts required tables (summary, score) that
	// were absent from the document.
	MissingStructures int `json:"missing_structures"`
	// SkippedBlocks counts account blocks that could not be parsed.
	SkippedBlocks int `json:"skipped_blocks"`
	// PartialFields counts numeric fields left null by a ParseError.
	PartialFields int `json:"partial_fields"`
}

// Report is the typed document model for a bureau report. Aggregate
// fields are pointers: nil means the backing table was absent or the
// value unparseable, which Direct extraction surfaces as NotFound.
type Report struct {
	Accounts []Account `json:"accounts"`

	// Score is the bureau score from the verification table, in
	// [300,900] when present.
	Score *int `json:"score,omitempty"`

	TotalAccounts       *int     `json:"total_accounts,omitempty"`
	ActiveAccounts      *int     `json:"active_accounts,omitempty"`
	TotalCurrentBalance *float64 `json:"total_current_balance,omitempty"`
	TotalOverdueAmount  *float64 `json:"total_overdue_amount,omitempty"`
	TotalWriteoffAmount *float64 `json:"total_writeoff_amount,omitempty"`
	CreditInquiries     *int     `json:"credit_inquiries,omitempty"`

	Diagnostics Diagnostics `json:"diagnostics"`
}
