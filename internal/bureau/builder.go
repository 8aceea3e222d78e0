package bureau

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/document"
)

// Column and marker names that identify the canonical tables.
const (
	colAccountCount   = "Number of Accounts"
	colActiveAccounts = "Active Accounts"
	colCurrentBalance = "Total Current Balance"
	colOverdueAmount  = "Total Amount Overdue"
	colWriteoffAmount = "Total Writeoff Amt"
	colService        = "Requested Service"
	colScore          = "Score"
	colEnquiries      = "Number of Enquiries"

	scoreMarker        = "SCORE"
	accountBlockPrefix = "Account Information"
)

var (
	activeWord     = regexp.MustCompile(`(?i)\bactive\b`)
	monthLabels    = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	historyPattern = make(map[string]*regexp.Regexp, len(monthLabels))
)

func init() {
	for _, m := range monthLabels {
		// Word-anchored with a mandatory delimiter: month abbreviations
		// also occur inside ordinary words ("Remarks" contains "mar").
		historyPattern[m] = regexp.MustCompile(`(?i)\b` + m + `\s*[:\-]\s*([A-Z0-9\-/]+)`)
	}
}

// Build assembles the typed Report from parser output. It never fails:
// missing tables leave aggregate fields nil and bump the missing
// structure count, unparseable account blocks are skipped and counted.
func Build(doc *document.Parsed, logger *zap.Logger) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Report{}

	buildSummary(doc, r, logger)
	buildScore(doc, r, logger)
	buildInquiries(doc, r)
	buildAccounts(doc, r, logger)

	logger.Debug("report built",
		zap.Int("accounts", len(r.Accounts)),
		zap.Int("missing_structures", r.Diagnostics.MissingStructures),
		zap.Int("skipped_blocks", r.Diagnostics.SkippedBlocks),
	)
	return r
}

// buildSummary locates the account summary table by its required columns
// and fills the aggregate fields. Fields with unparseable values stay
// nil and are counted as partial.
func buildSummary(doc *document.Parsed, r *Report, logger *zap.Logger) {
	for i := range doc.Tables {
		t := &doc.Tables[i]
		if !t.HasColumn(colAccountCount) && !t.HasColumn(colActiveAccounts) {
			continue
		}
		if len(t.Rows) == 0 {
			continue
		}
		row := t.Rows[0]
		r.TotalAccounts = intField(t, row, colAccountCount, &r.Diagnostics)
		r.ActiveAccounts = intField(t, row, colActiveAccounts, &r.Diagnostics)
		r.TotalCurrentBalance = floatField(t, row, colCurrentBalance, &r.Diagnostics)
		r.TotalOverdueAmount = floatField(t, row, colOverdueAmount, &r.Diagnostics)
		r.TotalWriteoffAmount = floatField(t, row, colWriteoffAmount, &r.Diagnostics)
		return
	}
	r.Diagnostics.MissingStructures++
	logger.Debug("account summary table not found")
}

// intField parses one summary cell as an int. An absent cell stays nil;
// an unparseable one stays nil and counts as partial.
func intField(t *document.Table, row map[string]string, col string, diag *Diagnostics) *int {
	raw := t.Cell(row, col)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := CleanInt(raw)
	if err != nil {
		diag.PartialFields++
		return nil
	}
	return &v
}

// floatField is intField for float cells.
func floatField(t *document.Table, row map[string]string, col string, diag *Diagnostics) *float64 {
	raw := t.Cell(row, col)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := CleanFloat(raw)
	if err != nil {
		diag.PartialFields++
		return nil
	}
	return &v
}

// buildScore locates the verification table and parses the bureau score
// from the row carrying the score-request marker. Absence is not an
// error; the score stays nil.
func buildScore(doc *document.Parsed, r *Report, logger *zap.Logger) {
	for i := range doc.Tables {
		t := &doc.Tables[i]
		if !t.HasColumn(colService) || !t.HasColumn(colScore) {
			continue
		}
		for _, row := range t.Rows {
			service := strings.ToUpper(t.Cell(row, colService))
			if !strings.Contains(service, scoreMarker) {
				continue
			}
			score, err := CleanInt(t.Cell(row, colScore))
			if err != nil {
				continue
			}
			if score >= 300 && score <= 900 {
				r.Score = &score
				return
			}
		}
	}
	r.Diagnostics.MissingStructures++
	logger.Debug("score table not found")
}

// buildInquiries extracts the credit inquiry count, either as the row
// count of an enquiry detail table or from an explicit count column.
func buildInquiries(doc *document.Parsed, r *Report) {
	for i := range doc.Tables {
		t := &doc.Tables[i]

		for _, c := range t.Columns {
			if strings.Contains(strings.ToLower(c), "enquiry purpose") {
				n := len(t.Rows)
				r.CreditInquiries = &n
				return
			}
		}
		if t.HasColumn(colEnquiries) {
			for _, row := range t.Rows {
				if n, err := CleanInt(t.Cell(row, colEnquiries)); err == nil {
					r.CreditInquiries = &n
					return
				}
			}
		}
	}
}

// buildAccounts partitions text chunks into account blocks on the
// repeating "Account Information N" marker and parses each one. Numeric
// fields prefer a per-account detail table over the block's free text.
func buildAccounts(doc *document.Parsed, r *Report, logger *zap.Logger) {
	detailTables := accountDetailTables(doc)

	ordinal := 0
	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		if !strings.HasPrefix(c.Header, accountBlockPrefix) {
			continue
		}
		var detail *document.Table
		if ordinal < len(detailTables) {
			detail = detailTables[ordinal]
		}
		ordinal++

		acct, ok := parseAccountBlock(c.Text, detail, &r.Diagnostics)
		if !ok {
			r.Diagnostics.SkippedBlocks++
			logger.Debug("skipped unparseable account block", zap.String("header", c.Header))
			continue
		}
		r.Accounts = append(r.Accounts, acct)
	}
}

// accountDetailTables returns, in document order, tables carrying
// per-account balance columns. The Nth account block pairs with the Nth
// detail table.
func accountDetailTables(doc *document.Parsed) []*document.Table {
	var out []*document.Table
	for i := range doc.Tables {
		t := &doc.Tables[i]
		if t.HasColumn("Current Balance") && t.HasColumn("Overdue Amt") {
			out = append(out, t)
		}
	}
	return out
}

// parseAccountBlock parses one account's text block. A block without an
// account type is unparseable. The numeric source hierarchy is table row
// first, then the block's structured lines; free text is the authority
// of last resort only.
func parseAccountBlock(text string, detail *document.Table, diag *Diagnostics) (Account, bool) {
	lines := strings.Split(text, "\n")

	acctType := extractField(lines, "Account Type")
	if acctType == "" {
		return Account{}, false
	}

	acct := Account{
		Number:  extractField(lines, "Account Number"),
		Type:    acctType,
		Active:  activeWord.MatchString(text),
		Secured: strings.Contains(strings.ToLower(acctType), "secured"),
		Remarks: extractField(lines, "Account Remarks"),
		History: extractHistory(text),
	}

	acct.CurrentBalance = numericField(detail, lines, "Current Balance", diag)
	acct.OverdueAmount = numericField(detail, lines, "Overdue Amt", diag)
	acct.SanctionedAmount = numericField(detail, lines, "Disbd Amt", diag)

	return acct, true
}

// numericField resolves an account numeric field: prefer the detail
// table's first row, fall back to the block's structured text lines.
func numericField(detail *document.Table, lines []string, name string, diag *Diagnostics) float64 {
	if detail != nil && len(detail.Rows) > 0 {
		raw := detail.Cell(detail.Rows[0], name)
		if raw != "" {
			if v, err := CleanFloat(raw); err == nil {
				return v
			}
			diag.PartialFields++
		}
	}
	raw := extractField(lines, name)
	if raw == "" {
		return 0
	}
	v, err := CleanFloat(raw)
	if err != nil {
		diag.PartialFields++
		return 0
	}
	return v
}

// extractField finds the first "Name: value" line and returns the value.
func extractField(lines []string, name string) string {
	for _, line := range lines {
		if !strings.Contains(line, name) {
			continue
		}
		if _, after, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// extractHistory splits the payment history into (month, status) pairs.
func extractHistory(text string) []PaymentEntry {
	var history []PaymentEntry
	for _, m := range monthLabels {
		if match := historyPattern[m].FindStringSubmatch(text); match != nil {
			history = append(history, PaymentEntry{Month: m, Status: strings.TrimSpace(match[1])})
		}
	}
	return history
}
