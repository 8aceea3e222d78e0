// Package gstr extracts whole-filing figures from GSTR-3B tax returns:
// the total taxable value of outward supplies from Table 3.1 and the
// filing period from the header text. A filing without the table is a
// NotFound outcome, never an error.
package gstr

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/bureau"
	"github.com/arborfin/extractd/internal/document"
)

// Column and row markers identifying Table 3.1.
const (
	colNature       = "Nature of Supplies"
	colTaxableValue = "Total Taxable Value"
	colIntegrated   = "Integrated Tax"
	colCentral      = "Central Tax"

	tableKeyword = "3.1"
	rowOutward   = "outward taxable supplies"
	rowZeroRated = "zero rated"
)

// Source labels.
const (
	sourceTable31 = "GSTR-3B Table 3.1"
	sourceHeader  = "Filing Header"
)

var (
	monthNames = []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	periodWordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(monthNames, "|") + `)[\s,\-]+(\d{4})\b`)
	periodNumPattern  = regexp.MustCompile(`(?i)period\s*[:\-]?\s*(\d{2})\s*[/\-]\s*(\d{4})`)
)

// Result holds the extracted filing figures. TaxableValue nil means
// Table 3.1 was absent or its value unparseable.
type Result struct {
	TaxableValue *float64 `json:"taxable_value"`
	Period       string   `json:"period,omitempty"`
	Source       string   `json:"source,omitempty"`
	PeriodSource string   `json:"period_source,omitempty"`
}

// Found reports whether the taxable value was extracted.
func (r Result) Found() bool { return r.TaxableValue != nil }

// Extract pulls the outward-supplies taxable value and the filing
// period from a parsed GSTR-3B document.
func Extract(doc *document.Parsed, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result

	if table := findTable31(doc); table != nil {
		if v, ok := taxableValue(table); ok {
			res.TaxableValue = &v
			res.Source = sourceTable31
		}
	}
	if res.TaxableValue == nil {
		logger.Debug("table 3.1 taxable value not found")
	}

	if period := filingPeriod(doc.Text); period != "" {
		res.Period = period
		res.PeriodSource = sourceHeader
	}
	return res
}

// findTable31 locates Table 3.1 by its tax-column signature, falling
// back to the "3.1" keyword in the table id when the column headers are
// mangled.
func findTable31(doc *document.Parsed) *document.Table {
	for i := range doc.Tables {
		t := &doc.Tables[i]
		if t.HasColumn(colTaxableValue) && (t.HasColumn(colIntegrated) || t.HasColumn(colCentral)) {
			return t
		}
	}
	for i := range doc.Tables {
		t := &doc.Tables[i]
		if strings.Contains(t.ID, tableKeyword) && t.HasColumn(colTaxableValue) {
			return t
		}
	}
	return nil
}

// taxableValue reads the outward-supplies row, skipping the zero-rated
// row that shares the "outward" wording.
func taxableValue(t *document.Table) (float64, bool) {
	for _, row := range t.Rows {
		nature := strings.ToLower(t.Cell(row, colNature))
		if !isOutwardRow(nature) {
			continue
		}
		v, err := bureau.CleanFloat(t.Cell(row, colTaxableValue))
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// isOutwardRow selects row (a) of Table 3.1. Row (a)'s standard label
// itself mentions "zero rated" inside its "other than ..." qualifier,
// so exclusion keys on a parenthetical that opens with the zero-rated
// wording, which only row (b) carries.
func isOutwardRow(nature string) bool {
	nature = strings.TrimSpace(nature)
	if !strings.Contains(nature, rowOutward) {
		return false
	}
	if strings.HasPrefix(nature, "(a)") {
		return true
	}
	return !strings.Contains(nature, "("+rowZeroRated)
}

// filingPeriod parses the filing month from header text, accepting both
// "April 2026" and "Period: 04/2026" forms. The first match wins.
func filingPeriod(text string) string {
	if m := periodWordPattern.FindStringSubmatch(text); m != nil {
		// Normalize the month-name casing.
		name := strings.ToLower(m[1])
		for _, month := range monthNames {
			if strings.ToLower(month) == name {
				return month + " " + m[2]
			}
		}
	}
	if m := periodNumPattern.FindStringSubmatch(text); m != nil {
		return m[1] + "/" + m[2]
	}
	return ""
}
