package gstr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborfin/extractd/internal/document"
)

func gstrDoc() *document.Parsed {
	return &document.Parsed{
		Text: "FORM GSTR-3B\nReturn for the month of April 2026\nGSTIN: 27AAACB1234C1Z5",
		Tables: []document.Table{
			{
				ID:      "table-3.1",
				Page:    1,
				Columns: []string{"Nature of Supplies", "Total Taxable Value", "Integrated Tax", "Central Tax", "State/UT Tax"},
				Rows: []map[string]string{
					{
						"Nature of Supplies":  "(a) Outward taxable supplies (other than zero rated, nil rated and exempted)",
						"Total Taxable Value": "14,04,02,768.00",
						"Integrated Tax":      "1,26,36,249.00",
					},
					{
						"Nature of Supplies":  "(b) Outward taxable supplies (zero rated)",
						"Total Taxable Value": "5,00,000.00",
					},
					{
						"Nature of Supplies":  "(c) Other outward supplies (nil rated, exempted)",
						"Total Taxable Value": "0.00",
					},
				},
			},
		},
	}
}

func TestExtractTaxableValue(t *testing.T) {
	res := Extract(gstrDoc(), nil)

	require.True(t, res.Found())
	assert.Equal(t, 140402768.0, *res.TaxableValue)
	assert.Equal(t, sourceTable31, res.Source)
}

func TestExtractFilingPeriod(t *testing.T) {
	res := Extract(gstrDoc(), nil)
	assert.Equal(t, "April 2026", res.Period)
	assert.Equal(t, sourceHeader, res.PeriodSource)
}

func TestExtractNumericPeriod(t *testing.T) {
	doc := gstrDoc()
	doc.Text = "FORM GSTR-3B\nPeriod: 04/2026"
	res := Extract(doc, nil)
	assert.Equal(t, "04/2026", res.Period)
}

func TestExtractMissingTable(t *testing.T) {
	doc := &document.Parsed{Text: "FORM GSTR-3B for May 2026"}
	res := Extract(doc, nil)

	assert.False(t, res.Found())
	assert.Nil(t, res.TaxableValue)
	// The period is still extractable without the table.
	assert.Equal(t, "May 2026", res.Period)
}

func TestExtractKeywordFallbackMatch(t *testing.T) {
	doc := gstrDoc()
	// Mangle the tax columns so only the id keyword identifies the table.
	doc.Tables[0].Columns = []string{"Nature of Supplies", "Total Taxable Value", "IGST"}
	for i := range doc.Tables[0].Rows {
		delete(doc.Tables[0].Rows[i], "Integrated Tax")
	}

	res := Extract(doc, nil)
	require.True(t, res.Found())
	assert.Equal(t, 140402768.0, *res.TaxableValue)
}

func TestExtractUnletteredOutwardRow(t *testing.T) {
	doc := gstrDoc()
	// Some filings drop the "(a)" row letters; the qualifier wording
	// still distinguishes row (a) from the zero-rated row.
	doc.Tables[0].Rows[0]["Nature of Supplies"] = "Outward taxable supplies (other than zero rated, nil rated and exempted)"
	doc.Tables[0].Rows[1]["Nature of Supplies"] = "Outward taxable supplies (zero rated)"

	res := Extract(doc, nil)
	require.True(t, res.Found())
	assert.Equal(t, 140402768.0, *res.TaxableValue)
}

func TestExtractSkipsZeroRatedOnly(t *testing.T) {
	doc := gstrDoc()
	// Drop the main outward row; only zero/nil rated remain.
	doc.Tables[0].Rows = doc.Tables[0].Rows[1:2]

	res := Extract(doc, nil)
	assert.False(t, res.Found())
}
