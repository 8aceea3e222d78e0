package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		ID:      "t1",
		Page:    1,
		Columns: []string{"Requested Service", "Score"},
		Rows: []map[string]string{
			{"Requested Service": "CIBIL SCORE", "Score": "742"},
		},
	}
}

func TestHashDeterministic(t *testing.T) {
	a := &Parsed{Text: "report", Tables: []Table{sampleTable()}}
	b := &Parsed{Text: "report", Tables: []Table{sampleTable()}}

	require.NotEmpty(t, a.Hash())
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashChangesWithContent(t *testing.T) {
	a := &Parsed{Text: "report"}
	b := &Parsed{Text: "report v2"}
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := &Parsed{Text: "report", Chunks: []Chunk{{Header: "Account Information 1", Text: "x"}}}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestHasColumnCaseInsensitive(t *testing.T) {
	table := sampleTable()
	assert.True(t, table.HasColumn("Score"))
	assert.True(t, table.HasColumn("score"))
	assert.True(t, table.HasColumn("REQUESTED SERVICE"))
	assert.False(t, table.HasColumn("Balance"))
}

func TestCellCaseInsensitive(t *testing.T) {
	table := sampleTable()
	row := table.Rows[0]

	assert.Equal(t, "742", table.Cell(row, "Score"))
	assert.Equal(t, "742", table.Cell(row, "score"))
	assert.Empty(t, table.Cell(row, "Balance"))
}

func TestRender(t *testing.T) {
	table := sampleTable()
	rendered := table.Render()

	assert.Contains(t, rendered, "Requested Service | Score")
	assert.Contains(t, rendered, "CIBIL SCORE | 742")
}
