// Package document defines the structured form a parsed source document
// takes once the external PDF converter has run: ordered tables plus
// ordered text chunks. Everything downstream of the converter (report
// building, retrieval, caching) operates on these types only.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Table is a parsed table with named columns and row records.
//
// Columns preserves the document order of the column headers; Rows holds
// one map per row keyed by column name. All cell values are strings as
// produced by the converter.
type Table struct {
	ID      string              `json:"id"`
	Page    int                 `json:"page"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// Chunk is a logical text section of the document, labeled with the
// structural header it was split on.
type Chunk struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// Parsed is the converter output for a single document. Order of tables
// and chunks matches document order and must be stable across repeated
// parses of identical input.
type Parsed struct {
	Text   string  `json:"text"`
	Tables []Table `json:"tables"`
	Chunks []Chunk `json:"chunks"`
}

// Hash returns the SHA-256 content hash of the parsed document, used as
// the cache key. Identical parsed content always hashes identically.
func (p *Parsed) Hash() string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	// Encoding error is impossible for these types; ignore it so Hash
	// stays infallible for callers.
	_ = enc.Encode(p)
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes returns the SHA-256 hex digest of raw document bytes. Used
// when the original file content is available (pre-parse cache lookup).
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HasColumn reports whether the table carries the named column,
// case-insensitively.
func (t *Table) HasColumn(name string) bool {
	name = strings.ToLower(name)
	for _, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == name {
			return true
		}
	}
	return false
}

// Cell returns the value for the named column in the given row,
// matching the column name case-insensitively. Returns "" when the
// column is absent.
func (t *Table) Cell(row map[string]string, name string) string {
	if v, ok := row[name]; ok {
		return v
	}
	name = strings.ToLower(name)
	for k, v := range row {
		if strings.ToLower(strings.TrimSpace(k)) == name {
			return v
		}
	}
	return ""
}

// Render flattens the table into a plain-text form suitable for
// embedding: a header line followed by one line per row, cells joined
// with " | " in column order.
func (t *Table) Render() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, " | "))
	for _, row := range t.Rows {
		b.WriteString("\n")
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = row[col]
		}
		b.WriteString(strings.Join(cells, " | "))
	}
	return b.String()
}
