package doccache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborfin/extractd/internal/document"
)

func testDoc() *document.Parsed {
	return &document.Parsed{
		Text: "CREDIT REPORT",
		Tables: []document.Table{{
			ID:      "t1",
			Page:    1,
			Columns: []string{"Requested Service", "Score"},
			Rows:    []map[string]string{{"Requested Service": "SCORE", "Score": "742"}},
		}},
		Chunks: []document.Chunk{{Header: "Account Information 1", Text: "Account Type: Personal Loan"}},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	doc := testDoc()
	require.NoError(t, cache.Put(doc))

	got, ok := cache.Get(doc.Hash())
	require.True(t, ok)
	assert.Equal(t, doc, got)
	// A cache hit must hash identically to the original.
	assert.Equal(t, doc.Hash(), got.Hash())
}

func TestCacheMiss(t *testing.T) {
	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok := cache.Get("deadbeef")
	assert.False(t, ok)
}

func TestCacheCorruptEntryInvalidated(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir, nil)
	require.NoError(t, err)

	doc := testDoc()
	hash := doc.Hash()
	path := filepath.Join(dir, hash+entrySuffix)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := cache.Get(hash)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt entry should be removed")
}

func TestCacheTamperedEntryInvalidated(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir, nil)
	require.NoError(t, err)

	doc := testDoc()
	require.NoError(t, cache.Put(doc))
	hash := doc.Hash()

	// Rewrite the entry with drifted document content.
	tampered := testDoc()
	tampered.Text = "TAMPERED"
	data, err := json.Marshal(entry{Hash: hash, Document: tampered})
	require.NoError(t, err)
	path := filepath.Join(dir, hash+entrySuffix)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, ok := cache.Get(hash)
	assert.False(t, ok)
}

func TestCacheStatsAndClear(t *testing.T) {
	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, cache.Put(testDoc()))
	other := testDoc()
	other.Text = "OTHER REPORT"
	require.NoError(t, cache.Put(other))

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.Bytes)

	require.NoError(t, cache.Clear())
	assert.Zero(t, cache.Stats().Entries)
}

func TestCacheDisabled(t *testing.T) {
	cache, err := New("", nil)
	require.NoError(t, err)

	assert.False(t, cache.Enabled())
	assert.ErrorIs(t, cache.Put(testDoc()), ErrDisabled)
	_, ok := cache.Get(testDoc().Hash())
	assert.False(t, ok)
	assert.NoError(t, cache.Clear())
}
