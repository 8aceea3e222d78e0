package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/retrieval"
)

const sampleKnowledge = `Preamble before any header.

## DPD Buckets
Payment statuses map to days-past-due buckets. STD means standard.

### Compound Codes
A status like 090/STD resolves by rule order.

## Credit Score
Bureau scores range from 300 to 900.
`

// keywordEmbedder returns unit vectors chosen by substring match so
// tests control which sections a query retrieves.
type keywordEmbedder struct{}

func (keywordEmbedder) vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "score"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "dpd") || strings.Contains(lower, "days-past-due") || strings.Contains(lower, "status"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (e keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectorFor(t)
	}
	return out, nil
}

func (e keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

var _ retrieval.Embedder = keywordEmbedder{}

func TestSplitSections(t *testing.T) {
	sections := SplitSections(sampleKnowledge)
	require.Len(t, sections, 4)

	assert.Equal(t, "", sections[0].Title)
	assert.Contains(t, sections[0].Text, "Preamble")

	assert.Equal(t, "DPD Buckets", sections[1].Title)
	assert.Contains(t, sections[1].Text, "days-past-due")

	assert.Equal(t, "DPD Buckets - Compound Codes", sections[2].Title)
	assert.Contains(t, sections[2].Text, "090/STD")

	assert.Equal(t, "Credit Score", sections[3].Title)
}

func TestSplitSectionsDropsEmpty(t *testing.T) {
	sections := SplitSections("## Empty One\n\n## Has Text\ncontent here\n")
	require.Len(t, sections, 1)
	assert.Equal(t, "Has Text", sections[0].Title)
}

func TestSplitSectionsBlank(t *testing.T) {
	assert.Empty(t, SplitSections(""))
	assert.Empty(t, SplitSections("\n\n  \n"))
}

func TestLoadAndReady(t *testing.T) {
	base, err := NewBase(keywordEmbedder{}, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, base.Ready())

	require.NoError(t, base.Load(context.Background(), sampleKnowledge))
	assert.True(t, base.Ready())
}

func TestLoadEmptyContent(t *testing.T) {
	base, err := NewBase(keywordEmbedder{}, Config{}, zap.NewNop())
	require.NoError(t, err)

	err = base.Load(context.Background(), "")
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, base.Ready())
}

func TestNewBaseRequiresEmbedder(t *testing.T) {
	_, err := NewBase(nil, Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestContextForRetrievesRelevantSection(t *testing.T) {
	base, err := NewBase(keywordEmbedder{}, Config{TopK: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, base.Load(context.Background(), sampleKnowledge))

	ctx := base.ContextFor(context.Background(), "Credit Score", "Bureau score of the applicant")
	assert.Contains(t, ctx, "Domain Knowledge Context:")
	assert.Contains(t, ctx, "[Credit Score]")
	assert.Contains(t, ctx, "300 to 900")
	assert.NotContains(t, ctx, "days-past-due")
}

func TestContextForUnloadedBase(t *testing.T) {
	base, err := NewBase(keywordEmbedder{}, Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, base.ContextFor(context.Background(), "Credit Score", "anything"))
}

func TestContextForThresholdFiltersAll(t *testing.T) {
	base, err := NewBase(keywordEmbedder{}, Config{SimilarityThreshold: 0.99, TopK: 2}, zap.NewNop())
	require.NoError(t, err)
	md := "## DPD Buckets\nStatuses map to days-past-due buckets.\n\n## Credit Score\nScores range 300 to 900.\n"
	require.NoError(t, base.Load(context.Background(), md))

	// The query vector is orthogonal to every section vector.
	ctx := base.ContextFor(context.Background(), "Unrelated", "nothing in the base matches this")
	assert.Empty(t, ctx)
}
