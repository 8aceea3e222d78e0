package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/document"
	"github.com/arborfin/extractd/internal/knowledge"
	"github.com/arborfin/extractd/internal/params"
	"github.com/arborfin/extractd/internal/retrieval"
)

// stubEmbedder returns identical unit vectors, so every candidate ranks
// with perfect similarity.
type stubEmbedder struct{}

func (stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

// fixtureDoc is a small but structurally complete bureau report: an
// account summary, a verification table with a score, an enquiry table
// and two account blocks.
func fixtureDoc() *document.Parsed {
	return &document.Parsed{
		Text: "CREDIT REPORT",
		Tables: []document.Table{
			{
				ID:      "t1",
				Page:    1,
				Columns: []string{"Number of Accounts", "Active Accounts", "Total Current Balance", "Total Amount Overdue", "Total Writeoff Amt"},
				Rows: []map[string]string{{
					"Number of Accounts":    "36",
					"Active Accounts":       "12",
					"Total Current Balance": "₹53,27,046",
					"Total Amount Overdue":  "18,500",
					"Total Writeoff Amt":    "1,50,000.00",
				}},
			},
			{
				ID:      "t2",
				Page:    1,
				Columns: []string{"Requested Service", "Score"},
				Rows: []map[string]string{{
					"Requested Service": "CIBIL TransUnion Score Version 3",
					"Score":             "742",
				}},
			},
			{
				ID:      "t3",
				Page:    2,
				Columns: []string{"Enquiry Purpose", "Enquiry Date"},
				Rows: []map[string]string{
					{"Enquiry Purpose": "Personal Loan", "Enquiry Date": "12-01-2026"},
					{"Enquiry Purpose": "Credit Card", "Enquiry Date": "03-02-2026"},
					{"Enquiry Purpose": "Gold Loan", "Enquiry Date": "21-03-2026"},
					{"Enquiry Purpose": "Personal Loan", "Enquiry Date": "05-04-2026"},
				},
			},
		},
		Chunks: []document.Chunk{
			{
				Header: "Account Information 1",
				Text: "Account Number: PL-1001\n" +
					"Account Type: Personal Loan\n" +
					"Status: Active\n" +
					"Current Balance: 1,25,000\n" +
					"Overdue Amt: 0\n" +
					"Disbd Amt: 2,00,000\n" +
					"Account Remarks: Suit Filed\n" +
					"Jan: STD Feb: 030",
			},
			{
				Header: "Account Information 2",
				Text: "Account Number: GL-2002\n" +
					"Account Type: Gold Loan\n" +
					"Status: Closed\n" +
					"Current Balance: 0\n" +
					"Overdue Amt: 0\n" +
					"Disbd Amt: 75,000\n" +
					"Jan: 090",
			},
		},
	}
}

func newTestEngine(t *testing.T, cfg Config, retriever *retrieval.Coordinator, kb *knowledge.Base, fallback *Fallback) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, params.NewBureauRegistry(), retriever, kb, fallback, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func newTestRetriever(t *testing.T) *retrieval.Coordinator {
	t.Helper()
	coord, err := retrieval.NewCoordinator(stubEmbedder{}, retrieval.Config{}, zap.NewNop())
	require.NoError(t, err)
	return coord
}

func newTestKB(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.NewBase(stubEmbedder{}, knowledge.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, kb.Load(context.Background(), "## Credit Score\nBureau scores range from 300 to 900.\n"))
	return kb
}

func TestEngineExtractAll(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil, nil, nil)

	resp, err := engine.Extract(context.Background(), fixtureDoc(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Results, params.NewBureauRegistry().Len())

	// Direct reads.
	score := resp.Results["bureau_credit_score"]
	assert.Equal(t, StatusExtracted, score.Status)
	assert.Equal(t, 742, score.Value)
	assert.InDelta(t, 0.95, score.Confidence, 1e-9)

	assert.Equal(t, 36, resp.Results["bureau_max_loans"].Value)
	assert.Equal(t, 12, resp.Results["bureau_max_active_loans"].Value)
	assert.Equal(t, 150000.0, resp.Results["bureau_written_off_debt_amount"].Value)
	assert.Equal(t, 4, resp.Results["bureau_credit_inquiries"].Value)

	// Flags over account remarks.
	suit := resp.Results["bureau_suit_filed"]
	assert.Equal(t, true, suit.Value)
	assert.Equal(t, "Account Remarks (1/2 accounts)", suit.Source)
	assert.Equal(t, false, resp.Results["bureau_wilful_default"].Value)

	// Derived counts: account 1 worst bucket 30, account 2 worst 90.
	assert.Equal(t, 2, resp.Results["bureau_dpd_30"].Value)
	assert.Equal(t, 1, resp.Results["bureau_dpd_60"].Value)
	assert.Equal(t, 1, resp.Results["bureau_dpd_90"].Value)
	assert.Equal(t, false, resp.Results["bureau_no_live_pl_bl"].Value)

	// Policy parameters never pretend to come from the document.
	for _, id := range []string{"bureau_overdue_threshold", "bureau_loan_amount_threshold"} {
		r := resp.Results[id]
		assert.Equal(t, StatusNotApplicable, r.Status, id)
		assert.Nil(t, r.Value, id)
		assert.Equal(t, sourcePolicy, r.Source, id)
		assert.Zero(t, r.Confidence, id)
	}

	assert.InDelta(t, Aggregate(resp.Results), resp.OverallConfidence, 1e-9)
	assert.Greater(t, resp.OverallConfidence, 0.0)
}

func TestEngineDeterministic(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil, nil, nil)

	first, err := engine.Extract(context.Background(), fixtureDoc(), nil)
	require.NoError(t, err)
	second, err := engine.Extract(context.Background(), fixtureDoc(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.OverallConfidence, second.OverallConfidence)
	assert.Equal(t, first.DocumentHash, second.DocumentHash)
}

func TestEngineAbsentScoreTable(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil, nil, nil)

	doc := fixtureDoc()
	doc.Tables = doc.Tables[:1] // drop verification and enquiry tables

	resp, err := engine.Extract(context.Background(), doc, []string{"bureau_credit_score", "bureau_credit_inquiries"})
	require.NoError(t, err)

	for _, id := range []string{"bureau_credit_score", "bureau_credit_inquiries"} {
		r := resp.Results[id]
		assert.Equal(t, StatusNotFound, r.Status, id)
		assert.Nil(t, r.Value, id)
		assert.Zero(t, r.Confidence, id)
	}
}

func TestEngineFallbackDisabledNeverInvoked(t *testing.T) {
	completer := &stubCompleter{answer: "627"}
	fallback := NewFallback(completer, 0, zap.NewNop())
	engine := newTestEngine(t, Config{EnableFallback: false}, newTestRetriever(t), newTestKB(t), fallback)

	doc := fixtureDoc()
	doc.Tables = doc.Tables[:1]

	resp, err := engine.Extract(context.Background(), doc, []string{"bureau_credit_score"})
	require.NoError(t, err)

	assert.Equal(t, StatusNotFound, resp.Results["bureau_credit_score"].Status)
	assert.Zero(t, completer.calls.Load(), "completer must not run when fallback is disabled")
}

func TestEngineFallbackRecoversScore(t *testing.T) {
	completer := &stubCompleter{answer: "627"}
	fallback := NewFallback(completer, 0, zap.NewNop())
	engine := newTestEngine(t, Config{EnableFallback: true}, newTestRetriever(t), newTestKB(t), fallback)

	doc := fixtureDoc()
	doc.Tables = doc.Tables[:1]

	resp, err := engine.Extract(context.Background(), doc, []string{"bureau_credit_score"})
	require.NoError(t, err)

	r := resp.Results["bureau_credit_score"]
	assert.Equal(t, StatusExtracted, r.Status)
	assert.Equal(t, 627, r.Value)
	assert.Equal(t, MethodLLMFallback, r.Method)
	assert.LessOrEqual(t, r.Confidence, 0.60)
	require.NotNil(t, r.Similarity)
	assert.Equal(t, int64(1), completer.calls.Load())
}

func TestEngineFallbackRequiresKnowledgeContext(t *testing.T) {
	// Evidence alone does not activate the fallback: without a domain
	// context snippet the result stays an honest NotFound.
	completer := &stubCompleter{answer: "627"}
	fallback := NewFallback(completer, 0, zap.NewNop())
	engine := newTestEngine(t, Config{EnableFallback: true}, newTestRetriever(t), nil, fallback)

	doc := fixtureDoc()
	doc.Tables = doc.Tables[:1]

	resp, err := engine.Extract(context.Background(), doc, []string{"bureau_credit_score"})
	require.NoError(t, err)

	assert.Equal(t, StatusNotFound, resp.Results["bureau_credit_score"].Status)
	assert.Zero(t, completer.calls.Load())
}

func TestEngineFallbackRejectsInvalidValue(t *testing.T) {
	// 2000 is outside the score's valid range: the fallback answer must
	// fail validation, not sneak through with low confidence.
	completer := &stubCompleter{answer: "2000"}
	fallback := NewFallback(completer, 0, zap.NewNop())
	engine := newTestEngine(t, Config{EnableFallback: true}, newTestRetriever(t), newTestKB(t), fallback)

	doc := fixtureDoc()
	doc.Tables = doc.Tables[:1]

	resp, err := engine.Extract(context.Background(), doc, []string{"bureau_credit_score"})
	require.NoError(t, err)

	r := resp.Results["bureau_credit_score"]
	assert.Equal(t, StatusExtractionFailed, r.Status)
	assert.Zero(t, r.Confidence)
}

func TestEngineUnknownParameter(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil, nil, nil)

	resp, err := engine.Extract(context.Background(), fixtureDoc(), []string{"bureau_bogus"})
	require.NoError(t, err)

	r := resp.Results["bureau_bogus"]
	assert.Equal(t, StatusExtractionFailed, r.Status)
	assert.Contains(t, r.Detail, "unknown parameter")
}

func TestEngineNilDocument(t *testing.T) {
	engine := newTestEngine(t, Config{}, nil, nil, nil)
	_, err := engine.Extract(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestEngineConfigValidation(t *testing.T) {
	_, err := NewEngine(Config{BoostTiers: []BoostTier{
		{MinSimilarity: 0.5, Multiplier: 0.7},
		{MinSimilarity: 0.8, Multiplier: 1.0},
	}}, params.NewBureauRegistry(), nil, nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidTiers)
}
