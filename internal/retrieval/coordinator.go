// Package retrieval ranks document chunks against parameter queries
// using the external embedding collaborator. It decides WHERE evidence
// lives; deterministic extraction decides WHAT the value is.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/document"
)

var tracer = otel.Tracer("extractd.retrieval")

// Sentinel errors.
var (
	// ErrEmptyQuery indicates an empty query string.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmbeddingFailed indicates the embedding collaborator failed.
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// Embedder generates vector embeddings from text. It is the external
// embedding/similarity collaborator; implementations may call a local
// model server or a cloud API.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Candidate is one retrievable unit of a parsed document: a rendered
// table or a text chunk.
type Candidate struct {
	Kind    string // "table" or "text"
	Index   int    // position within its kind, document order
	Source  string // human-readable source label
	Content string
}

// Scored pairs a candidate with its cosine similarity to a query.
type Scored struct {
	Candidate
	Similarity float64
}

// Config holds retrieval settings.
type Config struct {
	// SimilarityThreshold filters out candidates scoring below it.
	SimilarityThreshold float64
	// TopK caps the number of returned candidates.
	TopK int
	// MaxChunkChars truncates candidate content before embedding to
	// stay within the embedding model's input limit.
	MaxChunkChars int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.MaxChunkChars == 0 {
		c.MaxChunkChars = 1500
	}
}

// Coordinator wraps the embedding collaborator with candidate
// preparation, thresholding and top-K selection.
type Coordinator struct {
	embedder Embedder
	config   Config
	logger   *zap.Logger
	metrics  *Metrics
}

// NewCoordinator creates a retrieval coordinator.
func NewCoordinator(embedder Embedder, cfg Config, logger *zap.Logger) (*Coordinator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Coordinator{
		embedder: embedder,
		config:   cfg,
		logger:   logger,
		metrics:  NewMetrics(logger),
	}, nil
}

// Corpus is a parsed document's candidates embedded once, ready to be
// ranked against any number of parameter queries. Immutable after
// construction.
type Corpus struct {
	coord      *Coordinator
	candidates []Candidate
	vectors    [][]float32
}

// Candidates renders the retrievable units of a parsed document in
// document order: every table first, then every text chunk. Content is
// truncated to the configured embedding limit.
func (c *Coordinator) Candidates(doc *document.Parsed) []Candidate {
	out := make([]Candidate, 0, len(doc.Tables)+len(doc.Chunks))
	for i := range doc.Tables {
		out = append(out, Candidate{
			Kind:    "table",
			Index:   i,
			Source:  fmt.Sprintf("Table %d", i+1),
			Content: truncate(doc.Tables[i].Render(), c.config.MaxChunkChars),
		})
	}
	for i := range doc.Chunks {
		out = append(out, Candidate{
			Kind:    "text",
			Index:   i,
			Source:  fmt.Sprintf("Text Chunk %d", i+1),
			Content: truncate(doc.Chunks[i].Text, c.config.MaxChunkChars),
		})
	}
	return out
}

// NewCorpus embeds a document's candidates once. The returned corpus is
// safe for concurrent Rank calls.
func (c *Coordinator) NewCorpus(ctx context.Context, doc *document.Parsed) (*Corpus, error) {
	ctx, span := tracer.Start(ctx, "retrieval.new_corpus")
	defer span.End()

	start := time.Now()
	candidates := c.Candidates(doc)
	if len(candidates) == 0 {
		return &Corpus{coord: c}, nil
	}

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Content
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	c.metrics.RecordEmbed(ctx, "corpus", time.Since(start), len(texts), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding candidates failed")
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d vectors for %d candidates", ErrEmbeddingFailed, len(vectors), len(candidates))
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return &Corpus{coord: c, candidates: candidates, vectors: vectors}, nil
}

// Rank returns the candidates most similar to the query, highest first,
// filtered by the similarity threshold and capped at top-K. An empty
// result is not an error; it just downgrades extraction confidence.
func (corp *Corpus) Rank(ctx context.Context, query string) ([]Scored, error) {
	ctx, span := tracer.Start(ctx, "retrieval.rank")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if len(corp.candidates) == 0 {
		return nil, nil
	}

	c := corp.coord
	start := time.Now()
	qvec, err := c.embedder.EmbedQuery(ctx, query)
	c.metrics.RecordEmbed(ctx, "query", time.Since(start), 1, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding query failed")
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	scored := make([]Scored, 0, len(corp.candidates))
	for i, cand := range corp.candidates {
		sim := cosine(qvec, corp.vectors[i])
		if sim < c.config.SimilarityThreshold {
			continue
		}
		scored = append(scored, Scored{Candidate: cand, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > c.config.TopK {
		scored = scored[:c.config.TopK]
	}

	span.SetAttributes(
		attribute.Int("results", len(scored)),
		attribute.Int("candidates", len(corp.candidates)),
	)
	c.logger.Debug("ranked chunks",
		zap.Int("results", len(scored)),
		zap.Int("candidates", len(corp.candidates)),
	)
	return scored, nil
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
