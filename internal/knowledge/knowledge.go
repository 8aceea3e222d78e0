// Package knowledge holds the small in-memory domain knowledge base the
// fallback extractor draws context from. Knowledge text is markdown,
// split into section chunks, embedded into a chromem collection and
// retrieved exactly the way document chunks are.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/retrieval"
)

// ErrNotInitialized is returned when retrieving from an unloaded base.
var ErrNotInitialized = errors.New("knowledge base not initialized")

const collectionName = "extractd_knowledge"

// Section is one chunk of the knowledge base.
type Section struct {
	Title string
	Text  string
}

// Base is the domain knowledge store. Load once at startup; retrieval
// afterwards is concurrency-safe.
type Base struct {
	collection *chromem.Collection
	logger     *zap.Logger

	threshold float64
	topK      int
	count     int
}

// Config holds knowledge retrieval settings.
type Config struct {
	// SimilarityThreshold filters out sections scoring below it.
	SimilarityThreshold float64
	// TopK caps the number of sections per context.
	TopK int
}

// NewBase creates a knowledge base over an in-memory chromem collection
// using the shared embedding collaborator.
func NewBase(embedder retrieval.Embedder, cfg Config, logger *zap.Logger) (*Base, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK == 0 {
		cfg.TopK = 2
	}

	db := chromem.NewDB()
	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	collection, err := db.CreateCollection(collectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge collection: %w", err)
	}

	return &Base{
		collection: collection,
		logger:     logger,
		threshold:  cfg.SimilarityThreshold,
		topK:       cfg.TopK,
	}, nil
}

// Load splits markdown content into sections and embeds them. Loading
// empty content leaves the base uninitialized; callers degrade to empty
// context rather than failing.
func (b *Base) Load(ctx context.Context, markdown string) error {
	sections := SplitSections(markdown)
	if len(sections) == 0 {
		return fmt.Errorf("%w: no sections in knowledge content", ErrNotInitialized)
	}

	docs := make([]chromem.Document, len(sections))
	for i, s := range sections {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("section-%d", i),
			Content:  s.Text,
			Metadata: map[string]string{"title": s.Title},
		}
	}
	if err := b.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("embedding knowledge sections: %w", err)
	}

	b.count = len(sections)
	b.logger.Info("knowledge base loaded", zap.Int("sections", b.count))
	return nil
}

// Ready reports whether the base has loaded sections.
func (b *Base) Ready() bool {
	return b.count > 0
}

// ContextFor retrieves the most relevant knowledge sections for a
// parameter and formats them into a prompt context string. Returns ""
// when nothing clears the threshold or the base is not loaded.
func (b *Base) ContextFor(ctx context.Context, name, description string) string {
	if !b.Ready() {
		return ""
	}

	query := name + ": " + description
	n := b.topK
	if n > b.count {
		n = b.count
	}

	results, err := b.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		b.logger.Warn("knowledge retrieval failed", zap.Error(err))
		return ""
	}

	var parts []string
	for _, res := range results {
		if float64(res.Similarity) < b.threshold {
			continue
		}
		title := res.Metadata["title"]
		parts = append(parts, fmt.Sprintf("[%s] (similarity: %.2f)\n%s", title, res.Similarity, clip(res.Content, 500)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Domain Knowledge Context:\n" + strings.Join(parts, "\n")
}

// SplitSections chunks markdown on ## and ### headers. Text before the
// first header becomes an untitled section; empty sections are dropped.
func SplitSections(markdown string) []Section {
	var sections []Section
	var section, subsection string
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		title := section
		if subsection != "" {
			title = section + " - " + subsection
		}
		sections = append(sections, Section{Title: title, Text: text})
	}

	for _, line := range strings.Split(markdown, "\n") {
		switch {
		case strings.HasPrefix(line, "### "):
			flush()
			subsection = strings.TrimSpace(strings.TrimPrefix(line, "### "))
		case strings.HasPrefix(line, "## "):
			flush()
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			subsection = ""
		default:
			buf = append(buf, line)
		}
	}
	flush()
	return sections
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
