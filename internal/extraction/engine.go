package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/bureau"
	"github.com/arborfin/extractd/internal/document"
	"github.com/arborfin/extractd/internal/knowledge"
	"github.com/arborfin/extractd/internal/params"
	"github.com/arborfin/extractd/internal/retrieval"
)

const defaultWorkerLimit = 8

// Config controls engine behavior.
type Config struct {
	// EnableFallback gates the generative recovery path. When false the
	// completer is never invoked.
	EnableFallback bool `koanf:"enable_fallback"`

	// WorkerLimit bounds concurrent per-parameter extractions.
	WorkerLimit int `koanf:"worker_limit"`

	// FallbackTimeout bounds one fallback attempt end to end.
	FallbackTimeout time.Duration `koanf:"fallback_timeout"`

	// CoverageBaseline is the additive constant in the coverage ratio.
	CoverageBaseline float64 `koanf:"coverage_baseline"`

	// BoostTiers is the similarity boost ladder. Empty means defaults.
	BoostTiers []BoostTier `koanf:"boost_tiers"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.WorkerLimit <= 0 {
		c.WorkerLimit = defaultWorkerLimit
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = 30 * time.Second
	}
	if c.CoverageBaseline <= 0 {
		c.CoverageBaseline = DefaultCoverageBaseline
	}
	if len(c.BoostTiers) == 0 {
		c.BoostTiers = DefaultBoostTiers()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := ValidateTiers(c.BoostTiers); err != nil {
		return err
	}
	if c.CoverageBaseline < 0 || c.CoverageBaseline > 1 {
		return fmt.Errorf("coverage_baseline %.2f outside [0,1]", c.CoverageBaseline)
	}
	return nil
}

// Engine runs extraction requests: it builds the typed report once,
// embeds the document once, then extracts every requested parameter
// concurrently through the deterministic router, with optional
// generative fallback for values the document holds but the structured
// path missed.
type Engine struct {
	cfg       Config
	registry  *params.Registry
	router    *Router
	scorer    *Scorer
	retriever *retrieval.Coordinator
	knowledge *knowledge.Base
	fallback  *Fallback
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewEngine wires the engine. Retriever, knowledge base and fallback
// are optional; the engine degrades to purely deterministic extraction
// without them.
func NewEngine(cfg Config, registry *params.Registry, retriever *retrieval.Coordinator, kb *knowledge.Base, fallback *Fallback, logger *zap.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if registry == nil {
		return nil, fmt.Errorf("parameter registry required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router, err := NewRouter(registry)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	scorer, err := NewScorer(cfg.CoverageBaseline, cfg.BoostTiers)
	if err != nil {
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		registry:  registry,
		router:    router,
		scorer:    scorer,
		retriever: retriever,
		knowledge: kb,
		fallback:  fallback,
		logger:    logger,
		tracer:    otel.Tracer("extractd.engine"),
	}, nil
}

// Extract runs one extraction pass over a parsed document. An empty id
// list means every registered parameter. The response always carries
// exactly one result per requested id.
func (e *Engine) Extract(ctx context.Context, doc *document.Parsed, ids []string) (*Response, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	if len(ids) == 0 {
		ids = e.registry.IDs()
	}
	if len(ids) == 0 {
		return nil, ErrNoParameters
	}

	start := time.Now()
	runID := uuid.NewString()
	docHash := doc.Hash()

	ctx, span := e.tracer.Start(ctx, "engine.extract", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("parameter_count", len(ids)),
	))
	defer span.End()

	report := bureau.Build(doc, e.logger)
	corpus := e.buildCorpus(ctx, doc)

	results := make([]Result, len(ids))
	sem := make(chan struct{}, e.cfg.WorkerLimit)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.extractOne(ctx, id, report, corpus)
		}(i, id)
	}
	wg.Wait()

	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.ParameterID] = r
	}

	resp := &Response{
		RunID:             runID,
		DocumentHash:      docHash,
		Results:           byID,
		OverallConfidence: Aggregate(byID),
		Duration:          time.Since(start),
	}

	e.logger.Info("extraction run complete",
		zap.String("run_id", runID),
		zap.Int("parameters", len(ids)),
		zap.Float64("overall_confidence", resp.OverallConfidence),
		zap.Duration("duration", resp.Duration))
	return resp, nil
}

// buildCorpus embeds the document candidates once. Retrieval is an
// enhancement, not a requirement: on failure extraction proceeds
// without similarity evidence.
func (e *Engine) buildCorpus(ctx context.Context, doc *document.Parsed) *retrieval.Corpus {
	if e.retriever == nil {
		return nil
	}
	corpus, err := e.retriever.NewCorpus(ctx, doc)
	if err != nil {
		e.logger.Warn("document embedding unavailable, continuing without retrieval evidence", zap.Error(err))
		return nil
	}
	return corpus
}

// extractOne handles a single parameter. A panic in any step is
// confined to this parameter's result.
func (e *Engine) extractOne(ctx context.Context, id string, report *bureau.Report, corpus *retrieval.Corpus) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("parameter extraction panicked",
				zap.String("parameter_id", id), zap.Any("panic", r))
			result = Result{
				ParameterID: id,
				Status:      StatusExtractionFailed,
				Detail:      fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	spec, ok := e.registry.SpecFor(id)
	if !ok {
		return Result{
			ParameterID: id,
			Status:      StatusExtractionFailed,
			Detail:      fmt.Sprintf("unknown parameter %q", id),
		}
	}

	if spec.Category == params.NotApplicable {
		// Policy values never come from the document, so no extraction
		// confidence can honestly attach to them.
		return Result{
			ParameterID: id,
			Value:       nil,
			Source:      sourcePolicy,
			Confidence:  0,
			Status:      StatusNotApplicable,
			Method:      MethodDirectTable,
		}
	}

	evidence, similarity := e.rank(ctx, spec, corpus)

	rt, err := e.router.Route(spec, report)
	if err != nil {
		return Result{
			ParameterID: id,
			Status:      StatusExtractionFailed,
			Detail:      err.Error(),
			Similarity:  similarity,
		}
	}

	if rt.Value == nil {
		return e.attemptFallback(ctx, spec, evidence, similarity)
	}

	confidence, err := e.scorer.Score(spec, rt.Value, rt.Method, rt.Coverage, similarity)
	if err != nil {
		return Result{
			ParameterID: id,
			Source:      rt.Source,
			Status:      StatusExtractionFailed,
			Detail:      err.Error(),
			Similarity:  similarity,
			Method:      rt.Method,
		}
	}

	return Result{
		ParameterID: id,
		Value:       rt.Value,
		Source:      rt.Source,
		Confidence:  confidence,
		Status:      StatusExtracted,
		Similarity:  similarity,
		Method:      rt.Method,
	}
}

// rank fetches retrieval evidence for one parameter. Failures degrade
// to no evidence.
func (e *Engine) rank(ctx context.Context, spec *params.Spec, corpus *retrieval.Corpus) ([]retrieval.Scored, *float64) {
	if corpus == nil {
		return nil, nil
	}
	evidence, err := corpus.Rank(ctx, spec.Query())
	if err != nil {
		e.logger.Warn("retrieval ranking failed",
			zap.String("parameter_id", spec.ID), zap.Error(err))
		return nil, nil
	}
	if len(evidence) == 0 {
		return nil, nil
	}
	sim := evidence[0].Similarity
	return evidence, &sim
}

// attemptFallback handles a deterministic miss. Without a usable
// fallback the result is an honest NotFound.
func (e *Engine) attemptFallback(ctx context.Context, spec *params.Spec, evidence []retrieval.Scored, similarity *float64) Result {
	notFound := Result{
		ParameterID: spec.ID,
		Value:       nil,
		Source:      "",
		Confidence:  0,
		Status:      StatusNotFound,
		Similarity:  similarity,
	}

	if !e.cfg.EnableFallback || e.fallback == nil {
		return notFound
	}

	knowledgeContext := ""
	if e.knowledge != nil && e.knowledge.Ready() {
		knowledgeContext = e.knowledge.ContextFor(ctx, spec.Name, spec.Description)
	}

	outcome, err := e.fallback.Attempt(ctx, spec, evidence, knowledgeContext)
	switch {
	case errors.Is(err, ErrFallbackUnavailable):
		return notFound
	case err != nil:
		return Result{
			ParameterID: spec.ID,
			Status:      StatusExtractionFailed,
			Detail:      err.Error(),
			Similarity:  similarity,
			Method:      MethodLLMFallback,
		}
	case !outcome.Found:
		notFound.Detail = outcome.Detail
		return notFound
	}

	confidence, err := e.scorer.Score(spec, outcome.Value, MethodLLMFallback, ExactCoverage(), similarity)
	if err != nil {
		return Result{
			ParameterID: spec.ID,
			Status:      StatusExtractionFailed,
			Detail:      err.Error(),
			Similarity:  similarity,
			Method:      MethodLLMFallback,
		}
	}

	return Result{
		ParameterID: spec.ID,
		Value:       outcome.Value,
		Source:      "LLM Fallback (retrieved excerpts)",
		Confidence:  confidence,
		Status:      StatusExtracted,
		Similarity:  similarity,
		Method:      MethodLLMFallback,
	}
}
