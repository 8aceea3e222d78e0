package extraction

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	// ErrUnknownMethod indicates a method outside the closed set.
	ErrUnknownMethod = errors.New("unknown extraction method")

	// ErrFallbackUnavailable indicates the fallback preconditions were
	// not met (disabled, no retrieval evidence, or no completer).
	ErrFallbackUnavailable = errors.New("fallback unavailable")

	// ErrFallbackParse indicates the generative response could not be
	// parsed as the expected value type.
	ErrFallbackParse = errors.New("fallback response parse failed")

	// ErrInvalidTiers indicates non-monotonic similarity boost tiers.
	ErrInvalidTiers = errors.New("similarity boost tiers must be monotonic")

	// ErrNoParameters indicates an extraction request without parameters.
	ErrNoParameters = errors.New("no parameters requested")
)

// Status is the terminal state of one parameter's extraction.
type Status string

const (
	// StatusExtracted means a value was produced and validated.
	StatusExtracted Status = "extracted"
	// StatusNotFound means the document was searched and the value is absent.
	StatusNotFound Status = "not_found"
	// StatusNotApplicable means the parameter is policy data, not document data.
	StatusNotApplicable Status = "not_applicable"
	// StatusExtractionFailed means a value failed parsing or validation,
	// or the fallback errored.
	StatusExtractionFailed Status = "extraction_failed"
)

// Method is the closed set of extraction methods. Every method has an
// entry in the confidence weight table; adding a method without a
// weight is caught by methodWeight returning an error.
type Method string

const (
	// MethodDirectTable reads a pre-computed report field.
	MethodDirectTable Method = "direct_table"
	// MethodFlagDetection is boolean keyword detection over account remarks.
	MethodFlagDetection Method = "flag_detection"
	// MethodComputed derives a value from the full typed report.
	MethodComputed Method = "computed"
	// MethodLLMFallback is generative recovery after deterministic misses.
	MethodLLMFallback Method = "llm_fallback"
)

// Result is one parameter's extraction outcome. Built fresh per
// parameter per run and never mutated afterwards.
type Result struct {
	ParameterID string   `json:"parameter_id"`
	Value       any      `json:"value"`
	Source      string   `json:"source"`
	Confidence  float64  `json:"confidence"`
	Status      Status   `json:"status"`
	Similarity  *float64 `json:"similarity_score,omitempty"`
	Method      Method   `json:"extraction_method,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

// Response is the aggregate outcome of one extraction run.
type Response struct {
	RunID             string            `json:"run_id"`
	DocumentHash      string            `json:"document_hash"`
	Results           map[string]Result `json:"results"`
	OverallConfidence float64           `json:"overall_confidence"`
	Duration          time.Duration     `json:"-"`
}

// Coverage is the matched/total denominator feeding the coverage ratio.
// Exact marks extractions whose ratio is fixed at 1.0 regardless of the
// denominator (direct reads and policy parameters).
type Coverage struct {
	Matched int
	Total   int
	Exact   bool
}

// ExactCoverage is the fixed full-coverage value.
func ExactCoverage() Coverage { return Coverage{Exact: true} }

// Ratio returns the coverage ratio in [0,1] given the additive baseline.
func (c Coverage) Ratio(baseline float64) float64 {
	if c.Exact {
		return 1.0
	}
	if c.Total <= 0 {
		return clamp01(baseline)
	}
	return clamp01(float64(c.Matched)/float64(c.Total) + baseline)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// BoostTier maps a similarity floor to a confidence multiplier. Tiers
// are ordered by descending MinSimilarity; the first tier whose floor
// is at or below the observed similarity wins.
type BoostTier struct {
	MinSimilarity float64 `koanf:"min_similarity" json:"min_similarity"`
	Multiplier    float64 `koanf:"multiplier" json:"multiplier"`
}

// DefaultBoostTiers returns the standard similarity boost ladder.
func DefaultBoostTiers() []BoostTier {
	return []BoostTier{
		{MinSimilarity: 0.85, Multiplier: 1.0},
		{MinSimilarity: 0.70, Multiplier: 0.9},
		{MinSimilarity: 0.50, Multiplier: 0.7},
		{MinSimilarity: 0.0, Multiplier: 0.5},
	}
}

// ValidateTiers checks that tiers descend strictly in MinSimilarity and
// never increase in Multiplier, so a higher similarity cannot earn a
// lower boost than a lower one.
func ValidateTiers(tiers []BoostTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: at least one tier required", ErrInvalidTiers)
	}
	for i, t := range tiers {
		if t.MinSimilarity < 0 || t.MinSimilarity > 1 {
			return fmt.Errorf("%w: tier %d min_similarity %.2f outside [0,1]", ErrInvalidTiers, i, t.MinSimilarity)
		}
		if t.Multiplier < 0 || t.Multiplier > 1 {
			return fmt.Errorf("%w: tier %d multiplier %.2f outside [0,1]", ErrInvalidTiers, i, t.Multiplier)
		}
		if i == 0 {
			continue
		}
		if t.MinSimilarity >= tiers[i-1].MinSimilarity {
			return fmt.Errorf("%w: tier %d min_similarity %.2f not below tier %d (%.2f)",
				ErrInvalidTiers, i, t.MinSimilarity, i-1, tiers[i-1].MinSimilarity)
		}
		if t.Multiplier > tiers[i-1].Multiplier {
			return fmt.Errorf("%w: tier %d multiplier %.2f above tier %d (%.2f)",
				ErrInvalidTiers, i, t.Multiplier, i-1, tiers[i-1].Multiplier)
		}
	}
	return nil
}
