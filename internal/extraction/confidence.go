package extraction

import (
	"fmt"

	"github.com/arborfin/extractd/internal/params"
)

// Method weights. The generative fallback is additionally treated as a
// hard ceiling: no post-multiplier can raise its confidence above it.
const (
	weightDirectTable   = 0.95
	weightFlagDetection = 0.85
	weightComputed      = 1.0
	weightLLMFallback   = 0.60
)

// DefaultCoverageBaseline is the additive constant applied to
// matched/total coverage ratios before clamping to 1.0.
const DefaultCoverageBaseline = 0.3

// methodWeight returns the base weight for a method. The switch is
// exhaustive over the closed Method set.
func methodWeight(m Method) (float64, error) {
	switch m {
	case MethodDirectTable:
		return weightDirectTable, nil
	case MethodFlagDetection:
		return weightFlagDetection, nil
	case MethodComputed:
		return weightComputed, nil
	case MethodLLMFallback:
		return weightLLMFallback, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
}

// Scorer computes per-parameter confidence as the product of method
// weight, type certainty, coverage ratio and retrieval boost.
type Scorer struct {
	baseline float64
	tiers    []BoostTier
}

// NewScorer validates the tier ladder and returns a Scorer.
func NewScorer(baseline float64, tiers []BoostTier) (*Scorer, error) {
	if len(tiers) == 0 {
		tiers = DefaultBoostTiers()
	}
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}
	if baseline <= 0 {
		baseline = DefaultCoverageBaseline
	}
	return &Scorer{baseline: baseline, tiers: tiers}, nil
}

// Score returns the confidence for one extracted value. A validation
// failure pins confidence to zero; the caller is responsible for
// marking the result failed. Similarity may be nil when no retrieval
// evidence exists, in which case no boost is applied.
func (s *Scorer) Score(spec *params.Spec, value any, method Method, cov Coverage, similarity *float64) (float64, error) {
	weight, err := methodWeight(method)
	if err != nil {
		return 0, err
	}
	if !spec.Validate(value) {
		return 0, fmt.Errorf("parameter %q: value %v failed validation", spec.ID, value)
	}

	confidence := weight * s.typeCertainty(spec, value) * cov.Ratio(s.baseline)
	if similarity != nil {
		confidence *= s.boost(*similarity)
	}
	// The fallback ceiling holds even if every other factor is 1.0.
	if method == MethodLLMFallback && confidence > weightLLMFallback {
		confidence = weightLLMFallback
	}
	return clamp01(confidence), nil
}

// typeCertainty is 1.0 when the value matches the declared type and the
// value is present; absent values carry no certainty penalty because
// absence is reported through status, not confidence.
func (s *Scorer) typeCertainty(spec *params.Spec, value any) float64 {
	if value == nil {
		return 1.0
	}
	if spec.Type.Matches(value) {
		return 1.0
	}
	return 0.0
}

// boost maps a similarity score onto the tier ladder.
func (s *Scorer) boost(similarity float64) float64 {
	for _, t := range s.tiers {
		if similarity >= t.MinSimilarity {
			return t.Multiplier
		}
	}
	return s.tiers[len(s.tiers)-1].Multiplier
}

// Aggregate returns the mean confidence over successfully extracted
// results. NotApplicable, NotFound and failed results are excluded so
// policy parameters and absent data do not dilute the score. An empty
// set aggregates to zero.
func Aggregate(results map[string]Result) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Status != StatusExtracted {
			continue
		}
		sum += r.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
