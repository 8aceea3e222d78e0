package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/bureau"
	"github.com/arborfin/extractd/internal/params"
	"github.com/arborfin/extractd/internal/retrieval"
)

// Sentinel answers the completer may return instead of a value.
const (
	answerNotFound      = "NOT_FOUND"
	answerNotApplicable = "NOT_APPLICABLE"
)

const fallbackSystemPrompt = `You are a precise financial document analyst. You extract a single parameter value from document excerpts.

Rules:
- Answer with ONLY the value, no explanation and no units.
- Numbers: plain digits, no currency symbols or thousands separators.
- Booleans: answer "true" or "false".
- If the value is genuinely absent from the excerpts, answer NOT_FOUND.
- If the parameter is a policy setting that would never appear in this document, answer NOT_APPLICABLE.`

// Fallback attempts generative recovery for a parameter the
// deterministic path could not extract. It runs only against the
// retrieval evidence it is handed, never the whole document.
type Fallback struct {
	completer Completer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewFallback wires a completer. Timeout bounds one attempt end to end,
// including retries inside the completer.
func NewFallback(completer Completer, timeout time.Duration, logger *zap.Logger) *Fallback {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{completer: completer, timeout: timeout, logger: logger}
}

// fallbackOutcome is the parsed completer answer. Found is false when
// the model answered with a sentinel.
type fallbackOutcome struct {
	Value  any
	Found  bool
	Detail string
}

// Attempt asks the completer for the parameter value given retrieval
// evidence and domain-knowledge context. It runs only when both are
// present: without an evidence chunk there is nothing to read from, and
// without a domain-context snippet the model has no grounding for the
// parameter's meaning. It returns ErrFallbackUnavailable when
// preconditions are not met, so callers can distinguish "did not run"
// from "ran and failed".
func (f *Fallback) Attempt(ctx context.Context, spec *params.Spec, evidence []retrieval.Scored, knowledgeContext string) (fallbackOutcome, error) {
	if f == nil || f.completer == nil || !f.completer.Available() {
		return fallbackOutcome{}, ErrFallbackUnavailable
	}
	if len(evidence) == 0 || knowledgeContext == "" {
		return fallbackOutcome{}, ErrFallbackUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	prompt := f.buildPrompt(spec, evidence, knowledgeContext)
	answer, err := f.completer.Complete(ctx, fallbackSystemPrompt, prompt)
	if err != nil {
		return fallbackOutcome{}, fmt.Errorf("fallback completion: %w", err)
	}

	outcome, err := parseAnswer(spec, answer)
	if err != nil {
		f.logger.Warn("fallback answer unparseable",
			zap.String("parameter_id", spec.ID),
			zap.String("answer", truncate(answer, 120)),
			zap.Error(err))
		return fallbackOutcome{}, err
	}
	return outcome, nil
}

func (f *Fallback) buildPrompt(spec *params.Spec, evidence []retrieval.Scored, knowledgeContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parameter: %s\n", spec.Name)
	fmt.Fprintf(&b, "Description: %s\n", spec.Description)
	fmt.Fprintf(&b, "Expected type: %s\n\n", spec.Type)

	if knowledgeContext != "" {
		b.WriteString(knowledgeContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Document excerpts (most relevant first):\n")
	for i, ev := range evidence {
		fmt.Fprintf(&b, "--- Excerpt %d [%s] (similarity %.2f) ---\n%s\n",
			i+1, ev.Candidate.Source, ev.Similarity, ev.Candidate.Content)
	}
	b.WriteString("\nValue:")
	return b.String()
}

// parseAnswer converts the raw completer text into a typed value using
// the same numeric cleaning the deterministic path uses. Only literal
// answers are accepted.
func parseAnswer(spec *params.Spec, answer string) (fallbackOutcome, error) {
	text := strings.TrimSpace(answer)
	text = strings.Trim(text, "`\"'")
	text = strings.TrimSpace(text)

	switch strings.ToUpper(text) {
	case answerNotFound:
		return fallbackOutcome{Found: false, Detail: "model reported value absent"}, nil
	case answerNotApplicable:
		return fallbackOutcome{Found: false, Detail: "model reported parameter not applicable"}, nil
	}
	if text == "" {
		return fallbackOutcome{}, fmt.Errorf("%w: empty answer", ErrFallbackParse)
	}

	switch spec.Type {
	case params.TypeInt:
		n, err := bureau.CleanInt(text)
		if err != nil {
			return fallbackOutcome{}, fmt.Errorf("%w: %q as int: %v", ErrFallbackParse, text, err)
		}
		return fallbackOutcome{Value: n, Found: true}, nil

	case params.TypeFloat:
		fv, err := bureau.CleanFloat(text)
		if err != nil {
			return fallbackOutcome{}, fmt.Errorf("%w: %q as float: %v", ErrFallbackParse, text, err)
		}
		return fallbackOutcome{Value: fv, Found: true}, nil

	case params.TypeBool:
		switch strings.ToLower(text) {
		case "true", "yes", "y", "1":
			return fallbackOutcome{Value: true, Found: true}, nil
		case "false", "no", "n", "0":
			return fallbackOutcome{Value: false, Found: true}, nil
		}
		return fallbackOutcome{}, fmt.Errorf("%w: %q as bool", ErrFallbackParse, text)

	default:
		return fallbackOutcome{}, fmt.Errorf("%w: type %s has no fallback parser", ErrFallbackParse, spec.Type)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
