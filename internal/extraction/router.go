package extraction

import (
	"fmt"

	"github.com/arborfin/extractd/internal/bureau"
	"github.com/arborfin/extractd/internal/params"
)

// Source labels for deterministic extractions.
const (
	sourceVerification   = "Verification Table"
	sourceAccountSummary = "Account Summary Table"
	sourceInquiry        = "Inquiry Table"
	sourcePaymentHistory = "Payment History"
	sourceAccountInfo    = "Account Information"
	sourcePolicy         = "Policy Configuration (not in document)"
)

// routed is the raw outcome of deterministic routing, before confidence
// scoring. Value nil with ok=true means the document lacks the value.
type routed struct {
	Value    any
	Source   string
	Method   Method
	Coverage Coverage
}

// directAccessor reads a pre-computed report field. A nil value means
// the backing structure was absent from the document.
type directAccessor func(*bureau.Report) (any, string)

// derivedCalculator computes a value from the full report along with
// the coverage denominator that supported it.
type derivedCalculator func(*bureau.Report) (any, string, Coverage)

// Router dispatches a parameter to its deterministic extractor by
// category. Construction fails if any registered Direct, Flag or
// Derived parameter lacks a handler, so an unroutable parameter is a
// startup error rather than a per-request surprise.
type Router struct {
	direct  map[string]directAccessor
	derived map[string]derivedCalculator
	flags   map[string][]string
}

// NewRouter builds the routing tables for the builtin bureau parameter
// set and verifies the registry is fully covered.
func NewRouter(registry *params.Registry) (*Router, error) {
	r := &Router{
		direct: map[string]directAccessor{
			"bureau_credit_score": func(rep *bureau.Report) (any, string) {
				return derefInt(rep.Score), sourceVerification
			},
			"bureau_written_off_debt_amount": func(rep *bureau.Report) (any, string) {
				return derefFloat(rep.TotalWriteoffAmount), sourceAccountSummary
			},
			"bureau_max_loans": func(rep *bureau.Report) (any, string) {
				return derefInt(rep.TotalAccounts), sourceAccountSummary
			},
			"bureau_max_active_loans": func(rep *bureau.Report) (any, string) {
				return derefInt(rep.ActiveAccounts), sourceAccountSummary
			},
			"bureau_credit_inquiries": func(rep *bureau.Report) (any, string) {
				return derefInt(rep.CreditInquiries), sourceInquiry
			},
		},
		derived: map[string]derivedCalculator{
			"bureau_dpd_30": dpdCalculator(30),
			"bureau_dpd_60": dpdCalculator(60),
			"bureau_dpd_90": dpdCalculator(90),
			"bureau_no_live_pl_bl": func(rep *bureau.Report) (any, string, Coverage) {
				// Every account is inspected, so coverage is exact.
				return !bureau.HasLivePersonalOrBusinessLoan(rep), sourceAccountInfo, ExactCoverage()
			},
		},
		flags: map[string][]string{
			"bureau_suit_filed":          {"suit filed"},
			"bureau_wilful_default":      {"wilful default"},
			"bureau_settlement_writeoff": {"settlement", "write"},
			// No-track-case acceptance cannot be detected from remarks;
			// an empty keyword set always yields false with zero matches.
			"bureau_ntc_accepted": {},
		},
	}

	for _, id := range registry.IDs() {
		spec, ok := registry.SpecFor(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", params.ErrUnknownParameter, id)
		}
		switch spec.Category {
		case params.Direct:
			if _, ok := r.direct[id]; !ok {
				return nil, fmt.Errorf("no direct accessor for parameter %q", id)
			}
		case params.Flag:
			if _, ok := r.flags[id]; !ok {
				return nil, fmt.Errorf("no flag keywords for parameter %q", id)
			}
		case params.Derived:
			if _, ok := r.derived[id]; !ok {
				return nil, fmt.Errorf("no derived calculator for parameter %q", id)
			}
		case params.NotApplicable:
			// Routed without a handler.
		}
	}
	return r, nil
}

// Route runs the deterministic extractor for one parameter against an
// already-built report. The report is read-only here.
func (r *Router) Route(spec *params.Spec, rep *bureau.Report) (routed, error) {
	switch spec.Category {
	case params.NotApplicable:
		return routed{
			Value:    nil,
			Source:   sourcePolicy,
			Method:   MethodDirectTable,
			Coverage: ExactCoverage(),
		}, nil

	case params.Direct:
		accessor, ok := r.direct[spec.ID]
		if !ok {
			return routed{}, fmt.Errorf("no direct accessor for parameter %q", spec.ID)
		}
		value, source := accessor(rep)
		return routed{Value: value, Source: source, Method: MethodDirectTable, Coverage: ExactCoverage()}, nil

	case params.Flag:
		keywords, ok := r.flags[spec.ID]
		if !ok {
			return routed{}, fmt.Errorf("no flag keywords for parameter %q", spec.ID)
		}
		match := bureau.FlagPresence(rep, keywords)
		return routed{
			Value:    match.Present,
			Source:   match.Source(),
			Method:   MethodFlagDetection,
			Coverage: Coverage{Matched: match.Matched, Total: match.Total},
		}, nil

	case params.Derived:
		calc, ok := r.derived[spec.ID]
		if !ok {
			return routed{}, fmt.Errorf("no derived calculator for parameter %q", spec.ID)
		}
		value, source, cov := calc(rep)
		return routed{Value: value, Source: source, Method: MethodComputed, Coverage: cov}, nil

	default:
		return routed{}, fmt.Errorf("%w: category %q", params.ErrUnknownParameter, spec.Category)
	}
}

// dpdCalculator counts accounts whose worst DPD bucket meets the
// threshold. Coverage reflects how many accounts carried any payment
// history, since history-less accounts cannot support the count.
func dpdCalculator(threshold int) derivedCalculator {
	return func(rep *bureau.Report) (any, string, Coverage) {
		withHistory := 0
		for i := range rep.Accounts {
			if len(rep.Accounts[i].History) > 0 {
				withHistory++
			}
		}
		count := bureau.CountDPDAtLeast(rep, threshold)
		return count, sourcePaymentHistory, Coverage{Matched: withHistory, Total: len(rep.Accounts)}
	}
}

func derefInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
