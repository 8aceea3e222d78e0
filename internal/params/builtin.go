package params

// Validators shared by the builtin bureau parameters.
var (
	nonNegativeInt = func(v any) bool {
		n, ok := v.(int)
		return ok && n >= 0
	}
	nonNegativeFloat = func(v any) bool {
		f, ok := v.(float64)
		return ok && f >= 0
	}
	scoreRange = func(v any) bool {
		n, ok := v.(int)
		return ok && n >= 300 && n <= 900
	}
)

// BureauSpecs returns the builtin credit-bureau parameter set.
func BureauSpecs() []Spec {
	return []Spec{
		{
			ID:             "bureau_credit_score",
			Name:           "CIBIL Score",
			Description:    "Credit bureau score (300-900 range)",
			Category:       Direct,
			Type:           TypeInt,
			AllowedSources: []string{"Verification"},
			Validator:      scoreRange,
		},
		{
			ID:             "bureau_ntc_accepted",
			Name:           "NTC Accepted",
			Description:    "Whether No-Track-Case (NTC) applicants are acceptable",
			Category:       Flag,
			Type:           TypeBool,
			AllowedSources: []string{"Verification", "Account Remarks"},
		},
		{
			ID:          "bureau_overdue_threshold",
			Name:        "Overdue Threshold",
			Description: "Maximum allowable overdue amount",
			Category:    NotApplicable,
			Type:        TypeNull,
		},
		{
			ID:             "bureau_dpd_30",
			Name:           "30+ DPD",
			Description:    "Count of accounts with 30+ days past due",
			Category:       Derived,
			Type:           TypeInt,
			AllowedSources: []string{"Payment History"},
			Validator:      nonNegativeInt,
		},
		{
			ID:             "bureau_dpd_60",
			Name:           "60+ DPD",
			Description:    "Count of accounts with 60+ days past due",
			Category:       Derived,
			Type:           TypeInt,
			AllowedSources: []string{"Payment History"},
			Validator:      nonNegativeInt,
		},
		{
			ID:             "bureau_dpd_90",
			Name:           "90+ DPD",
			Description:    "Count of accounts with 90+ days past due",
			Category:       Derived,
			Type:           TypeInt,
			AllowedSources: []string{"Payment History"},
			Validator:      nonNegativeInt,
		},
		{
			ID:             "bureau_settlement_writeoff",
			Name:           "Settlement / Write-off",
			Description:    "Presence of settlement or write-off",
			Category:       Flag,
			Type:           TypeBool,
			AllowedSources: []string{"Account Remarks"},
		},
		{
			ID:             "bureau_no_live_pl_bl",
			Name:           "No Live PL/BL",
			Description:    "Check for no live Personal Loan or Business Loan",
			Category:       Derived,
			Type:           TypeBool,
			AllowedSources: []string{"Account Information"},
		},
		{
			ID:             "bureau_suit_filed",
			Name:           "Suit Filed",
			Description:    "Indicates whether any suit filed status exists",
			Category:       Flag,
			Type:           TypeBool,
			AllowedSources: []string{"Account Remarks"},
		},
		{
			ID:             "bureau_wilful_default",
			Name:           "Wilful Default",
			Description:    "Indicates wilful default status",
			Category:       Flag,
			Type:           TypeBool,
			AllowedSources: []string{"Account Remarks"},
		},
		{
			ID:             "bureau_written_off_debt_amount",
			Name:           "Written-off Debt Amount",
			Description:    "Total written-off debt exposure",
			Category:       Direct,
			Type:           TypeFloat,
			AllowedSources: []string{"Account Summary"},
			Validator:      nonNegativeFloat,
		},
		{
			ID:             "bureau_max_loans",
			Name:           "Max Loans",
			Description:    "Maximum number of loans in selected months",
			Category:       Direct,
			Type:           TypeInt,
			AllowedSources: []string{"Account Summary"},
			Validator:      nonNegativeInt,
		},
		{
			ID:          "bureau_loan_amount_threshold",
			Name:        "Loan Amount Threshold",
			Description: "Maximum cumulative loan amount exposure",
			Category:    NotApplicable,
			Type:        TypeNull,
		},
		{
			ID:             "bureau_credit_inquiries",
			Name:           "Credit Inquiries",
			Description:    "Number of bureau credit inquiries",
			Category:       Direct,
			Type:           TypeInt,
			AllowedSources: []string{"Additional Summary", "Inquiry"},
			Validator:      nonNegativeInt,
		},
		{
			ID:             "bureau_max_active_loans",
			Name:           "Max Active Loans",
			Description:    "Maximum active loans",
			Category:       Direct,
			Type:           TypeInt,
			AllowedSources: []string{"Account Summary"},
			Validator:      nonNegativeInt,
		},
	}
}

// NewBureauRegistry builds and seals a registry with the builtin bureau
// parameter set.
func NewBureauRegistry() *Registry {
	r := NewRegistry()
	for _, s := range BureauSpecs() {
		// Builtin specs are statically well-formed.
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	r.Seal()
	return r
}
