package params

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Spec{ID: "demo_param", Name: "Demo", Category: Direct, Type: TypeInt}))

	spec, ok := r.SpecFor("demo_param")
	require.True(t, ok)
	assert.Equal(t, "Demo", spec.Name)

	_, ok = r.SpecFor("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Spec{ID: "demo_param", Type: TypeInt}))

	err := r.Register(Spec{ID: "demo_param", Type: TypeBool})
	require.ErrorIs(t, err, ErrDuplicateParameter)
}

func TestRegistryRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register(Spec{}))
}

func TestRegistrySealBlocksRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Spec{ID: "early", Type: TypeInt}))
	r.Seal()
	r.Seal() // idempotent

	err := r.Register(Spec{ID: "late", Type: TypeInt})
	require.ErrorIs(t, err, ErrSealed)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(Spec{ID: id, Type: TypeInt}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.IDs())
}

func TestBureauRegistryComplete(t *testing.T) {
	r := NewBureauRegistry()
	want := []string{
		"bureau_credit_inquiries",
		"bureau_credit_score",
		"bureau_dpd_30",
		"bureau_dpd_60",
		"bureau_dpd_90",
		"bureau_loan_amount_threshold",
		"bureau_max_active_loans",
		"bureau_max_loans",
		"bureau_no_live_pl_bl",
		"bureau_ntc_accepted",
		"bureau_overdue_threshold",
		"bureau_settlement_writeoff",
		"bureau_suit_filed",
		"bureau_wilful_default",
		"bureau_written_off_debt_amount",
	}
	assert.Equal(t, want, r.IDs())

	// Policy parameters carry the null type; everything else is typed.
	for _, id := range r.IDs() {
		spec, ok := r.SpecFor(id)
		require.True(t, ok)
		if spec.Category == NotApplicable {
			assert.Equal(t, TypeNull, spec.Type, id)
		} else {
			assert.NotEqual(t, TypeNull, spec.Type, id)
		}
		assert.NotEmpty(t, spec.Name, id)
		assert.NotEmpty(t, spec.Description, id)
	}
}

func TestValueTypeMatches(t *testing.T) {
	tests := []struct {
		name string
		vt   ValueType
		v    any
		want bool
	}{
		{"int ok", TypeInt, 7, true},
		{"int rejects float", TypeInt, 7.0, false},
		{"float ok", TypeFloat, 7.5, true},
		{"float rejects int", TypeFloat, 7, false},
		{"bool ok", TypeBool, true, true},
		{"bool rejects string", TypeBool, "true", false},
		{"null rejects non-nil", TypeNull, 0, false},
		{"nil matches int", TypeInt, nil, true},
		{"nil matches null", TypeNull, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.vt.Matches(tt.v))
		})
	}
}

func TestSpecValidate(t *testing.T) {
	spec := Spec{
		ID:   "score",
		Type: TypeInt,
		Validator: func(v any) bool {
			n := v.(int)
			return n >= 300 && n <= 900
		},
	}

	assert.True(t, spec.Validate(nil))
	assert.True(t, spec.Validate(742))
	assert.False(t, spec.Validate(250), "out of validator range")
	assert.False(t, spec.Validate("742"), "wrong type")
}

func TestBuiltinValidators(t *testing.T) {
	r := NewBureauRegistry()

	score, _ := r.SpecFor("bureau_credit_score")
	assert.True(t, score.Validate(300))
	assert.True(t, score.Validate(900))
	assert.False(t, score.Validate(299))
	assert.False(t, score.Validate(901))

	amount, _ := r.SpecFor("bureau_written_off_debt_amount")
	assert.True(t, amount.Validate(0.0))
	assert.False(t, amount.Validate(-1.0))

	dpd, _ := r.SpecFor("bureau_dpd_30")
	assert.True(t, dpd.Validate(0))
	assert.False(t, dpd.Validate(-3))
}

func TestSpecQuery(t *testing.T) {
	spec := Spec{Name: "Credit Score", Description: "Bureau score of the applicant"}
	q := spec.Query()
	assert.True(t, strings.HasPrefix(q, "Credit Score: "))
	assert.Contains(t, q, "Bureau score")
}

func TestLoadDefinitionsCSV(t *testing.T) {
	csv := "Parameter ID,Parameter Name,Description\n" +
		"bureau_credit_score,Credit Score,Bureau score\n" +
		"bureau_max_loans,Max Loans,Total account count\n" +
		",,skipped blank id\n"

	defs, err := LoadDefinitions([]byte(csv), "params.csv")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "bureau_credit_score", defs[0].ID)
	assert.Equal(t, "Credit Score", defs[0].Name)
	assert.Equal(t, "Total account count", defs[1].Description)
}

func TestLoadDefinitionsHeaderCaseInsensitive(t *testing.T) {
	csv := "PARAMETER ID,parameter name\nbureau_suit_filed,Suit Filed\n"

	defs, err := LoadDefinitions([]byte(csv), "params.CSV")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "bureau_suit_filed", defs[0].ID)
	assert.Empty(t, defs[0].Description)
}

func TestLoadDefinitionsMissingIDColumn(t *testing.T) {
	csv := "Name,Description\nCredit Score,Bureau score\n"

	_, err := LoadDefinitions([]byte(csv), "params.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter id")
}

func TestLoadDefinitionsEmpty(t *testing.T) {
	_, err := LoadDefinitions([]byte("Parameter ID\n"), "params.csv")
	require.ErrorIs(t, err, ErrNoDefinitions)
}
