package extraction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborfin/extractd/internal/bureau"
	"github.com/arborfin/extractd/internal/params"
)

func mustSpec(t *testing.T, registry *params.Registry, id string) *params.Spec {
	t.Helper()
	spec, ok := registry.SpecFor(id)
	require.True(t, ok, "spec %q", id)
	return spec
}

func TestNewRouterCoversRegistry(t *testing.T) {
	_, err := NewRouter(params.NewBureauRegistry())
	require.NoError(t, err)
}

func TestNewRouterRejectsUnroutableParameter(t *testing.T) {
	registry := params.NewRegistry()
	require.NoError(t, registry.Register(params.Spec{
		ID:       "bureau_mystery",
		Name:     "Mystery",
		Category: params.Direct,
		Type:     params.TypeInt,
	}))
	registry.Seal()

	_, err := NewRouter(registry)
	assert.Error(t, err)
}

func TestRouteNotApplicable(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	rt, err := router.Route(mustSpec(t, registry, "bureau_overdue_threshold"), &bureau.Report{})
	require.NoError(t, err)
	assert.Nil(t, rt.Value)
	assert.Equal(t, sourcePolicy, rt.Source)
	assert.True(t, rt.Coverage.Exact)
}

func TestRouteDirectAbsentField(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	// Report with no score: value is nil, never zero.
	rt, err := router.Route(mustSpec(t, registry, "bureau_credit_score"), &bureau.Report{})
	require.NoError(t, err)
	assert.Nil(t, rt.Value)
	assert.Equal(t, MethodDirectTable, rt.Method)
}

func TestRouteDirectScore(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	score := 742
	rt, err := router.Route(mustSpec(t, registry, "bureau_credit_score"), &bureau.Report{Score: &score})
	require.NoError(t, err)
	assert.Equal(t, 742, rt.Value)
	assert.Equal(t, sourceVerification, rt.Source)
	assert.True(t, rt.Coverage.Exact)
}

// suitFiledReport builds a report with the requested number of accounts,
// the first `flagged` of which carry a suit-filed remark.
func suitFiledReport(total, flagged int) *bureau.Report {
	r := &bureau.Report{}
	for i := 0; i < total; i++ {
		acct := bureau.Account{
			Number: fmt.Sprintf("ACCT-%03d", i),
			Type:   "Personal Loan",
		}
		if i < flagged {
			acct.Remarks = "Suit Filed / Wilful Default: Suit Filed"
		}
		r.Accounts = append(r.Accounts, acct)
	}
	return r
}

func TestRouteFlagSuitFiled(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	rt, err := router.Route(mustSpec(t, registry, "bureau_suit_filed"), suitFiledReport(36, 2))
	require.NoError(t, err)
	assert.Equal(t, true, rt.Value)
	assert.Equal(t, "Account Remarks (2/36 accounts)", rt.Source)
	assert.Equal(t, Coverage{Matched: 2, Total: 36}, rt.Coverage)
}

func TestRouteFlagNoMatches(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	rt, err := router.Route(mustSpec(t, registry, "bureau_suit_filed"), suitFiledReport(5, 0))
	require.NoError(t, err)
	assert.Equal(t, false, rt.Value)
	assert.Equal(t, Coverage{Matched: 0, Total: 5}, rt.Coverage)
}

func TestRouteFlagNTCAlwaysFalse(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	rt, err := router.Route(mustSpec(t, registry, "bureau_ntc_accepted"), suitFiledReport(10, 10))
	require.NoError(t, err)
	assert.Equal(t, false, rt.Value)
	assert.Equal(t, 0, rt.Coverage.Matched)
}

func dpdReport(statuses ...string) *bureau.Report {
	r := &bureau.Report{}
	for i, s := range statuses {
		r.Accounts = append(r.Accounts, bureau.Account{
			Number:  fmt.Sprintf("ACCT-%03d", i),
			Type:    "Gold Loan",
			History: []bureau.PaymentEntry{{Month: "Jan", Status: s}},
		})
	}
	return r
}

func TestRouteDPDCounts(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)

	// Buckets: 0, 30, 60, 90, 120, 180.
	rep := dpdReport("STD", "030", "060", "SUB", "DBT", "LSS")

	counts := map[string]int{}
	for _, id := range []string{"bureau_dpd_30", "bureau_dpd_60", "bureau_dpd_90"} {
		rt, err := router.Route(mustSpec(t, registry, id), rep)
		require.NoError(t, err)
		counts[id] = rt.Value.(int)
		assert.Equal(t, sourcePaymentHistory, rt.Source)
		assert.Equal(t, Coverage{Matched: 6, Total: 6}, rt.Coverage)
	}

	assert.Equal(t, 5, counts["bureau_dpd_30"])
	assert.Equal(t, 4, counts["bureau_dpd_60"])
	assert.Equal(t, 3, counts["bureau_dpd_90"])

	// Thresholds are nested, so the counts can never increase.
	assert.GreaterOrEqual(t, counts["bureau_dpd_30"], counts["bureau_dpd_60"])
	assert.GreaterOrEqual(t, counts["bureau_dpd_60"], counts["bureau_dpd_90"])
}

func TestRouteNoLivePLBL(t *testing.T) {
	registry := params.NewBureauRegistry()
	router, err := NewRouter(registry)
	require.NoError(t, err)
	spec := mustSpec(t, registry, "bureau_no_live_pl_bl")

	withLive := &bureau.Report{Accounts: []bureau.Account{
		{Type: "Personal Loan", Active: true},
	}}
	rt, err := router.Route(spec, withLive)
	require.NoError(t, err)
	assert.Equal(t, false, rt.Value)

	closedOnly := &bureau.Report{Accounts: []bureau.Account{
		{Type: "Personal Loan", Active: false},
		{Type: "Gold Loan", Active: true},
	}}
	rt, err = router.Route(spec, closedOnly)
	require.NoError(t, err)
	assert.Equal(t, true, rt.Value)
}
