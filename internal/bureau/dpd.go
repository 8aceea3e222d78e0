package bureau

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var firstInteger = regexp.MustCompile(`\d+`)

// DPD maps a raw payment-status code to its days-past-due bucket.
//
// The rules are evaluated first-match in a fixed order; a status
// matching several patterns (e.g. "090/STD") resolves to the earliest
// rule. The underlying business precedence for such compound statuses is
// unclarified, so the published order is preserved as-is.
func DPD(status string) int {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch {
	case strings.Contains(s, "STD") || s == "000":
		return 0
	case strings.Contains(s, "030"):
		return 30
	case strings.Contains(s, "060"):
		return 60
	case strings.Contains(s, "SUB") || strings.Contains(s, "090"):
		return 90
	case strings.Contains(s, "DBT") || strings.Contains(s, "120"):
		return 120
	case strings.Contains(s, "LSS"):
		return 180
	}
	if m := firstInteger.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			if n >= 180 {
				return 180
			}
			return n
		}
	}
	return 0
}

// CountDPDAtLeast returns the number of accounts, active or closed,
// whose worst DPD bucket is at or above the threshold. The count is
// monotonically non-increasing in the threshold.
func CountDPDAtLeast(r *Report, threshold int) int {
	count := 0
	for i := range r.Accounts {
		if r.Accounts[i].WorstDPD() >= threshold {
			count++
		}
	}
	return count
}

// CountActiveByType returns the number of active accounts whose type
// label case-insensitively contains any of the keywords.
func CountActiveByType(r *Report, keywords []string) int {
	count := 0
	for i := range r.Accounts {
		a := &r.Accounts[i]
		if !a.Active {
			continue
		}
		typeLower := strings.ToLower(a.Type)
		for _, kw := range keywords {
			if strings.Contains(typeLower, strings.ToLower(kw)) {
				count++
				break
			}
		}
	}
	return count
}

// HasLivePersonalOrBusinessLoan reports whether any active account is a
// personal or business loan.
func HasLivePersonalOrBusinessLoan(r *Report) bool {
	return CountActiveByType(r, []string{"personal loan", "business loan"}) > 0
}

// FlagMatch is the result of a keyword flag check over account remarks.
type FlagMatch struct {
	Present bool
	Matched int
	Total   int
}

// Source returns the human-readable source string for the match.
func (m FlagMatch) Source() string {
	return fmt.Sprintf("Account Remarks (%d/%d accounts)", m.Matched, m.Total)
}

// FlagPresence checks all accounts (not only active ones) for any of the
// keywords in their remarks, case-insensitively.
func FlagPresence(r *Report, keywords []string) FlagMatch {
	matched := 0
	for i := range r.Accounts {
		remarks := strings.ToLower(r.Accounts[i].Remarks)
		for _, kw := range keywords {
			if strings.Contains(remarks, strings.ToLower(kw)) {
				matched++
				break
			}
		}
	}
	return FlagMatch{
		Present: matched > 0,
		Matched: matched,
		Total:   len(r.Accounts),
	}
}
