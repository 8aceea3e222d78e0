package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParameterIDsFromDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.csv")
	csv := "Parameter ID,Parameter Name,Description\n" +
		"bureau_credit_score,Credit Score,Bureau score\n" +
		"bureau_dpd_90,DPD 90,Accounts at 90+ days past due\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	ids, err := resolveParameterIDs([]string{"bureau_suit_filed", "bureau_credit_score"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bureau_suit_filed", "bureau_credit_score", "bureau_dpd_90"}, ids)
}

func TestResolveParameterIDsNoDefinitions(t *testing.T) {
	ids, err := resolveParameterIDs([]string{"bureau_credit_score"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bureau_credit_score"}, ids)

	ids, err = resolveParameterIDs(nil, "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveParameterIDsMissingFile(t *testing.T) {
	_, err := resolveParameterIDs(nil, filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
