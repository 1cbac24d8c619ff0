package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Exact(t *testing.T) {
	cat := &fakeMappings{bySheet: map[string][]MappingRecord{
		"BalanceSheet": {{TargetCell: "B2", SheetName: "BalanceSheet"}},
	}}
	got, err := NewMappingResolver(cat).Resolve(context.Background(), "BalanceSheet")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"BalanceSheet"}, cat.queried)
}

func TestResolve_StrippedExtension(t *testing.T) {
	cat := &fakeMappings{bySheet: map[string][]MappingRecord{
		"BalanceSheet": {{TargetCell: "B2", SheetName: "BalanceSheet"}},
	}}
	got, err := NewMappingResolver(cat).Resolve(context.Background(), "BalanceSheet.xlsx")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"BalanceSheet.xlsx", "BalanceSheet"}, cat.queried)
}

func TestResolve_SubstringFallback(t *testing.T) {
	cat := &fakeMappings{bySheet: map[string][]MappingRecord{
		"Q1 Report":  {{TargetCell: "A1", SheetName: "Q1 Report"}},
		"Q10 Report": {{TargetCell: "A2", SheetName: "Q10 Report"}},
		"Annual":     {{TargetCell: "A3", SheetName: "Annual"}},
	}}
	got, err := NewMappingResolver(cat).Resolve(context.Background(), "q1")
	require.NoError(t, err)
	// substring matching also picks up Q10
	require.Len(t, got, 2)
	assert.Equal(t, "Q1 Report", got[0].SheetName)
	assert.Equal(t, "Q10 Report", got[1].SheetName)
}

func TestResolve_TierErrorFallsThrough(t *testing.T) {
	cat := &fakeMappings{
		bySheet:  map[string][]MappingRecord{"Ratios": {{TargetCell: "C1", SheetName: "Ratios"}}},
		sheetErr: map[string]error{"Ratios": errors.New("timeout")},
	}
	got, err := NewMappingResolver(cat).Resolve(context.Background(), "Ratios")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestResolve_NothingFound(t *testing.T) {
	cat := &fakeMappings{bySheet: map[string][]MappingRecord{}}
	got, err := NewMappingResolver(cat).Resolve(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Empty(t, got)

	cat.allErr = errors.New("down")
	got, err = NewMappingResolver(cat).Resolve(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_EmptyNameMatchesNothing(t *testing.T) {
	cat := &fakeMappings{bySheet: map[string][]MappingRecord{
		"BalanceSheet": {{TargetCell: "B2", SheetName: "BalanceSheet"}},
		"Income":       {{TargetCell: "C3", SheetName: "Income"}},
	}}
	for _, name := range []string{"", "   ", ".xlsx", Normalize(".xlsx"), ".XLS"} {
		got, err := NewMappingResolver(cat).Resolve(context.Background(), name)
		require.NoError(t, err, name)
		assert.Empty(t, got, "name %q", name)
	}
}
