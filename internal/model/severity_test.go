package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityFavorable, "FAVORABLE"},
		{SeverityNeutral, "NEUTRAL"},
		{SeverityUncertain, "UNCERTAIN"},
		{SeverityUnfavorable, "UNFAVORABLE"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestSeverityOrdering tests that severity levels are ordered correctly.
// Favorable < Neutral < Uncertain < Unfavorable < Critical
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	ordered := []Severity{
		SeverityFavorable,
		SeverityNeutral,
		SeverityUncertain,
		SeverityUnfavorable,
		SeverityCritical,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("%s should be less than %s", ordered[i-1], ordered[i])
		}
	}
}

// TestSeverityWorse tests picking the more severe of two levels.
func TestSeverityWorse(t *testing.T) {
	t.Parallel()

	if got := SeverityFavorable.Worse(SeverityCritical); got != SeverityCritical {
		t.Errorf("expected CRITICAL, got %s", got)
	}
	if got := SeverityUnfavorable.Worse(SeverityNeutral); got != SeverityUnfavorable {
		t.Errorf("expected UNFAVORABLE, got %s", got)
	}
}

// TestLookupClassification tests label interpretation.
func TestLookupClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		label    string
		expected Severity
		known    bool
	}{
		{"Pathogenic", SeverityCritical, true},
		{"PATHOGENIC", SeverityCritical, true},
		{"Likely pathogenic", SeverityUnfavorable, true},
		{"VUS", SeverityUncertain, true},
		{"Benign", SeverityFavorable, true},
		{"likely benign", SeverityFavorable, true},
		{"Sensitive", SeverityFavorable, true},
		{"Insensitive", SeverityUnfavorable, true},
		{"Resistant", SeverityUnfavorable, true},
		{"Intermediate", SeverityNeutral, true},
		{"Essential", SeverityFavorable, true},
		{"Non-essential", SeverityUnfavorable, true},
		{"something else", SeverityNeutral, false},
		{"", SeverityNeutral, false},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			t.Parallel()

			_, ok := LookupClassification(tc.label)
			if ok != tc.known {
				t.Errorf("LookupClassification(%q) known = %v, expected %v", tc.label, ok, tc.known)
			}
			if got := ClassificationSeverity(tc.label); got != tc.expected {
				t.Errorf("ClassificationSeverity(%q) = %s, expected %s", tc.label, got, tc.expected)
			}
		})
	}
}

// TestClassificationMappingKeysAreFolded guards against keys that could never match.
func TestClassificationMappingKeysAreFolded(t *testing.T) {
	t.Parallel()

	for key, info := range classificationMapping {
		if foldLabel(key) != key {
			t.Errorf("mapping key %q is not case-folded", key)
		}
		if info.Status == "" || info.Meaning == "" {
			t.Errorf("mapping for %q is missing status or meaning", key)
		}
	}
}
