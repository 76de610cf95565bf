package model

import (
	"golang.org/x/text/cases"
)

// Severity grades how a checkpoint or a dossier status reads for the subject.
// Levels are ordered so that comparisons pick the worse of two severities.
type Severity int

const (
	// SeverityFavorable indicates a result that supports the subject,
	// e.g. a benign variant or a drug the cell line is sensitive to.
	SeverityFavorable Severity = iota

	// SeverityNeutral indicates a result with no clear direction.
	SeverityNeutral

	// SeverityUncertain indicates a result that needs more evidence before it
	// can be interpreted, e.g. a variant of uncertain significance.
	SeverityUncertain

	// SeverityUnfavorable indicates a result that argues against the subject.
	SeverityUnfavorable

	// SeverityCritical indicates a result that forces a high-severity status,
	// e.g. a pathogenic classification.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityFavorable:
		return "FAVORABLE"
	case SeverityNeutral:
		return "NEUTRAL"
	case SeverityUncertain:
		return "UNCERTAIN"
	case SeverityUnfavorable:
		return "UNFAVORABLE"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Worse returns the more severe of s and other.
func (s Severity) Worse(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// ClassificationInfo describes how a categorical label returned by a
// capability is interpreted.
type ClassificationInfo struct {
	// Severity is the checkpoint severity the label maps to.
	Severity Severity

	// Status is the dossier status text used when the label drives the status.
	Status string

	// Meaning is a one-sentence reading of the label used in key findings.
	Meaning string
}

// classificationMapping maps case-folded labels to their interpretation.
// Keys must already be case-folded; see foldLabel.
var classificationMapping = map[string]ClassificationInfo{
	// Variant classifications (ACMG-style five-tier scale)
	"pathogenic": {
		Severity: SeverityCritical,
		Status:   "Pathogenic variant: clinical action indicated",
		Meaning:  "the variant is predicted to disrupt protein function",
	},
	"likely pathogenic": {
		Severity: SeverityUnfavorable,
		Status:   "Likely pathogenic variant: confirm before acting",
		Meaning:  "the variant is predicted to be damaging with moderate confidence",
	},
	"vus": {
		Severity: SeverityUncertain,
		Status:   "Variant of uncertain significance",
		Meaning:  "the available evidence is insufficient to classify the variant",
	},
	"uncertain significance": {
		Severity: SeverityUncertain,
		Status:   "Variant of uncertain significance",
		Meaning:  "the available evidence is insufficient to classify the variant",
	},
	"likely benign": {
		Severity: SeverityFavorable,
		Status:   "Likely benign variant",
		Meaning:  "the variant is unlikely to affect protein function",
	},
	"benign": {
		Severity: SeverityFavorable,
		Status:   "Benign variant: no action required",
		Meaning:  "the variant is predicted to be tolerated",
	},

	// Drug response
	"sensitive": {
		Severity: SeverityFavorable,
		Status:   "Predicted sensitive to treatment",
		Meaning:  "the cell line is expected to respond to the compound",
	},
	"intermediate": {
		Severity: SeverityNeutral,
		Status:   "Intermediate predicted response",
		Meaning:  "the response is expected to be partial",
	},
	"insensitive": {
		Severity: SeverityUnfavorable,
		Status:   "Predicted insensitive to treatment",
		Meaning:  "the cell line is not expected to respond to the compound",
	},
	"resistant": {
		Severity: SeverityUnfavorable,
		Status:   "Predicted resistant to treatment",
		Meaning:  "the cell line is expected to resist the compound",
	},

	// Gene essentiality
	"essential": {
		Severity: SeverityFavorable,
		Status:   "Gene is essential in this context",
		Meaning:  "knockout is predicted to impair cell viability",
	},
	"selective": {
		Severity: SeverityFavorable,
		Status:   "Gene is selectively essential",
		Meaning:  "dependency is restricted to a subset of cell lines",
	},
	"non-essential": {
		Severity: SeverityUnfavorable,
		Status:   "Gene is not essential in this context",
		Meaning:  "knockout is not predicted to affect viability",
	},
}

// foldLabel normalizes a label for case-insensitive lookup.
// A new Caser is created per call because Casers are not safe for concurrent use.
func foldLabel(label string) string {
	return cases.Fold().String(label)
}

// LookupClassification returns the interpretation of a capability label.
// The lookup ignores case. The boolean is false for unknown labels.
func LookupClassification(label string) (ClassificationInfo, bool) {
	info, ok := classificationMapping[foldLabel(label)]
	return info, ok
}

// ClassificationSeverity returns the severity for a label, or SeverityNeutral
// when the label is unknown.
func ClassificationSeverity(label string) Severity {
	if info, ok := LookupClassification(label); ok {
		return info.Severity
	}
	return SeverityNeutral
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// as SeverityNeutral.
func (s *Severity) UnmarshalText(text []byte) error {
	for lvl := SeverityFavorable; lvl <= SeverityCritical; lvl++ {
		if lvl.String() == string(text) {
			*s = lvl
			return nil
		}
	}
	*s = SeverityNeutral
	return nil
}
