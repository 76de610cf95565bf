package dossier

import (
	"sort"
	"sync"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

// Templates holds the base dossier of each report capability. Lookups
// return copies, so callers may modify what they get.
type Templates struct {
	mu       sync.RWMutex
	byID     map[string]model.Dossier
	fallback model.Dossier
}

// NewTemplates creates an empty registry whose lookups return fallback.
func NewTemplates(fallback model.Dossier) *Templates {
	return &Templates{
		byID:     make(map[string]model.Dossier),
		fallback: fallback.Clone(),
	}
}

// DefaultTemplates returns a registry holding the built-in templates.
func DefaultTemplates() *Templates {
	t := NewTemplates(genericTemplate())
	for id, d := range builtinTemplates() {
		t.Register(id, d)
	}
	return t
}

// Register sets the base template for capabilityID, replacing any earlier one.
func (t *Templates) Register(capabilityID string, d model.Dossier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[capabilityID] = d.Clone()
}

// Lookup returns a copy of the template for capabilityID, or of the
// fallback when none is registered.
func (t *Templates) Lookup(capabilityID string) model.Dossier {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if d, ok := t.byID[capabilityID]; ok {
		return d.Clone()
	}
	return t.fallback.Clone()
}

// Has reports whether a template is registered for capabilityID.
func (t *Templates) Has(capabilityID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byID[capabilityID]
	return ok
}

// IDs returns the sorted capability ids with a registered template.
func (t *Templates) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func genericTemplate() model.Dossier {
	return model.Dossier{
		SubjectID:      "unknown subject",
		Status:         "Analysis complete",
		StatusSeverity: model.SeverityNeutral,
		Checkpoints:    []model.Checkpoint{},
		Description:    "Summary of the final analysis step.",
		KeyFindings:    []string{},
	}
}

func builtinTemplates() map[string]model.Dossier {
	return map[string]model.Dossier{
		capability.IDVariantImpact: {
			SubjectID:      "unnamed variant",
			Status:         "Variant assessed",
			StatusSeverity: model.SeverityNeutral,
			Checkpoints: []model.Checkpoint{
				{Label: "Variant normalized", Severity: model.SeverityFavorable, Detail: "HGVS notation validated"},
			},
			Description:     "Predicted functional impact of a coding variant, combining sequence conservation and protein domain context.",
			KeyFindings:     []string{},
			DomainRelevance: "Clinical variant interpretation",
			NextSteps: []model.NextStep{
				{Label: "Review population frequency", ActionID: "review-frequency"},
				{Label: "Export for tumor board", ActionID: "export-report"},
			},
		},
		capability.IDConservation: {
			SubjectID:      "unnamed position",
			Status:         "Conservation profiled",
			StatusSeverity: model.SeverityNeutral,
			Checkpoints:    []model.Checkpoint{},
			Description:    "Cross-species conservation of a genomic position.",
			KeyFindings:    []string{},
		},
		capability.IDProteinDomain: {
			SubjectID:      "unnamed protein",
			Status:         "Domains annotated",
			StatusSeverity: model.SeverityNeutral,
			Checkpoints:    []model.Checkpoint{},
			Description:    "Protein domain and motif annotation.",
			KeyFindings:    []string{},
		},
		capability.IDGeneEssentiality: {
			SubjectID:      "unnamed gene",
			Status:         "Essentiality measured",
			StatusSeverity: model.SeverityNeutral,
			Checkpoints: []model.Checkpoint{
				{Label: "Screen quality", Severity: model.SeverityFavorable, Detail: "Screen passed quality control"},
			},
			Description:     "Dependency of a cell line on a candidate target gene.",
			KeyFindings:     []string{},
			DomainRelevance: "Target discovery",
			NextSteps: []model.NextStep{
				{Label: "Check tractability", ActionID: "check-tractability"},
			},
		},
		capability.IDDrugResponse: {
			SubjectID:       "unnamed compound",
			Status:          "Response predicted",
			StatusSeverity:  model.SeverityNeutral,
			Checkpoints:     []model.Checkpoint{},
			Description:     "Predicted dose response of a cell line to a compound.",
			KeyFindings:     []string{},
			DomainRelevance: "Precision oncology",
			NextSteps: []model.NextStep{
				{Label: "Compare with standard of care", ActionID: "compare-soc"},
			},
		},
		capability.IDExpressionProfile: {
			SubjectID:      "unnamed gene",
			Status:         "Expression profiled",
			StatusSeverity: model.SeverityNeutral,
			Checkpoints:    []model.Checkpoint{},
			Description:    "Tissue expression of a gene.",
			KeyFindings:    []string{},
		},
	}
}
