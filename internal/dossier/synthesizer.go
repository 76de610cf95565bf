package dossier

import (
	"fmt"
	"strings"

	"github.com/nao1215/dossiersim/internal/model"
)

// Synthesizer builds dossiers from the templates it was given.
type Synthesizer struct {
	templates *Templates
}

// New creates a Synthesizer. A nil registry uses DefaultTemplates.
func New(templates *Templates) *Synthesizer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Synthesizer{templates: templates}
}

// Synthesize looks up the base template for capabilityID and applies the
// capability's rule to env.
func (s *Synthesizer) Synthesize(capabilityID string, env model.Envelope, params map[string]any) model.Dossier {
	return Synthesize(capabilityID, env, params, s.templates.Lookup(capabilityID))
}

// Synthesize builds a dossier from a copy of base. It does not modify its
// arguments, and equal arguments always give equal dossiers.
func Synthesize(capabilityID string, env model.Envelope, params map[string]any, base model.Dossier) model.Dossier {
	d := base.Clone()
	if subject := subjectID(params); subject != "" {
		d.SubjectID = subject
	}

	switch r := Decode(capabilityID, env.Output).(type) {
	case VariantImpactResult:
		applyVariantImpact(&d, r, env.Evidence)
	case ConservationResult:
		applyConservation(&d, r)
	case DomainResult:
		applyDomain(&d, r)
	case EssentialityResult:
		applyEssentiality(&d, r)
	case DrugResponseResult:
		applyDrugResponse(&d, r)
	case ExpressionResult:
		applyExpression(&d, r)
	case UnknownResult:
	}

	switch {
	case env.Failed:
		applyFailure(&d, capabilityID, env.ErrorMessage())
	case env.Degraded:
		applyDegraded(&d, capabilityID)
	}
	return d
}

// applyFailure replaces the template status so a failed report step is not
// read as an assessment.
func applyFailure(d *model.Dossier, capabilityID, msg string) {
	if msg == "" {
		msg = "unknown error"
	}
	d.Status = fmt.Sprintf("Assessment incomplete: %s failed", capabilityID)
	d.StatusSeverity = d.StatusSeverity.Worse(model.SeverityUnfavorable)
	d.Checkpoints = append(d.Checkpoints, model.Checkpoint{
		Label:    "Report step failed",
		Severity: model.SeverityUnfavorable,
		Detail:   msg,
	})
	d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Step %s failed: %s.", capabilityID, msg))
}

func applyDegraded(d *model.Dossier, capabilityID string) {
	d.Checkpoints = append(d.Checkpoints, model.Checkpoint{
		Label:    "Report step simulated",
		Severity: model.SeverityUncertain,
		Detail:   "no adapter available for " + capabilityID,
	})
	d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Step %s ran without an adapter; results are placeholders.", capabilityID))
}

// subjectID picks the subject from the run parameters: an explicit
// subjectId, then "gene variant", then the drug, gene or cell line.
func subjectID(params map[string]any) string {
	get := func(key string) string {
		if s, ok := params[key].(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	if s := get("subjectId"); s != "" {
		return s
	}
	gene, variant := get("gene"), get("variant")
	if gene != "" && variant != "" {
		return gene + " " + variant
	}
	for _, key := range []string{"drug", "gene", "cellLine"} {
		if s := get(key); s != "" {
			return s
		}
	}
	return ""
}

// applyLabel records a classification checkpoint and, for known labels,
// sets the status from the label.
func applyLabel(d *model.Dossier, checkpoint, label string) {
	info, known := model.LookupClassification(label)
	if !known {
		d.Checkpoints = append(d.Checkpoints, model.Checkpoint{
			Label:    checkpoint,
			Severity: model.SeverityNeutral,
			Detail:   label,
		})
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Classified as %s.", label))
		return
	}

	d.Checkpoints = append(d.Checkpoints, model.Checkpoint{
		Label:    checkpoint,
		Severity: info.Severity,
		Detail:   label,
	})
	d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Classified as %s: %s.", label, info.Meaning))
	d.Status = info.Status
	d.StatusSeverity = info.Severity
}

func applyVariantImpact(d *model.Dossier, r VariantImpactResult, ev *model.Evidence) {
	if r.Label != nil {
		applyLabel(d, "Impact classification", *r.Label)
	}
	if r.Score != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Impact score %.3f.", *r.Score))
	}
	if r.Confidence != nil {
		sev := model.SeverityFavorable
		if *r.Confidence < 0.6 {
			sev = model.SeverityUncertain
		}
		d.Checkpoints = append(d.Checkpoints, model.Checkpoint{
			Label:    "Prediction confidence",
			Severity: sev,
			Detail:   fmt.Sprintf("%.2f", *r.Confidence),
		})
	}
	if ev != nil && ev.Conservation != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Conservation evidence %.3f supports the prediction.", *ev.Conservation))
	}
	if d.StatusSeverity == model.SeverityCritical {
		d.NextSteps = append(d.NextSteps, model.NextStep{Label: "Order confirmatory testing", ActionID: "confirm-variant"})
	}
}

func applyConservation(d *model.Dossier, r ConservationResult) {
	if r.Conserved != nil {
		cp := model.Checkpoint{Label: "Cross-species conservation", Severity: model.SeverityFavorable, Detail: "not conserved"}
		if *r.Conserved {
			cp.Severity = model.SeverityUnfavorable
			cp.Detail = "conserved"
		}
		d.Checkpoints = append(d.Checkpoints, cp)
	}
	if r.PhastCons != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("phastCons %.3f.", *r.PhastCons))
	}
	if r.PhyloP != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("phyloP %.2f.", *r.PhyloP))
	}
}

func applyDomain(d *model.Dossier, r DomainResult) {
	if len(r.Domains) > 0 {
		d.KeyFindings = append(d.KeyFindings, "Annotated domains: "+strings.Join(r.Domains, ", ")+".")
		d.DomainRelevance = "Overlaps " + strings.Join(r.Domains, ", ")
	}
	if r.InDomain != nil {
		cp := model.Checkpoint{Label: "Position in domain", Severity: model.SeverityFavorable, Detail: "outside annotated domains"}
		if *r.InDomain {
			cp.Severity = model.SeverityUnfavorable
			cp.Detail = "inside an annotated domain"
		}
		d.Checkpoints = append(d.Checkpoints, cp)
	}
}

func applyEssentiality(d *model.Dossier, r EssentialityResult) {
	if r.Classification != nil {
		applyLabel(d, "Essentiality", *r.Classification)
	}
	if r.Score != nil {
		where := ""
		if r.CellLine != nil {
			where = " in " + *r.CellLine
		}
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Knockout effect %.3f%s.", *r.Score, where))
	}
}

func applyDrugResponse(d *model.Dossier, r DrugResponseResult) {
	if r.Response != nil {
		applyLabel(d, "Drug response", *r.Response)
	}
	if r.IC50 != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("IC50 %.3f uM.", *r.IC50))
	}
	if r.AUC != nil {
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Area under the dose-response curve %.3f.", *r.AUC))
	}
}

func applyExpression(d *model.Dossier, r ExpressionResult) {
	if r.Level != nil {
		sev := model.SeverityNeutral
		switch *r.Level {
		case "high":
			sev = model.SeverityFavorable
		case "low":
			sev = model.SeverityUnfavorable
		}
		d.Checkpoints = append(d.Checkpoints, model.Checkpoint{Label: "Expression level", Severity: sev, Detail: *r.Level})
	}
	if r.TPM != nil {
		tissue := ""
		if r.Tissue != nil {
			tissue = " in " + *r.Tissue
		}
		d.KeyFindings = append(d.KeyFindings, fmt.Sprintf("Expressed at %.1f TPM%s.", *r.TPM, tissue))
	}
}
