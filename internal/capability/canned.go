package capability

import (
	"context"
	"fmt"
	"math"

	"github.com/nao1215/dossiersim/internal/model"
)

// Built-in capability ids.
const (
	IDConservation      = "conservation"
	IDProteinDomain     = "protein_domain"
	IDVariantImpact     = "variant_impact"
	IDExpressionProfile = "expression_profile"
	IDGeneEssentiality  = "gene_essentiality"
	IDDrugResponse      = "drug_response"
)

// Builtins returns the canned adapters for every built-in capability.
func Builtins() []Adapter {
	return []Adapter{
		NewFunc(IDConservation, conservation),
		NewFunc(IDProteinDomain, proteinDomain),
		NewFunc(IDVariantImpact, variantImpact),
		NewFunc(IDExpressionProfile, expressionProfile),
		NewFunc(IDGeneEssentiality, geneEssentiality),
		NewFunc(IDDrugResponse, drugResponse),
	}
}

// RegisterBuiltins registers the canned adapters with r.
func RegisterBuiltins(r *Registry) error {
	for _, a := range Builtins() {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

var domainCatalog = []string{
	"Protein kinase",
	"BRCT",
	"RING-type zinc finger",
	"SH2",
	"DNA-binding",
	"Helicase C-terminal",
}

var motifCatalog = []string{
	"nuclear localization signal",
	"phosphodegron",
	"PDZ-binding motif",
	"ATP-binding P-loop",
}

var tissueCatalog = []string{
	"breast",
	"lung",
	"liver",
	"colon",
	"brain",
	"whole blood",
}

func conservation(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDConservation, m)

	phylop := round(-2+10*d.unit(0), 2)
	phastcons := round(d.unit(1), 3)
	conserved := phastcons >= 0.6

	insight := "position shows weak cross-species conservation"
	if conserved {
		insight = "position is conserved across vertebrates"
	}

	return model.Envelope{
		Input:  input,
		Output: map[string]any{"phylop": phylop, "phastcons": phastcons, "conserved": conserved},
		ProcessingSteps: []model.ProcessingStep{
			{Name: "alignment lookup", Description: "fetch the 100-way vertebrate alignment column", DurationMs: d.millis(2, 80, 120)},
			{Name: "score aggregation", Description: "combine phyloP and phastCons scores", DurationMs: d.millis(3, 20, 40)},
		},
		Insights:   []string{insight},
		Evidence:   &model.Evidence{Conservation: &phastcons, Tags: []string{"phyloP", "phastCons"}},
		Provenance: model.ProvenanceCore,
	}, nil
}

func proteinDomain(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDProteinDomain, m)

	n := d.pick(0, 3)
	domains := make([]string, 0, n)
	for i := range n {
		domains = append(domains, domainCatalog[(d.pick(1, len(domainCatalog))+i)%len(domainCatalog)])
	}
	inDomain := n > 0 && d.unit(2) > 0.3

	var motifs []string
	if d.unit(3) > 0.5 {
		motifs = []string{motifCatalog[d.pick(3, len(motifCatalog))]}
	}

	insights := []string{fmt.Sprintf("%d annotated domain(s) on the protein", n)}
	if inDomain {
		insights = append(insights, "position falls inside an annotated domain")
	}

	return model.Envelope{
		Input:  input,
		Output: map[string]any{"domains": domains, "inDomain": inDomain},
		ProcessingSteps: []model.ProcessingStep{
			{Name: "domain scan", Description: "match the sequence against domain profiles", DurationMs: d.millis(0, 150, 200)},
			{Name: "position mapping", Description: "map the variant position onto domain boundaries", DurationMs: d.millis(1, 10, 30)},
		},
		Insights:   insights,
		Evidence:   &model.Evidence{DomainHits: domains, MotifHits: motifs},
		Provenance: model.ProvenanceCore,
	}, nil
}

// variantLabel grades an impact score on the five-tier scale.
func variantLabel(score float64) string {
	switch {
	case score >= 0.8:
		return "Pathogenic"
	case score >= 0.6:
		return "Likely pathogenic"
	case score >= 0.4:
		return "VUS"
	case score >= 0.2:
		return "Likely benign"
	default:
		return "Benign"
	}
}

func variantImpact(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDVariantImpact, m)

	score := 0.6 * d.unit(0)
	provenance := model.ProvenanceCore
	evidence := &model.Evidence{Tags: []string{"ensemble predictor"}}
	details := []string{}

	if c, ok := numberField(m, "conservation"); ok {
		score += 0.25 * clamp01(c)
		evidence.Conservation = &c
		provenance = model.ProvenanceAugmented
		details = append(details, fmt.Sprintf("conservation hint %.3f", c))
	}
	if in, ok := boolField(m, "inDomain"); ok {
		provenance = model.ProvenanceAugmented
		if in {
			score += 0.15
		}
		details = append(details, fmt.Sprintf("in domain: %t", in))
	}
	score = round(clamp01(score), 3)
	label := variantLabel(score)
	confidence := round(0.5+0.5*d.unit(1), 2)

	return model.Envelope{
		Input: input,
		Output: map[string]any{
			"score":      score,
			"label":      label,
			"confidence": confidence,
		},
		ProcessingSteps: []model.ProcessingStep{
			{Name: "feature assembly", Description: "collect sequence and structural features", DurationMs: d.millis(2, 40, 60), Details: details},
			{Name: "impact prediction", Description: "score the variant with the ensemble model", DurationMs: d.millis(3, 200, 300)},
		},
		Insights:   []string{fmt.Sprintf("predicted %s (score %.3f)", label, score)},
		Evidence:   evidence,
		Provenance: provenance,
	}, nil
}

// expressionProfile returns a bare record rather than an envelope.
func expressionProfile(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDExpressionProfile, m)

	tissue := stringField(m, "tissue", tissueCatalog[d.pick(0, len(tissueCatalog))])
	tpm := round(250*d.unit(1), 1)

	level := "low"
	switch {
	case tpm > 100:
		level = "high"
	case tpm > 10:
		level = "medium"
	}

	return map[string]any{"tissue": tissue, "tpm": tpm, "level": level}, nil
}

func geneEssentiality(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDGeneEssentiality, m)

	score := round(-2+2.5*d.unit(0), 3)
	cellLine := stringField(m, "cellLine", "HAP1")

	classification := "Non-essential"
	switch {
	case score <= -1:
		classification = "Essential"
	case score <= -0.5:
		classification = "Selective"
	}

	return model.Envelope{
		Input: input,
		Output: map[string]any{
			"score":          score,
			"classification": classification,
			"cellLine":       cellLine,
		},
		ProcessingSteps: []model.ProcessingStep{
			{Name: "screen lookup", Description: "read CRISPR knockout effects for the cell line", DurationMs: d.millis(1, 60, 90)},
		},
		Insights:   []string{fmt.Sprintf("%s in %s (effect %.3f)", classification, cellLine, score)},
		Evidence:   &model.Evidence{Benchmarks: []string{"genome-wide CRISPR screen"}},
		Provenance: model.ProvenanceCore,
	}, nil
}

func drugResponse(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := inputMap(input)
	d := digestOf(IDDrugResponse, m)

	// IC50 in micromolar, log-uniform between 0.01 and 100.
	ic50 := round(0.01*math.Pow(10, 4*d.unit(0)), 3)
	auc := round(d.unit(1), 3)

	response := "Resistant"
	switch {
	case ic50 < 1:
		response = "Sensitive"
	case ic50 < 10:
		response = "Intermediate"
	}

	notes := []string{}
	if essential := stringField(m, "essentiality", ""); essential != "" {
		notes = append(notes, "target essentiality: "+essential)
	}

	return model.Envelope{
		Input: input,
		Output: map[string]any{
			"ic50":     ic50,
			"auc":      auc,
			"response": response,
		},
		ProcessingSteps: []model.ProcessingStep{
			{Name: "dose-response fit", Description: "fit a four-parameter logistic curve", DurationMs: d.millis(2, 100, 150)},
			{Name: "response call", Description: "classify the fitted IC50", DurationMs: d.millis(3, 5, 15)},
		},
		Insights:   []string{fmt.Sprintf("IC50 %.3f uM, %s", ic50, response)},
		Evidence:   &model.Evidence{Notes: notes},
		Provenance: model.ProvenanceCore,
	}, nil
}
