package usecase

import (
	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

// Built-in use case ids.
const (
	VariantTriage    = "variant-triage"
	TargetValidation = "target-validation"
	DrugSensitivity  = "drug-sensitivity"
)

// Builtins returns the built-in use cases.
func Builtins() []model.UseCase {
	return []model.UseCase{
		variantTriage(),
		targetValidation(),
		drugSensitivity(),
	}
}

func variantTriage() model.UseCase {
	return model.UseCase{
		ID:      VariantTriage,
		Name:    "Variant triage",
		Summary: "Grade a missense variant using conservation and domain context.",
		Seed: map[string]any{
			"gene":     "BRCA1",
			"variant":  "p.Cys61Gly",
			"position": 61,
		},
		ReportCapabilityID: capability.IDVariantImpact,
		Steps: []model.Step{
			{
				CapabilityID: capability.IDConservation,
				Title:        "Scoring cross-species conservation",
				BuildInput: func(v *model.View) (any, error) {
					return map[string]any{
						"gene":     v.SeedString("gene"),
						"position": v.SeedString("position"),
					}, nil
				},
			},
			{
				CapabilityID: capability.IDProteinDomain,
				Title:        "Mapping the position onto protein domains",
				BuildInput: func(v *model.View) (any, error) {
					return map[string]any{
						"gene":     v.SeedString("gene"),
						"position": v.SeedString("position"),
					}, nil
				},
			},
			{
				CapabilityID: capability.IDVariantImpact,
				Title:        "Predicting variant impact",
				Needs:        []string{capability.IDConservation, capability.IDProteinDomain},
				BuildInput: func(v *model.View) (any, error) {
					in := map[string]any{
						"gene":    v.SeedString("gene"),
						"variant": v.SeedString("variant"),
					}
					if c, ok := v.Field(capability.IDConservation, "phastcons"); ok {
						in["conservation"] = c
					}
					if d, ok := v.Field(capability.IDProteinDomain, "inDomain"); ok {
						in["inDomain"] = d
					}
					return in, nil
				},
			},
		},
	}
}

func targetValidation() model.UseCase {
	return model.UseCase{
		ID:      TargetValidation,
		Name:    "Target validation",
		Summary: "Check whether a gene is expressed and essential in a disease model.",
		Seed: map[string]any{
			"gene":     "KRAS",
			"tissue":   "lung",
			"cellLine": "A549",
		},
		ReportCapabilityID: capability.IDGeneEssentiality,
		Steps: []model.Step{
			{
				CapabilityID: capability.IDExpressionProfile,
				Title:        "Profiling tissue expression",
				BuildInput: func(v *model.View) (any, error) {
					return map[string]any{
						"gene":   v.SeedString("gene"),
						"tissue": v.SeedString("tissue"),
					}, nil
				},
			},
			{
				CapabilityID: capability.IDProteinDomain,
				Title:        "Annotating druggable domains",
				BuildInput: func(v *model.View) (any, error) {
					return map[string]any{"gene": v.SeedString("gene")}, nil
				},
			},
			{
				CapabilityID: capability.IDGeneEssentiality,
				Title:        "Measuring gene essentiality",
				Needs:        []string{capability.IDExpressionProfile},
				BuildInput: func(v *model.View) (any, error) {
					in := map[string]any{
						"gene":     v.SeedString("gene"),
						"cellLine": v.SeedString("cellLine"),
					}
					if lvl, ok := v.Field(capability.IDExpressionProfile, "level"); ok {
						in["expression"] = lvl
					}
					return in, nil
				},
			},
		},
	}
}

func drugSensitivity() model.UseCase {
	return model.UseCase{
		ID:      DrugSensitivity,
		Name:    "Drug sensitivity",
		Summary: "Predict how a cell line responds to a compound given its target's essentiality.",
		Seed: map[string]any{
			"drug":     "olaparib",
			"gene":     "PARP1",
			"cellLine": "MDA-MB-436",
		},
		ReportCapabilityID: capability.IDDrugResponse,
		Steps: []model.Step{
			{
				CapabilityID: capability.IDGeneEssentiality,
				Title:        "Measuring target essentiality",
				BuildInput: func(v *model.View) (any, error) {
					return map[string]any{
						"gene":     v.SeedString("gene"),
						"cellLine": v.SeedString("cellLine"),
					}, nil
				},
			},
			{
				CapabilityID: capability.IDDrugResponse,
				Title:        "Fitting dose response",
				Needs:        []string{capability.IDGeneEssentiality},
				BuildInput: func(v *model.View) (any, error) {
					in := map[string]any{
						"drug":     v.SeedString("drug"),
						"cellLine": v.SeedString("cellLine"),
					}
					if cls, ok := v.Field(capability.IDGeneEssentiality, "classification"); ok {
						in["essentiality"] = cls
					}
					return in, nil
				},
			},
		},
	}
}
