package dossier

import (
	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

// Result is the typed reading of a capability output. The set of variants
// is closed; Synthesize switches over all of them.
type Result interface {
	isResult()
}

// VariantImpactResult is the output of variant_impact.
type VariantImpactResult struct {
	Score      *float64
	Label      *string
	Confidence *float64
}

// ConservationResult is the output of conservation.
type ConservationResult struct {
	PhyloP    *float64
	PhastCons *float64
	Conserved *bool
}

// DomainResult is the output of protein_domain.
type DomainResult struct {
	Domains  []string
	InDomain *bool
}

// EssentialityResult is the output of gene_essentiality.
type EssentialityResult struct {
	Score          *float64
	Classification *string
	CellLine       *string
}

// DrugResponseResult is the output of drug_response.
type DrugResponseResult struct {
	IC50     *float64
	AUC      *float64
	Response *string
}

// ExpressionResult is the output of expression_profile.
type ExpressionResult struct {
	Tissue *string
	TPM    *float64
	Level  *string
}

// UnknownResult is the output of a capability without a rule.
type UnknownResult struct {
	CapabilityID string
}

func (VariantImpactResult) isResult() {}
func (ConservationResult) isResult()  {}
func (DomainResult) isResult()        {}
func (EssentialityResult) isResult()  {}
func (DrugResponseResult) isResult()  {}
func (ExpressionResult) isResult()    {}
func (UnknownResult) isResult()       {}

// Decode reads output as the result variant of capabilityID. Fields that
// are missing or of the wrong type decode as nil.
func Decode(capabilityID string, output map[string]any) Result {
	switch capabilityID {
	case capability.IDVariantImpact:
		return VariantImpactResult{
			Score:      number(output, "score"),
			Label:      text(output, "label"),
			Confidence: number(output, "confidence"),
		}
	case capability.IDConservation:
		return ConservationResult{
			PhyloP:    number(output, "phylop"),
			PhastCons: number(output, "phastcons"),
			Conserved: flag(output, "conserved"),
		}
	case capability.IDProteinDomain:
		return DomainResult{
			Domains:  texts(output, "domains"),
			InDomain: flag(output, "inDomain"),
		}
	case capability.IDGeneEssentiality:
		return EssentialityResult{
			Score:          number(output, "score"),
			Classification: text(output, "classification"),
			CellLine:       text(output, "cellLine"),
		}
	case capability.IDDrugResponse:
		return DrugResponseResult{
			IC50:     number(output, "ic50"),
			AUC:      number(output, "auc"),
			Response: text(output, "response"),
		}
	case capability.IDExpressionProfile:
		return ExpressionResult{
			Tissue: text(output, "tissue"),
			TPM:    number(output, "tpm"),
			Level:  text(output, "level"),
		}
	default:
		return UnknownResult{CapabilityID: capabilityID}
	}
}

func number(m map[string]any, key string) *float64 {
	f, ok := model.Number(m[key])
	if !ok {
		return nil
	}
	return &f
}

func text(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func flag(m map[string]any, key string) *bool {
	b, ok := m[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func texts(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
