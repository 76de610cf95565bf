package usecase

import (
	"fmt"

	"github.com/nao1215/dossiersim/internal/model"
)

// Validate checks the static structure of a use case and returns the first
// problem found as a *DefinitionError.
func Validate(uc model.UseCase) error {
	if uc.ID == "" {
		return &DefinitionError{StepIndex: -1, Err: ErrMissingID}
	}
	if len(uc.Steps) == 0 {
		return &DefinitionError{UseCaseID: uc.ID, StepIndex: -1, Err: ErrEmptyUseCase}
	}

	seen := make(map[string]int, len(uc.Steps))
	for i, step := range uc.Steps {
		if step.CapabilityID == "" {
			return &DefinitionError{UseCaseID: uc.ID, StepIndex: i, Err: ErrMissingID}
		}
		if first, dup := seen[step.CapabilityID]; dup {
			return &DefinitionError{
				UseCaseID:    uc.ID,
				StepIndex:    i,
				CapabilityID: step.CapabilityID,
				Err:          fmt.Errorf("%w: also used by step %d", ErrDuplicateCapability, first),
			}
		}
		for _, need := range step.Needs {
			if _, ok := seen[need]; !ok {
				return &DefinitionError{
					UseCaseID:    uc.ID,
					StepIndex:    i,
					CapabilityID: step.CapabilityID,
					Err:          fmt.Errorf("%w: needs %q, which is not an earlier step", ErrInvalidStepOrdering, need),
				}
			}
		}
		seen[step.CapabilityID] = i
	}

	if _, ok := seen[uc.ReportCapabilityID]; !ok {
		return &DefinitionError{
			UseCaseID:    uc.ID,
			StepIndex:    -1,
			CapabilityID: uc.ReportCapabilityID,
			Err:          fmt.Errorf("%w: %q", ErrReportCapabilityMissing, uc.ReportCapabilityID),
		}
	}
	return nil
}
