package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

func steps(ids ...string) []model.Step {
	out := make([]model.Step, len(ids))
	for i, id := range ids {
		out[i] = model.Step{CapabilityID: id, Title: id}
	}
	return out
}

// TestValidate tests the static checks applied at registration.
func TestValidate(t *testing.T) {
	t.Parallel()

	forward := steps("a", "b", "c")
	forward[0].Needs = []string{"c"}

	self := steps("a", "b")
	self[1].Needs = []string{"b"}

	backward := steps("a", "b", "c")
	backward[2].Needs = []string{"a", "b"}

	testCases := []struct {
		name string
		uc   model.UseCase
		err  error
	}{
		{
			name: "valid",
			uc:   model.UseCase{ID: "ok", Steps: backward, ReportCapabilityID: "c"},
		},
		{
			name: "missing id",
			uc:   model.UseCase{Steps: steps("a"), ReportCapabilityID: "a"},
			err:  ErrMissingID,
		},
		{
			name: "no steps",
			uc:   model.UseCase{ID: "x", ReportCapabilityID: "a"},
			err:  ErrEmptyUseCase,
		},
		{
			name: "forward reference",
			uc:   model.UseCase{ID: "x", Steps: forward, ReportCapabilityID: "a"},
			err:  ErrInvalidStepOrdering,
		},
		{
			name: "self reference",
			uc:   model.UseCase{ID: "x", Steps: self, ReportCapabilityID: "a"},
			err:  ErrInvalidStepOrdering,
		},
		{
			name: "duplicate capability",
			uc:   model.UseCase{ID: "x", Steps: steps("a", "b", "a"), ReportCapabilityID: "a"},
			err:  ErrDuplicateCapability,
		},
		{
			name: "report capability not a step",
			uc:   model.UseCase{ID: "x", Steps: steps("a", "b"), ReportCapabilityID: "z"},
			err:  ErrReportCapabilityMissing,
		},
		{
			name: "empty step id",
			uc:   model.UseCase{ID: "x", Steps: steps("a", ""), ReportCapabilityID: "a"},
			err:  ErrMissingID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tc.uc)
			if tc.err == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			var defErr *DefinitionError
			if !errors.As(err, &defErr) {
				t.Fatalf("expected *DefinitionError, got %T", err)
			}
		})
	}
}

// TestValidateReportsStep tests that ordering errors name the offending step.
func TestValidateReportsStep(t *testing.T) {
	t.Parallel()

	s := steps("a", "b")
	s[0].Needs = []string{"b"}

	var defErr *DefinitionError
	if !errors.As(Validate(model.UseCase{ID: "x", Steps: s, ReportCapabilityID: "a"}), &defErr) {
		t.Fatal("expected *DefinitionError")
	}
	if defErr.StepIndex != 0 || defErr.CapabilityID != "a" {
		t.Errorf("expected step 0 (a), got step %d (%s)", defErr.StepIndex, defErr.CapabilityID)
	}
	if !strings.Contains(defErr.Error(), `needs "b"`) {
		t.Errorf("expected message to name the need, got %q", defErr.Error())
	}
}

// TestCatalog tests registration and lookup.
func TestCatalog(t *testing.T) {
	t.Parallel()

	t.Run("registers in order", func(t *testing.T) {
		t.Parallel()

		c := NewCatalog()
		for _, id := range []string{"z", "a", "m"} {
			if err := c.Register(model.UseCase{ID: id, Steps: steps("s"), ReportCapabilityID: "s"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if diff := cmp.Diff([]string{"z", "a", "m"}, c.IDs()); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		t.Parallel()

		c := NewCatalog()
		uc := model.UseCase{ID: "x", Steps: steps("s"), ReportCapabilityID: "s"}
		_ = c.Register(uc)
		if err := c.Register(uc); !errors.Is(err, ErrUseCaseExists) {
			t.Errorf("expected ErrUseCaseExists, got %v", err)
		}
	})

	t.Run("rejects invalid use cases", func(t *testing.T) {
		t.Parallel()

		c := NewCatalog()
		if err := c.Register(model.UseCase{ID: "x", Steps: steps("s"), ReportCapabilityID: "t"}); err == nil {
			t.Error("expected validation error")
		}
		if c.Len() != 0 {
			t.Errorf("expected empty catalog, got %d", c.Len())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		if _, err := NewCatalog().Get("nope"); !errors.Is(err, ErrUnknownUseCase) {
			t.Errorf("expected ErrUnknownUseCase, got %v", err)
		}
	})
}

// TestBuiltins tests that every built-in use case is valid and runnable by
// the built-in adapters.
func TestBuiltins(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	if diff := cmp.Diff([]string{VariantTriage, TargetValidation, DrugSensitivity}, c.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	known := make(map[string]bool)
	for _, a := range capability.Builtins() {
		known[a.ID()] = true
	}

	for _, uc := range c.List() {
		for _, step := range uc.Steps {
			if !known[step.CapabilityID] {
				t.Errorf("%s: step %s has no built-in adapter", uc.ID, step.CapabilityID)
			}
			if step.BuildInput == nil {
				continue
			}
			// Builders must cope with an empty context.
			if _, err := step.BuildInput(model.NewRunContext(uc.Seed).View(step.Needs)); err != nil {
				t.Errorf("%s: step %s builder failed: %v", uc.ID, step.CapabilityID, err)
			}
		}
	}
}
