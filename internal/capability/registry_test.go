package capability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/dossiersim/internal/model"
)

func constant(id string, v any) *Func {
	return NewFunc(id, func(context.Context, any) (any, error) {
		return v, nil
	})
}

func quietRegistry() *Registry {
	return NewRegistry(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// TestRegistryRegister tests adapter registration.
func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicates", func(t *testing.T) {
		t.Parallel()

		r := quietRegistry()
		if err := r.Register(constant("a", 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := r.Register(constant("a", 2))
		if !errors.Is(err, ErrDuplicateCapability) {
			t.Fatalf("expected ErrDuplicateCapability, got %v", err)
		}

		var capErr *Error
		if !errors.As(err, &capErr) || capErr.CapabilityID != "a" {
			t.Errorf("expected *Error for capability a, got %v", err)
		}
	})

	t.Run("rejects invalid adapters", func(t *testing.T) {
		t.Parallel()

		r := quietRegistry()
		if err := r.Register(nil); !errors.Is(err, ErrInvalidAdapter) {
			t.Errorf("expected ErrInvalidAdapter for nil, got %v", err)
		}
		if err := r.Register(constant("", 1)); !errors.Is(err, ErrInvalidAdapter) {
			t.Errorf("expected ErrInvalidAdapter for empty id, got %v", err)
		}
	})

	t.Run("live and simulated are separate", func(t *testing.T) {
		t.Parallel()

		r := quietRegistry()
		if err := r.Register(constant("a", "sim")); err != nil {
			t.Fatal(err)
		}
		if err := r.RegisterLive(constant("a", "live")); err != nil {
			t.Fatal(err)
		}
		if !r.IsLive("a") {
			t.Error("expected a live adapter for a")
		}
	})
}

// TestRegistryLookup tests adapter dispatch by mode.
func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := quietRegistry()
	_ = r.Register(constant("sim-only", "sim"))
	_ = r.Register(constant("both", "sim"))
	_ = r.RegisterLive(constant("both", "live"))

	testCases := []struct {
		name     string
		id       string
		mode     model.Mode
		expected any
		err      error
	}{
		{"simulate", "both", model.ModeSimulate, "sim", nil},
		{"live", "both", model.ModeLive, "live", nil},
		{"live falls back to simulated", "sim-only", model.ModeLive, "sim", nil},
		{"missing", "nope", model.ModeSimulate, nil, ErrCapabilityNotRegistered},
		{"missing live", "nope", model.ModeLive, nil, ErrCapabilityNotRegistered},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := r.Lookup(tc.id, tc.mode)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, _ := a.Invoke(context.Background(), nil)
			if got != tc.expected {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestRegistryDisable tests that disabled capabilities are not dispatched.
func TestRegistryDisable(t *testing.T) {
	t.Parallel()

	r := quietRegistry()
	_ = r.Register(constant("a", 1))
	_ = r.Register(constant("b", 2))
	r.Disable("a")

	if _, err := r.Lookup("a", model.ModeSimulate); !errors.Is(err, ErrCapabilityNotRegistered) {
		t.Errorf("expected ErrCapabilityNotRegistered, got %v", err)
	}
	if r.Has("a") {
		t.Error("disabled capability should not be reported")
	}
	if diff := cmp.Diff([]string{"b"}, r.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

// TestRegisterBuiltins tests the built-in adapter set.
func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()

	r := quietRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		IDConservation,
		IDDrugResponse,
		IDExpressionProfile,
		IDGeneEssentiality,
		IDProteinDomain,
		IDVariantImpact,
	}
	if diff := cmp.Diff(expected, r.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	if err := RegisterBuiltins(r); !errors.Is(err, ErrDuplicateCapability) {
		t.Errorf("expected duplicate error on second registration, got %v", err)
	}
}

// TestFailure tests wrapping of adapter errors.
func TestFailure(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	err := Failure("x", base)

	if !errors.Is(err, ErrCapabilityFailure) {
		t.Error("expected ErrCapabilityFailure")
	}
	if !errors.Is(err, base) {
		t.Error("expected the original error to be preserved")
	}
	if err.Error() != "capability x: capability failure: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
