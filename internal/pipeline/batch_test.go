package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

func quietExecutor() *Executor {
	return New(WithLogger(quietLogger()))
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(quietExecutor, nil)

		if bp == nil {
			t.Fatal("expected non-nil processor")
		}
		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(quietExecutor, nil, WithConcurrency(5))

		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(quietExecutor, nil, WithConcurrency(0))

		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
	})
}

func batchUseCases(n int) []model.UseCase {
	ucs := make([]model.UseCase, n)
	for i := range ucs {
		uc := simpleUseCase("a", "b")
		uc.ID = fmt.Sprintf("uc-%d", i)
		uc.Seed = map[string]any{"i": i}
		ucs[i] = uc
	}
	return ucs
}

// TestBatchProcessorProcessBatch tests running several use cases.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns runs in input order", func(t *testing.T) {
		t.Parallel()

		echo := capability.NewFunc("a", func(_ context.Context, input any) (any, error) {
			return input, nil
		})
		reg := newRegistry(t, echo, (&callLog{}).adapter("b", 2))
		bp := NewBatchProcessor(quietExecutor, reg, WithConcurrency(3), WithBatchLogger(quietLogger()))

		ucs := batchUseCases(8)
		runs, err := bp.ProcessBatch(context.Background(), ucs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != len(ucs) {
			t.Fatalf("expected %d runs, got %d", len(ucs), len(runs))
		}

		for i, run := range runs {
			if run.UseCase().ID != ucs[i].ID {
				t.Errorf("run %d: expected use case %s, got %s", i, ucs[i].ID, run.UseCase().ID)
			}
			if run.State() != model.RunCompleted {
				t.Errorf("run %d: expected completed, got %s", i, run.State())
			}
			env, _ := run.Snapshot().Output("a")
			if env.Output["i"] != i {
				t.Errorf("run %d: contexts were shared, got output %v", i, env.Output)
			}
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var active, peak int32
		slow := capability.NewFunc("a", func(context.Context, any) (any, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, nil
		})
		reg := newRegistry(t, slow, (&callLog{}).adapter("b", 2))
		bp := NewBatchProcessor(quietExecutor, reg, WithConcurrency(2), WithBatchLogger(quietLogger()))

		if _, err := bp.ProcessBatch(context.Background(), batchUseCases(6)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&peak); got > 2 {
			t.Errorf("expected at most 2 concurrent runs, saw %d", got)
		}
	})

	t.Run("a failed run does not stop the others", func(t *testing.T) {
		t.Parallel()

		failing := capability.NewFunc("a", func(_ context.Context, input any) (any, error) {
			if in, _ := input.(map[string]any); in["i"] == 0 {
				return nil, errors.New("boom")
			}
			return 1, nil
		})
		reg := newRegistry(t, failing, (&callLog{}).adapter("b", 2))
		factory := func() *Executor {
			return New(WithLogger(quietLogger()), WithContinueOnError(false))
		}
		bp := NewBatchProcessor(factory, reg, WithBatchLogger(quietLogger()))

		runs, err := bp.ProcessBatch(context.Background(), batchUseCases(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runs[0].State() != model.RunFailed {
			t.Errorf("expected first run failed, got %s", runs[0].State())
		}
		for _, run := range runs[1:] {
			if run.State() != model.RunCompleted {
				t.Errorf("expected completed, got %s", run.State())
			}
		}
	})

	t.Run("cancelled context cancels every run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reg := newRegistry(t, (&callLog{}).adapter("a", 1), (&callLog{}).adapter("b", 2))
		bp := NewBatchProcessor(quietExecutor, reg, WithBatchLogger(quietLogger()))

		runs, err := bp.ProcessBatch(ctx, batchUseCases(3))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for i, run := range runs {
			if run.State() != model.RunCancelled {
				t.Errorf("run %d: expected cancelled, got %s", i, run.State())
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests per-run callbacks.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, (&callLog{}).adapter("a", 1), (&callLog{}).adapter("b", 2))
	bp := NewBatchProcessor(quietExecutor, reg, WithConcurrency(2), WithBatchLogger(quietLogger()))

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), batchUseCases(5), func(run *Run, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.UseCase().ID
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 callbacks, got %d", len(seen))
	}
	for i := range 5 {
		if want := fmt.Sprintf("uc-%d", i); seen[i] != want {
			t.Errorf("index %d: expected %s, got %s", i, want, seen[i])
		}
	}
}
