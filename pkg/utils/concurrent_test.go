package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSemaphoreGatherPreservesOrderAndIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	fns := []func() error{
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	}

	errs := SemaphoreGather(context.Background(), 2, fns...)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3", len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Errorf("sibling tasks failed: %v", errs)
	}
	if !errors.Is(errs[1], boom) {
		t.Errorf("errs[1] = %v, want boom", errs[1])
	}
}

func TestSemaphoreGatherRecoversPanics(t *testing.T) {
	errs := SemaphoreGather(context.Background(), 1,
		func() error { panic("bad edge") },
		func() error { return nil },
	)

	var pe *PanicError
	if !errors.As(errs[0], &pe) {
		t.Fatalf("errs[0] = %v, want PanicError", errs[0])
	}
	if errs[1] != nil {
		t.Errorf("panic in one task affected sibling: %v", errs[1])
	}
}

func TestExecuteWithResultsBoundsConcurrency(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	fns := make([]func() (int, error), 20)
	for i := range fns {
		i := i
		fns[i] = func() (int, error) {
			cur := inFlight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			defer inFlight.Add(-1)
			return i * 2, nil
		}
	}

	results, errs := ExecuteWithResults(context.Background(), limit, fns...)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("task %d failed: %v", i, err)
		}
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d; order not preserved", i, results[i], i*2)
		}
	}
	if peak.Load() > limit {
		t.Errorf("peak concurrency %d exceeded limit %d", peak.Load(), limit)
	}
}
