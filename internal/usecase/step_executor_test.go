package usecase

import (
	"context"
	"errors"
	"testing"

	"scripture-export-service/internal/domain/ports/repository"
)

func newTestExecutor(ledger *memLedger) (*StepExecutor, *memTxManager) {
	txm := &memTxManager{}
	return NewStepExecutor(ledger, txm, testLogger()), txm
}

func TestStepExecutorRunsWorkOnce(t *testing.T) {
	ledger := newMemLedger()
	exec, txm := newTestExecutor(ledger)
	ctx := context.Background()

	calls := 0
	work := func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		calls++
		return []byte("result"), nil
	}

	got, err := exec.Run(ctx, "wf-1", "initialize", work)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if string(got) != "result" {
		t.Fatalf("first run result = %q", got)
	}

	got, err = exec.Run(ctx, "wf-1", "initialize", work)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if string(got) != "result" {
		t.Fatalf("replayed result = %q", got)
	}
	if calls != 1 {
		t.Fatalf("work ran %d times, want 1", calls)
	}
	if txm.calls != 1 {
		t.Fatalf("transaction opened %d times, want 1 (replay must not open one)", txm.calls)
	}
}

func TestStepExecutorScopesByStepAndWorkflow(t *testing.T) {
	ledger := newMemLedger()
	exec, _ := newTestExecutor(ledger)
	ctx := context.Background()

	calls := 0
	work := func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		calls++
		return nil, nil
	}

	if _, err := exec.Run(ctx, "wf-1", "initialize", work); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.Run(ctx, "wf-1", "generate_zip", work); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.Run(ctx, "wf-2", "initialize", work); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Fatalf("work ran %d times, want 3", calls)
	}
}

func TestStepExecutorFailureAllowsRetry(t *testing.T) {
	ledger := newMemLedger()
	exec, _ := newTestExecutor(ledger)
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	work := func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []byte("ok"), nil
	}

	if _, err := exec.Run(ctx, "wf-1", "generate_zip", work); !errors.Is(err, boom) {
		t.Fatalf("first run err = %v, want boom unchanged", err)
	}

	got, err := exec.Run(ctx, "wf-1", "generate_zip", work)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if string(got) != "ok" || calls != 2 {
		t.Fatalf("retry result = %q, calls = %d", got, calls)
	}
}

func TestStepExecutorLedgerErrorsSurface(t *testing.T) {
	ledger := newMemLedger()
	ledger.findErr = errors.New("storage down")
	exec, _ := newTestExecutor(ledger)

	_, err := exec.Run(context.Background(), "wf-1", "initialize", func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		t.Fatal("work must not run when the ledger is unreadable")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestStepExecutorRecordFailureSurfaces(t *testing.T) {
	ledger := newMemLedger()
	ledger.recordErr = errors.New("write failed")
	exec, _ := newTestExecutor(ledger)

	_, err := exec.Run(context.Background(), "wf-1", "initialize", func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		return []byte("x"), nil
	})
	if err == nil {
		t.Fatal("expected an error when completion cannot be recorded")
	}
}
