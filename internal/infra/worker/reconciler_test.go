package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/repository"
)

type staleJobRepo struct {
	mu    sync.Mutex
	stale []*model.ExportJob
}

func (r *staleJobRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, job *model.ExportJob) error {
	return nil
}

func (r *staleJobRepo) Update(ctx context.Context, tx repository.Tx, workflowID string, upd repository.ExportJobUpdate) error {
	return nil
}

func (r *staleJobRepo) Find(ctx context.Context, tx repository.Tx, workflowID string) (*model.ExportJob, error) {
	return nil, domain.ErrNotFound
}

func (r *staleJobRepo) FindStale(ctx context.Context, tx repository.Tx, olderThan time.Duration, limit int) ([]*model.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stale
	r.stale = nil
	return out, nil
}

func TestReconcilerResumesStaleRuns(t *testing.T) {
	repo := &staleJobRepo{stale: []*model.ExportJob{
		{WorkflowID: "wf1", ProjectUnitID: 6, Status: model.ExportJobStatusProcessing},
		{WorkflowID: "wf2", ProjectUnitID: 7, Status: model.ExportJobStatusPending},
	}}
	runner := &fakeRunner{done: make(chan string, 2)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := NewPool(2, testLogger())
	pool.Start(ctx)

	r := NewReconciler(5*time.Millisecond, time.Minute, repo, runner, testLogger())
	go func() { _ = r.Run(ctx, pool) }()

	waitFor(t, runner.done, 2)
	cancel()
	pool.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	seen := map[string]bool{}
	for _, id := range runner.ran {
		seen[id] = true
	}
	if !seen["wf1"] || !seen["wf2"] {
		t.Fatalf("resumed %v, want both stale runs", runner.ran)
	}
}

func TestReconcilerSweepStopsWhenPoolSaturated(t *testing.T) {
	repo := &staleJobRepo{stale: []*model.ExportJob{
		{WorkflowID: "wf1"}, {WorkflowID: "wf2"}, {WorkflowID: "wf3"},
		{WorkflowID: "wf4"}, {WorkflowID: "wf5"}, {WorkflowID: "wf6"},
	}}
	runner := &fakeRunner{}

	// Unstarted single-worker pool: four slots buffer, then saturation.
	pool := NewPool(1, testLogger())
	r := NewReconciler(time.Minute, time.Minute, repo, runner, testLogger())

	if n := r.sweep(context.Background(), pool); n != 4 {
		t.Fatalf("resumed %d runs, want 4 before saturation", n)
	}
}
