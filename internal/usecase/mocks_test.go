package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/adapter"
	"scripture-export-service/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager satisfies TransactionManager without a real database: the
// callback runs with a nil tx, which the in-memory stores accept.
type memTxManager struct {
	calls int
}

func (m *memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	return fn(ctx, nil)
}

// memJobRepo is an in-memory ExportJobRepository enforcing the same record
// invariants as the SQL implementation: create-if-absent, monotonic
// progress, and frozen terminal rows. It records the progress values it
// observed so tests can assert monotonicity.
type memJobRepo struct {
	mu         sync.Mutex
	store      map[string]*model.ExportJob
	progresses map[string][]int
	creates    int
	updateErr  error
	findErr    error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: map[string]*model.ExportJob{}, progresses: map[string][]int{}}
}

func (m *memJobRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, job *model.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, ok := m.store[job.WorkflowID]; ok {
		return nil
	}
	cp := *job
	cp.Status = model.ExportJobStatusPending
	cp.Progress = 0
	cp.UpdatedAt = cp.CreatedAt
	m.store[job.WorkflowID] = &cp
	return nil
}

func (m *memJobRepo) Update(ctx context.Context, tx repository.Tx, workflowID string, upd repository.ExportJobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	job, ok := m.store[workflowID]
	if !ok || job.Status.IsTerminal() {
		return nil
	}
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil && *upd.Progress > job.Progress {
		job.Progress = *upd.Progress
	}
	if upd.ProjectName != nil {
		job.ProjectName = *upd.ProjectName
	}
	if upd.Filename != nil {
		job.Filename = *upd.Filename
	}
	if upd.FileData != nil {
		job.FileData = upd.FileData
	}
	if upd.FileSize != nil {
		job.FileSize = *upd.FileSize
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = upd.CompletedAt
	}
	job.UpdatedAt = time.Now()
	m.progresses[workflowID] = append(m.progresses[workflowID], job.Progress)
	return nil
}

func (m *memJobRepo) Find(ctx context.Context, tx repository.Tx, workflowID string) (*model.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	job, ok := m.store[workflowID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobRepo) FindStale(ctx context.Context, tx repository.Tx, olderThan time.Duration, limit int) ([]*model.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cut := time.Now().Add(-olderThan)
	var out []*model.ExportJob
	for _, job := range m.store {
		if job.Status.IsTerminal() || job.UpdatedAt.After(cut) {
			continue
		}
		cp := *job
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memLedger is an in-memory StepLedger.
type memLedger struct {
	mu        sync.Mutex
	runs      map[string]*model.StepRun // key workflowID+"/"+stepName
	recordErr error
	findErr   error
}

func newMemLedger() *memLedger {
	return &memLedger{runs: map[string]*model.StepRun{}}
}

func (m *memLedger) FindCompleted(ctx context.Context, tx repository.Tx, workflowID, stepName string) (*model.StepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	run, ok := m.runs[workflowID+"/"+stepName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *memLedger) RecordCompleted(ctx context.Context, tx repository.Tx, run *model.StepRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	key := run.WorkflowID + "/" + run.StepName
	if _, ok := m.runs[key]; ok {
		return nil
	}
	cp := *run
	m.runs[key] = &cp
	return nil
}

// fakeProjects maps project unit ids to display names.
type fakeProjects struct {
	names map[int]string
	err   error
}

func (f *fakeProjects) DisplayName(ctx context.Context, projectUnitID int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name, ok := f.names[projectUnitID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return name, nil
}

// fakeProducer serves a fixed byte stream, or an error.
type fakeProducer struct {
	data     []byte
	openErr  error
	opens    int
	cleanups int
	mu       sync.Mutex
}

func (f *fakeProducer) OpenExportStream(ctx context.Context, projectUnitID int, bookIDs []int) (*adapter.ExportStream, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &adapter.ExportStream{
		Reader: &chunkReader{data: f.data, chunk: 3},
		Cleanup: func() {
			f.mu.Lock()
			f.cleanups++
			f.mu.Unlock()
		},
	}, nil
}

func (f *fakeProducer) cleanupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleanups
}

// chunkReader yields data a few bytes at a time, optionally failing after
// emitting failAfter bytes.
type chunkReader struct {
	data      []byte
	pos       int
	chunk     int
	failAfter int
	failErr   error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.failErr != nil && r.pos >= r.failAfter {
		return 0, r.failErr
	}
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.chunk
	if n <= 0 {
		n = 1
	}
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}
