package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/student-card-api/internal/models"
)

// UpdateBatchJobParams holds optional fields for batch updates.
type UpdateBatchJobParams struct {
	Status       *models.BatchStatus
	Progress     *int
	CardCount    *int
	ResultPath   *string
	ResultURL    *string
	ErrorMessage *string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// BatchJobStore keeps batch jobs for the lifetime of the process.
type BatchJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.BatchJob
	now  func() time.Time
}

// NewBatchJobStore constructs an empty job store.
func NewBatchJobStore() *BatchJobStore {
	return &BatchJobStore{
		jobs: make(map[string]models.BatchJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new job, assigning its ID and creation time.
func (r *BatchJobStore) Create(ctx context.Context, job *models.BatchJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, exists := r.jobs[job.ID]; exists {
		return ErrDuplicateID
	}
	job.CreatedAt = r.now()
	r.jobs[job.ID] = *job
	return nil
}

// GetByID returns a copy of the job.
func (r *BatchJobStore) GetByID(ctx context.Context, id string) (*models.BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

// Update applies the non-nil fields of params to the job.
func (r *BatchJobStore) Update(ctx context.Context, id string, params UpdateBatchJobParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.CardCount != nil {
		job.CardCount = *params.CardCount
	}
	if params.ResultPath != nil {
		job.ResultPath = *params.ResultPath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.StartedAt != nil {
		job.StartedAt = params.StartedAt
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
		// the snapshot is only needed while the job is pending
		job.Students = nil
	}
	r.jobs[id] = job
	return nil
}

// ListQueued returns jobs still waiting for a worker.
func (r *BatchJobStore) ListQueued(ctx context.Context, limit int) ([]models.BatchJob, error) {
	return r.list(ctx, limit, func(job models.BatchJob) bool {
		return job.Status == models.BatchStatusQueued
	})
}

// ListFinishedBefore returns completed jobs whose finish time is before cutoff.
func (r *BatchJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BatchJob, error) {
	return r.list(ctx, limit, func(job models.BatchJob) bool {
		return job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
	})
}

// Delete forgets a job.
func (r *BatchJobStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *BatchJobStore) list(ctx context.Context, limit int, keep func(models.BatchJob) bool) ([]models.BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.BatchJob, 0)
	for _, job := range r.jobs {
		if !keep(job) {
			continue
		}
		result = append(result, job)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}
