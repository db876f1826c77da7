package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	"github.com/noah-isme/student-card-api/pkg/archive"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/jobs"
	"github.com/noah-isme/student-card-api/pkg/storage"
)

type batchJobStore interface {
	Create(ctx context.Context, job *models.BatchJob) error
	GetByID(ctx context.Context, id string) (*models.BatchJob, error)
	Update(ctx context.Context, id string, params repository.UpdateBatchJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BatchJob, error)
	Delete(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job[string]) error
}

type archiveStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(batchID, path string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.DownloadToken, error)
}

type batchMetrics interface {
	ObserveBatch(outcome string, cards int, duration time.Duration)
}

// BatchServiceConfig governs download links, retries and cleanup.
type BatchServiceConfig struct {
	DownloadPath    string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// BatchDownload aggregates a resolved download.
type BatchDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// BatchService orchestrates asynchronous archive generation. Batches are
// snapshotted when requested and processed one at a time by BatchWorker.
type BatchService struct {
	repo     batchJobStore
	students studentReader
	queue    jobDispatcher
	storage  archiveStorage
	signer   downloadSigner
	logger   *zap.Logger
	cfg      BatchServiceConfig
}

// NewBatchService constructs the batch service.
func NewBatchService(repo batchJobStore, students studentReader, queue jobDispatcher, store archiveStorage, signer downloadSigner, logger *zap.Logger, cfg BatchServiceConfig) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/batches/download/"
	}
	return &BatchService{
		repo:     repo,
		students: students,
		queue:    queue,
		storage:  store,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Create snapshots the selected students and enqueues packaging.
func (s *BatchService) Create(ctx context.Context, req dto.ArchiveRequest) (*dto.BatchJobResponse, error) {
	students, err := s.students.FindMany(ctx, req.StudentIDs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more students not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no students to package")
	}

	job := &models.BatchJob{
		Status:    models.BatchStatusQueued,
		CardCount: len(students),
		Students:  students,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	if err := s.queue.Enqueue(jobs.Job[string]{ID: job.ID, Payload: job.ID}); err != nil {
		failed := models.BatchStatusFailed
		msg := "failed to enqueue batch"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateBatchJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue batch")
	}
	s.logger.Sugar().Infow("batch queued", "batch_id", job.ID, "cards", job.CardCount)
	return &dto.BatchJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress, CardCount: job.CardCount}, nil
}

// GetStatus exposes batch metadata.
func (s *BatchService) GetStatus(ctx context.Context, id string) (*dto.BatchStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	resp := &dto.BatchStatusResponse{
		ID:         job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		CardCount:  job.CardCount,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token and opens the stored archive.
func (s *BatchService) ResolveDownload(ctx context.Context, token string) (*BatchDownload, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, parsed.BatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if job.Status != models.BatchStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch not ready")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) || job.ResultPath != parsed.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "batch archive no longer available")
	}
	return &BatchDownload{File: file, Filename: archive.ArchiveName, ExpiresAt: parsed.ExpiresAt}, nil
}

// StartCleanup boots a goroutine that purges expired archives periodically.
func (s *BatchService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx)
			}
		}
	}()
}

// CleanupExpired removes archives and job records older than the result TTL.
func (s *BatchService) CleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range expired {
			if job.ResultPath != "" {
				if err := s.storage.Delete(job.ResultPath); err != nil {
					s.logger.Sugar().Warnw("cleanup delete failed", "batch_id", job.ID, "error", err)
				}
			}
			if err := s.repo.Delete(ctx, job.ID); err != nil {
				s.logger.Sugar().Warnw("cleanup forget failed", "batch_id", job.ID, "error", err)
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

// BatchWorker bridges queue jobs to the packager.
type BatchWorker struct {
	repo       batchJobStore
	packager   cardPackager
	storage    archiveStorage
	signer     downloadSigner
	metrics    batchMetrics
	logger     *zap.Logger
	cfg        BatchServiceConfig
	maxRetries int
}

// NewBatchWorker constructs a worker. metrics may be nil.
func NewBatchWorker(repo batchJobStore, packager cardPackager, store archiveStorage, signer downloadSigner, metrics batchMetrics, logger *zap.Logger, cfg BatchServiceConfig) *BatchWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/batches/download/"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &BatchWorker{
		repo:       repo,
		packager:   packager,
		storage:    store,
		signer:     signer,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *BatchWorker) Handle(ctx context.Context, job jobs.Job[string]) error {
	record, err := w.repo.GetByID(ctx, job.Payload)
	if err != nil {
		return err
	}
	start := time.Now()
	running := models.BatchStatusRunning
	progress := 0
	startedAt := start.UTC()
	if err := w.repo.Update(ctx, record.ID, repository.UpdateBatchJobParams{
		Status:    &running,
		Progress:  &progress,
		StartedAt: &startedAt,
	}); err != nil {
		return err
	}

	url, path, err := w.run(ctx, record)
	if err != nil {
		w.fail(ctx, record, job.Attempt, err, time.Since(start))
		return err
	}

	finished := models.BatchStatusFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, record.ID, repository.UpdateBatchJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultPath:   &path,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark batch finished", "batch_id", record.ID, "error", err)
		return err
	}
	w.observe("finished", record.CardCount, time.Since(start))
	w.logger.Sugar().Infow("batch finished", "batch_id", record.ID, "cards", record.CardCount, "duration", time.Since(start).String())
	return nil
}

func (w *BatchWorker) run(ctx context.Context, record *models.BatchJob) (string, string, error) {
	data, err := w.packager.PackageBytes(ctx, record.Students, archive.WithProgress(func(done, total int) {
		// the last percent is reserved for storing the archive
		pct := done * 99 / total
		if updateErr := w.repo.Update(ctx, record.ID, repository.UpdateBatchJobParams{Progress: &pct}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to update batch progress", "batch_id", record.ID, "error", updateErr)
		}
	}))
	if err != nil {
		return "", "", err
	}

	path, err := w.storage.Save(record.ID+".zip", data)
	if err != nil {
		return "", "", fmt.Errorf("store archive: %w", err)
	}
	token, _, err := w.signer.Generate(record.ID, path)
	if err != nil {
		_ = w.storage.Delete(path)
		return "", "", fmt.Errorf("sign download: %w", err)
	}
	return w.cfg.DownloadPath + token, path, nil
}

func (w *BatchWorker) fail(ctx context.Context, record *models.BatchJob, attempt int, cause error, elapsed time.Duration) {
	msg := cause.Error()
	if attempt >= w.maxRetries {
		failed := models.BatchStatusFailed
		progress := 100
		now := time.Now().UTC()
		if err := w.repo.Update(ctx, record.ID, repository.UpdateBatchJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); err != nil {
			w.logger.Sugar().Warnw("failed to mark batch failed", "batch_id", record.ID, "error", err)
		}
		w.observe("failed", record.CardCount, elapsed)
		return
	}
	queued := models.BatchStatusQueued
	reset := 0
	if err := w.repo.Update(ctx, record.ID, repository.UpdateBatchJobParams{
		Status:       &queued,
		Progress:     &reset,
		ErrorMessage: &msg,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark batch queued", "batch_id", record.ID, "error", err)
	}
}

func (w *BatchWorker) observe(outcome string, cards int, d time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveBatch(outcome, cards, d)
	}
}
