package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-card-api/internal/dto"
	"github.com/noah-isme/student-card-api/internal/models"
	"github.com/noah-isme/student-card-api/internal/repository"
	appErrors "github.com/noah-isme/student-card-api/pkg/errors"
	"github.com/noah-isme/student-card-api/pkg/jobs"
	"github.com/noah-isme/student-card-api/pkg/storage"
)

const testDownloadPath = "/api/v1/batches/download/"

type dispatcherStub struct {
	jobs []jobs.Job[string]
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job[string]) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type batchFixture struct {
	students *repository.StudentStore
	batches  *repository.BatchJobStore
	storage  *storage.LocalStorage
	signer   *storage.SignedURLSigner
	queue    *dispatcherStub
	packager *packagerStub
	metrics  *metricsStub
	service  *BatchService
	worker   *BatchWorker
}

func newBatchFixture(t *testing.T, cfg BatchServiceConfig) *batchFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	cfg.DownloadPath = testDownloadPath

	f := &batchFixture{
		students: repository.NewStudentStore(),
		batches:  repository.NewBatchJobStore(),
		storage:  store,
		signer:   storage.NewSignedURLSigner("secret", time.Minute),
		queue:    &dispatcherStub{},
		packager: &packagerStub{data: []byte("zip-bytes")},
		metrics:  &metricsStub{},
	}
	f.service = NewBatchService(f.batches, f.students, f.queue, f.storage, f.signer, zap.NewNop(), cfg)
	f.worker = NewBatchWorker(f.batches, f.packager, f.storage, f.signer, f.metrics, zap.NewNop(), cfg)
	return f
}

func TestBatchServiceCreateSnapshotsAndEnqueues(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{})
	seeded := seedStudents(t, f.students, "Ana", "Bruno")

	resp, err := f.service.Create(context.Background(), dto.ArchiveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusQueued, resp.Status)
	assert.Equal(t, 2, resp.CardCount)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].Payload)

	// edits after the request do not leak into the batch
	renamed := seeded[0]
	renamed.Name = "Ana Maria"
	require.NoError(t, f.students.Update(context.Background(), &renamed))

	job, err := f.batches.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, job.Students, 2)
	assert.Equal(t, "Ana", job.Students[0].Name)
}

func TestBatchServiceCreateErrors(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{})

	_, err := f.service.Create(context.Background(), dto.ArchiveRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.service.Create(context.Background(), dto.ArchiveRequest{StudentIDs: []string{"missing"}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	seedStudents(t, f.students, "Ana")
	f.queue.err = jobs.ErrQueueStopped
	_, err = f.service.Create(context.Background(), dto.ArchiveRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	failed, err := f.batches.ListFinishedBefore(context.Background(), time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.BatchStatusFailed, failed[0].Status)
}

func TestBatchWorkerHandleSuccessAndDownload(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{})
	seedStudents(t, f.students, "Ana", "Bruno")
	ctx := context.Background()

	resp, err := f.service.Create(ctx, dto.ArchiveRequest{})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	assert.Len(t, f.packager.students, 2)
	assert.Equal(t, []string{"finished"}, f.metrics.outcomes)

	status, err := f.service.GetStatus(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.Nil(t, status.Error)
	require.NotNil(t, status.ResultURL)
	require.True(t, strings.HasPrefix(*status.ResultURL, testDownloadPath))

	token := strings.TrimPrefix(*status.ResultURL, testDownloadPath)
	download, err := f.service.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()

	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-bytes"), data)
	assert.Equal(t, "carteirinhas-estudantes.zip", download.Filename)
}

func TestBatchWorkerRetryThenFail(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{MaxRetries: 1})
	seedStudents(t, f.students, "Ana")
	ctx := context.Background()
	f.packager.err = errors.New("render failed")

	resp, err := f.service.Create(ctx, dto.ArchiveRequest{})
	require.NoError(t, err)
	job := f.queue.jobs[0]

	require.Error(t, f.worker.Handle(ctx, job))
	status, err := f.service.GetStatus(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusQueued, status.Status)
	assert.Empty(t, f.metrics.outcomes)

	job.Attempt = 1
	require.Error(t, f.worker.Handle(ctx, job))
	status, err = f.service.GetStatus(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Contains(t, *status.Error, "render failed")
	assert.Nil(t, status.ResultURL)
	assert.Equal(t, []string{"failed"}, f.metrics.outcomes)
}

func TestBatchServiceResolveDownloadRejects(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{})
	seedStudents(t, f.students, "Ana")
	ctx := context.Background()

	_, err := f.service.ResolveDownload(ctx, "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	resp, err := f.service.Create(ctx, dto.ArchiveRequest{})
	require.NoError(t, err)
	token, _, err := f.signer.Generate(resp.ID, resp.ID+".zip")
	require.NoError(t, err)

	_, err = f.service.ResolveDownload(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.service.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBatchServiceCleanupExpired(t *testing.T) {
	f := newBatchFixture(t, BatchServiceConfig{ResultTTL: time.Millisecond})
	seedStudents(t, f.students, "Ana")
	ctx := context.Background()

	resp, err := f.service.Create(ctx, dto.ArchiveRequest{})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	time.Sleep(20 * time.Millisecond)
	f.service.CleanupExpired(ctx)

	_, err = f.service.GetStatus(ctx, resp.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.storage.Open(resp.ID + ".zip")
	assert.Error(t, err)
}
