package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/participation-api/internal/dto"
	"github.com/campuspulse/participation-api/internal/models"
	"github.com/campuspulse/participation-api/internal/repository"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
	"github.com/campuspulse/participation-api/pkg/jobs"
	"github.com/campuspulse/participation-api/pkg/storage"
)

type memJobStore struct {
	jobs map[string]*models.ReportJob
	seq  int
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*models.ReportJob)}
}

func (m *memJobStore) Create(ctx context.Context, job *models.ReportJob) error {
	m.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%03d", m.seq)
	}
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memJobStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memJobStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *memJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var finished []models.ReportJob
	for _, job := range m.jobs {
		if job.Status != models.ReportStatusFinished || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		finished = append(finished, *job)
		if len(finished) == limit {
			break
		}
	}
	return finished, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	fail     bool
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.fail {
		return assert.AnError
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newTestExporter(t *testing.T, reports reportAggregator) *ExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(reports, files, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
}

func TestExportGenerateCSV(t *testing.T) {
	reports := &stubReports{popularity: []dto.EventPopularityRow{
		{EventID: "evt-1", Title: "AI Summit", EventType: "seminar", Capacity: 100, RegistrationCount: 42},
	}}
	exporter := newTestExporter(t, reports)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypePopularity,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/export/"))

	jobID, relPath, _, err := exporter.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := exporter.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
}

func TestExportGenerateUnsupportedFormat(t *testing.T) {
	exporter := newTestExporter(t, &stubReports{})

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypePopularity,
		Params: models.ReportJobParams{Format: models.ReportFormat("xlsx")},
	}
	_, err := exporter.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestCreateJobEnqueues(t *testing.T) {
	store := newMemJobStore()
	queue := &recordingQueue{}
	svc := NewExportJobService(store, queue, nil, nil, nil, ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeTopStudents,
		Format: models.ReportFormatPDF,
		Limit:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	svc := NewExportJobService(newMemJobStore(), &recordingQueue{}, nil, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportType("grades"),
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobRejectsNegativeLimit(t *testing.T) {
	svc := NewExportJobService(newMemJobStore(), &recordingQueue{}, nil, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeTopStudents,
		Format: models.ReportFormatCSV,
		Limit:  -1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobAcceptsZeroLimit(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewExportJobService(newMemJobStore(), queue, nil, nil, nil, ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeTopStudents,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	assert.Len(t, queue.enqueued, 1)
}

func TestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newMemJobStore()
	svc := NewExportJobService(store, &recordingQueue{fail: true}, nil, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypePopularity,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestWorkerFinishesJob(t *testing.T) {
	store := newMemJobStore()
	reports := &stubReports{popularity: []dto.EventPopularityRow{{EventID: "evt-1"}}}
	exporter := newTestExporter(t, reports)
	worker := NewExportWorker(store, exporter, nil, 3, nil)

	job := &models.ReportJob{
		Type:   models.ReportTypePopularity,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Type: string(job.Type)})
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
}

func TestWorkerFailsAfterRetries(t *testing.T) {
	store := newMemJobStore()
	exporter := newTestExporter(t, &stubReports{})
	worker := NewExportWorker(store, exporter, nil, 2, nil)

	job := &models.ReportJob{
		Type:   models.ReportType("unknown"),
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2})
	require.Error(t, err)

	stored, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
}

func TestCleanupExpiresBacklogBeyondOneBatch(t *testing.T) {
	store := newMemJobStore()
	exporter := newTestExporter(t, &stubReports{})
	svc := NewExportJobService(store, &recordingQueue{}, exporter, nil, nil, ExportJobConfig{ResultTTL: time.Hour})

	finishedAt := time.Now().Add(-2 * time.Hour)
	for i := 0; i < cleanupBatchSize+20; i++ {
		done := finishedAt
		job := &models.ReportJob{
			Type:       models.ReportTypePopularity,
			Params:     models.ReportJobParams{Format: models.ReportFormatCSV},
			Status:     models.ReportStatusFinished,
			FinishedAt: &done,
		}
		require.NoError(t, store.Create(context.Background(), job))
	}

	svc.cleanupExpired(context.Background())

	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusExpired, job.Status)
	}
	remaining, err := store.ListFinishedBefore(context.Background(), time.Now(), cleanupBatchSize)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDownloadRejectedAfterExpiry(t *testing.T) {
	store := newMemJobStore()
	reports := &stubReports{popularity: []dto.EventPopularityRow{{EventID: "evt-1"}}}
	exporter := newTestExporter(t, reports)
	svc := NewExportJobService(store, &recordingQueue{}, exporter, nil, nil, ExportJobConfig{ResultTTL: time.Hour})

	job := &models.ReportJob{
		Type:   models.ReportTypePopularity,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
		Status: models.ReportStatusFinished,
	}
	require.NoError(t, store.Create(context.Background(), job))
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	store.jobs[job.ID].ResultURL = &result.URL
	store.jobs[job.ID].Status = models.ReportStatusExpired

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "expired")
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc := NewExportJobService(newMemJobStore(), &recordingQueue{}, nil, nil, nil, ExportJobConfig{})

	_, err := svc.GetStatus(context.Background(), "job-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
