package service

import (
	"context"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trainhub/enroll-api/internal/domain"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
	"github.com/trainhub/enroll-api/pkg/jobs"
	"github.com/trainhub/enroll-api/pkg/storage"
)

type archivePayload struct {
	Filename string
	Data     []byte
}

// ReportArchiveService keeps a copy of every generated report on disk and
// hands out signed download tokens for them. Writes happen on a background
// worker so export responses are not delayed by disk IO.
type ReportArchiveService struct {
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewReportArchiveService builds the service with its own worker queue.
func NewReportArchiveService(store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ReportArchiveService{
		store:  store,
		signer: signer,
		logger: logger,
	}
	s.queue = jobs.NewQueue("report-archive", s.handleArchive, jobs.Config{
		Workers: 1,
		Logger:  logger,
	})
	return s
}

// Start launches the archive workers.
func (s *ReportArchiveService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the archive workers.
func (s *ReportArchiveService) Stop() {
	s.queue.Stop()
}

// Archive schedules the report for persistence and returns a signed token
// that can later be exchanged for the stored file.
func (s *ReportArchiveService) Archive(filename string, data []byte) (string, error) {
	reportID := uuid.NewString()
	token, _, err := s.signer.Generate(reportID, filename)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report token")
	}

	job := jobs.Job{
		ID:      reportID,
		Type:    "archive-report",
		Payload: archivePayload{Filename: filename, Data: data},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report archive")
	}

	s.logger.Info("report archive scheduled", zap.String("reportId", reportID), zap.String("filename", filename))
	return token, nil
}

// Download validates the token and returns the archived report. Admin only.
func (s *ReportArchiveService) Download(actor domain.Actor, token string) ([]byte, string, error) {
	if err := domain.Decide(actor, domain.OpViewStatistics, 0).Err(domain.OpViewStatistics, actor.Role); err != nil {
		return nil, "", err
	}

	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired report token")
	}

	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "archived report no longer available")
	}

	return data, path.Base(relPath), nil
}

func (s *ReportArchiveService) handleArchive(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(archivePayload)
	if !ok {
		s.logger.Error("unexpected archive payload", zap.String("jobId", job.ID))
		return nil
	}

	if _, err := s.store.Save(payload.Filename, payload.Data); err != nil {
		return err
	}

	s.logger.Info("report archived", zap.String("jobId", job.ID), zap.String("filename", payload.Filename))
	return nil
}
