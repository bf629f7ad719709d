package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
	"github.com/trainhub/enroll-api/pkg/export"
)

const statsCacheKey = "stats:platform"

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type statsUserRepository interface {
	CountByRole(ctx context.Context) (models.UserStats, error)
}

type statsCourseRepository interface {
	CountByStatus(ctx context.Context) (models.CourseStats, error)
}

type statsEnrollmentRepository interface {
	CountByStatus(ctx context.Context) (models.EnrollmentStats, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// StatsConfig controls caching of the aggregate dashboard.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// StatsService aggregates platform statistics for administrators and
// renders enrollment report exports. Aggregates are cached in Redis
// for the configured TTL.
type StatsService struct {
	users       statsUserRepository
	courses     statsCourseRepository
	enrollments statsEnrollmentRepository
	cache       statsCache
	metrics     *MetricsService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
	config      StatsConfig
}

// NewStatsService constructs a StatsService instance.
func NewStatsService(users statsUserRepository, courses statsCourseRepository, enrollments statsEnrollmentRepository, cache statsCache, metrics *MetricsService, logger *zap.Logger, config StatsConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		config:      config,
	}
}

// Platform returns the aggregate counts across users, courses and
// enrollments. Admin only.
func (s *StatsService) Platform(ctx context.Context, actor domain.Actor) (*models.PlatformStats, error) {
	if err := domain.Decide(actor, domain.OpViewStatistics, 0).Err(domain.OpViewStatistics, actor.Role); err != nil {
		return nil, err
	}

	if s.config.CacheEnabled && s.cache != nil {
		started := time.Now()
		var cached models.PlatformStats
		err := s.cache.Get(ctx, statsCacheKey, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(started))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache lookup failed", zap.Error(err))
		}
	}

	stats, err := s.aggregate(ctx)
	if err != nil {
		return nil, err
	}

	if s.config.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.config.CacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *StatsService) aggregate(ctx context.Context) (*models.PlatformStats, error) {
	users, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate users")
	}
	courses, err := s.courses.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate courses")
	}
	enrollments, err := s.enrollments.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate enrollments")
	}

	return &models.PlatformStats{
		Users:       users,
		Courses:     courses,
		Enrollments: enrollments,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

var enrollmentReportHeaders = []string{"Enrollment ID", "User", "Course", "Course Status", "Status", "Enrolled At"}

// ExportEnrollmentsCSV renders the full enrollment report as CSV.
func (s *StatsService) ExportEnrollmentsCSV(ctx context.Context, actor domain.Actor) ([]byte, error) {
	dataset, err := s.buildEnrollmentDataset(ctx, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportEnrollmentsPDF renders the full enrollment report as PDF.
func (s *StatsService) ExportEnrollmentsPDF(ctx context.Context, actor domain.Actor) ([]byte, error) {
	dataset, err := s.buildEnrollmentDataset(ctx, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(*dataset, "Enrollment Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func (s *StatsService) buildEnrollmentDataset(ctx context.Context, actor domain.Actor) (*export.Dataset, error) {
	if err := domain.Decide(actor, domain.OpViewStatistics, 0).Err(domain.OpViewStatistics, actor.Role); err != nil {
		return nil, err
	}

	dataset := &export.Dataset{Headers: enrollmentReportHeaders}
	for page := 1; ; page++ {
		rows, total, err := s.enrollments.List(ctx, models.EnrollmentFilter{Page: page, PageSize: 100, SortOrder: "ASC"})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		for _, row := range rows {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Enrollment ID": strconv.FormatInt(row.ID, 10),
				"User":          row.UserEmail,
				"Course":        row.CourseTitle,
				"Course Status": string(row.CourseStatus),
				"Status":        string(row.Status),
				"Enrolled At":   row.EnrolledAt.UTC().Format(time.RFC3339),
			})
		}
		if len(rows) == 0 || len(dataset.Rows) >= total {
			break
		}
	}

	s.logger.Info("enrollment report built", zap.Int("rows", len(dataset.Rows)))
	return dataset, nil
}

// ReportFilename builds a timestamped attachment name for exports.
func ReportFilename(extension string) string {
	return fmt.Sprintf("enrollment-report-%s.%s", time.Now().UTC().Format("20060102-150405"), extension)
}
