package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a new enrollment. A partial unique index on
// (user_id, course_id) WHERE status = 'active' backs the duplicate
// check, so two concurrent enrollments for the same pair cannot both
// commit.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = domain.EnrollmentStatusActive
	}

	const query = `INSERT INTO enrollments (user_id, course_id, status, enrolled_at, cancelled_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, enrollment.UserID, enrollment.CourseID, enrollment.Status, enrollment.EnrolledAt, enrollment.CancelledAt).Scan(&enrollment.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.WithDetails(appErrors.ErrConflict,
				"user is already enrolled in this course",
				appErrors.Details{"userId": enrollment.UserID, "courseId": enrollment.CourseID})
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, status, enrolled_at, cancelled_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with course and user info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.status, e.enrolled_at, e.cancelled_at,
        c.title AS course_title, c.status AS course_status, u.email AS user_email
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = e.user_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}

// ExistsActive checks whether the user already holds an active
// enrollment for the course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, userID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 AND status = 'active' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Cancel marks an active enrollment as cancelled. Cancelling a row that
// is not active affects nothing; the caller decides how to report that.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id int64, cancelledAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = 'cancelled', cancelled_at = $2 WHERE id = $1 AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, id, cancelledAt)
	if err != nil {
		return false, fmt.Errorf("cancel enrollment: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN users u ON u.id = e.user_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"cancelled_at": "e.cancelled_at",
		"course_title": "c.title",
		"user_email":   "u.email",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.course_id, e.status, e.enrolled_at, e.cancelled_at,
        c.title AS course_title, c.status AS course_status, u.email AS user_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListCoursesByUser returns the courses behind a user's active
// enrollments, for the grouped my-courses view.
func (r *EnrollmentRepository) ListCoursesByUser(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	const query = `SELECT e.id AS enrollment_id, c.id AS course_id, c.title, c.description, c.status AS course_status, e.enrolled_at
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.user_id = $1 AND e.status = 'active'
        ORDER BY e.enrolled_at DESC`
	var courses []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list user courses: %w", err)
	}
	return courses, nil
}

// CancelAllByCourse cancels every active enrollment of a course,
// returning the number of rows affected.
func (r *EnrollmentRepository) CancelAllByCourse(ctx context.Context, courseID int64) (int, error) {
	const query = `UPDATE enrollments SET status = 'cancelled', cancelled_at = $2 WHERE course_id = $1 AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, courseID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel course enrollments: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// CountByStatus aggregates enrollment counts for the admin dashboard.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) (models.EnrollmentStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'active') AS active,
        COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
        FROM enrollments`
	var stats models.EnrollmentStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return models.EnrollmentStats{}, fmt.Errorf("count enrollments by status: %w", err)
	}
	return stats, nil
}
