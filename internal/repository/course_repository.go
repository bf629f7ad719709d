package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

// courseColumns selects a course row with its active enrollment count.
const courseColumns = `c.id, c.title, c.description, c.status, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'active') AS enrollment_count`

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c WHERE c.id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// Create inserts a new course and fills in the generated identifier.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = domain.CourseStatusActive
	}

	const query = `INSERT INTO courses (title, description, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, course.Title, course.Description, course.Status, course.CreatedAt, course.UpdatedAt).Scan(&course.ID)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return appErrors.NotFound("course", course.ID)
	}
	return nil
}

// List returns courses based on filters with total count. When
// EnrolledUserID is set only courses the user is actively enrolled in
// are returned.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	baseQuery := `FROM courses c WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.EnrolledUserID != 0 {
		conditions = append(conditions, fmt.Sprintf("c.id IN (SELECT course_id FROM enrollments WHERE user_id = $%d AND status = 'active')", len(args)+1))
		args = append(args, filter.EnrolledUserID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY c.%s %s LIMIT %d OFFSET %d", courseColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// Delete removes a course. The active enrollment check and the deletion
// run in one transaction behind a row lock, so the count the decision is
// made on is the count the mutation applies to. With force the
// enrollment rows are removed outright; without force the presence of
// any active enrollment aborts the deletion, and cancelled enrollment
// history stays untouched.
func (r *CourseRepository) Delete(ctx context.Context, id int64, force bool) (deleted int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin course deletion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int64
	if err = tx.GetContext(ctx, &exists, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.NotFound("course", id)
		}
		return 0, fmt.Errorf("lock course: %w", err)
	}

	var active int
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'active'`
	if err = tx.GetContext(ctx, &active, countQuery, id); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	if active > 0 && !force {
		err = appErrors.WithDetails(appErrors.ErrConflict,
			fmt.Sprintf("course has %d active enrollment(s)", active),
			appErrors.Details{"courseId": id, "enrollmentCount": active})
		return 0, err
	}

	if force {
		var res sql.Result
		if res, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
			return 0, fmt.Errorf("delete course enrollments: %w", err)
		}
		affected, _ := res.RowsAffected()
		deleted = int(affected)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("delete course: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit course deletion: %w", err)
	}
	return deleted, nil
}

// CountByStatus aggregates course counts for the admin dashboard.
func (r *CourseRepository) CountByStatus(ctx context.Context) (models.CourseStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'active') AS active,
        COUNT(*) FILTER (WHERE status = 'finished') AS finished
        FROM courses`
	var stats models.CourseStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return models.CourseStats{}, fmt.Errorf("count courses by status: %w", err)
	}
	return stats, nil
}
