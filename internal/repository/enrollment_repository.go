package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

// EnrollmentRepository reads enrollment rows owned by the records service.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// MapByUniversity returns enrolled student ids grouped by course for one tenant.
func (r *EnrollmentRepository) MapByUniversity(ctx context.Context, universityID string) (map[string][]string, error) {
	const query = `SELECT e.course_id, e.student_id
FROM enrollments e JOIN courses c ON c.id = e.course_id
WHERE c.university_id = $1 ORDER BY e.course_id ASC, e.student_id ASC`
	var rows []models.Enrollment
	if err := r.db.SelectContext(ctx, &rows, query, universityID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	result := make(map[string][]string, len(rows))
	for _, row := range rows {
		result[row.CourseID] = append(result[row.CourseID], row.StudentID)
	}
	return result, nil
}
