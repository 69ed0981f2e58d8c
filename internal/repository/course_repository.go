package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

// CourseRepository persists courses and their weekly slot patterns.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByUniversity returns all courses for a tenant in generation order.
func (r *CourseRepository) ListByUniversity(ctx context.Context, universityID string) ([]models.Course, error) {
	const query = `SELECT id, university_id, name, section, course_type, weekly_hours, student_count, required_room_type, professor_id, classroom_id, created_at, updated_at
FROM courses WHERE university_id = $1 ORDER BY created_at ASC, id ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, universityID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID loads a course by id, without slots.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, university_id, name, section, course_type, weekly_hours, student_count, required_room_type, professor_id, classroom_id, created_at, updated_at
FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListSlotsByCourse returns a course's weekly pattern ordered by day and time.
func (r *CourseRepository) ListSlotsByCourse(ctx context.Context, courseID string) ([]models.CourseSlot, error) {
	const query = `SELECT id, course_id, day_of_week, start_time, end_time, created_at
FROM course_slots WHERE course_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var slots []models.CourseSlot
	if err := r.db.SelectContext(ctx, &slots, query, courseID); err != nil {
		return nil, fmt.Errorf("list course slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByUniversity returns every committed slot for a tenant's courses.
func (r *CourseRepository) ListSlotsByUniversity(ctx context.Context, universityID string) ([]models.CourseSlot, error) {
	const query = `SELECT cs.id, cs.course_id, cs.day_of_week, cs.start_time, cs.end_time, cs.created_at
FROM course_slots cs JOIN courses c ON c.id = cs.course_id
WHERE c.university_id = $1 ORDER BY cs.course_id ASC, cs.day_of_week ASC, cs.start_time ASC`
	var slots []models.CourseSlot
	if err := r.db.SelectContext(ctx, &slots, query, universityID); err != nil {
		return nil, fmt.Errorf("list university course slots: %w", err)
	}
	return slots, nil
}

// ClearTimetable removes every slot and classroom assignment for a tenant.
// Regeneration always starts from a clean slate.
func (r *CourseRepository) ClearTimetable(ctx context.Context, exec sqlx.ExtContext, universityID string) error {
	target := r.exec(exec)
	const deleteSlots = `DELETE FROM course_slots WHERE course_id IN (SELECT id FROM courses WHERE university_id = $1)`
	if _, err := target.ExecContext(ctx, deleteSlots, universityID); err != nil {
		return fmt.Errorf("clear course slots: %w", err)
	}
	const clearRooms = `UPDATE courses SET classroom_id = NULL, updated_at = $2 WHERE university_id = $1`
	if _, err := target.ExecContext(ctx, clearRooms, universityID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear course classrooms: %w", err)
	}
	return nil
}

// ReplaceSlots swaps a course's weekly pattern for the provided list.
func (r *CourseRepository) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, courseID string, slots []models.CourseSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM course_slots WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("delete course slots: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO course_slots (id, course_id, day_of_week, start_time, end_time, created_at)
VALUES (:id, :course_id, :day_of_week, :start_time, :end_time, :created_at)`
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.CourseID = courseID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insert, &payload); err != nil {
			return fmt.Errorf("insert course slot: %w", err)
		}
		slots[i] = payload
	}
	return nil
}

// UpdateClassroom writes the generator's room choice for a course.
func (r *CourseRepository) UpdateClassroom(ctx context.Context, exec sqlx.ExtContext, courseID string, classroomID *string) error {
	target := r.exec(exec)
	const query = `UPDATE courses SET classroom_id = $1, updated_at = $2 WHERE id = $3`
	if _, err := target.ExecContext(ctx, query, classroomID, time.Now().UTC(), courseID); err != nil {
		return fmt.Errorf("update course classroom: %w", err)
	}
	return nil
}
