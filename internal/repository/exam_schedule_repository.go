package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

// ExamScheduleRepository persists computed exam sessions.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository creates a new exam schedule repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

func (r *ExamScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByExam returns raw schedule rows ordered by date then start time.
func (r *ExamScheduleRepository) ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error) {
	const query = `SELECT id, exam_id, course_id, exam_date, start_time, end_time, classroom_id, invigilator_id, student_count, created_at
FROM exam_schedules WHERE exam_id = $1 ORDER BY exam_date ASC, start_time ASC, id ASC`
	var rows []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &rows, query, examID); err != nil {
		return nil, fmt.Errorf("list exam schedules: %w", err)
	}
	return rows, nil
}

// ListDetailByExam returns schedule rows with resolved display fields.
func (r *ExamScheduleRepository) ListDetailByExam(ctx context.Context, examID string) ([]models.ExamScheduleDetail, error) {
	const query = `SELECT es.id, es.exam_id, es.course_id, es.exam_date, es.start_time, es.end_time, es.classroom_id, es.invigilator_id, es.student_count, es.created_at,
c.name AS course_name, c.section AS section, cr.name AS classroom_name, p.full_name AS invigilator_name
FROM exam_schedules es
JOIN courses c ON c.id = es.course_id
JOIN classrooms cr ON cr.id = es.classroom_id
LEFT JOIN professors p ON p.id = es.invigilator_id
WHERE es.exam_id = $1 ORDER BY es.exam_date ASC, es.start_time ASC, es.id ASC`
	var rows []models.ExamScheduleDetail
	if err := r.db.SelectContext(ctx, &rows, query, examID); err != nil {
		return nil, fmt.Errorf("list exam schedule detail: %w", err)
	}
	return rows, nil
}

// ReplaceForExam swaps every schedule row for an exam in one batch. The
// caller supplies the surrounding transaction so a failed insert leaves the
// previous rows intact.
func (r *ExamScheduleRepository) ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, rows []models.ExamSchedule) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM exam_schedules WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete exam schedules: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO exam_schedules (id, exam_id, course_id, exam_date, start_time, end_time, classroom_id, invigilator_id, student_count, created_at)
VALUES (:id, :exam_id, :course_id, :exam_date, :start_time, :end_time, :classroom_id, :invigilator_id, :student_count, :created_at)`
	for i := range rows {
		payload := rows[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.ExamID = examID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insert, &payload); err != nil {
			return fmt.Errorf("insert exam schedule: %w", err)
		}
		rows[i] = payload
	}
	return nil
}

// SetInvigilator writes one row's proctor assignment.
func (r *ExamScheduleRepository) SetInvigilator(ctx context.Context, exec sqlx.ExtContext, scheduleID string, professorID *string) error {
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, `UPDATE exam_schedules SET invigilator_id = $1 WHERE id = $2`, professorID, scheduleID)
	if err != nil {
		return fmt.Errorf("set invigilator: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invigilator rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
