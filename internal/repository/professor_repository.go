package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

// ProfessorRepository provides read access to professor rosters.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository creates a new professor repository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// ListByUniversity returns active professors in a stable order. The
// invigilator rotation depends on this order staying deterministic.
func (r *ProfessorRepository) ListByUniversity(ctx context.Context, universityID string) ([]models.Professor, error) {
	const query = `SELECT id, university_id, full_name, email, max_hours_per_day, active, created_at, updated_at
FROM professors WHERE university_id = $1 AND active = TRUE ORDER BY created_at ASC, id ASC`
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, universityID); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return professors, nil
}

// FindByID loads a professor by id.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	const query = `SELECT id, university_id, full_name, email, max_hours_per_day, active, created_at, updated_at
FROM professors WHERE id = $1`
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}
