package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

// ClassroomRepository provides read access to classroom inventory.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListByUniversity returns classrooms ordered by capacity then id. The
// placement search takes the first fitting room, so smaller rooms are tried
// before larger ones.
func (r *ClassroomRepository) ListByUniversity(ctx context.Context, universityID string) ([]models.Classroom, error) {
	const query = `SELECT id, university_id, name, capacity, room_type, created_at, updated_at
FROM classrooms WHERE university_id = $1 ORDER BY capacity ASC, id ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, universityID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}
