package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nurhakim/campus-scheduler-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryListByUniversity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{"id", "university_id", "name", "section", "course_type", "weekly_hours", "student_count", "required_room_type", "professor_id", "classroom_id", "created_at", "updated_at"}).
		AddRow("course-1", "uni-1", "Calculus", "A", "CORE", 4, 40, "LECTURE_HALL", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, university_id, name, section")).
		WithArgs("uni-1").
		WillReturnRows(rows)

	courses, err := repo.ListByUniversity(context.Background(), "uni-1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, models.CourseTypeCore, courses[0].CourseType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryClearTimetable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_slots WHERE course_id IN")).
		WithArgs("uni-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET classroom_id = NULL")).
		WithArgs("uni-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ClearTimetable(context.Background(), nil, "uni-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryReplaceSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_slots WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slots := []models.CourseSlot{
		{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "10:00"},
	}
	require.NoError(t, repo.ReplaceSlots(context.Background(), nil, "course-1", slots))
	require.NotEmpty(t, slots[0].ID)
	require.Equal(t, "course-1", slots[1].CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateClassroom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	room := "room-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET classroom_id = $1")).
		WithArgs(&room, sqlmock.AnyArg(), "course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateClassroom(context.Background(), nil, "course-1", &room))
	require.NoError(t, mock.ExpectationsWereMet())
}
