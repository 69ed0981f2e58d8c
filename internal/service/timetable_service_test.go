package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

func TestTimetableServiceGenerateLabBlockSkipsLunch(t *testing.T) {
	professorID := "prof-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Chemistry Lab", Section: "A", CourseType: models.CourseTypeLab, WeeklyHours: 4, StudentCount: 20, RequiredRoomType: models.RoomTypeLab, ProfessorID: &professorID},
		},
		professors: []models.Professor{{ID: professorID, MaxHoursPerDay: 6}},
		rooms:      []models.Classroom{{ID: "room-1", Capacity: 30, RoomType: models.RoomTypeLab}},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AssignedCount)
	assert.Equal(t, 0, stats.FailedCount)

	slots := fixture.courses.replaced["course-1"]
	require.Len(t, slots, 4)
	for _, slot := range slots {
		assert.Equal(t, "MONDAY", slot.DayOfWeek)
		assert.NotEqual(t, "12:00", slot.StartTime)
	}
	// The lunch slot at 12:00 pushes the contiguous block to the afternoon.
	assert.Equal(t, "13:00", slots[0].StartTime)
	assert.Equal(t, "17:00", slots[3].EndTime)

	room := fixture.courses.roomAssignments["course-1"]
	require.NotNil(t, room)
	assert.Equal(t, "room-1", *room)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestTimetableServiceGenerateSpreadsCoreCourseAcrossDays(t *testing.T) {
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Calculus", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 4, StudentCount: 40, RequiredRoomType: models.RoomTypeLectureHall},
		},
		rooms: []models.Classroom{{ID: "room-1", Capacity: 60, RoomType: models.RoomTypeLectureHall}},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AssignedCount)

	slots := fixture.courses.replaced["course-1"]
	require.Len(t, slots, 4)
	days := make(map[string]int)
	for _, slot := range slots {
		days[slot.DayOfWeek]++
	}
	// While more than two hours remain the course must move to a fresh day.
	assert.GreaterOrEqual(t, len(days), 2)
	assert.Equal(t, 1, days["TUESDAY"])
}

func TestTimetableServiceGenerateProfessorDailyCap(t *testing.T) {
	professorID := "prof-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Algorithms", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 5, StudentCount: 30, RequiredRoomType: models.RoomTypeLectureHall, ProfessorID: &professorID},
			{ID: "course-2", UniversityID: "uni-1", Name: "Databases", Section: "B", CourseType: models.CourseTypeElective, WeeklyHours: 1, StudentCount: 30, RequiredRoomType: models.RoomTypeLectureHall, ProfessorID: &professorID},
		},
		professors: []models.Professor{{ID: professorID, MaxHoursPerDay: 1}},
		rooms: []models.Classroom{
			{ID: "room-1", Capacity: 60, RoomType: models.RoomTypeLectureHall},
			{ID: "room-2", Capacity: 60, RoomType: models.RoomTypeLectureHall},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AssignedCount)
	assert.Equal(t, 1, stats.FailedCount)

	require.Len(t, stats.Placements, 2)
	assert.Equal(t, dto.PlacementStatusPlaced, stats.Placements[0].Status)
	assert.Equal(t, "course-1", stats.Placements[0].CourseID)
	assert.Equal(t, dto.PlacementStatusUnplaced, stats.Placements[1].Status)
	assert.Equal(t, 0, stats.Placements[1].AssignedHours)
	assert.NotEmpty(t, stats.Placements[1].Reason)
	assert.Empty(t, fixture.courses.replaced["course-2"])
}

func TestTimetableServiceGenerateSectionCohortNeverOverlaps(t *testing.T) {
	prof1 := "prof-1"
	prof2 := "prof-2"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Calculus", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 2, StudentCount: 20, RequiredRoomType: models.RoomTypeLectureHall, ProfessorID: &prof1},
			{ID: "course-2", UniversityID: "uni-1", Name: "Statistics", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 2, StudentCount: 20, RequiredRoomType: models.RoomTypeLectureHall, ProfessorID: &prof2},
		},
		professors: []models.Professor{
			{ID: prof1, MaxHoursPerDay: 6},
			{ID: prof2, MaxHoursPerDay: 6},
		},
		rooms: []models.Classroom{
			{ID: "room-1", Capacity: 30, RoomType: models.RoomTypeLectureHall},
			{ID: "room-2", Capacity: 30, RoomType: models.RoomTypeLectureHall},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.AssignedCount)
	assert.Equal(t, 0, stats.FailedCount)

	// Distinct professors and spare rooms leave the shared section as the
	// only reason these two courses cannot sit in the same hour.
	taken := make(map[string]string)
	for _, id := range []string{"course-1", "course-2"} {
		slots := fixture.courses.replaced[id]
		require.Len(t, slots, 2)
		for _, slot := range slots {
			key := slot.DayOfWeek + " " + slot.StartTime
			other, clash := taken[key]
			assert.False(t, clash, "section A sits in two rooms at once: %s and %s on %s", other, id, key)
			taken[key] = id
		}
	}
}

func TestTimetableServiceGenerateNoSuitableRoom(t *testing.T) {
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Calculus", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 2, StudentCount: 50, RequiredRoomType: models.RoomTypeLectureHall},
			{ID: "course-2", UniversityID: "uni-1", Name: "Chemistry Practical", Section: "B", CourseType: models.CourseTypeElective, WeeklyHours: 2, StudentCount: 10, RequiredRoomType: models.RoomTypeLab},
		},
		rooms: []models.Classroom{{ID: "room-1", Capacity: 30, RoomType: models.RoomTypeLectureHall}},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.AssignedCount)
	assert.Equal(t, 2, stats.FailedCount)

	// Undersized capacity and mismatched room type each leave a course
	// without a single placed hour.
	require.Len(t, stats.Placements, 2)
	for _, placement := range stats.Placements {
		assert.Equal(t, dto.PlacementStatusUnplaced, placement.Status)
		assert.Equal(t, 0, placement.AssignedHours)
		assert.NotEmpty(t, placement.Reason)
		assert.Empty(t, fixture.courses.replaced[placement.CourseID])
	}
}

func TestTimetableServiceGenerateLabBlockExceedsProfessorCap(t *testing.T) {
	professorID := "prof-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Biology Lab", Section: "A", CourseType: models.CourseTypeLab, WeeklyHours: 3, StudentCount: 20, RequiredRoomType: models.RoomTypeLab, ProfessorID: &professorID},
		},
		professors: []models.Professor{{ID: professorID, MaxHoursPerDay: 2}},
		rooms:      []models.Classroom{{ID: "room-1", Capacity: 30, RoomType: models.RoomTypeLab}},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	stats, err := fixture.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.AssignedCount)
	assert.Equal(t, 1, stats.FailedCount)

	// A lab block never splits, so a two-hour cap leaves no partial hours behind.
	require.Len(t, stats.Placements, 1)
	assert.Equal(t, dto.PlacementStatusUnplaced, stats.Placements[0].Status)
	assert.Equal(t, 0, stats.Placements[0].AssignedHours)
	assert.Empty(t, fixture.courses.replaced["course-1"])
}

func TestTimetableServiceGenerateDeterministic(t *testing.T) {
	build := func() *timetableFixture {
		return newTimetableFixture(t, timetableFixtureConfig{
			courses: []models.Course{
				{ID: "course-1", UniversityID: "uni-1", Name: "Physics", Section: "A", CourseType: models.CourseTypeCore, WeeklyHours: 3, StudentCount: 25, RequiredRoomType: models.RoomTypeLectureHall},
				{ID: "course-2", UniversityID: "uni-1", Name: "History", Section: "A", CourseType: models.CourseTypeElective, WeeklyHours: 2, StudentCount: 25, RequiredRoomType: models.RoomTypeLectureHall},
			},
			rooms: []models.Classroom{{ID: "room-1", Capacity: 40, RoomType: models.RoomTypeLectureHall}},
		})
	}

	first := build()
	first.mock.ExpectBegin()
	first.mock.ExpectCommit()
	_, err := first.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)

	second := build()
	second.mock.ExpectBegin()
	second.mock.ExpectCommit()
	_, err = second.service.Generate(context.Background(), "uni-1")
	require.NoError(t, err)

	assert.Equal(t, first.courses.replaced, second.courses.replaced)
}

func TestTimetableServiceGenerateNoCourses(t *testing.T) {
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		rooms: []models.Classroom{{ID: "room-1", Capacity: 40, RoomType: models.RoomTypeLectureHall}},
	})

	_, err := fixture.service.Generate(context.Background(), "uni-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceResetCommits(t *testing.T) {
	fixture := newTimetableFixture(t, timetableFixtureConfig{})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	err := fixture.service.Reset(context.Background(), "uni-1")
	require.NoError(t, err)
	assert.True(t, fixture.courses.cleared)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestTimetableServiceUpdateCourseSlotsConflict(t *testing.T) {
	room := "room-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Physics", Section: "A", ClassroomID: &room},
			{ID: "course-2", UniversityID: "uni-1", Name: "Chemistry", Section: "B", ClassroomID: &room},
		},
		committedSlots: []models.CourseSlot{
			{CourseID: "course-2", DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"},
		},
	})

	_, err := fixture.service.UpdateCourseSlots(context.Background(), "course-1", dto.UpdateCourseScheduleRequest{
		Slots: []dto.CourseSlotRequest{{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"}},
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	var conflict *models.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "course-2", conflict.Conflict.CourseID)
	assert.Equal(t, "CLASSROOM", conflict.Conflict.Resource)
}

func TestTimetableServiceUpdateCourseSlotsProfessorConflict(t *testing.T) {
	room1 := "room-1"
	room2 := "room-2"
	professorID := "prof-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Physics", Section: "A", ClassroomID: &room1, ProfessorID: &professorID},
			{ID: "course-2", UniversityID: "uni-1", Name: "Chemistry", Section: "B", ClassroomID: &room2, ProfessorID: &professorID},
		},
		committedSlots: []models.CourseSlot{
			{CourseID: "course-2", DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"},
		},
	})

	_, err := fixture.service.UpdateCourseSlots(context.Background(), "course-1", dto.UpdateCourseScheduleRequest{
		Slots: []dto.CourseSlotRequest{{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"}},
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// The rooms differ, so the shared professor is what collides.
	var conflict *models.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "course-2", conflict.Conflict.CourseID)
	assert.Equal(t, "PROFESSOR", conflict.Conflict.Resource)
	assert.Equal(t, professorID, conflict.Conflict.ResourceID)
}

func TestTimetableServiceUpdateCourseSlotsSuccess(t *testing.T) {
	room := "room-1"
	fixture := newTimetableFixture(t, timetableFixtureConfig{
		courses: []models.Course{
			{ID: "course-1", UniversityID: "uni-1", Name: "Physics", Section: "A", ClassroomID: &room},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	course, err := fixture.service.UpdateCourseSlots(context.Background(), "course-1", dto.UpdateCourseScheduleRequest{
		Slots: []dto.CourseSlotRequest{
			{DayOfWeek: "FRIDAY", StartTime: "15:00", EndTime: "16:00"},
			{DayOfWeek: "FRIDAY", StartTime: "16:00", EndTime: "17:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, course.Slots, 2)
	assert.Equal(t, "FRIDAY", course.Slots[0].DayOfWeek)
	require.Len(t, fixture.courses.replaced["course-1"], 2)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestTimetableServiceUpdateCourseSlotsUnknownCourse(t *testing.T) {
	fixture := newTimetableFixture(t, timetableFixtureConfig{})

	_, err := fixture.service.UpdateCourseSlots(context.Background(), "missing", dto.UpdateCourseScheduleRequest{
		Slots: []dto.CourseSlotRequest{{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type timetableFixtureConfig struct {
	courses        []models.Course
	committedSlots []models.CourseSlot
	professors     []models.Professor
	rooms          []models.Classroom
}

type timetableFixture struct {
	service  *TimetableService
	courses  *timetableCourseRepoStub
	mock     sqlmock.Sqlmock
	fixtures timetableFixtureConfig
}

func newTimetableFixture(t *testing.T, cfg timetableFixtureConfig) *timetableFixture {
	t.Helper()
	txProvider, mock := newTxProviderMock(t)

	courseRepo := &timetableCourseRepoStub{
		courses:         cfg.courses,
		committed:       cfg.committedSlots,
		replaced:        make(map[string][]models.CourseSlot),
		roomAssignments: make(map[string]*string),
	}
	svc := NewTimetableService(
		courseRepo,
		professorReaderStub{items: cfg.professors},
		classroomReaderStub{items: cfg.rooms},
		txProvider,
		nil,
		nil,
		nil,
		FixedLunchPolicy(0),
		NewTenantLocks(),
		TimetableConfig{SlotsPerDay: 8, DayStartHour: 9},
	)
	return &timetableFixture{service: svc, courses: courseRepo, mock: mock, fixtures: cfg}
}

type timetableCourseRepoStub struct {
	courses         []models.Course
	committed       []models.CourseSlot
	replaced        map[string][]models.CourseSlot
	roomAssignments map[string]*string
	cleared         bool
}

func (s *timetableCourseRepoStub) ListByUniversity(ctx context.Context, universityID string) ([]models.Course, error) {
	return s.courses, nil
}

func (s *timetableCourseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	for i := range s.courses {
		if s.courses[i].ID == id {
			course := s.courses[i]
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *timetableCourseRepoStub) ListSlotsByCourse(ctx context.Context, courseID string) ([]models.CourseSlot, error) {
	var out []models.CourseSlot
	for _, slot := range s.committed {
		if slot.CourseID == courseID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (s *timetableCourseRepoStub) ListSlotsByUniversity(ctx context.Context, universityID string) ([]models.CourseSlot, error) {
	return s.committed, nil
}

func (s *timetableCourseRepoStub) ClearTimetable(ctx context.Context, exec sqlx.ExtContext, universityID string) error {
	s.cleared = true
	return nil
}

func (s *timetableCourseRepoStub) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, courseID string, slots []models.CourseSlot) error {
	s.replaced[courseID] = slots
	return nil
}

func (s *timetableCourseRepoStub) UpdateClassroom(ctx context.Context, exec sqlx.ExtContext, courseID string, classroomID *string) error {
	s.roomAssignments[courseID] = classroomID
	return nil
}

type professorReaderStub struct {
	items []models.Professor
}

func (s professorReaderStub) ListByUniversity(ctx context.Context, universityID string) ([]models.Professor, error) {
	return s.items, nil
}

type classroomReaderStub struct {
	items []models.Classroom
}

func (s classroomReaderStub) ListByUniversity(ctx context.Context, universityID string) ([]models.Classroom, error) {
	return s.items, nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
