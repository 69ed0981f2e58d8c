package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	"github.com/nurhakim/campus-scheduler-api/internal/repository"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ExamStatus) error
}

type examScheduleRepository interface {
	ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error)
	ListDetailByExam(ctx context.Context, examID string) ([]models.ExamScheduleDetail, error)
	ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, rows []models.ExamSchedule) error
	SetInvigilator(ctx context.Context, exec sqlx.ExtContext, scheduleID string, professorID *string) error
}

type examCourseReader interface {
	ListByUniversity(ctx context.Context, universityID string) ([]models.Course, error)
}

type enrollmentReader interface {
	MapByUniversity(ctx context.Context, universityID string) (map[string][]string, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// ExamConfig fixes exam session geometry and cache behaviour.
type ExamConfig struct {
	SessionHours int
	DefaultSlots []string
	CacheTTL     time.Duration
}

// ExamTimetableService colors the student-conflict graph into dated exam
// sessions, packs rooms, rotates invigilators and serves the cached
// schedule view.
type ExamTimetableService struct {
	exams       examReader
	schedules   examScheduleRepository
	courses     examCourseReader
	enrollments enrollmentReader
	professors  timetableProfessorReader
	classrooms  timetableClassroomReader
	tx          txProvider
	cache       scheduleCache
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     schedulerMetrics
	cacheStats  cacheObserver
	locks       *TenantLocks
	cfg         ExamConfig
}

// NewExamTimetableService wires exam scheduling dependencies.
func NewExamTimetableService(
	exams examReader,
	schedules examScheduleRepository,
	courses examCourseReader,
	enrollments enrollmentReader,
	professors timetableProfessorReader,
	classrooms timetableClassroomReader,
	tx txProvider,
	cache scheduleCache,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics schedulerMetrics,
	cacheStats cacheObserver,
	locks *TenantLocks,
	cfg ExamConfig,
) *ExamTimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewTenantLocks()
	}
	if cfg.SessionHours <= 0 {
		cfg.SessionHours = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ExamTimetableService{
		exams:       exams,
		schedules:   schedules,
		courses:     courses,
		enrollments: enrollments,
		professors:  professors,
		classrooms:  classrooms,
		tx:          tx,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		cacheStats:  cacheStats,
		locks:       locks,
		cfg:         cfg,
	}
}

type examSlot struct {
	date  time.Time
	start string
}

// loadExam resolves the exam and enforces the caller's tenant binding.
// An empty tenant means the token is not scoped to a university.
func (s *ExamTimetableService) loadExam(ctx context.Context, examID, tenant string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if tenant != "" && exam.UniversityID != tenant {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token is scoped to another university")
	}
	return exam, nil
}

// Generate computes and commits a complete exam timetable. Any course that
// cannot be seated fails the whole run and nothing is persisted.
func (s *ExamTimetableService) Generate(ctx context.Context, examID, tenant string, req dto.GenerateExamTimetableRequest) (*dto.ExamTimetableResult, error) {
	if len(req.SlotsPerDay) == 0 {
		req.SlotsPerDay = s.cfg.DefaultSlots
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam timetable payload")
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	exam, err := s.loadExam(ctx, examID, tenant)
	if err != nil {
		return nil, err
	}

	lock := s.locks.Acquire(exam.UniversityID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	courses, err := s.courses.ListByUniversity(ctx, exam.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no courses defined for this university")
	}
	rooms, err := s.classrooms.ListByUniversity(ctx, exam.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no classrooms available for this university")
	}
	enrollment, err := s.enrollments.MapByUniversity(ctx, exam.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	slots := buildExamSlots(startDate, endDate, req.SlotsPerDay)
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range contains no usable exam days")
	}

	rows, err := s.solve(exam, courses, rooms, enrollment, slots)
	if err != nil {
		s.observeRun("exam_timetable", "infeasible", started)
		return nil, err
	}

	if err := s.commit(ctx, exam.ID, rows); err != nil {
		s.observeRun("exam_timetable", "error", started)
		return nil, err
	}
	s.invalidateCache(ctx, exam.ID)

	s.observeRun("exam_timetable", "success", started)
	s.logger.Info("exam timetable generated",
		zap.String("exam_id", exam.ID),
		zap.String("university_id", exam.UniversityID),
		zap.Int("sessions", len(rows)),
	)
	return &dto.ExamTimetableResult{ScheduleCount: len(rows)}, nil
}

// solve runs greedy coloring over the student-conflict graph, then packs
// rooms slot by slot, largest courses first.
func (s *ExamTimetableService) solve(exam *models.Exam, courses []models.Course, rooms []models.Classroom, enrollment map[string][]string, slots []examSlot) ([]models.ExamSchedule, error) {
	graph := buildConflictGraph(enrollment)

	ordered := append([]models.Course(nil), courses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := graph.degree(ordered[i].ID), graph.degree(ordered[j].ID)
		if di != dj {
			return di > dj
		}
		return ordered[i].ID < ordered[j].ID
	})

	slotCourses := make([][]models.Course, len(slots))
	slotOf := make(map[string]int, len(ordered))

	for _, course := range ordered {
		placed := false
		for idx := range slots {
			if len(slotCourses[idx]) >= len(rooms) {
				continue
			}
			clash := false
			for _, occupant := range slotCourses[idx] {
				if graph.adjacent(course.ID, occupant.ID) {
					clash = true
					break
				}
			}
			if clash {
				continue
			}
			slotCourses[idx] = append(slotCourses[idx], course)
			slotOf[course.ID] = idx
			placed = true
			break
		}
		if !placed {
			return nil, appErrors.Clone(appErrors.ErrInfeasible,
				fmt.Sprintf("no conflict-free exam slot for course %s", course.Name))
		}
	}

	var rows []models.ExamSchedule
	for idx, occupants := range slotCourses {
		if len(occupants) == 0 {
			continue
		}
		sort.SliceStable(occupants, func(i, j int) bool {
			si := examStudentCount(occupants[i], enrollment)
			sj := examStudentCount(occupants[j], enrollment)
			if si != sj {
				return si > sj
			}
			return occupants[i].ID < occupants[j].ID
		})

		used := make([]bool, len(rooms))
		for _, course := range occupants {
			students := examStudentCount(course, enrollment)
			roomIdx := -1
			for i, room := range rooms {
				if used[i] || room.Capacity < students {
					continue
				}
				roomIdx = i
				break
			}
			if roomIdx < 0 {
				return nil, appErrors.Clone(appErrors.ErrInfeasible,
					fmt.Sprintf("no classroom large enough for course %s", course.Name))
			}
			used[roomIdx] = true
			rows = append(rows, models.ExamSchedule{
				ExamID:       exam.ID,
				CourseID:     course.ID,
				ExamDate:     slots[idx].date,
				StartTime:    slots[idx].start,
				EndTime:      s.sessionEnd(slots[idx].start),
				ClassroomID:  rooms[roomIdx].ID,
				StudentCount: students,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ExamDate.Equal(rows[j].ExamDate) {
			return rows[i].ExamDate.Before(rows[j].ExamDate)
		}
		if rows[i].StartTime != rows[j].StartTime {
			return rows[i].StartTime < rows[j].StartTime
		}
		return rows[i].CourseID < rows[j].CourseID
	})
	return rows, nil
}

func (s *ExamTimetableService) commit(ctx context.Context, examID string, rows []models.ExamSchedule) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedules.ReplaceForExam(ctx, tx, examID, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist exam schedule")
		return err
	}
	if err = s.exams.UpdateStatus(ctx, tx, examID, models.ExamStatusPublished); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exam schedule")
		return err
	}
	return nil
}

// AssignInvigilators walks committed sessions in chronological order and
// rotates through the professor roster so duty spreads evenly. Sessions no
// professor can cover stay unassigned; the caller sees only the count.
func (s *ExamTimetableService) AssignInvigilators(ctx context.Context, examID, tenant string) (*dto.InvigilatorRunStats, error) {
	exam, err := s.loadExam(ctx, examID, tenant)
	if err != nil {
		return nil, err
	}

	lock := s.locks.Acquire(exam.UniversityID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	rows, err := s.schedules.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam has no generated schedule")
	}
	professors, err := s.professors.ListByUniversity(ctx, exam.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professors")
	}

	type assignment struct {
		scheduleID  string
		professorID *string
	}

	busy := make(map[string]map[string]struct{})
	assignments := make([]assignment, 0, len(rows))
	stats := &dto.InvigilatorRunStats{}
	cursor := 0

	for _, row := range rows {
		key := sessionKey(row.ExamDate, row.StartTime)
		if busy[key] == nil {
			busy[key] = make(map[string]struct{})
		}

		var picked *string
		for attempt := 0; attempt < len(professors); attempt++ {
			candidate := professors[(cursor+attempt)%len(professors)]
			if _, taken := busy[key][candidate.ID]; taken {
				continue
			}
			id := candidate.ID
			picked = &id
			busy[key][id] = struct{}{}
			cursor = (cursor + attempt + 1) % len(professors)
			break
		}

		assignments = append(assignments, assignment{scheduleID: row.ID, professorID: picked})
		if picked != nil {
			stats.AssignedCount++
		} else {
			stats.UnassignedCount++
		}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, a := range assignments {
		if err = s.schedules.SetInvigilator(ctx, tx, a.scheduleID, a.professorID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist invigilator assignment")
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit invigilator assignments")
		return nil, err
	}
	s.invalidateCache(ctx, examID)

	s.observeRun("invigilator_assignment", "success", started)
	if stats.UnassignedCount > 0 {
		s.logger.Warn("invigilator coverage incomplete",
			zap.String("exam_id", examID),
			zap.Int("unassigned", stats.UnassignedCount),
		)
	}
	return stats, nil
}

// GetSchedule serves the resolved schedule view, cache first.
func (s *ExamTimetableService) GetSchedule(ctx context.Context, examID, tenant string) ([]models.ExamScheduleDetail, error) {
	if _, err := s.loadExam(ctx, examID, tenant); err != nil {
		return nil, err
	}

	key := repository.ExamScheduleCacheKey(examID)
	if s.cache != nil {
		var cached []models.ExamScheduleDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeCache(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("exam schedule cache read failed", zap.String("exam_id", examID), zap.Error(err))
		}
	}
	s.observeCache(false)

	rows, err := s.schedules.ListDetailByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rows, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("exam schedule cache write failed", zap.String("exam_id", examID), zap.Error(err))
		}
	}
	return rows, nil
}

func (s *ExamTimetableService) sessionEnd(start string) string {
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	return parsed.Add(time.Duration(s.cfg.SessionHours) * time.Hour).Format("15:04")
}

func (s *ExamTimetableService) invalidateCache(ctx context.Context, examID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.ExamScheduleCacheKey(examID)); err != nil {
		s.logger.Warn("exam schedule cache invalidation failed", zap.String("exam_id", examID), zap.Error(err))
	}
}

func (s *ExamTimetableService) observeRun(kind, outcome string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveSchedulerRun(kind, outcome, time.Since(started))
}

func (s *ExamTimetableService) observeCache(hit bool) {
	if s.cacheStats == nil {
		return
	}
	s.cacheStats.ObserveCacheLookup(hit)
}

// buildExamSlots expands the date range into dated sessions, skipping
// Sundays.
func buildExamSlots(start, end time.Time, startTimes []string) []examSlot {
	var slots []examSlot
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if date.Weekday() == time.Sunday {
			continue
		}
		for _, startTime := range startTimes {
			slots = append(slots, examSlot{date: date, start: startTime})
		}
	}
	return slots
}

func examStudentCount(course models.Course, enrollment map[string][]string) int {
	if enrolled := enrollment[course.ID]; len(enrolled) > 0 {
		return len(enrolled)
	}
	return course.StudentCount
}

func sessionKey(date time.Time, start string) string {
	return date.Format("2006-01-02") + "|" + start
}
