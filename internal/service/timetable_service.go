package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nurhakim/campus-scheduler-api/internal/dto"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

type timetableCourseRepository interface {
	ListByUniversity(ctx context.Context, universityID string) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListSlotsByCourse(ctx context.Context, courseID string) ([]models.CourseSlot, error)
	ListSlotsByUniversity(ctx context.Context, universityID string) ([]models.CourseSlot, error)
	ClearTimetable(ctx context.Context, exec sqlx.ExtContext, universityID string) error
	ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, courseID string, slots []models.CourseSlot) error
	UpdateClassroom(ctx context.Context, exec sqlx.ExtContext, courseID string, classroomID *string) error
}

type timetableProfessorReader interface {
	ListByUniversity(ctx context.Context, universityID string) ([]models.Professor, error)
}

type timetableClassroomReader interface {
	ListByUniversity(ctx context.Context, universityID string) ([]models.Classroom, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type schedulerMetrics interface {
	ObserveSchedulerRun(kind, outcome string, duration time.Duration)
}

// LunchPolicy chooses the lunch slot index for a section cohort. The choice
// is made once per generation run per cohort.
type LunchPolicy interface {
	LunchSlot(section string, choices []int) int
}

type randomLunchPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLunchPolicy returns the production policy: a seeded uniform pick
// among the candidate lunch slots. Seed zero falls back to the clock.
func NewRandomLunchPolicy(seed int64) LunchPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randomLunchPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *randomLunchPolicy) LunchSlot(section string, choices []int) int {
	if len(choices) == 0 {
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return choices[p.rng.Intn(len(choices))]
}

// FixedLunchPolicy always picks the same candidate index; tests use it to
// pin down the grid.
type FixedLunchPolicy int

func (p FixedLunchPolicy) LunchSlot(section string, choices []int) int {
	if len(choices) == 0 {
		return -1
	}
	idx := int(p)
	if idx < 0 || idx >= len(choices) {
		idx = 0
	}
	return choices[idx]
}

// TimetableConfig fixes the weekly grid shape.
type TimetableConfig struct {
	SlotsPerDay  int
	DayStartHour int
}

// TimetableService generates weekly course timetables and validates manual
// schedule edits.
type TimetableService struct {
	courses    timetableCourseRepository
	professors timetableProfessorReader
	classrooms timetableClassroomReader
	tx         txProvider
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    schedulerMetrics
	lunch      LunchPolicy
	locks      *TenantLocks
	grid       timetableGrid
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	courses timetableCourseRepository,
	professors timetableProfessorReader,
	classrooms timetableClassroomReader,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics schedulerMetrics,
	lunch LunchPolicy,
	locks *TenantLocks,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lunch == nil {
		lunch = NewRandomLunchPolicy(0)
	}
	if locks == nil {
		locks = NewTenantLocks()
	}
	if cfg.SlotsPerDay <= 0 {
		cfg.SlotsPerDay = 8
	}
	if cfg.DayStartHour <= 0 {
		cfg.DayStartHour = 9
	}
	return &TimetableService{
		courses:    courses,
		professors: professors,
		classrooms: classrooms,
		tx:         tx,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		lunch:      lunch,
		locks:      locks,
		grid:       newTimetableGrid(cfg.SlotsPerDay, cfg.DayStartHour),
	}
}

// Generate recomputes the weekly timetable for every course of a tenant.
// Previously stored schedules are discarded first; courses that cannot be
// fully placed keep their partial schedule and are counted as failed.
func (s *TimetableService) Generate(ctx context.Context, universityID string) (*dto.TimetableRunStats, error) {
	if universityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "university id is required")
	}

	lock := s.locks.Acquire(universityID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	courses, err := s.courses.ListByUniversity(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no courses defined for this university")
	}
	professors, err := s.professors.ListByUniversity(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professors")
	}
	rooms, err := s.classrooms.ListByUniversity(ctx, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no classrooms available for this university")
	}

	run := newTimetableRun(s.grid, courses, professors, rooms, s.lunch)
	results := run.placeAll()

	stats := &dto.TimetableRunStats{Placements: make([]dto.CoursePlacement, 0, len(results))}
	for _, result := range results {
		stats.Placements = append(stats.Placements, result.placement)
		if result.placement.Status == dto.PlacementStatusPlaced {
			stats.AssignedCount++
		} else {
			stats.FailedCount++
		}
	}

	if err := s.commitTimetable(ctx, universityID, results); err != nil {
		s.observeRun("course_timetable", "error", started)
		return nil, err
	}

	outcome := "success"
	if stats.FailedCount > 0 {
		outcome = "partial"
	}
	s.observeRun("course_timetable", outcome, started)
	s.logger.Info("course timetable generated",
		zap.String("university_id", universityID),
		zap.Int("assigned", stats.AssignedCount),
		zap.Int("failed", stats.FailedCount),
	)
	return stats, nil
}

// Reset clears every course's schedule and room assignment for a tenant.
func (s *TimetableService) Reset(ctx context.Context, universityID string) error {
	if universityID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "university id is required")
	}

	lock := s.locks.Acquire(universityID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.courses.ClearTimetable(ctx, tx, universityID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear timetable")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable reset")
		return err
	}
	return nil
}

// UpdateCourseSlots validates a manually proposed weekly pattern against all
// other committed schedules and, when clean, replaces the course's slots
// verbatim. Lunch-break and daily-cap rules are generator concerns and are
// deliberately not enforced on manual edits.
func (s *TimetableService) UpdateCourseSlots(ctx context.Context, courseID string, req dto.UpdateCourseScheduleRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lock := s.locks.Acquire(course.UniversityID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.checkManualConflicts(ctx, course, req.Slots); err != nil {
		return nil, err
	}

	slots := make([]models.CourseSlot, 0, len(req.Slots))
	for _, proposed := range req.Slots {
		slots = append(slots, models.CourseSlot{
			CourseID:  course.ID,
			DayOfWeek: proposed.DayOfWeek,
			StartTime: proposed.StartTime,
			EndTime:   proposed.EndTime,
		})
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

	if err = s.courses.ReplaceSlots(ctx, tx, course.ID, slots); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace course slots")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule update")
		return nil, err
	}

	course.Slots = slots
	return course, nil
}

func (s *TimetableService) checkManualConflicts(ctx context.Context, course *models.Course, proposed []dto.CourseSlotRequest) error {
	others, err := s.courses.ListByUniversity(ctx, course.UniversityID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	committed, err := s.courses.ListSlotsByUniversity(ctx, course.UniversityID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed slots")
	}

	byID := make(map[string]models.Course, len(others))
	for _, other := range others {
		byID[other.ID] = other
	}

	for _, want := range proposed {
		for _, held := range committed {
			if held.CourseID == course.ID {
				continue
			}
			if held.DayOfWeek != want.DayOfWeek || held.StartTime != want.StartTime {
				continue
			}
			other, ok := byID[held.CourseID]
			if !ok {
				continue
			}
			if course.ClassroomID != nil && other.ClassroomID != nil && *course.ClassroomID == *other.ClassroomID {
				conflict := &models.SlotConflictError{
					Message: fmt.Sprintf("classroom %s is already booked by %s on %s at %s", *other.ClassroomID, other.Name, held.DayOfWeek, held.StartTime),
					Conflict: models.SlotConflict{
						CourseID:   other.ID,
						CourseName: other.Name,
						Resource:   "CLASSROOM",
						ResourceID: *other.ClassroomID,
						DayOfWeek:  held.DayOfWeek,
						StartTime:  held.StartTime,
					},
				}
				return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
			}
			if course.ProfessorID != nil && other.ProfessorID != nil && *course.ProfessorID == *other.ProfessorID {
				conflict := &models.SlotConflictError{
					Message: fmt.Sprintf("professor %s is already teaching %s on %s at %s", *other.ProfessorID, other.Name, held.DayOfWeek, held.StartTime),
					Conflict: models.SlotConflict{
						CourseID:   other.ID,
						CourseName: other.Name,
						Resource:   "PROFESSOR",
						ResourceID: *other.ProfessorID,
						DayOfWeek:  held.DayOfWeek,
						StartTime:  held.StartTime,
					},
				}
				return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
			}
		}
	}
	return nil
}

func (s *TimetableService) commitTimetable(ctx context.Context, universityID string, results []courseResult) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.courses.ClearTimetable(ctx, tx, universityID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous timetable")
		return err
	}

	for _, result := range results {
		if len(result.slots) > 0 {
			if err = s.courses.ReplaceSlots(ctx, tx, result.placement.CourseID, result.slots); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist course slots")
				return err
			}
		}
		if err = s.courses.UpdateClassroom(ctx, tx, result.placement.CourseID, result.classroomID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist course classroom")
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
		return err
	}
	return nil
}

func (s *TimetableService) observeRun(kind, outcome string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveSchedulerRun(kind, outcome, time.Since(started))
}

// --- Weekly grid ---

var weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}

type timetableGrid struct {
	slotsPerDay  int
	dayStartHour int
}

func newTimetableGrid(slotsPerDay, dayStartHour int) timetableGrid {
	return timetableGrid{slotsPerDay: slotsPerDay, dayStartHour: dayStartHour}
}

func (g timetableGrid) days() int {
	return len(weekdays)
}

func (g timetableGrid) dayName(day int) string {
	return weekdays[day]
}

func (g timetableGrid) slotStart(slot int) string {
	return fmt.Sprintf("%02d:00", g.dayStartHour+slot)
}

func (g timetableGrid) slotEnd(slot int) string {
	return fmt.Sprintf("%02d:00", g.dayStartHour+slot+1)
}

// lunchChoices returns the slot indexes corresponding to the 12:00 and 13:00
// hours, when they fall inside the grid.
func (g timetableGrid) lunchChoices() []int {
	var choices []int
	for _, hour := range []int{12, 13} {
		slot := hour - g.dayStartHour
		if slot >= 0 && slot < g.slotsPerDay {
			choices = append(choices, slot)
		}
	}
	return choices
}

// --- Availability arena ---

// availabilityGrid is a flat busy bitmap indexed by (resource, day, slot).
// Conflict checks are O(1) lookups instead of nested map walks.
type availabilityGrid struct {
	days  int
	slots int
	busy  []bool
}

func newAvailabilityGrid(resources, days, slots int) *availabilityGrid {
	return &availabilityGrid{days: days, slots: slots, busy: make([]bool, resources*days*slots)}
}

func (g *availabilityGrid) index(resource, day, slot int) int {
	return (resource*g.days+day)*g.slots + slot
}

func (g *availabilityGrid) isBusy(resource, day, slot int) bool {
	return g.busy[g.index(resource, day, slot)]
}

func (g *availabilityGrid) mark(resource, day, slot int) {
	g.busy[g.index(resource, day, slot)] = true
}

// --- Placement run ---

type courseResult struct {
	placement   dto.CoursePlacement
	slots       []models.CourseSlot
	classroomID *string
}

type timetableRun struct {
	grid    timetableGrid
	courses []models.Course
	rooms   []models.Classroom

	profIndex map[string]int
	profCaps  []int
	profBusy  *availabilityGrid
	profHours [][]int

	roomBusy *availabilityGrid

	cohortIndex map[string]int
	cohortBusy  *availabilityGrid
	cohortLunch []int
}

func newTimetableRun(grid timetableGrid, courses []models.Course, professors []models.Professor, rooms []models.Classroom, lunch LunchPolicy) *timetableRun {
	run := &timetableRun{
		grid:        grid,
		courses:     append([]models.Course(nil), courses...),
		rooms:       rooms,
		profIndex:   make(map[string]int),
		cohortIndex: make(map[string]int),
	}

	for _, professor := range professors {
		run.profIndex[professor.ID] = len(run.profCaps)
		run.profCaps = append(run.profCaps, professor.DailyHourCap())
	}
	// Courses may reference professors missing from the active roster; give
	// them a row with the default cap rather than dropping their constraints.
	for _, course := range run.courses {
		if course.ProfessorID == nil {
			continue
		}
		if _, ok := run.profIndex[*course.ProfessorID]; !ok {
			run.profIndex[*course.ProfessorID] = len(run.profCaps)
			run.profCaps = append(run.profCaps, models.DefaultMaxHoursPerDay)
		}
	}

	choices := grid.lunchChoices()
	for _, course := range run.courses {
		if _, ok := run.cohortIndex[course.Section]; !ok {
			run.cohortIndex[course.Section] = len(run.cohortLunch)
			run.cohortLunch = append(run.cohortLunch, lunch.LunchSlot(course.Section, choices))
		}
	}

	days, slots := grid.days(), grid.slotsPerDay
	run.profBusy = newAvailabilityGrid(len(run.profCaps), days, slots)
	run.roomBusy = newAvailabilityGrid(len(rooms), days, slots)
	run.cohortBusy = newAvailabilityGrid(len(run.cohortLunch), days, slots)
	run.profHours = make([][]int, len(run.profCaps))
	for i := range run.profHours {
		run.profHours[i] = make([]int, days)
	}

	// Hardest-first: labs before core before electives, heavier loads first,
	// id as the deterministic tie-break.
	sort.SliceStable(run.courses, func(i, j int) bool {
		a, b := run.courses[i], run.courses[j]
		if a.CourseType.PriorityRank() != b.CourseType.PriorityRank() {
			return a.CourseType.PriorityRank() < b.CourseType.PriorityRank()
		}
		if a.WeeklyHours != b.WeeklyHours {
			return a.WeeklyHours > b.WeeklyHours
		}
		return a.ID < b.ID
	})

	return run
}

func (r *timetableRun) placeAll() []courseResult {
	results := make([]courseResult, 0, len(r.courses))
	for i := range r.courses {
		results = append(results, r.placeCourse(&r.courses[i]))
	}
	return results
}

func (r *timetableRun) placeCourse(course *models.Course) courseResult {
	result := courseResult{
		placement: dto.CoursePlacement{
			CourseID:    course.ID,
			CourseName:  course.Name,
			Status:      dto.PlacementStatusPlaced,
			WeeklyHours: course.WeeklyHours,
		},
	}

	blockSize := 1
	if course.CourseType == models.CourseTypeLab {
		blockSize = course.WeeklyHours
	}
	if blockSize <= 0 || blockSize > r.grid.slotsPerDay {
		result.placement.Status = dto.PlacementStatusUnplaced
		result.placement.Reason = fmt.Sprintf("weekly hours %d do not fit the daily grid", course.WeeklyHours)
		return result
	}

	profIdx := -1
	if course.ProfessorID != nil {
		profIdx = r.profIndex[*course.ProfessorID]
	}
	cohortIdx := r.cohortIndex[course.Section]
	roomIdx := -1

	assigned := 0
	daysUsed := make([]bool, r.grid.days())

	for assigned < course.WeeklyHours {
		remaining := course.WeeklyHours - assigned
		day, start, room, ok := r.findBlock(course, blockSize, remaining, profIdx, cohortIdx, roomIdx, daysUsed)
		if !ok {
			result.placement.Status = dto.PlacementStatusUnplaced
			result.placement.Reason = "no conflict-free block available"
			break
		}
		roomIdx = room
		daysUsed[day] = true
		for offset := 0; offset < blockSize; offset++ {
			slot := start + offset
			if profIdx >= 0 {
				r.profBusy.mark(profIdx, day, slot)
				r.profHours[profIdx][day]++
			}
			r.roomBusy.mark(room, day, slot)
			r.cohortBusy.mark(cohortIdx, day, slot)
			result.slots = append(result.slots, models.CourseSlot{
				CourseID:  course.ID,
				DayOfWeek: r.grid.dayName(day),
				StartTime: r.grid.slotStart(slot),
				EndTime:   r.grid.slotEnd(slot),
			})
		}
		assigned += blockSize
	}

	result.placement.AssignedHours = assigned
	if roomIdx >= 0 {
		id := r.rooms[roomIdx].ID
		result.classroomID = &id
	}
	return result
}

// findBlock scans the week in fixed day/slot order and returns the first
// block whose professor, cohort and room constraints all hold.
func (r *timetableRun) findBlock(course *models.Course, blockSize, remaining, profIdx, cohortIdx, pinnedRoom int, daysUsed []bool) (int, int, int, bool) {
	for day := 0; day < r.grid.days(); day++ {
		// Spread non-lab courses across distinct days while more than two
		// hours remain to be placed.
		if daysUsed[day] && course.CourseType != models.CourseTypeLab && remaining > 2 {
			continue
		}
		for start := 0; start+blockSize <= r.grid.slotsPerDay; start++ {
			if !r.blockFree(course, day, start, blockSize, profIdx, cohortIdx) {
				continue
			}
			room, ok := r.findRoom(course, day, start, blockSize, pinnedRoom)
			if !ok {
				continue
			}
			return day, start, room, true
		}
	}
	return 0, 0, -1, false
}

func (r *timetableRun) blockFree(course *models.Course, day, start, blockSize, profIdx, cohortIdx int) bool {
	lunch := r.cohortLunch[cohortIdx]
	for offset := 0; offset < blockSize; offset++ {
		slot := start + offset
		if slot == lunch {
			return false
		}
		if r.cohortBusy.isBusy(cohortIdx, day, slot) {
			return false
		}
		if profIdx >= 0 {
			if r.profBusy.isBusy(profIdx, day, slot) {
				return false
			}
		}
	}
	if profIdx >= 0 && r.profHours[profIdx][day]+blockSize > r.profCaps[profIdx] {
		return false
	}
	return true
}

// findRoom picks the first compatible free room. Once a course has a room it
// keeps it for every later block, so the stored classroom assignment stays
// truthful for the whole weekly pattern.
func (r *timetableRun) findRoom(course *models.Course, day, start, blockSize, pinnedRoom int) (int, bool) {
	if pinnedRoom >= 0 {
		if r.roomFree(pinnedRoom, day, start, blockSize) {
			return pinnedRoom, true
		}
		return -1, false
	}
	for idx, room := range r.rooms {
		if room.Capacity < course.StudentCount {
			continue
		}
		if room.RoomType != course.RequiredRoomType {
			continue
		}
		if r.roomFree(idx, day, start, blockSize) {
			return idx, true
		}
	}
	return -1, false
}

func (r *timetableRun) roomFree(roomIdx, day, start, blockSize int) bool {
	for offset := 0; offset < blockSize; offset++ {
		if r.roomBusy.isBusy(roomIdx, day, start+offset) {
			return false
		}
	}
	return true
}
