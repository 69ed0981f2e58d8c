package models

import "time"

// CourseType ranks courses for placement priority: labs need contiguous
// blocks and are hardest to place, so they go first.
type CourseType string

const (
	CourseTypeLab      CourseType = "LAB"
	CourseTypeCore     CourseType = "CORE"
	CourseTypeElective CourseType = "ELECTIVE"
	CourseTypeAudit    CourseType = "AUDIT"
)

// PriorityRank orders course types for the timetable generator. Lower ranks
// are scheduled first.
func (t CourseType) PriorityRank() int {
	switch t {
	case CourseTypeLab:
		return 0
	case CourseTypeCore:
		return 1
	case CourseTypeElective:
		return 2
	default:
		return 3
	}
}

// Course represents a weekly course offering for one section cohort.
type Course struct {
	ID               string     `db:"id" json:"id"`
	UniversityID     string     `db:"university_id" json:"university_id"`
	Name             string     `db:"name" json:"name"`
	Section          string     `db:"section" json:"section"`
	CourseType       CourseType `db:"course_type" json:"course_type"`
	WeeklyHours      int        `db:"weekly_hours" json:"weekly_hours"`
	StudentCount     int        `db:"student_count" json:"student_count"`
	RequiredRoomType RoomType   `db:"required_room_type" json:"required_room_type"`
	ProfessorID      *string    `db:"professor_id" json:"professor_id,omitempty"`
	ClassroomID      *string    `db:"classroom_id" json:"classroom_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	Slots []CourseSlot `db:"-" json:"slots,omitempty"`
}

// CourseSlot is one hour of a course's weekly pattern.
type CourseSlot struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SlotConflict identifies the committed booking that collides with a proposed slot.
type SlotConflict struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	DayOfWeek  string `json:"day_of_week"`
	StartTime  string `json:"start_time"`
}

// SlotConflictError is returned when a manual schedule edit collides with an
// existing room or professor booking.
type SlotConflictError struct {
	Message  string       `json:"message"`
	Conflict SlotConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
