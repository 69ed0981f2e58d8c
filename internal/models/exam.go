package models

import "time"

// ExamStatus represents lifecycle phases for an examination period.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusCompleted ExamStatus = "COMPLETED"
)

// Exam defines an examination window for one university.
type Exam struct {
	ID           string     `db:"id" json:"id"`
	UniversityID string     `db:"university_id" json:"university_id"`
	Title        string     `db:"title" json:"title"`
	StartDate    time.Time  `db:"start_date" json:"start_date"`
	EndDate      time.Time  `db:"end_date" json:"end_date"`
	Status       ExamStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamSchedule places one course exam into a dated session and room.
// (classroom_id, exam_date, start_time) is unique.
type ExamSchedule struct {
	ID            string    `db:"id" json:"id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	ExamDate      time.Time `db:"exam_date" json:"exam_date"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	ClassroomID   string    `db:"classroom_id" json:"classroom_id"`
	InvigilatorID *string   `db:"invigilator_id" json:"invigilator_id,omitempty"`
	StudentCount  int       `db:"student_count" json:"student_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ExamScheduleDetail joins display fields for client consumption.
type ExamScheduleDetail struct {
	ExamSchedule
	CourseName      string  `db:"course_name" json:"course_name"`
	Section         string  `db:"section" json:"section"`
	ClassroomName   string  `db:"classroom_name" json:"classroom_name"`
	InvigilatorName *string `db:"invigilator_name" json:"invigilator_name,omitempty"`
}
