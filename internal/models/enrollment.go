package models

// Enrollment links a student to a course. Enrollment bookkeeping itself is
// owned by the records service; the scheduler only reads it to detect courses
// that share students.
type Enrollment struct {
	CourseID  string `db:"course_id" json:"course_id"`
	StudentID string `db:"student_id" json:"student_id"`
}
