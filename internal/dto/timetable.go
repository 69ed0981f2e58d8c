package dto

// PlacementStatus tags the per-course outcome of a timetable run.
type PlacementStatus string

const (
	PlacementStatusPlaced   PlacementStatus = "PLACED"
	PlacementStatusUnplaced PlacementStatus = "UNPLACED"
)

// CoursePlacement reports how a single course fared during generation. An
// unplaced course keeps whatever partial schedule it received.
type CoursePlacement struct {
	CourseID      string          `json:"courseId"`
	CourseName    string          `json:"courseName"`
	Status        PlacementStatus `json:"status"`
	AssignedHours int             `json:"assignedHours"`
	WeeklyHours   int             `json:"weeklyHours"`
	Reason        string          `json:"reason,omitempty"`
}

// TimetableRunStats aggregates a full generation run.
type TimetableRunStats struct {
	AssignedCount int               `json:"assignedCount"`
	FailedCount   int               `json:"failedCount"`
	Placements    []CoursePlacement `json:"placements"`
}

// CourseSlotRequest is one proposed hour in a manual schedule edit.
type CourseSlotRequest struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// UpdateCourseScheduleRequest replaces a course's weekly pattern verbatim.
type UpdateCourseScheduleRequest struct {
	Slots []CourseSlotRequest `json:"slots" validate:"required,min=1,dive"`
}
