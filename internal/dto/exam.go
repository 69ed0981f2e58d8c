package dto

// GenerateExamTimetableRequest bounds the scheduling horizon and the daily
// session start labels (each session is a fixed-length block).
type GenerateExamTimetableRequest struct {
	StartDate   string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	SlotsPerDay []string `json:"slotsPerDay" validate:"required,min=1,dive,datetime=15:04"`
}

// ExamTimetableResult reports a committed generation run.
type ExamTimetableResult struct {
	ScheduleCount int `json:"scheduleCount"`
}

// InvigilatorRunStats reports proctor assignment coverage. Rows that no
// professor could cover stay unassigned and are only visible here.
type InvigilatorRunStats struct {
	AssignedCount   int `json:"assignedCount"`
	UnassignedCount int `json:"unassignedCount"`
}
