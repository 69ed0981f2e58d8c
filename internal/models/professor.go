package models

import "time"

// DefaultMaxHoursPerDay caps daily teaching load when a professor record
// carries no explicit limit.
const DefaultMaxHoursPerDay = 4

// Professor represents an instructor within one university.
type Professor struct {
	ID             string    `db:"id" json:"id"`
	UniversityID   string    `db:"university_id" json:"university_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	MaxHoursPerDay int       `db:"max_hours_per_day" json:"max_hours_per_day"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DailyHourCap returns the effective per-day teaching limit.
func (p Professor) DailyHourCap() int {
	if p.MaxHoursPerDay > 0 {
		return p.MaxHoursPerDay
	}
	return DefaultMaxHoursPerDay
}
