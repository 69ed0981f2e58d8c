package models

import "time"

// RoomType distinguishes lecture halls from laboratories.
type RoomType string

const (
	RoomTypeLectureHall RoomType = "LECTURE_HALL"
	RoomTypeLab         RoomType = "LAB"
)

// Classroom represents a bookable room within one university.
type Classroom struct {
	ID           string    `db:"id" json:"id"`
	UniversityID string    `db:"university_id" json:"university_id"`
	Name         string    `db:"name" json:"name"`
	Capacity     int       `db:"capacity" json:"capacity"`
	RoomType     RoomType  `db:"room_type" json:"room_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
