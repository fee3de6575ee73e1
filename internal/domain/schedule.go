package domain

import "time"

type Schedule struct {
	ID          int64     `db:"id" json:"id"`
	CourseID    int64     `db:"course_id" json:"course_id"`
	FormationID int64     `db:"formation_id" json:"formation_id"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Room        *string   `db:"room" json:"room,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type ScheduleWindow struct {
	From time.Time
	To   time.Time
}
