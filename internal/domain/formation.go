package domain

import "time"

type Formation struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type Course struct {
	ID          int64     `db:"id" json:"id"`
	FormationID int64     `db:"formation_id" json:"formation_id"`
	TeacherID   *int64    `db:"teacher_id" json:"teacher_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Course) TaughtBy(userID int64) bool {
	return c != nil && c.TeacherID != nil && *c.TeacherID == userID
}
