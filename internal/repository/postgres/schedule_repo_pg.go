package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const scheduleSelect = `
		SELECT s.id, s.course_id, c.formation_id, c.title AS course_title,
		       s.starts_at, s.ends_at, s.room, s.created_at, s.updated_at
		FROM schedules s
		JOIN courses c ON c.id = s.course_id
`

type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepo(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

var _ ports.ScheduleRepository = (*ScheduleRepository)(nil)

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	const query = `
		INSERT INTO schedules (course_id, starts_at, ends_at, room)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.GetContext(ctx, &id, query, s.CourseID, s.StartsAt, s.EndsAt, s.Room); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *ScheduleRepository) Update(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	const query = `
		UPDATE schedules
		SET course_id = $2,
		    starts_at = $3,
		    ends_at = $4,
		    room = $5,
		    updated_at = NOW()
		WHERE id = $1
	`
	if err := execOne(ctx, r.db, query, s.ID, s.CourseID, s.StartsAt, s.EndsAt, s.Room); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, s.ID)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, `DELETE FROM schedules WHERE id = $1`, id)
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := r.db.GetContext(ctx, &s, scheduleSelect+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) ListByFormation(ctx context.Context, formationID int64, window domain.ScheduleWindow) ([]domain.Schedule, error) {
	query := scheduleSelect + `
		WHERE c.formation_id = $1 AND s.starts_at < $3 AND s.ends_at > $2
		ORDER BY s.starts_at ASC, s.id ASC
	`
	items := []domain.Schedule{}
	if err := r.db.SelectContext(ctx, &items, query, formationID, window.From, window.To); err != nil {
		return nil, err
	}
	return items, nil
}
