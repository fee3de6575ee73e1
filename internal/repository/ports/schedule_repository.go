package ports

import (
	"context"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Schedule, error)
	ListByFormation(ctx context.Context, formationID int64, window domain.ScheduleWindow) ([]domain.Schedule, error)
}
