package ports

import (
	"context"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type FormationRepository interface {
	Create(ctx context.Context, name string, description *string) (*domain.Formation, error)
	FindByID(ctx context.Context, id int64) (*domain.Formation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Formation, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) (*domain.Course, error)
	FindByID(ctx context.Context, id int64) (*domain.Course, error)
	ListByFormation(ctx context.Context, formationID int64) ([]domain.Course, error)
	AssignTeacher(ctx context.Context, courseID int64, teacherID *int64) (*domain.Course, error)
}
