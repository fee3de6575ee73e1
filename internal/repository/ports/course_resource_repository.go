package ports

import (
	"context"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type CourseResourceRepository interface {
	Create(ctx context.Context, resource *domain.CourseResource) (*domain.CourseResource, error)
	FindByID(ctx context.Context, id int64) (*domain.CourseResource, error)
	ListByCourse(ctx context.Context, courseID int64, status *domain.ResourceStatus) ([]domain.CourseResource, error)
	// Review moves a pending resource to status. It returns sql.ErrNoRows when
	// the resource is missing or no longer pending.
	Review(ctx context.Context, id int64, status domain.ResourceStatus, reviewerID int64, reason *string) (*domain.CourseResource, error)
}
