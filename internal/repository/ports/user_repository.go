package ports

import (
	"context"
	"time"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type NewUser struct {
	Email               string
	FirstName           string
	LastName            string
	Role                domain.UserRole
	ActivationTokenHash string
	ActivationExpiresAt time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user NewUser) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByActivationHash(ctx context.Context, tokenHash string) (*domain.User, error)
	SetActivationToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	Activate(ctx context.Context, id int64, passwordHash string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ListIDsByRole(ctx context.Context, role domain.UserRole) ([]int64, error)
	ListStudentIDsByFormation(ctx context.Context, formationID int64) ([]int64, error)
	FilterExisting(ctx context.Context, ids []int64) ([]int64, error)
	List(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error)
}
