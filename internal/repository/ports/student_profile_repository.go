package ports

import (
	"context"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

type StudentProfileRepository interface {
	Get(ctx context.Context, userID int64) (*domain.StudentProfile, error)
	Upsert(ctx context.Context, userID int64, update domain.StudentProfileUpdate) (*domain.StudentProfile, error)
	SetAvatar(ctx context.Context, userID int64, avatarURL string) (*domain.StudentProfile, error)
}

type BankDetailsRepository interface {
	Get(ctx context.Context, userID int64) (*domain.BankDetails, error)
	Upsert(ctx context.Context, details *domain.BankDetails) (*domain.BankDetails, error)
}
