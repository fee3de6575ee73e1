package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const userColumns = `id, email, first_name, last_name, role, password_hash, is_active,
        activation_token_hash, activation_expires_at, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user ports.NewUser) (*domain.User, error) {
	query := `
        INSERT INTO users (email, first_name, last_name, role, activation_token_hash, activation_expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + userColumns

	var created domain.User
	row := r.db.QueryRowxContext(ctx, query, user.Email, user.FirstName, user.LastName, user.Role, user.ActivationTokenHash, user.ActivationExpiresAt)
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByActivationHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE activation_token_hash = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, tokenHash); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) SetActivationToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	const query = `
        UPDATE users
        SET activation_token_hash = $2,
            activation_expires_at = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	return execOne(ctx, r.db, query, id, tokenHash, expiresAt)
}

// Activate sets the first password and clears the activation token in one
// statement.
func (r *UserRepository) Activate(ctx context.Context, id int64, passwordHash string) error {
	const query = `
        UPDATE users
        SET password_hash = $2,
            is_active = TRUE,
            activation_token_hash = NULL,
            activation_expires_at = NULL,
            updated_at = NOW()
        WHERE id = $1
    `
	return execOne(ctx, r.db, query, id, passwordHash)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `
        UPDATE users
        SET password_hash = $2,
            updated_at = NOW()
        WHERE id = $1
    `
	return execOne(ctx, r.db, query, id, passwordHash)
}

func (r *UserRepository) ListIDsByRole(ctx context.Context, role domain.UserRole) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE role = $1 AND is_active ORDER BY id`, role); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepository) ListStudentIDsByFormation(ctx context.Context, formationID int64) ([]int64, error) {
	const query = `
        SELECT u.id
        FROM users u
        JOIN student_profiles p ON p.user_id = u.id
        WHERE p.formation_id = $1 AND u.role = 'student'
        ORDER BY u.id
    `
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, formationID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepository) FilterExisting(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}
	existing := []int64{}
	if err := r.db.SelectContext(ctx, &existing, `SELECT id FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids)); err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *UserRepository) List(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE ($1::text IS NULL OR role = $1)
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	var roleArg *string
	if role != nil {
		v := string(*role)
		roleArg = &v
	}
	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, roleArg, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}
