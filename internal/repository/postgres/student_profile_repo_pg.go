package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

const profileColumns = `user_id, formation_id, phone, address, date_of_birth, avatar_url, updated_at`

type StudentProfileRepository struct {
	db *sqlx.DB
}

func NewStudentProfileRepo(db *sqlx.DB) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

var _ ports.StudentProfileRepository = (*StudentProfileRepository)(nil)

func (r *StudentProfileRepository) Get(ctx context.Context, userID int64) (*domain.StudentProfile, error) {
	var p domain.StudentProfile
	if err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM student_profiles WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert only overwrites the fields present in update.
func (r *StudentProfileRepository) Upsert(ctx context.Context, userID int64, update domain.StudentProfileUpdate) (*domain.StudentProfile, error) {
	query := `
		INSERT INTO student_profiles (user_id, formation_id, phone, address, date_of_birth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET formation_id = COALESCE(EXCLUDED.formation_id, student_profiles.formation_id),
		    phone = COALESCE(EXCLUDED.phone, student_profiles.phone),
		    address = COALESCE(EXCLUDED.address, student_profiles.address),
		    date_of_birth = COALESCE(EXCLUDED.date_of_birth, student_profiles.date_of_birth),
		    updated_at = NOW()
		RETURNING ` + profileColumns
	var p domain.StudentProfile
	err := r.db.GetContext(ctx, &p, query, userID, update.FormationID, update.Phone, update.Address, update.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *StudentProfileRepository) SetAvatar(ctx context.Context, userID int64, avatarURL string) (*domain.StudentProfile, error) {
	query := `
		INSERT INTO student_profiles (user_id, avatar_url)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET avatar_url = EXCLUDED.avatar_url,
		    updated_at = NOW()
		RETURNING ` + profileColumns
	var p domain.StudentProfile
	if err := r.db.GetContext(ctx, &p, query, userID, avatarURL); err != nil {
		return nil, err
	}
	return &p, nil
}

type BankDetailsRepository struct {
	db *sqlx.DB
}

func NewBankDetailsRepo(db *sqlx.DB) *BankDetailsRepository {
	return &BankDetailsRepository{db: db}
}

var _ ports.BankDetailsRepository = (*BankDetailsRepository)(nil)

func (r *BankDetailsRepository) Get(ctx context.Context, userID int64) (*domain.BankDetails, error) {
	const query = `
		SELECT user_id, account_holder, iban_encrypted, bic_encrypted, updated_at
		FROM bank_details
		WHERE user_id = $1
	`
	var d domain.BankDetails
	if err := r.db.GetContext(ctx, &d, query, userID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *BankDetailsRepository) Upsert(ctx context.Context, details *domain.BankDetails) (*domain.BankDetails, error) {
	const query = `
		INSERT INTO bank_details (user_id, account_holder, iban_encrypted, bic_encrypted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET account_holder = EXCLUDED.account_holder,
		    iban_encrypted = EXCLUDED.iban_encrypted,
		    bic_encrypted = EXCLUDED.bic_encrypted,
		    updated_at = NOW()
		RETURNING user_id, account_holder, iban_encrypted, bic_encrypted, updated_at
	`
	var d domain.BankDetails
	err := r.db.GetContext(ctx, &d, query, details.UserID, details.AccountHolder, details.IBANEncrypted, details.BICEncrypted)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
