package domain

import "time"

type StudentProfile struct {
	UserID      int64      `db:"user_id" json:"user_id"`
	FormationID *int64     `db:"formation_id" json:"formation_id,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AvatarURL   *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type StudentProfileUpdate struct {
	FormationID *int64
	Phone       *string
	Address     *string
	DateOfBirth *time.Time
}

// BankDetails holds IBAN and BIC as ciphertext; see cryptox.FieldCipher.
type BankDetails struct {
	UserID        int64     `db:"user_id"`
	AccountHolder string    `db:"account_holder"`
	IBANEncrypted string    `db:"iban_encrypted"`
	BICEncrypted  string    `db:"bic_encrypted"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// BankDetailsView is the plaintext or masked form returned to callers.
type BankDetailsView struct {
	AccountHolder string    `json:"account_holder"`
	IBAN          string    `json:"iban"`
	BIC           string    `json:"bic"`
	Masked        bool      `json:"masked"`
	UpdatedAt     time.Time `json:"updated_at"`
}
