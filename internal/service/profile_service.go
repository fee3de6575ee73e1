package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/media"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	bicPattern  = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
)

// FieldEncrypter is satisfied by *cryptox.FieldCipher.
type FieldEncrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

type ProfileConfig struct {
	AvatarBucket       string
	AvatarMaxBytes     int64
	AvatarMaxDimension int
}

type BankDetailsInput struct {
	AccountHolder string
	IBAN          string
	BIC           string
}

type AvatarUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type ProfileService struct {
	profiles     ports.StudentProfileRepository
	bank         ports.BankDetailsRepository
	formations   ports.FormationRepository
	storage      ports.ObjectStorage
	processor    media.Processor
	cipher       FieldEncrypter
	bucket       string
	maxBytes     int64
	maxDimension int
	log          zerolog.Logger
}

func NewProfileService(
	profiles ports.StudentProfileRepository,
	bank ports.BankDetailsRepository,
	formations ports.FormationRepository,
	storage ports.ObjectStorage,
	processor media.Processor,
	cipher FieldEncrypter,
	cfg ProfileConfig,
	log zerolog.Logger,
) *ProfileService {
	if cfg.AvatarMaxBytes <= 0 {
		cfg.AvatarMaxBytes = 5 << 20
	}
	if cfg.AvatarMaxDimension <= 0 {
		cfg.AvatarMaxDimension = media.DefaultMaxDimension
	}
	return &ProfileService{
		profiles:     profiles,
		bank:         bank,
		formations:   formations,
		storage:      storage,
		processor:    processor,
		cipher:       cipher,
		bucket:       cfg.AvatarBucket,
		maxBytes:     cfg.AvatarMaxBytes,
		maxDimension: cfg.AvatarMaxDimension,
		log:          log.With().Str("component", "profiles").Logger(),
	}
}

// Get returns an empty profile for users that never filled one in.
func (s *ProfileService) Get(ctx context.Context, principal domain.Principal, userID int64) (*domain.StudentProfile, error) {
	if !principal.CanActFor(userID) {
		return nil, ErrForbidden
	}
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.StudentProfile{UserID: userID}, nil
	}
	return profile, err
}

// Update changes only the fields that are set. Only admins move a student to
// another formation.
func (s *ProfileService) Update(ctx context.Context, principal domain.Principal, userID int64, update domain.StudentProfileUpdate) (*domain.StudentProfile, error) {
	if !principal.CanActFor(userID) {
		return nil, ErrForbidden
	}
	if update.FormationID != nil {
		if !principal.IsAdmin() {
			return nil, ErrForbidden
		}
		if _, err := s.formations.FindByID(ctx, *update.FormationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: formation %d does not exist", ErrValidation, *update.FormationID)
			}
			return nil, err
		}
	}
	update.Phone = trimmedPtr(update.Phone)
	update.Address = trimmedPtr(update.Address)
	return s.profiles.Upsert(ctx, userID, update)
}

func (s *ProfileService) UploadAvatar(ctx context.Context, principal domain.Principal, userID int64, upload AvatarUpload) (*domain.StudentProfile, error) {
	if !principal.CanActFor(userID) {
		return nil, ErrForbidden
	}
	if upload.Reader == nil || upload.Size <= 0 {
		return nil, fmt.Errorf("%w: an image is required", ErrValidation)
	}
	if upload.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, s.maxBytes)
	}
	if s.storage == nil {
		return nil, fmt.Errorf("%w: object storage not configured", ErrConfig)
	}
	reader, size, contentType, err := prepareImageForUpload(ctx, s.processor, media.Upload{
		Reader:      upload.Reader,
		Size:        upload.Size,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
	}, s.maxDimension)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), imageExtension(contentType))
	url, err := s.storage.Upload(ctx, s.bucket, key, contentType, reader, size)
	if err != nil {
		return nil, fmt.Errorf("%w: upload avatar: %v", ErrTransport, err)
	}
	profile, err := s.profiles.SetAvatar(ctx, userID, url)
	if err != nil {
		if rmErr := s.storage.Remove(ctx, s.bucket, key); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object", key).Msg("remove orphaned avatar failed")
		}
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) SaveBankDetails(ctx context.Context, principal domain.Principal, userID int64, input BankDetailsInput) (*domain.BankDetailsView, error) {
	if !principal.CanActFor(userID) {
		return nil, ErrForbidden
	}
	holder := strings.TrimSpace(input.AccountHolder)
	iban := compactUpper(input.IBAN)
	bic := compactUpper(input.BIC)
	if holder == "" {
		return nil, fmt.Errorf("%w: account holder is required", ErrValidation)
	}
	if !ibanPattern.MatchString(iban) {
		return nil, fmt.Errorf("%w: invalid IBAN", ErrValidation)
	}
	if !bicPattern.MatchString(bic) {
		return nil, fmt.Errorf("%w: invalid BIC", ErrValidation)
	}

	ibanEnc, err := s.encrypt(iban)
	if err != nil {
		return nil, err
	}
	bicEnc, err := s.encrypt(bic)
	if err != nil {
		return nil, err
	}
	saved, err := s.bank.Upsert(ctx, &domain.BankDetails{
		UserID:        userID,
		AccountHolder: holder,
		IBANEncrypted: ibanEnc,
		BICEncrypted:  bicEnc,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.log.Info().Int64("user_id", userID).Int64("actor_id", principal.UserID).Msg("bank details saved")
	return &domain.BankDetailsView{
		AccountHolder: saved.AccountHolder,
		IBAN:          cryptox.MaskIBAN(iban),
		BIC:           cryptox.MaskBIC(bic),
		Masked:        true,
		UpdatedAt:     saved.UpdatedAt,
	}, nil
}

// GetBankDetails returns masked values unless an admin asks to reveal them.
func (s *ProfileService) GetBankDetails(ctx context.Context, principal domain.Principal, userID int64, reveal bool) (*domain.BankDetailsView, error) {
	if !principal.CanActFor(userID) {
		return nil, ErrForbidden
	}
	if reveal && !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	stored, err := s.bank.Get(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	iban, err := s.decrypt(stored.IBANEncrypted, userID)
	if err != nil {
		return nil, err
	}
	bic, err := s.decrypt(stored.BICEncrypted, userID)
	if err != nil {
		return nil, err
	}
	view := &domain.BankDetailsView{
		AccountHolder: stored.AccountHolder,
		IBAN:          cryptox.MaskIBAN(iban),
		BIC:           cryptox.MaskBIC(bic),
		Masked:        true,
		UpdatedAt:     stored.UpdatedAt,
	}
	if reveal {
		view.IBAN, view.BIC, view.Masked = iban, bic, false
		s.log.Info().Int64("user_id", userID).Int64("admin_id", principal.UserID).Msg("bank details revealed")
	}
	return view, nil
}

func (s *ProfileService) encrypt(value string) (string, error) {
	if s.cipher == nil {
		return "", fmt.Errorf("%w: %v", ErrConfig, cryptox.ErrConfig)
	}
	out, err := s.cipher.Encrypt(value)
	if err != nil {
		if errors.Is(err, cryptox.ErrConfig) {
			return "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return "", err
	}
	return out, nil
}

func (s *ProfileService) decrypt(value string, userID int64) (string, error) {
	if s.cipher == nil {
		return "", fmt.Errorf("%w: %v", ErrConfig, cryptox.ErrConfig)
	}
	out, err := s.cipher.Decrypt(value)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("decrypt bank details failed")
		if errors.Is(err, cryptox.ErrConfig) {
			return "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return "", fmt.Errorf("decrypt bank details: %w", err)
	}
	return out, nil
}

func compactUpper(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}
