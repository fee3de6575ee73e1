package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/resetstore"
)

type fakeResetMailer struct {
	sent []struct {
		email, link string
		expiresAt   time.Time
	}
	err error
}

func (f *fakeResetMailer) SendPasswordReset(ctx context.Context, email, link string, expiresAt time.Time) error {
	f.sent = append(f.sent, struct {
		email, link string
		expiresAt   time.Time
	}{email, link, expiresAt})
	return f.err
}

func (f *fakeResetMailer) lastToken(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("expected a reset mail")
	}
	u, err := url.Parse(f.sent[len(f.sent)-1].link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

type resetFixture struct {
	svc    *PasswordResetService
	users  *fakeUserRepo
	store  *resetstore.Memory
	mailer *fakeResetMailer
	now    time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	f := &resetFixture{
		users:  newFakeUserRepo(activeUser(t, 7, "parent@ecole.test", "Old-Pass12!", domain.RoleStudent)),
		store:  resetstore.NewMemory(),
		mailer: &fakeResetMailer{},
		now:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewPasswordResetService(f.users, f.store, f.mailer, PasswordResetConfig{
		TTL:         time.Hour,
		BcryptCost:  bcrypt.MinCost,
		FrontendURL: "https://ecole.test",
	}, zerolog.Nop())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func TestRequestPasswordReset(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, " Parent@Ecole.test "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].email != "parent@ecole.test" {
		t.Fatalf("unexpected mails: %+v", f.mailer.sent)
	}
	token := f.mailer.lastToken(t)
	if len(token) != 2*cryptox.TokenBytes {
		t.Fatalf("unexpected token %q", token)
	}
	identity, err := f.svc.ValidateResetToken(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.UserID != 7 || identity.Email != "parent@ecole.test" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if err := f.svc.RequestPasswordReset(ctx, "ghost@ecole.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.svc.RequestPasswordReset(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRequestPasswordResetKeepsEarlierTokens(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	first := f.mailer.lastToken(t)
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	second := f.mailer.lastToken(t)

	if first == second {
		t.Fatal("expected distinct tokens")
	}
	for _, token := range []string{first, second} {
		if _, err := f.svc.ValidateResetToken(ctx, token); err != nil {
			t.Fatalf("expected both tokens valid, got %v", err)
		}
	}
}

func TestRequestPasswordResetInactiveUser(t *testing.T) {
	f := newResetFixture(t)
	f.users.users[7].IsActive = false

	if err := f.svc.RequestPasswordReset(context.Background(), "parent@ecole.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatal("no token should be stored for inactive accounts")
	}
}

func TestRequestPasswordResetMailFailureDiscardsToken(t *testing.T) {
	f := newResetFixture(t)
	f.mailer.err = errBoom

	err := f.svc.RequestPasswordReset(context.Background(), "parent@ecole.test")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected unsent token to be discarded, store has %d", f.store.Len())
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	token := f.mailer.lastToken(t)

	if err := f.svc.ResetPassword(ctx, token, "weak"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "Brand-New-Pass1!"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if !cryptox.ComparePassword("Brand-New-Pass1!", f.users.passwordUpdates[7]) {
		t.Fatal("expected new password hash to be stored")
	}

	if _, err := f.svc.ValidateResetToken(ctx, token); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "Another-Pass1!"); !IsTokenError(err) {
		t.Fatalf("expected token error on reuse, got %v", err)
	}
}

func TestResetPasswordRedeemsOnceUnderConcurrency(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	token := f.mailer.lastToken(t)

	// The winner parks inside UpdatePassword until every other attempt is back.
	f.users.updateGate = make(chan struct{})
	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() { results <- f.svc.ResetPassword(ctx, token, "Brand-New-Pass1!") }()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if i == attempts-1 {
			close(f.users.updateGate)
		}
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAlreadyUsed):
			t.Fatalf("expected ErrAlreadyUsed for losing attempts, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one redemption, got %d", succeeded)
	}
}

func TestResetPasswordReleasesTokenWhenUpdateFails(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	token := f.mailer.lastToken(t)

	f.users.updateErr = errBoom
	if err := f.svc.ResetPassword(ctx, token, "Brand-New-Pass1!"); !errors.Is(err, errBoom) {
		t.Fatalf("expected update error, got %v", err)
	}
	if _, err := f.svc.ValidateResetToken(ctx, token); err != nil {
		t.Fatalf("token should be usable again, got %v", err)
	}

	f.users.updateErr = nil
	if err := f.svc.ResetPassword(ctx, token, "Brand-New-Pass1!"); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestValidateResetTokenExpiryEvicts(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	token := f.mailer.lastToken(t)

	f.now = f.now.Add(time.Hour)
	if _, err := f.svc.ValidateResetToken(ctx, token); err != nil {
		t.Fatalf("token must be valid at its expiry instant, got %v", err)
	}

	f.now = f.now.Add(time.Second)
	if _, err := f.svc.ValidateResetToken(ctx, token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if _, err := f.svc.ValidateResetToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be evicted, got %v", err)
	}
}

func TestValidateResetTokenUnknown(t *testing.T) {
	f := newResetFixture(t)
	for _, token := range []string{"", "deadbeef"} {
		if _, err := f.svc.ValidateResetToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", token, err)
		}
	}
	if err := f.svc.MarkTokenAsUsed(context.Background(), "deadbeef"); err != nil {
		t.Fatalf("marking unknown token should be a no-op, got %v", err)
	}
}

func TestCleanExpiredTokens(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	f.now = f.now.Add(30 * time.Minute)
	_ = f.svc.RequestPasswordReset(ctx, "parent@ecole.test")
	fresh := f.mailer.lastToken(t)

	f.now = f.now.Add(45 * time.Minute)
	removed, err := f.svc.CleanExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if removed != 1 || f.store.Len() != 1 {
		t.Fatalf("expected one purge and one survivor, got removed=%d len=%d", removed, f.store.Len())
	}
	if _, err := f.svc.ValidateResetToken(ctx, fresh); err != nil {
		t.Fatalf("fresh token should survive, got %v", err)
	}
}
