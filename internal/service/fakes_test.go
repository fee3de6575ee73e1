package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64

	createErr       error
	findErr         error
	listIDsErr      error
	created         []ports.NewUser
	activated       []int64
	passwordUpdates map[int64]string
	updateErr       error
	updateGate      chan struct{}
	listCalls       []struct {
		role          *domain.UserRole
		limit, offset int
	}
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[int64]*domain.User{}, nextID: 100, passwordUpdates: map[int64]string{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user ports.NewUser) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, user)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	hash, expires := user.ActivationTokenHash, user.ActivationExpiresAt
	u := &domain.User{
		ID:                  f.nextID,
		Email:               user.Email,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		Role:                user.Role,
		ActivationTokenHash: &hash,
		ActivationExpiresAt: &expires,
	}
	f.users[u.ID] = u
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByActivationHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ActivationTokenHash != nil && *u.ActivationTokenHash == tokenHash {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) SetActivationToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.ActivationTokenHash, u.ActivationExpiresAt = &tokenHash, &expiresAt
	return nil
}

func (f *fakeUserRepo) Activate(ctx context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsActive = true
	u.PasswordHash = &passwordHash
	u.ActivationTokenHash, u.ActivationExpiresAt = nil, nil
	f.activated = append(f.activated, id)
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = &passwordHash
	f.passwordUpdates[id] = passwordHash
	return nil
}

func (f *fakeUserRepo) ListIDsByRole(ctx context.Context, role domain.UserRole) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listIDsErr != nil {
		return nil, f.listIDsErr
	}
	var ids []int64
	for _, u := range f.users {
		if u.Role == role && u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Test students carry their formation in LastName; see studentIn.
func (f *fakeUserRepo) ListStudentIDsByFormation(ctx context.Context, formationID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listIDsErr != nil {
		return nil, f.listIDsErr
	}
	var ids []int64
	for _, u := range f.users {
		if u.Role == domain.RoleStudent && u.LastName == formationKey(formationID) {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeUserRepo) FilterExisting(ctx context.Context, ids []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, id := range ids {
		if _, ok := f.users[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) List(ctx context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, struct {
		role          *domain.UserRole
		limit, offset int
	}{role, limit, offset})
	var out []domain.User
	for _, u := range f.users {
		if role == nil || u.Role == *role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func formationKey(formationID int64) string {
	return fmt.Sprintf("formation-%d", formationID)
}

func studentIn(id, formationID int64) *domain.User {
	return &domain.User{ID: id, Email: fmt.Sprintf("student%d@ecole.test", id), Role: domain.RoleStudent, IsActive: true, LastName: formationKey(formationID)}
}

type fakeNotifier struct {
	events []domain.NotificationEvent
}

func (f *fakeNotifier) SendEvent(ctx context.Context, event domain.NotificationEvent) bool {
	f.events = append(f.events, event)
	return true
}

func (f *fakeNotifier) NotifyUsers(ctx context.Context, userIDs []int64, message, redirectLink string) int {
	for _, id := range userIDs {
		f.SendEvent(ctx, domain.NotificationEvent{UserID: id, Message: message, RedirectLink: redirectLink})
	}
	return len(userIDs)
}

func (f *fakeNotifier) recipients() []int64 {
	ids := make([]int64, 0, len(f.events))
	for _, e := range f.events {
		ids = append(ids, e.UserID)
	}
	return ids
}

type fakeNotificationRepo struct {
	rows      []domain.Notification
	createErr error
	creates   int
}

func (f *fakeNotificationRepo) Create(ctx context.Context, userID int64, message, redirectLink string) (*domain.Notification, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	n := domain.Notification{ID: int64(len(f.rows) + 1), UserID: userID, Message: message, RedirectLink: redirectLink, CreatedAt: time.Now()}
	f.rows = append(f.rows, n)
	return &n, nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	var out []domain.Notification
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	if offset >= len(out) {
		return []domain.Notification{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var c int64
	for _, n := range f.rows {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, userID, id int64) error {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows[i].Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	var c int64
	for i := range f.rows {
		if f.rows[i].UserID == userID && !f.rows[i].Read {
			f.rows[i].Read = true
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id int64) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type uploadedObject struct {
	bucket      string
	name        string
	contentType string
	body        []byte
	size        int64
}

type fakeStorage struct {
	uploads   []uploadedObject
	removed   []string
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, uploadedObject{bucket: bucket, name: objectName, contentType: contentType, body: body, size: size})
	return "http://storage.test/" + bucket + "/" + objectName, nil
}

func (f *fakeStorage) Remove(ctx context.Context, bucket, objectName string) error {
	f.removed = append(f.removed, objectName)
	return nil
}

var errBoom = errors.New("boom")
