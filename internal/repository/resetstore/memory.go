package resetstore

import (
	"context"
	"sync"
	"time"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

// Memory keeps entries in a mutex guarded map. Entries are lost on restart and
// are not shared between instances.
type Memory struct {
	mu    sync.Mutex
	items map[string]domain.PasswordResetEntry
}

func NewMemory() *Memory {
	return &Memory{items: map[string]domain.PasswordResetEntry{}}
}

func (m *Memory) Put(_ context.Context, token string, entry domain.PasswordResetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[token] = entry
	return nil
}

func (m *Memory) Get(_ context.Context, token string) (domain.PasswordResetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.items[token]
	if !ok {
		return domain.PasswordResetEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *Memory) Claim(_ context.Context, token string, now time.Time) (domain.PasswordResetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.items[token]
	switch {
	case !ok:
		return domain.PasswordResetEntry{}, ErrNotFound
	case entry.Used:
		return domain.PasswordResetEntry{}, ErrAlreadyUsed
	case entry.Expired(now):
		return domain.PasswordResetEntry{}, ErrExpired
	}
	entry.Used = true
	m.items[token] = entry
	return entry, nil
}

func (m *Memory) MarkUsed(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.items[token]
	if !ok {
		return nil
	}
	entry.Used = true
	m.items[token] = entry
	return nil
}

func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, token)
	return nil
}

func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, entry := range m.items {
		if entry.ExpiresAt.Before(now) {
			delete(m.items, token)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
