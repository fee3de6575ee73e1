package resetstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/domain"
)

const keyPrefix = "password_reset:"

var errCorrupt = errors.New("corrupt reset entry")

// Redis stores each entry as JSON under password_reset:<token>. The key TTL is
// the remaining lifetime plus the retention window, so Redis eventually
// reclaims entries even when nobody sweeps.
type Redis struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedis(client *redis.Client, retention time.Duration) *Redis {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Redis{client: client, retention: retention, now: time.Now}
}

func (r *Redis) Put(ctx context.Context, token string, entry domain.PasswordResetEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode reset entry: %w", err)
	}
	ttl := entry.ExpiresAt.Sub(r.now()) + r.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, keyPrefix+token, payload, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, token string) (domain.PasswordResetEntry, error) {
	return r.get(ctx, keyPrefix+token)
}

func (r *Redis) get(ctx context.Context, key string) (domain.PasswordResetEntry, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PasswordResetEntry{}, ErrNotFound
	}
	if err != nil {
		return domain.PasswordResetEntry{}, err
	}
	var entry domain.PasswordResetEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.PasswordResetEntry{}, fmt.Errorf("%w %s: %v", errCorrupt, key, err)
	}
	return entry, nil
}

// Claim uses WATCH/MULTI on the entry key; losing the race to another claim
// (or a purge) reports the token as already used.
func (r *Redis) Claim(ctx context.Context, token string, now time.Time) (domain.PasswordResetEntry, error) {
	key := keyPrefix + token
	var claimed domain.PasswordResetEntry
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var entry domain.PasswordResetEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("%w %s: %v", errCorrupt, key, err)
		}
		if entry.Used {
			return ErrAlreadyUsed
		}
		if entry.Expired(now) {
			return ErrExpired
		}
		entry.Used = true
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode reset entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		claimed = entry
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.PasswordResetEntry{}, ErrAlreadyUsed
	}
	if err != nil {
		return domain.PasswordResetEntry{}, err
	}
	return claimed, nil
}

func (r *Redis) MarkUsed(ctx context.Context, token string) error {
	entry, err := r.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if entry.Used {
		return nil
	}
	entry.Used = true
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode reset entry: %w", err)
	}
	// XX so a concurrent purge is not undone.
	err = r.client.SetArgs(ctx, keyPrefix+token, payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *Redis) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, keyPrefix+token).Err()
}

func (r *Redis) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		entry, err := r.get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil && !errors.Is(err, errCorrupt) {
			return removed, err
		}
		if err == nil && !entry.ExpiresAt.Before(now) {
			continue
		}
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
