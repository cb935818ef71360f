package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

type mockUserStore struct {
	createUserFunc         func(ctx context.Context, u *models.User) error
	findUserByIDFunc       func(ctx context.Context, id string) (*models.User, error)
	findUserByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	setPasswordFunc        func(ctx context.Context, id, hash string, changedAt time.Time) error
}

func (m *mockUserStore) CreateUser(ctx context.Context, u *models.User) error {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, u)
	}
	return nil
}

func (m *mockUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.findUserByIDFunc != nil {
		return m.findUserByIDFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findUserByUsernameFunc != nil {
		return m.findUserByUsernameFunc(ctx, username)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	if m.setPasswordFunc != nil {
		return m.setPasswordFunc(ctx, id, hash, changedAt)
	}
	return nil
}

// fakeCounter emulates the Redis commands used by AttemptLimiter.
type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
	// expireFailures makes the next n ExpireNX calls fail.
	expireFailures int
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.expireFailures > 0 {
		f.expireFailures--
		cmd.SetErr(errors.New("i/o timeout"))
		return cmd
	}
	if _, ok := f.expires[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCounter) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	for _, k := range keys {
		delete(f.counts, k)
		delete(f.expires, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}
