package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/storyhub/backend/internal/apperr"
	"github.com/ayush/storyhub/backend/internal/clock"
	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

func newTestCredentials(t *testing.T, users UserStore, clk clock.Clock) *Credentials {
	t.Helper()
	c, err := NewCredentials(users, newTestHasher(t), DefaultMinPasswordLength, clk)
	require.NoError(t, err)
	return c
}

func aliceInput() NewUser {
	return NewUser{Username: "alice", Email: "a@x.com", Password: "secret1"}
}

func TestCredentials_Create(t *testing.T) {
	users := store.NewMemoryUserStore()
	c := newTestCredentials(t, users, clock.NewMock(testEpoch))

	u, err := c.Create(context.Background(), NewUser{
		Username: "  alice ",
		Email:    " A@X.Com ",
		Password: "secret1",
		Profile:  models.Profile{Town: "Nellore"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, models.DefaultUserCategory, u.Category)
	assert.Equal(t, "Nellore", u.Town)
	assert.Nil(t, u.PasswordChangedAt, "initial password is not a change")
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NotContains(t, u.PasswordHash, "secret1")

	ok, err := c.VerifyPassword(u, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCredentials_CreateDuplicate(t *testing.T) {
	users := store.NewMemoryUserStore()
	c := newTestCredentials(t, users, clock.NewMock(testEpoch))
	ctx := context.Background()

	_, err := c.Create(ctx, aliceInput())
	require.NoError(t, err)

	for _, in := range []NewUser{
		{Username: "alice", Email: "new@x.com", Password: "secret1"},
		{Username: "bob", Email: "A@x.com", Password: "secret1"},
	} {
		_, err := c.Create(ctx, in)
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
		assert.Equal(t, 1, users.Count())
	}
}

func TestCredentials_CreateWeakPassword(t *testing.T) {
	users := store.NewMemoryUserStore()
	c := newTestCredentials(t, users, clock.NewMock(testEpoch))

	in := aliceInput()
	in.Password = "12345"
	_, err := c.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrWeakCredential)

	in.Password = strings.Repeat("x", 73)
	_, err = c.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrWeakCredential)

	assert.Equal(t, 0, users.Count())
}

func TestCredentials_CreateMinLengthCountsCharacters(t *testing.T) {
	c := newTestCredentials(t, store.NewMemoryUserStore(), clock.NewMock(testEpoch))

	in := aliceInput()
	in.Password = "ääääää" // 6 characters, 12 bytes
	_, err := c.Create(context.Background(), in)
	assert.NoError(t, err)
}

func TestCredentials_CreateRequiresIdentity(t *testing.T) {
	c := newTestCredentials(t, store.NewMemoryUserStore(), clock.NewMock(testEpoch))

	_, err := c.Create(context.Background(), NewUser{Username: "  ", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Create(context.Background(), NewUser{Username: "alice", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCredentials_CreateStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := newTestCredentials(t, &mockUserStore{
		createUserFunc: func(context.Context, *models.User) error { return boom },
	}, clock.NewMock(testEpoch))

	_, err := c.Create(context.Background(), aliceInput())
	assert.ErrorIs(t, err, boom)
	_, isAppErr := apperr.As(err)
	assert.False(t, isAppErr)
}

func TestCredentials_FindByLoginKey(t *testing.T) {
	c := newTestCredentials(t, store.NewMemoryUserStore(), clock.NewMock(testEpoch))
	ctx := context.Background()

	created, err := c.Create(ctx, aliceInput())
	require.NoError(t, err)

	u, err := c.FindByLoginKey(ctx, " alice ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = c.FindByLoginKey(ctx, "a@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound, "the login key is the username")
}

func TestCredentials_Authenticate(t *testing.T) {
	c := newTestCredentials(t, store.NewMemoryUserStore(), clock.NewMock(testEpoch))
	ctx := context.Background()

	created, err := c.Create(ctx, aliceInput())
	require.NoError(t, err)

	u, err := c.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, wrongPw := c.Authenticate(ctx, "alice", "secret2")
	_, unknown := c.Authenticate(ctx, "nobody", "secret1")
	require.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestCredentials_AuthenticateMalformedStoredHash(t *testing.T) {
	c := newTestCredentials(t, &mockUserStore{
		findUserByUsernameFunc: func(context.Context, string) (*models.User, error) {
			return &models.User{ID: "u1", Username: "alice", PasswordHash: "plaintext-by-mistake"}, nil
		},
	}, clock.NewMock(testEpoch))

	_, err := c.Authenticate(context.Background(), "alice", "plaintext-by-mistake")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrCredentialFormat, "cause kept for logging")
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidCredentials.Message, e.Message)
}

func TestCredentials_UpdatePassword(t *testing.T) {
	clk := clock.NewMock(testEpoch)
	users := store.NewMemoryUserStore()
	c := newTestCredentials(t, users, clk)
	ctx := context.Background()

	u, err := c.Create(ctx, aliceInput())
	require.NoError(t, err)

	clk.Advance(time.Hour)
	require.NoError(t, c.UpdatePassword(ctx, u.ID, "secret2"))

	got, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PasswordChangedAt)
	assert.True(t, got.PasswordChangedAt.Equal(testEpoch.Add(time.Hour)))

	ok, err := c.VerifyPassword(got, "secret2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.VerifyPassword(got, "secret1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentials_UpdatePasswordWeak(t *testing.T) {
	users := store.NewMemoryUserStore()
	c := newTestCredentials(t, users, clock.NewMock(testEpoch))
	ctx := context.Background()

	u, err := c.Create(ctx, aliceInput())
	require.NoError(t, err)

	assert.ErrorIs(t, c.UpdatePassword(ctx, u.ID, "123"), ErrWeakCredential)

	got, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PasswordChangedAt)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
}

func TestCredentials_UpdatePasswordWritesHashAndTimeTogether(t *testing.T) {
	var calls int
	var gotHash string
	var gotAt time.Time
	c := newTestCredentials(t, &mockUserStore{
		setPasswordFunc: func(_ context.Context, id, hash string, changedAt time.Time) error {
			calls++
			gotHash, gotAt = hash, changedAt
			return nil
		},
	}, clock.NewMock(testEpoch))

	require.NoError(t, c.UpdatePassword(context.Background(), "u1", "secret2"))
	assert.Equal(t, 1, calls)
	assert.True(t, strings.HasPrefix(gotHash, "$2a$"))
	assert.True(t, gotAt.Equal(testEpoch))
}

func TestCredentials_UpdatePasswordUnknownUser(t *testing.T) {
	c := newTestCredentials(t, store.NewMemoryUserStore(), clock.NewMock(testEpoch))

	err := c.UpdatePassword(context.Background(), "missing", "secret2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
