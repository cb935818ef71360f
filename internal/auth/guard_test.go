package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/storyhub/backend/internal/clock"
	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

type guardFixture struct {
	clk    *clock.Mock
	creds  *Credentials
	tokens *TokenService
	guard  *Guard
}

func newGuardFixture(t *testing.T) guardFixture {
	t.Helper()
	clk := clock.NewMock(testEpoch)
	creds := newTestCredentials(t, store.NewMemoryUserStore(), clk)
	tokens := newTestTokens(t, clk, 24*time.Hour)
	return guardFixture{clk: clk, creds: creds, tokens: tokens, guard: NewGuard(tokens, creds)}
}

func TestGuard_PasswordChangeInvalidatesOlderTokens(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	alice, err := f.creds.Create(ctx, aliceInput())
	require.NoError(t, err)
	oldToken, err := f.tokens.Issue(alice.ID)
	require.NoError(t, err)

	u, err := f.guard.Authenticate(ctx, "Bearer "+oldToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	f.clk.Advance(5 * time.Second)
	require.NoError(t, f.creds.UpdatePassword(ctx, alice.ID, "secret2"))

	_, err = f.guard.Authenticate(ctx, "Bearer "+oldToken)
	assert.ErrorIs(t, err, ErrStaleToken)
	assert.Equal(t, "stale_token", RejectionReason(err))

	f.clk.Advance(time.Second)
	_, err = f.creds.Authenticate(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	relogged, err := f.creds.Authenticate(ctx, "alice", "secret2")
	require.NoError(t, err)
	newToken, err := f.tokens.Issue(relogged.ID)
	require.NoError(t, err)

	u, err = f.guard.Authenticate(ctx, "Bearer "+newToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)
}

func TestGuard_NoCredential(t *testing.T) {
	f := newGuardFixture(t)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "token-without-scheme"} {
		_, err := f.guard.Authenticate(context.Background(), header)
		assert.ErrorIs(t, err, ErrNoCredential, "header %q", header)
		assert.Equal(t, "no_credential", RejectionReason(err))
	}
}

func TestGuard_InvalidTokenKeepsCause(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	_, err := f.guard.Authenticate(ctx, "Bearer not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, ErrTokenMalformed)
	assert.Equal(t, "invalid_token", RejectionReason(err))

	alice, err := f.creds.Create(ctx, aliceInput())
	require.NoError(t, err)
	tok, err := f.tokens.Issue(alice.ID)
	require.NoError(t, err)

	f.clk.Advance(25 * time.Hour)
	_, err = f.guard.Authenticate(ctx, "Bearer "+tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestGuard_UnknownSubject(t *testing.T) {
	f := newGuardFixture(t)

	tok, err := f.tokens.Issue("ghost")
	require.NoError(t, err)

	_, err = f.guard.Authenticate(context.Background(), "Bearer "+tok)
	assert.ErrorIs(t, err, ErrUnknownSubject)
	assert.Equal(t, "unknown_subject", RejectionReason(err))
}

func TestGuard_StoreFailureIsNotARejection(t *testing.T) {
	clk := clock.NewMock(testEpoch)
	tokens := newTestTokens(t, clk, time.Hour)
	boom := errors.New("mongo unavailable")
	users := newTestCredentials(t, &mockUserStore{
		findUserByIDFunc: func(context.Context, string) (*models.User, error) { return nil, boom },
	}, clk)

	tok, err := tokens.Issue("u1")
	require.NoError(t, err)

	_, err = NewGuard(tokens, users).Authenticate(context.Background(), "Bearer "+tok)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, RejectionReason(err))
}

func TestChangedPasswordAfter(t *testing.T) {
	issued := testEpoch
	at := func(d time.Duration) *time.Time {
		ts := issued.Add(d)
		return &ts
	}

	tests := []struct {
		name    string
		changed *time.Time
		want    bool
	}{
		{"never changed", nil, false},
		{"changed before issue", at(-time.Minute), false},
		{"changed within the issue second", at(500 * time.Millisecond), false},
		{"changed the next second", at(time.Second), true},
		{"changed much later", at(time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{PasswordChangedAt: tt.changed}
			assert.Equal(t, tt.want, ChangedPasswordAfter(u, Claims{IssuedAt: issued}))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.token, token, "header %q", tt.header)
	}
}

func TestRejectionReason_NonGuardErrors(t *testing.T) {
	assert.Empty(t, RejectionReason(nil))
	assert.Empty(t, RejectionReason(errors.New("x")))
	assert.Empty(t, RejectionReason(ErrInvalidCredentials))
}
