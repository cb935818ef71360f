package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayush/storyhub/backend/internal/clock"
	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

// DefaultMinPasswordLength matches the minimum enforced at signup.
const DefaultMinPasswordLength = 6

// UserStore is the persistence layer for user records. Implementations
// enforce unique username and email (store.ErrDuplicate), report missing
// records as store.ErrNotFound, and apply SetPassword atomically.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error
}

// NewUser is the input to Credentials.Create.
type NewUser struct {
	Username string
	Email    string
	Password string
	Profile  models.Profile
}

// Credentials owns every write of a password hash. Create and
// UpdatePassword are the only paths that hash before persisting.
type Credentials struct {
	users     UserStore
	hasher    *Hasher
	minLength int
	clock     clock.Clock
	// dummyHash is compared against when a login key is unknown so the
	// response time does not reveal whether the user exists.
	dummyHash string
}

func NewCredentials(users UserStore, hasher *Hasher, minLength int, clk clock.Clock) (*Credentials, error) {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if clk == nil {
		clk = clock.Real{}
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Credentials{
		users:     users,
		hasher:    hasher,
		minLength: minLength,
		clock:     clk,
		dummyHash: dummy,
	}, nil
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail trims and lowercases.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Credentials) Create(ctx context.Context, in NewUser) (*models.User, error) {
	username := NormalizeUsername(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" {
		return nil, ErrInvalidInput.WithMessage("username and email are required")
	}
	if err := c.checkStrength(in.Password); err != nil {
		return nil, err
	}

	hash, err := c.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	profile := in.Profile
	if profile.Category == "" {
		profile.Category = models.DefaultUserCategory
	}
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Profile:      profile,
	}
	if err := c.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateIdentity.WithCause(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (c *Credentials) FindByID(ctx context.Context, id string) (*models.User, error) {
	return c.users.FindUserByID(ctx, id)
}

// FindByLoginKey resolves the identifier used at login. The login key is
// the username.
func (c *Credentials) FindByLoginKey(ctx context.Context, key string) (*models.User, error) {
	return c.users.FindUserByUsername(ctx, NormalizeUsername(key))
}

// UpdatePassword hashes newPlain and stores it together with the change
// time in one write.
func (c *Credentials) UpdatePassword(ctx context.Context, userID, newPlain string) error {
	if err := c.checkStrength(newPlain); err != nil {
		return err
	}
	hash, err := c.hasher.Hash(newPlain)
	if err != nil {
		return err
	}
	if err := c.users.SetPassword(ctx, userID, hash, c.clock.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Authenticate returns the user for key if plain is their password. An
// unknown key, a wrong password and an unreadable stored hash all yield
// ErrInvalidCredentials.
func (c *Credentials) Authenticate(ctx context.Context, key, plain string) (*models.User, error) {
	u, err := c.FindByLoginKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = c.hasher.Verify(plain, c.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := c.hasher.Verify(plain, u.PasswordHash)
	if err != nil {
		if errors.Is(err, ErrCredentialFormat) {
			// Same response as a wrong password; the cause stays for logs.
			return nil, ErrInvalidCredentials.WithCause(err)
		}
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// VerifyPassword checks plain against the stored hash of u.
func (c *Credentials) VerifyPassword(u *models.User, plain string) (bool, error) {
	return c.hasher.Verify(plain, u.PasswordHash)
}

func (c *Credentials) checkStrength(plain string) error {
	if utf8.RuneCountInString(plain) < c.minLength {
		return ErrWeakCredential.WithMessage(fmt.Sprintf("password must be at least %d characters", c.minLength))
	}
	if len(plain) > maxPasswordBytes {
		return ErrWeakCredential.WithMessage("password must be at most 72 bytes")
	}
	return nil
}
