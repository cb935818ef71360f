package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/storyhub/backend/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore handles user records in PostgreSQL when the service runs
// with STORE_BACKEND=postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username            VARCHAR(50)  UNIQUE NOT NULL,
			email               VARCHAR(255) UNIQUE NOT NULL,
			password            VARCHAR(255) NOT NULL,
			password_changed_at TIMESTAMPTZ,
			description         VARCHAR(500) NOT NULL DEFAULT '',
			country             VARCHAR(100) NOT NULL DEFAULT '',
			state               VARCHAR(100) NOT NULL DEFAULT '',
			district            VARCHAR(100) NOT NULL DEFAULT '',
			mandal              VARCHAR(100) NOT NULL DEFAULT '',
			town                VARCHAR(100) NOT NULL DEFAULT '',
			category            VARCHAR(50)  NOT NULL DEFAULT 'nocategory',
			rating              DOUBLE PRECISION NOT NULL DEFAULT 0,
			img                 VARCHAR(255) NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

const userColumns = `id, username, email, password, password_changed_at,
	description, country, state, district, mandal, town, category, rating, img,
	created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	p := u.Profile
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password,
			description, country, state, district, mandal, town, category, rating, img)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash,
		p.Desc, p.Country, p.State, p.District, p.Mandal, p.Town, p.Category, p.Rating, p.Img,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapPgError("create user", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	uid, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.PasswordChangedAt,
		&u.Desc, &u.Country, &u.State, &u.District, &u.Mandal, &u.Town, &u.Category, &u.Rating, &u.Img,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError("find user", err)
	}
	return &u, nil
}

// SetPassword updates the hash and change time in a single statement.
func (s *PostgresStore) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	uid, err := parseUserID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $2, password_changed_at = $3, updated_at = $3
		 WHERE id = $1`,
		uid, hash, changedAt,
	)
	if err != nil {
		return mapPgError("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// parseUserID turns an id that cannot be a users primary key into
// ErrNotFound, so lookups compare against the uuid column directly.
func parseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return uid, nil
}

func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
