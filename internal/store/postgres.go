package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tharuncoder676/CWS/internal/models"
)

// PostgresStore handles users and their student profiles in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist and adds the profile
// columns to older tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(100) NOT NULL DEFAULT '',
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			student_id VARCHAR(32)  NOT NULL DEFAULT '',
			year       VARCHAR(8)   NOT NULL DEFAULT '',
			department VARCHAR(100) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ  DEFAULT NOW(),
			updated_at TIMESTAMPTZ  DEFAULT NOW()
		);
		ALTER TABLE users ADD COLUMN IF NOT EXISTS student_id VARCHAR(32)  NOT NULL DEFAULT '';
		ALTER TABLE users ADD COLUMN IF NOT EXISTS year       VARCHAR(8)   NOT NULL DEFAULT '';
		ALTER TABLE users ADD COLUMN IF NOT EXISTS department VARCHAR(100) NOT NULL DEFAULT '';
		ALTER TABLE users ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ  DEFAULT NOW();
	`)
	return err
}

const userColumns = `id, username, email, student_id, year, department, created_at, updated_at`

func scanUser(row pgx.Row, withPassword bool) (*models.User, error) {
	var u models.User
	dest := []any{&u.ID, &u.Username, &u.Email, &u.StudentID, &u.Year, &u.Department, &u.CreatedAt, &u.UpdatedAt}
	if withPassword {
		dest = append(dest, &u.Password)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password, student_id, year, department)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.Username, u.Email, u.Password, u.StudentID, u.Year, u.Department,
	)
	created, err := scanUser(row, false)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password FROM users WHERE lower(email) = lower($1)`, email,
	), true)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	), false)
}

// UpdateProfile overwrites the editable profile fields of a user.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, p models.ProfileRequest) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users SET username = $2, year = $3, department = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, p.Username, p.Year, p.Department,
	)
	u, err := scanUser(row, false)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}
