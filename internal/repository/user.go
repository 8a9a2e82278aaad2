package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/glbkeeper/internal/models"
)

// UserRepository implements account lookups against the users table.
type UserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewUserRepository creates a new UserRepository with the given database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Login returns the first user whose username and password both match exactly.
// Comparison is case-sensitive and the password is compared as stored.
// If no row matches, ErrNotFound is returned.
func (r *UserRepository) Login(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, username, password, role FROM users WHERE username = $1 AND password = $2 LIMIT 1`,
		username, password,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	return &u, nil
}

// Insert appends a new user and stores the assigned identifier in u.ID.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	err := r.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password, role) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.Password, string(u.Role),
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
