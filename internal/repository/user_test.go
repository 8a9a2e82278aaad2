package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/glbkeeper/internal/models"
)

const loginQuery = `SELECT id, username, password, role FROM users WHERE username = $1 AND password = $2 LIMIT 1`

func setupUserMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestLogin_Match(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loginQuery)).
		WithArgs("admin", "admin123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "role"}).
			AddRow(int64(1), "admin", "admin123", "Admin"))

	u, err := repo.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 1 || u.Username != "admin" || u.Role != models.RoleAdmin {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLogin_NoMatch(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loginQuery)).
		WithArgs("admin", "wrong").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "role"}))

	u, err := repo.Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLogin_QueryError(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(loginQuery)).
		WithArgs("admin", "admin123").
		WillReturnError(errors.New("query failed"))

	_, err := repo.Login(context.Background(), "admin", "admin123")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestInsertUser_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, password, role) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs("user", "user123", "User").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	u := &models.User{Username: "user", Password: "user123", Role: models.RoleUser}
	if err := repo.Insert(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 2 {
		t.Errorf("expected assigned id 2, got %d", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsertUser_Error(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("insert failed"))

	err := repo.Insert(context.Background(), &models.User{Username: "x", Password: "y", Role: models.RoleUser})
	if err == nil {
		t.Errorf("expected error, got nil")
	}
}

func TestCount(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
