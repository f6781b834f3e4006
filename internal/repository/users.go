package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"tasksync/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const userColumns = `id::text, email, password, role, pending_request, profile_image`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Role, &u.PendingRequest, &u.ProfileImage)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// CreateUser menyimpan user baru. Email yang sudah ada menghasilkan
// ErrDuplicateEmail (unique violation 23505).
func CreateUser(ctx context.Context, db *sql.DB, email, hashedPassword string, role models.Role) (models.User, error) {
	row := db.QueryRowContext(ctx,
		`INSERT INTO users (email, password, role) VALUES ($1, $2, $3) RETURNING `+userColumns,
		email, hashedPassword, role)
	u, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// UserByEmail mengembalikan user beserta hash password-nya.
func UserByEmail(ctx context.Context, db *sql.DB, email string) (models.User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func UserByID(ctx context.Context, db *sql.DB, id string) (models.User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func ListUsers(ctx context.Context, db *sql.DB) ([]models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUserRole menyimpan role dan flag permintaan promosi.
func SaveUserRole(ctx context.Context, db *sql.DB, u models.User) (models.User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`UPDATE users SET role = $2, pending_request = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 RETURNING `+userColumns,
		u.ID, u.Role, u.PendingRequest))
}
