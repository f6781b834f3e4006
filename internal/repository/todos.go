package repository

import (
	"context"
	"database/sql"
	"errors"

	"tasksync/internal/models"
)

const todoSelect = `
SELECT t.id::text, t.user_id::text, u.role, COALESCE(t.assigned_to::text, ''),
       t.title, t.description, t.location_name, t.latitude, t.longitude,
       t.photo_uri, t.note, t.completion_image_uri, t.completed,
       t.created_at, t.updated_at
FROM todos t
JOIN users u ON u.id = t.user_id`

func scanTodo(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t         models.Task
		name      string
		lat, lng  sql.NullFloat64
		completed bool
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerRole, &t.AssignedTo,
		&t.Title, &t.Description, &name, &lat, &lng,
		&t.ImageURI, &t.Note, &t.CompletionImageURI, &completed,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	if err != nil {
		return models.Task{}, err
	}
	if name != "" || (lat.Valid && lng.Valid) {
		t.Location = &models.Location{Name: name}
		if lat.Valid && lng.Valid {
			t.Location.Coords = &models.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
		}
	}
	t.Status = models.StatusFromBool(completed)
	return t, nil
}

func locationColumns(l *models.Location) (string, sql.NullFloat64, sql.NullFloat64) {
	if l == nil {
		return "", sql.NullFloat64{}, sql.NullFloat64{}
	}
	if l.Coords == nil {
		return l.Name, sql.NullFloat64{}, sql.NullFloat64{}
	}
	return l.Name,
		sql.NullFloat64{Float64: l.Coords.Latitude, Valid: true},
		sql.NullFloat64{Float64: l.Coords.Longitude, Valid: true}
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// ListTodosFor mengembalikan todo milik user atau yang di-assign ke user.
func ListTodosFor(ctx context.Context, db *sql.DB, userID string) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, todoSelect+` WHERE t.user_id = $1 OR t.assigned_to = $1 ORDER BY t.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []models.Task{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func TodoByID(ctx context.Context, db *sql.DB, id string) (models.Task, error) {
	return scanTodo(db.QueryRowContext(ctx, todoSelect+` WHERE t.id = $1`, id))
}

// CreateTodo menyimpan todo baru dan mengembalikan record lengkap.
func CreateTodo(ctx context.Context, db *sql.DB, t models.Task) (models.Task, error) {
	name, lat, lng := locationColumns(t.Location)
	var id string
	err := db.QueryRowContext(ctx,
		`INSERT INTO todos (user_id, assigned_to, title, description, location_name, latitude, longitude,
		                    photo_uri, note, completion_image_uri, completed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id::text`,
		t.OwnerID, nullableID(t.AssignedTo), t.Title, t.Description, name, lat, lng,
		t.ImageURI, t.Note, t.CompletionImageURI, t.Status.Completed(),
	).Scan(&id)
	if err != nil {
		return models.Task{}, err
	}
	return TodoByID(ctx, db, id)
}

// UpdateTodo menulis ulang semua kolom yang bisa diubah dari t.
func UpdateTodo(ctx context.Context, db *sql.DB, t models.Task) (models.Task, error) {
	name, lat, lng := locationColumns(t.Location)
	res, err := db.ExecContext(ctx,
		`UPDATE todos SET assigned_to = $2, title = $3, description = $4, location_name = $5,
		        latitude = $6, longitude = $7, photo_uri = $8, note = $9,
		        completion_image_uri = $10, completed = $11, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		t.ID, nullableID(t.AssignedTo), t.Title, t.Description, name, lat, lng,
		t.ImageURI, t.Note, t.CompletionImageURI, t.Status.Completed(),
	)
	if err != nil {
		return models.Task{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Task{}, ErrNotFound
	}
	return TodoByID(ctx, db, t.ID)
}

func DeleteTodo(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
