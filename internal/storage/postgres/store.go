// Package postgres implements storage.Store on a Postgres database reached
// through database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store persists readings and users in Postgres. Row-level atomicity of
// single inserts is the only concurrency control required: no reader
// observes a partially written reading.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables when missing. The readings table is
// append-only, foreign-keyed to users and ordered per user by
// (recorded_at, log_id).
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sensor_logs (
	log_id          BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL REFERENCES users (id),
	temperature     DOUBLE PRECISION NOT NULL,
	humidity        DOUBLE PRECISION NOT NULL,
	soil_moisture   DOUBLE PRECISION NOT NULL,
	light_intensity DOUBLE PRECISION NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS sensor_logs_user_recorded_idx
	ON sensor_logs (user_id, recorded_at DESC, log_id DESC);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, r model.SensorReading) (int64, error) {
	recordedAt := r.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO sensor_logs (user_id, temperature, humidity, soil_moisture, light_intensity, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING log_id`

	var logID int64
	err := s.db.QueryRowContext(ctx, q,
		r.UserID, r.Temperature, r.Humidity, r.SoilMoisture, r.LightIntensity, recordedAt,
	).Scan(&logID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation {
			return 0, fmt.Errorf("append reading for user %d: %w", r.UserID, storage.ErrUnknownUser)
		}
		return 0, fmt.Errorf("append reading: %w", err)
	}
	return logID, nil
}

func (s *Store) Latest(ctx context.Context, userID int64) (model.SensorReading, error) {
	const q = `
SELECT log_id, user_id, temperature, humidity, soil_moisture, light_intensity, recorded_at
FROM sensor_logs
WHERE user_id = $1
ORDER BY recorded_at DESC, log_id DESC
LIMIT 1`

	var r model.SensorReading
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&r.LogID, &r.UserID, &r.Temperature, &r.Humidity, &r.SoilMoisture, &r.LightIntensity, &r.RecordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SensorReading{}, storage.ErrNotFound
	}
	if err != nil {
		return model.SensorReading{}, fmt.Errorf("latest reading: %w", err)
	}
	return r, nil
}

func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]model.SensorReading, error) {
	if limit <= 0 {
		return []model.SensorReading{}, nil
	}

	const q = `
SELECT log_id, user_id, temperature, humidity, soil_moisture, light_intensity, recorded_at
FROM sensor_logs
WHERE user_id = $1
ORDER BY recorded_at DESC, log_id DESC
LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	defer rows.Close()

	out := make([]model.SensorReading, 0, limit)
	for rows.Next() {
		var r model.SensorReading
		if err := rows.Scan(
			&r.LogID, &r.UserID, &r.Temperature, &r.Humidity, &r.SoilMoisture, &r.LightIntensity, &r.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("recent readings scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}

	// Query is newest-first; callers want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	const q = `
INSERT INTO users (email, password_hash, full_name)
VALUES ($1, $2, $3)
RETURNING id`

	err := s.db.QueryRowContext(ctx, q, u.Email, u.PasswordHash, u.FullName).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return model.User{}, storage.ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (model.User, error) {
	const q = `
SELECT id, email, password_hash, full_name
FROM users
WHERE email = $1`

	var u model.User
	err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, storage.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}
