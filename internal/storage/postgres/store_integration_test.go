package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

// Requires a reachable Postgres; set TEST_DATABASE_URL to run.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresAppendAndQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewStore(db)

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	u, err := s.CreateUser(ctx, model.User{
		Email:        "it-" + time.Now().Format("150405.000000000") + "@example.com",
		PasswordHash: "hash",
		FullName:     "Integration Test",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	var lastID int64
	for i, soil := range []float64{25, 55, 38} {
		id, err := s.Append(ctx, model.SensorReading{
			UserID:         u.ID,
			Temperature:    24,
			Humidity:       60,
			SoilMoisture:   soil,
			LightIntensity: 80,
			RecordedAt:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if id <= lastID {
			t.Fatalf("log ids not strictly increasing: %d after %d", id, lastID)
		}
		lastID = id
	}

	latest, err := s.Latest(ctx, u.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.SoilMoisture != 38 {
		t.Fatalf("Latest soil = %v, want 38", latest.SoilMoisture)
	}

	recent, err := s.Recent(ctx, u.ID, 12)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].RecordedAt.Before(recent[i-1].RecordedAt) {
			t.Fatal("Recent not ascending")
		}
	}

	if _, err := s.Append(ctx, model.SensorReading{UserID: -1}); !errors.Is(err, storage.ErrUnknownUser) {
		t.Fatalf("append for unknown user: err = %v, want ErrUnknownUser", err)
	}
}
