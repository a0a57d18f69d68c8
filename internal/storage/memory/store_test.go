package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

func reading(userID int64, soil float64, at time.Time) model.SensorReading {
	return model.SensorReading{
		UserID:         userID,
		Temperature:    24.5,
		Humidity:       61.0,
		SoilMoisture:   soil,
		LightIntensity: 75.0,
		RecordedAt:     at,
	}
}

func TestAppendLatestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	in := reading(1, 42.5, time.Time{})
	id, err := s.Append(ctx, in)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id != 1 {
		t.Fatalf("first log id = %d, want 1", id)
	}

	got, err := s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Temperature != in.Temperature || got.Humidity != in.Humidity ||
		got.SoilMoisture != in.SoilMoisture || got.LightIntensity != in.LightIntensity {
		t.Fatalf("metric round trip mismatch: got %+v", got)
	}
	if got.RecordedAt.IsZero() {
		t.Fatal("store must assign RecordedAt when absent")
	}
}

func TestLatestPicksMostRecentWithLogIDTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	// Same timestamp: the higher log id wins.
	if _, err := s.Append(ctx, reading(1, 25, at)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, reading(1, 55, at)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.SoilMoisture != 55 {
		t.Fatalf("Latest soil = %v, want 55 (log id tie break)", got.SoilMoisture)
	}
}

func TestLatestScenario(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, soil := range []float64{25, 55, 38} {
		if _, err := s.Append(ctx, reading(1, soil, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.SoilMoisture != 38 {
		t.Fatalf("Latest soil = %v, want 38", got.SoilMoisture)
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	const n = 20
	for i := 0; i < n; i++ {
		if _, err := s.Append(ctx, reading(1, float64(i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 1, 12)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len(Recent) = %d, want 12", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].RecordedAt.Before(got[i-1].RecordedAt) {
			t.Fatalf("Recent not in ascending time order at %d", i)
		}
	}
	// The 12 most recent of 20 start at index 8.
	if got[0].SoilMoisture != 8 || got[len(got)-1].SoilMoisture != 19 {
		t.Fatalf("Recent window wrong: first=%v last=%v", got[0].SoilMoisture, got[len(got)-1].SoilMoisture)
	}
}

func TestRecentShorterHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, reading(7, float64(i), time.Time{})); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 7, 12)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(got))
	}
}

func TestEmptyUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Latest(ctx, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Latest on empty user: err = %v, want ErrNotFound", err)
	}
	got, err := s.Recent(ctx, 99, 12)
	if err != nil {
		t.Fatalf("Recent on empty user: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent on empty user = %v, want empty", got)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	u, err := s.CreateUser(ctx, model.User{Email: "a@example.com", PasswordHash: "x", FullName: "A"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("CreateUser must assign an id")
	}

	if _, err := s.CreateUser(ctx, model.User{Email: "A@example.com"}); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("duplicate email: err = %v, want ErrDuplicateEmail", err)
	}

	got, err := s.UserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("UserByEmail id = %d, want %d", got.ID, u.ID)
	}

	if _, err := s.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown email: err = %v, want ErrNotFound", err)
	}
}
