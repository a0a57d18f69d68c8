// Package memory implements storage.Store in process memory with the same
// observable semantics as the Postgres store. Used by tests and local runs
// without a database. The users foreign key is not enforced here: readings
// may be appended for any positive user id.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	nextLog  int64
	nextUser int64
	readings map[int64][]model.SensorReading // userID -> readings in append order
	users    map[string]model.User           // lowercased email -> user
}

func NewStore() *Store {
	return &Store{
		readings: make(map[int64][]model.SensorReading),
		users:    make(map[string]model.User),
	}
}

func (s *Store) Append(_ context.Context, r model.SensorReading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLog++
	r.LogID = s.nextLog
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	s.readings[r.UserID] = append(s.readings[r.UserID], r)
	return r.LogID, nil
}

func (s *Store) Latest(_ context.Context, userID int64) (model.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.readings[userID]
	if len(list) == 0 {
		return model.SensorReading{}, storage.ErrNotFound
	}

	latest := list[0]
	for _, r := range list[1:] {
		if after(r, latest) {
			latest = r
		}
	}
	return latest, nil
}

func (s *Store) Recent(_ context.Context, userID int64, limit int) ([]model.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.readings[userID]
	if limit <= 0 || len(list) == 0 {
		return []model.SensorReading{}, nil
	}

	sorted := make([]model.SensorReading, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return after(sorted[j], sorted[i]) })

	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted, nil
}

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.users[key]; exists {
		return model.User{}, storage.ErrDuplicateEmail
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users[key] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return u, nil
}

// Count returns the number of stored readings for a user.
func (s *Store) Count(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[userID])
}

// after reports whether a is more recent than b: RecordedAt order with ties
// broken by LogID.
func after(a, b model.SensorReading) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.LogID > b.LogID
}
