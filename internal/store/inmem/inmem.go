// Package inmem is a process-local record store. A single mutex guards every
// table, so the stage guard and write happen under one critical section.
package inmem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"oap/internal/provision"
	"oap/internal/query"
)

// Store keeps all rows in memory.
type Store struct {
	mu sync.RWMutex

	records    []provision.Record
	byID       map[int64]int
	nextRecord int64

	batches   []provision.Batch
	nextBatch int64

	users       map[string]provision.User
	controllers []provision.Controller
	platforms   []provision.Platform
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:  make(map[int64]int),
		users: make(map[string]provision.User),
	}
}

func (s *Store) CreateRecords(_ context.Context, records []provision.Record) ([]provision.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]provision.Record, 0, len(records))
	for _, rec := range records {
		s.nextRecord++
		rec.ID = s.nextRecord
		rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)
		s.byID[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
		created = append(created, rec)
	}
	return created, nil
}

func (s *Store) GetRecord(_ context.Context, id int64) (provision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return provision.Record{}, fmt.Errorf("record %d: %w", id, provision.ErrNotFound)
	}
	return s.records[idx], nil
}

func (s *Store) UpdateStage(_ context.Context, id int64, stage provision.Stage, status provision.Status, link *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	rec := &s.records[idx]
	state := rec.Stage(stage)
	if !stage.Accepts(state.Status, status) {
		return false, nil
	}
	state.Status = status
	if link != nil {
		state.ResultLink = *link
	}
	rec.SetStage(stage, state)
	return true, nil
}

func (s *Store) FindRecords(_ context.Context, spec query.Spec) ([]provision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return query.Apply(s.records, spec), nil
}

func (s *Store) CountRecords(_ context.Context, filter query.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rec := range s.records {
		if query.Match(rec, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListRecordsWithUsers(_ context.Context) ([]provision.RecordWithUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []provision.RecordWithUser{}
	for _, rec := range s.records {
		for _, user := range s.users {
			if user.WWID == rec.WWID {
				out = append(out, provision.RecordWithUser{Record: rec, User: user})
			}
		}
	}
	return out, nil
}

func (s *Store) InsertBatch(_ context.Context, userID string, createdAt time.Time) (provision.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBatch++
	batch := provision.Batch{GlobalID: s.nextBatch, UserID: userID, CreatedAt: createdAt.UTC().Truncate(time.Second)}
	s.batches = append(s.batches, batch)
	return batch, nil
}

func (s *Store) LatestBatch(_ context.Context) (provision.Batch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.batches) == 0 {
		return provision.Batch{}, false, nil
	}
	return s.batches[len(s.batches)-1], true, nil
}

func (s *Store) PutUser(_ context.Context, user provision.User) error {
	if strings.TrimSpace(user.UserID) == "" {
		return fmt.Errorf("put user: %w: empty user id", provision.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (provision.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return provision.User{}, fmt.Errorf("user %s: %w", userID, provision.ErrNotFound)
	}
	return user, nil
}

func (s *Store) CreateController(_ context.Context, c provision.Controller) (provision.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.controllers {
		if existing.Name == c.Name {
			return provision.Controller{}, fmt.Errorf("controller %q already exists", c.Name)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Second)
	c.ID = int64(len(s.controllers) + 1)
	s.controllers = append(s.controllers, c)
	return c, nil
}

func (s *Store) ListControllers(_ context.Context) ([]provision.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]provision.Controller{}, s.controllers...)
	sortByName(out, func(c provision.Controller) string { return c.Name })
	return out, nil
}

func (s *Store) CreatePlatform(_ context.Context, p provision.Platform) (provision.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.platforms {
		if existing.Name == p.Name {
			return provision.Platform{}, fmt.Errorf("platform %q already exists", p.Name)
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Second)
	p.ID = int64(len(s.platforms) + 1)
	s.platforms = append(s.platforms, p)
	return p, nil
}

func (s *Store) ListPlatforms(_ context.Context) ([]provision.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]provision.Platform{}, s.platforms...)
	sortByName(out, func(p provision.Platform) string { return p.Name })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
