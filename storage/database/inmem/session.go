package inmemdb

import (
	"context"
	"time"

	"github.com/aminofabian/squlll/core/academic"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) academic.SessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(_ context.Context, state academic.State) (academic.State, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := copyState(state)
	repo.db.table[state.ID] = &stored
	return copyState(stored), nil
}

func (repo *sessionRepository) GetSession(_ context.Context, schoolID, id string) (academic.State, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if state, ok := repo.db.table[id]; ok && state.SchoolID == schoolID {
		return copyState(*state), nil
	}
	return academic.State{}, academic.ErrSessionNotFound
}

func (repo *sessionRepository) UpdateSession(_ context.Context, state academic.State) (academic.State, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.table[state.ID]
	if !ok || existing.SchoolID != state.SchoolID {
		return academic.State{}, academic.ErrSessionNotFound
	}
	if existing.Version != state.Version {
		return academic.State{}, academic.ErrSessionChanged
	}
	stored := copyState(state)
	stored.Version++
	repo.db.table[state.ID] = &stored
	return copyState(stored), nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, schoolID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	state, ok := repo.db.table[id]
	if !ok || state.SchoolID != schoolID {
		return academic.ErrSessionNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *sessionRepository) PurgeExpiredSessions(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, state := range repo.db.table {
		if now.After(state.ExpiresAt) {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

// copyState detaches the slices of state from the stored copy.
func copyState(state academic.State) academic.State {
	state.TermDrafts = append([]academic.TermDraft(nil), state.TermDrafts...)
	state.Terms = append(state.Terms[:0:0], state.Terms...)
	state.Outcome.Units = append(state.Outcome.Units[:0:0], state.Outcome.Units...)
	return state
}
