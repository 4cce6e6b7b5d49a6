package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aminofabian/squlll/core/academic"
	"github.com/aminofabian/squlll/storage/database/inmem"
)

func TestSessionRepository_UpdateSession(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewSessionRepository(inmemdb.Open())
	created, err := repo.CreateSession(ctx, academic.State{ID: "s1", SchoolID: "school-1", Step: academic.StepAcademicYear})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	first, err := repo.UpdateSession(ctx, created)
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	assert.Equal(t, created.Version+1, first.Version)

	tests := []struct {
		name    string
		state   academic.State
		wantErr error
	}{
		{"stale version", created, academic.ErrSessionChanged},
		{"other school", academic.State{ID: "s1", SchoolID: "school-2", Version: first.Version}, academic.ErrSessionNotFound},
		{"unknown session", academic.State{ID: "s2", SchoolID: "school-1"}, academic.ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.UpdateSession(ctx, tt.state)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	got, err := repo.GetSession(ctx, "school-1", "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	assert.Equal(t, first.Version, got.Version)
}
