package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aminofabian/squlll/core/academic"
)

type sessionRow struct {
	ID             string      `db:"id"`
	SchoolID       string      `db:"school_id"`
	Step           string      `db:"step"`
	AcademicYearID null.String `db:"academic_year_id"`
	State          []byte      `db:"state"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	ExpiresAt      time.Time   `db:"expires_at"`
	Version        int         `db:"version"`
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ academic.SessionRepository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) academic.SessionRepository {
	return &sessionRepository{db: db}
}

func toRow(state academic.State) (sessionRow, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "encoding wizard state")
	}
	return sessionRow{
		ID:             state.ID,
		SchoolID:       state.SchoolID,
		Step:           string(state.Step),
		AcademicYearID: null.NewString(state.AcademicYearID, state.AcademicYearID != ""),
		State:          data,
		CreatedAt:      state.CreatedAt.UTC(),
		UpdatedAt:      state.UpdatedAt.UTC(),
		ExpiresAt:      state.ExpiresAt.UTC(),
		Version:        state.Version,
	}, nil
}

func fromRow(row sessionRow) (academic.State, error) {
	var state academic.State
	if err := json.Unmarshal(row.State, &state); err != nil {
		return academic.State{}, errors.Wrap(err, "decoding wizard state")
	}
	// columns win over the document
	state.ID = row.ID
	state.SchoolID = row.SchoolID
	state.Step = academic.Step(row.Step)
	state.AcademicYearID = row.AcademicYearID.String
	state.CreatedAt = row.CreatedAt
	state.UpdatedAt = row.UpdatedAt
	state.ExpiresAt = row.ExpiresAt
	state.Version = row.Version
	return state, nil
}

// trapNoRowsErr maps "no rows" to academic.ErrSessionNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return academic.ErrSessionNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *sessionRepository) CreateSession(ctx context.Context, state academic.State) (academic.State, error) {
	row, err := toRow(state)
	if err != nil {
		return academic.State{}, err
	}
	const q = `INSERT INTO wizard_sessions (id, school_id, step, academic_year_id, state, created_at, updated_at, expires_at, version)
		VALUES (:id, :school_id, :step, :academic_year_id, :state, :created_at, :updated_at, :expires_at, :version)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return academic.State{}, errors.Wrap(err, "inserting wizard session")
	}
	return fromRow(row)
}

func (repo *sessionRepository) GetSession(ctx context.Context, schoolID, id string) (academic.State, error) {
	var row sessionRow
	const q = `SELECT * FROM wizard_sessions WHERE id = $1 AND school_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, schoolID); err != nil {
		return academic.State{}, trapNoRowsErr(err, "getting wizard session")
	}
	return fromRow(row)
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, state academic.State) (academic.State, error) {
	row, err := toRow(state)
	if err != nil {
		return academic.State{}, err
	}
	const q = `UPDATE wizard_sessions
		SET step = :step, academic_year_id = :academic_year_id, state = :state, updated_at = :updated_at, expires_at = :expires_at,
			version = version + 1
		WHERE id = :id AND school_id = :school_id AND version = :version`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return academic.State{}, errors.Wrap(err, "updating wizard session")
	}
	if n, err := res.RowsAffected(); err != nil {
		return academic.State{}, errors.Wrap(err, "updating wizard session")
	} else if n == 0 {
		return academic.State{}, repo.updateMissed(ctx, state)
	}
	row.Version++
	return fromRow(row)
}

// updateMissed tells a missing session from one saved concurrently by another request.
func (repo *sessionRepository) updateMissed(ctx context.Context, state academic.State) error {
	var version int
	const q = `SELECT version FROM wizard_sessions WHERE id = $1 AND school_id = $2`
	if err := repo.db.GetContext(ctx, &version, q, state.ID, state.SchoolID); err != nil {
		return trapNoRowsErr(err, "updating wizard session")
	}
	return academic.ErrSessionChanged
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, schoolID, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return errors.Wrap(err, "deleting wizard session")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting wizard session")
	} else if n == 0 {
		return academic.ErrSessionNotFound
	}
	return nil
}

func (repo *sessionRepository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging wizard sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "purging wizard sessions")
	}
	return int(n), nil
}
