package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// db is the minimal interface satisfied by both *pgxpool.Pool and pgx.Tx.
// Accepting this instead of a concrete type lets tests pass a transaction
// that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepo persists editor session snapshots so that an editor survives
// a restart of the service.
type SessionRepo interface {
	// Save inserts or overwrites the snapshot with snap.ID and returns it
	// with the stored timestamps.
	Save(ctx context.Context, snap domain.EditorSnapshot) (domain.EditorSnapshot, error)

	// Get returns domain.ErrNotFound when no snapshot has the id.
	Get(ctx context.Context, id uuid.UUID) (domain.EditorSnapshot, error)

	// Delete returns domain.ErrNotFound when no snapshot has the id.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteIdle removes snapshots not updated since before and reports how
	// many were removed.
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

type pgSessionRepo struct {
	db db
}

// NewSessionRepo constructs a SessionRepo backed by the provided db connection.
func NewSessionRepo(db db) SessionRepo {
	return &pgSessionRepo{db: db}
}

const sessionColumns = `id, mode, step, slug_mode, spot_id, spot_slug, local_draft, draft, step_errors, created_at, updated_at`

func (r *pgSessionRepo) Save(ctx context.Context, snap domain.EditorSnapshot) (domain.EditorSnapshot, error) {
	const q = `
		INSERT INTO editor_sessions (id, mode, step, slug_mode, spot_id, spot_slug, local_draft, draft, step_errors)
		VALUES (@id, @mode, @step, @slug_mode, @spot_id, @spot_slug, @local_draft, @draft, @step_errors)
		ON CONFLICT (id) DO UPDATE SET
		    mode        = EXCLUDED.mode,
		    step        = EXCLUDED.step,
		    slug_mode   = EXCLUDED.slug_mode,
		    spot_id     = EXCLUDED.spot_id,
		    spot_slug   = EXCLUDED.spot_slug,
		    local_draft = EXCLUDED.local_draft,
		    draft       = EXCLUDED.draft,
		    step_errors = EXCLUDED.step_errors,
		    updated_at  = now()
		RETURNING ` + sessionColumns

	local, err := json.Marshal(snap.Local)
	if err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("repo.SessionRepo.Save: encode local draft: %w", err)
	}
	draft, err := json.Marshal(snap.Draft)
	if err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("repo.SessionRepo.Save: encode draft: %w", err)
	}
	stepErrors, err := json.Marshal(snap.StepErrors)
	if err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("repo.SessionRepo.Save: encode step errors: %w", err)
	}

	var spotID *int64 // 0 is stored as NULL
	if snap.SpotID != 0 {
		spotID = &snap.SpotID
	}

	args := pgx.NamedArgs{
		"id":          snap.ID,
		"mode":        snap.Mode,
		"step":        snap.Step,
		"slug_mode":   snap.SlugMode,
		"spot_id":     spotID,
		"spot_slug":   snap.SpotSlug,
		"local_draft": local,
		"draft":       draft,
		"step_errors": stepErrors,
	}

	result, err := scanSession(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("repo.SessionRepo.Save: %w", err)
	}
	return result, nil
}

func (r *pgSessionRepo) Get(ctx context.Context, id uuid.UUID) (domain.EditorSnapshot, error) {
	q := `SELECT ` + sessionColumns + ` FROM editor_sessions WHERE id = @id`

	result, err := scanSession(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("repo.SessionRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM editor_sessions WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.SessionRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SessionRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgSessionRepo) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM editor_sessions WHERE updated_at < @before`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"before": before})
	if err != nil {
		return 0, fmt.Errorf("repo.SessionRepo.DeleteIdle: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSession maps one editor_sessions row into a snapshot.
func scanSession(s scanner) (domain.EditorSnapshot, error) {
	var (
		snap                     domain.EditorSnapshot
		id                       pgtype.UUID
		spotID                   pgtype.Int8
		local, draft, stepErrors []byte
	)

	err := s.Scan(&id, &snap.Mode, &snap.Step, &snap.SlugMode, &spotID, &snap.SpotSlug,
		&local, &draft, &stepErrors, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EditorSnapshot{}, domain.ErrNotFound
		}
		return domain.EditorSnapshot{}, err
	}

	snap.ID = uuid.UUID(id.Bytes)
	if spotID.Valid {
		snap.SpotID = spotID.Int64
	}
	if err := json.Unmarshal(local, &snap.Local); err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("decode local draft: %w", err)
	}
	if err := json.Unmarshal(draft, &snap.Draft); err != nil {
		return domain.EditorSnapshot{}, fmt.Errorf("decode draft: %w", err)
	}
	if len(stepErrors) > 0 {
		if err := json.Unmarshal(stepErrors, &snap.StepErrors); err != nil {
			return domain.EditorSnapshot{}, fmt.Errorf("decode step errors: %w", err)
		}
	}
	return snap, nil
}
