package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/space-reservations/internal/persistence"
)

// SpaceRepository implements persistence.SpaceRepository using SQLite.
type SpaceRepository struct {
	pool *ConnectionPool
}

// NewSpaceRepository creates a SQLite-backed space repository.
func NewSpaceRepository(pool *ConnectionPool) *SpaceRepository {
	return &SpaceRepository{pool: pool}
}

// CreateSpace inserts a new space. A colliding unique code surfaces as
// persistence.ErrDuplicate.
func (r *SpaceRepository) CreateSpace(ctx context.Context, space persistence.Space) error {
	if space.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	space.CreatedAt = now
	space.UpdatedAt = now

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO spaces (id, name, building, floor, code, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		space.ID,
		space.Name,
		space.Building,
		space.Floor,
		space.Code,
		space.Kind,
		space.CreatedAt.Format(time.RFC3339),
		space.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// UpdateSpace updates an existing space.
func (r *SpaceRepository) UpdateSpace(ctx context.Context, space persistence.Space) error {
	space.UpdatedAt = time.Now().UTC()

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE spaces
		SET name = ?, building = ?, floor = ?, code = ?, kind = ?, updated_at = ?
		WHERE id = ?
	`,
		space.Name,
		space.Building,
		space.Floor,
		space.Code,
		space.Kind,
		space.UpdatedAt.Format(time.RFC3339),
		space.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetSpace retrieves a space by ID.
func (r *SpaceRepository) GetSpace(ctx context.Context, id string) (persistence.Space, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, building, floor, code, kind, created_at, updated_at
		FROM spaces
		WHERE id = ?
	`, id)

	space, err := scanSpace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Space{}, persistence.ErrNotFound
		}
		return persistence.Space{}, mapError(err)
	}
	return space, nil
}

// ListSpaces returns all spaces ordered by code.
func (r *SpaceRepository) ListSpaces(ctx context.Context) ([]persistence.Space, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, building, floor, code, kind, created_at, updated_at
		FROM spaces
		ORDER BY code ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var spaces []persistence.Space
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, mapError(err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return spaces, nil
}

// DeleteSpace removes a space. Spaces referenced by reservations are kept and
// the delete fails with persistence.ErrForeignKeyViolation.
func (r *SpaceRepository) DeleteSpace(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM spaces WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (persistence.Space, error) {
	var space persistence.Space
	var createdAt, updatedAt string

	if err := row.Scan(
		&space.ID,
		&space.Name,
		&space.Building,
		&space.Floor,
		&space.Code,
		&space.Kind,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Space{}, err
	}

	var err error
	if space.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Space{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if space.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Space{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return space, nil
}
