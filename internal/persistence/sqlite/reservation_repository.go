package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/space-reservations/internal/booking"
	"github.com/example/space-reservations/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Every mutation that depends on the state of other reservations runs
// inside a single transaction so the check and the write observe one snapshot.
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a SQLite-backed reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// CreateReservation inserts a pending reservation. The overlap check against
// non-rejected reservations on the same space and date runs in the same
// transaction as the insert; an overlap aborts with persistence.ErrConflict.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	reservation.Status = booking.StatusPending
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		existing, err := queryReservationsTx(ctx, tx, reservationSelect+`
			WHERE space_id = ? AND date = ? AND status != ?
		`, reservation.SpaceID, reservation.Date.String(), booking.StatusRejected)
		if err != nil {
			return err
		}

		if booking.HasConflict(slots(existing), reservation.Window(), "") {
			return persistence.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations (id, user_id, space_id, date, start_minute, end_minute, description, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			reservation.ID,
			reservation.UserID,
			reservation.SpaceID,
			reservation.Date.String(),
			reservation.Start.Minutes(),
			reservation.End.Minutes(),
			reservation.Description,
			reservation.Status,
			reservation.CreatedAt.Format(time.RFC3339),
			reservation.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}

		return nil
	})
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := r.pool.db.QueryRowContext(ctx, reservationSelect+" WHERE id = ?", id)

	reservation, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by date
// then start time. Filtering by space kind joins against the spaces table.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query := reservationSelect
	var (
		conditions []string
		args       []any
	)

	if filter.SpaceKind != "" {
		query = `
			SELECT r.id, r.user_id, r.space_id, r.date, r.start_minute, r.end_minute, r.description, r.status, r.created_at, r.updated_at
			FROM reservations r
			JOIN spaces s ON s.id = r.space_id`
		conditions = append(conditions, "s.kind = ?")
		args = append(args, filter.SpaceKind)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SpaceID != "" {
		conditions = append(conditions, "space_id = ?")
		args = append(args, filter.SpaceID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.FromDate.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.FromDate.String())
	}
	if !filter.ToDate.IsZero() {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.ToDate.String())
	}

	order := " ORDER BY date ASC, start_minute ASC, id ASC"
	if filter.SpaceKind != "" {
		for i, cond := range conditions {
			if !strings.HasPrefix(cond, "s.") {
				conditions[i] = "r." + cond
			}
		}
		order = " ORDER BY r.date ASC, r.start_minute ASC, r.id ASC"
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += order

	return r.queryReservations(ctx, query, args...)
}

// ListForSpaceDate returns every reservation for one space on one date,
// optionally narrowed to a status set, ordered by start time.
func (r *ReservationRepository) ListForSpaceDate(ctx context.Context, spaceID string, date booking.Date, statuses []booking.Status) ([]persistence.Reservation, error) {
	query := reservationSelect + " WHERE space_id = ? AND date = ?"
	args := []any{spaceID, date.String()}

	query, args = appendStatusFilter(query, args, statuses)
	query += " ORDER BY start_minute ASC, id ASC"

	return r.queryReservations(ctx, query, args...)
}

// ListForDate returns every reservation on a date across all spaces,
// optionally narrowed to a status set.
func (r *ReservationRepository) ListForDate(ctx context.Context, date booking.Date, statuses []booking.Status) ([]persistence.Reservation, error) {
	query := reservationSelect + " WHERE date = ?"
	args := []any{date.String()}

	query, args = appendStatusFilter(query, args, statuses)
	query += " ORDER BY space_id ASC, start_minute ASC, id ASC"

	return r.queryReservations(ctx, query, args...)
}

// ApproveReservation transitions a pending reservation to approved and, in the
// same transaction, rejects every other pending reservation on the same space
// and date that overlaps it.
func (r *ReservationRepository) ApproveReservation(ctx context.Context, id string, now time.Time) (persistence.Reservation, []persistence.Reservation, error) {
	var (
		approved  persistence.Reservation
		displaced []persistence.Reservation
	)

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		target, err := getReservationTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if target.Status != booking.StatusPending {
			return persistence.ErrInvalidState
		}

		stamp := now.UTC().Format(time.RFC3339)
		if err := updateStatusTx(ctx, tx, id, booking.StatusApproved, stamp); err != nil {
			return err
		}

		peers, err := queryReservationsTx(ctx, tx, reservationSelect+`
			WHERE space_id = ? AND date = ? AND status = ? AND id != ?
		`, target.SpaceID, target.Date.String(), booking.StatusPending, id)
		if err != nil {
			return err
		}

		losers := booking.DisplacedByApproval(slots(peers), target.Window(), id)
		loserIDs := make(map[string]struct{}, len(losers))
		for _, slot := range losers {
			loserIDs[slot.ID] = struct{}{}
		}

		for _, peer := range peers {
			if _, ok := loserIDs[peer.ID]; !ok {
				continue
			}
			if err := updateStatusTx(ctx, tx, peer.ID, booking.StatusRejected, stamp); err != nil {
				return err
			}
			peer.Status = booking.StatusRejected
			displaced = append(displaced, peer)
		}

		approved = target
		approved.Status = booking.StatusApproved
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, nil, err
	}

	return approved, displaced, nil
}

// RejectReservation transitions a pending reservation to rejected.
func (r *ReservationRepository) RejectReservation(ctx context.Context, id string, now time.Time) (persistence.Reservation, error) {
	var rejected persistence.Reservation

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		target, err := getReservationTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if target.Status != booking.StatusPending {
			return persistence.ErrInvalidState
		}

		stamp := now.UTC().Format(time.RFC3339)
		if err := updateStatusTx(ctx, tx, id, booking.StatusRejected, stamp); err != nil {
			return err
		}

		rejected = target
		rejected.Status = booking.StatusRejected
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return rejected, nil
}

// DeletePendingReservation removes a reservation that is still pending.
func (r *ReservationRepository) DeletePendingReservation(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		target, err := getReservationTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if target.Status != booking.StatusPending {
			return persistence.ErrInvalidState
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}
		return nil
	})
}

const reservationSelect = `
	SELECT id, user_id, space_id, date, start_minute, end_minute, description, status, created_at, updated_at
	FROM reservations`

func appendStatusFilter(query string, args []any, statuses []booking.Status) (string, []any) {
	if len(statuses) == 0 {
		return query, args
	}
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, status)
	}
	return query + " AND status IN (" + strings.Join(placeholders, ", ") + ")", args
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func queryReservationsTx(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]persistence.Reservation, error) {
	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

func getReservationTx(ctx context.Context, tx *sql.Tx, id string) (persistence.Reservation, error) {
	row := tx.QueryRowContext(ctx, reservationSelect+" WHERE id = ?", id)

	reservation, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

func updateStatusTx(ctx context.Context, tx *sql.Tx, id string, status booking.Status, stamp string) error {
	result, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?",
		status, stamp, id,
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

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var (
		date                 string
		startMin, endMin     int
		status               string
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.SpaceID,
		&date,
		&startMin,
		&endMin,
		&reservation.Description,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Reservation{}, err
	}

	parsed, err := booking.ParseDate(date)
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse date: %w", err)
	}
	reservation.Date = parsed
	reservation.Start = booking.TimeOfDay(startMin)
	reservation.End = booking.TimeOfDay(endMin)
	reservation.Status = booking.Status(status)

	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}

func slots(reservations []persistence.Reservation) []booking.Slot {
	out := make([]booking.Slot, len(reservations))
	for i, reservation := range reservations {
		out[i] = reservation.Slot()
	}
	return out
}
