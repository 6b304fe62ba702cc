package persistence

import (
	"context"
	"time"

	"github.com/example/space-reservations/internal/booking"
)

// SpaceRepository exposes catalog operations for reservable spaces.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space Space) error
	UpdateSpace(ctx context.Context, space Space) error
	GetSpace(ctx context.Context, id string) (Space, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	DeleteSpace(ctx context.Context, id string) error
}

// UserRepository exposes account operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ReservationRepository stores reservation requests and applies their status
// transitions. Every mutation is a single atomic unit: the conflict check and
// the write observe one consistent snapshot, so two concurrent requests for
// the same slot can never both commit.
type ReservationRepository interface {
	// CreateReservation inserts a pending reservation after verifying, inside
	// the same transaction, that no non-rejected reservation on the same
	// space and date overlaps it. Returns ErrConflict on overlap.
	CreateReservation(ctx context.Context, reservation Reservation) error

	GetReservation(ctx context.Context, id string) (Reservation, error)

	// ListReservations returns reservations matching the filter ordered by
	// date then start time.
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)

	// ListForSpaceDate returns every reservation for one space on one date,
	// optionally narrowed to a status set, ordered by start time.
	ListForSpaceDate(ctx context.Context, spaceID string, date booking.Date, statuses []booking.Status) ([]Reservation, error)

	// ListForDate returns every reservation on a date across all spaces,
	// optionally narrowed to a status set.
	ListForDate(ctx context.Context, date booking.Date, statuses []booking.Status) ([]Reservation, error)

	// ApproveReservation transitions a pending reservation to approved and,
	// in the same transaction, rejects every other pending reservation on the
	// same space and date that overlaps it. Returns the approved record and
	// the displaced records. Returns ErrNotFound when the id is unknown and
	// ErrInvalidState when the reservation is no longer pending.
	ApproveReservation(ctx context.Context, id string, now time.Time) (Reservation, []Reservation, error)

	// RejectReservation transitions a pending reservation to rejected. No
	// cascade. Same sentinel behaviour as ApproveReservation.
	RejectReservation(ctx context.Context, id string, now time.Time) (Reservation, error)

	// DeletePendingReservation removes a reservation that is still pending.
	// Returns ErrInvalidState when the reservation has already been
	// processed.
	DeletePendingReservation(ctx context.Context, id string) error
}
