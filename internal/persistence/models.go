package persistence

import (
	"time"

	"github.com/example/space-reservations/internal/booking"
)

// Space represents a reservable physical space in the catalog.
type Space struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Code      string
	Kind      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User represents an account stored with its credential hash.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Reservation represents a stored reservation request. Date carries no time
// component; Start and End are clock times within that date.
type Reservation struct {
	ID          string
	UserID      string
	SpaceID     string
	Date        booking.Date
	Start       booking.TimeOfDay
	End         booking.TimeOfDay
	Description string
	Status      booking.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window returns the occupied time span of the reservation.
func (r Reservation) Window() booking.Window {
	return booking.Window{Start: r.Start, End: r.End}
}

// Slot projects the reservation into the conflict engine's view.
func (r Reservation) Slot() booking.Slot {
	return booking.Slot{ID: r.ID, Window: r.Window(), Status: r.Status}
}

// ReservationFilter narrows reservation scans. Zero fields are ignored.
type ReservationFilter struct {
	UserID    string
	SpaceID   string
	SpaceKind string
	Status    booking.Status
	FromDate  booking.Date
	ToDate    booking.Date
}
