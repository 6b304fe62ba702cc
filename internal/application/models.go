package application

import (
	"time"

	"github.com/example/space-reservations/internal/booking"
)

// Role identifies the permission tier of an account.
type Role string

const (
	// RoleRequester may create reservations and manage their own pending ones.
	RoleRequester Role = "requester"
	// RoleCoordinator reviews reservations: approve, reject, list across users.
	RoleCoordinator Role = "coordinator"
	// RoleAdministrator manages the space and user catalogs on top of review rights.
	RoleAdministrator Role = "administrator"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleCoordinator, RoleAdministrator:
		return true
	}
	return false
}

// CanReview reports whether the role may approve or reject reservations.
func (r Role) CanReview() bool {
	return r == RoleCoordinator || r == RoleAdministrator
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// SpaceKind identifies the category of a reservable space.
type SpaceKind string

const (
	SpaceKindClassroom  SpaceKind = "classroom"
	SpaceKindLaboratory SpaceKind = "laboratory"
	SpaceKindAuditorium SpaceKind = "auditorium"
)

// Valid reports whether the kind belongs to the closed set.
func (k SpaceKind) Valid() bool {
	switch k {
	case SpaceKindClassroom, SpaceKindLaboratory, SpaceKindAuditorium:
		return true
	}
	return false
}

// Space represents a catalog entry for a reservable physical space.
type Space struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Code      string
	Kind      SpaceKind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpaceInput captures caller provided space fields.
type SpaceInput struct {
	Name     string
	Building string
	Floor    int
	Code     string
	Kind     SpaceKind
}

// CreateSpaceParams wraps the data required to create a space.
type CreateSpaceParams struct {
	Principal Principal
	Input     SpaceInput
}

// UpdateSpaceParams wraps the data required to update a space.
type UpdateSpaceParams struct {
	Principal Principal
	SpaceID   string
	Input     SpaceInput
}

// FindAvailableParams wraps an availability query: which spaces are free for
// the whole window on the date.
type FindAvailableParams struct {
	Principal Principal
	Date      booking.Date
	Start     booking.TimeOfDay
	End       booking.TimeOfDay
}

// User represents an account exposed by the application services. The
// credential hash never leaves the service layer.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided user attributes. Password is empty on
// updates that keep the existing credential.
type UserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// Reservation represents a reservation request exposed by the services.
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

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	UserID      string
	SpaceID     string
	Date        booking.Date
	Start       booking.TimeOfDay
	End         booking.TimeOfDay
	Description string
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ApprovalResult carries the approved reservation together with the pending
// reservations the approval displaced.
type ApprovalResult struct {
	Approved  Reservation
	Displaced []Reservation
}

// ListPeriod identifies the grouping preset for reservation listings.
type ListPeriod string

const (
	// ListPeriodNone indicates a flat listing without grouping.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay groups reservations by calendar day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek groups reservations by Monday-start week.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth groups reservations by calendar month.
	ListPeriodMonth ListPeriod = "month"
)

// Valid reports whether the period is one of the supported presets.
func (p ListPeriod) Valid() bool {
	switch p {
	case ListPeriodNone, ListPeriodDay, ListPeriodWeek, ListPeriodMonth:
		return true
	}
	return false
}

// ListSpaceReservationsParams wraps a by-space listing, optionally bounded
// and grouped by period.
type ListSpaceReservationsParams struct {
	Principal Principal
	SpaceID   string
	From      booking.Date
	To        booking.Date
	Period    ListPeriod
}

// ReservationGroup is one bucket of a period-grouped listing.
type ReservationGroup struct {
	Label        string
	From         booking.Date
	To           booking.Date
	Reservations []Reservation
}

// SearchReservationsParams wraps the administrator filter query.
type SearchReservationsParams struct {
	Principal Principal
	UserID    string
	SpaceKind SpaceKind
	Status    booking.Status
	From      booking.Date
	To        booking.Date
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
