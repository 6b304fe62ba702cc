package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/space-reservations/internal/application"
	"github.com/example/space-reservations/internal/booking"
	"github.com/example/space-reservations/internal/persistence"
)

var (
	userCounter        uint64
	spaceCounter       uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns a date safely in the future relative to ReferenceTime,
// so fixture reservations pass the future-date guard when the test clock is
// pinned to ReferenceTime.
func ReferenceDate() booking.Date {
	return booking.DateOf(referenceTime.AddDate(0, 0, 7))
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account record that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		FirstName:    fmt.Sprintf("First%03d", idx),
		LastName:     fmt.Sprintf("Last%03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleRequester,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole sets the role on the generated fixture.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.UserInput with a valid password.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Password:  "fixture-password",
		Role:      f.Role,
	}
}

// ----------------------------- Space fixtures -----------------------------

// SpaceFixture represents a deterministic space catalog record.
type SpaceFixture struct {
	ID        string
	Name      string
	Building  string
	Floor     int
	Code      string
	Kind      application.SpaceKind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpaceOption configures the generated space fixture.
type SpaceOption func(*SpaceFixture)

// NewSpaceFixture returns a deterministic space fixture with optional overrides.
func NewSpaceFixture(opts ...SpaceOption) SpaceFixture {
	idx := atomic.AddUint64(&spaceCounter, 1)
	id := fmt.Sprintf("space-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := SpaceFixture{
		ID:        id,
		Name:      fmt.Sprintf("Space %03d", idx),
		Building:  "1",
		Floor:     2,
		Code:      fmt.Sprintf("E1/P2/E%03d", idx),
		Kind:      application.SpaceKindClassroom,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpaceID overrides the generated space ID.
func WithSpaceID(id string) SpaceOption {
	return func(f *SpaceFixture) {
		f.ID = id
	}
}

// WithSpaceCode overrides the generated code.
func WithSpaceCode(code string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Code = code
	}
}

// WithSpaceKind sets the kind on the generated fixture.
func WithSpaceKind(kind application.SpaceKind) SpaceOption {
	return func(f *SpaceFixture) {
		f.Kind = kind
	}
}

// WithSpaceName overrides the generated name.
func WithSpaceName(name string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Name = name
	}
}

// Application returns the fixture as an application.Space value.
func (f SpaceFixture) Application() application.Space {
	return application.Space{
		ID:        f.ID,
		Name:      f.Name,
		Building:  f.Building,
		Floor:     f.Floor,
		Code:      f.Code,
		Kind:      f.Kind,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Space value.
func (f SpaceFixture) Persistence() persistence.Space {
	return persistence.Space{
		ID:        f.ID,
		Name:      f.Name,
		Building:  f.Building,
		Floor:     f.Floor,
		Code:      f.Code,
		Kind:      string(f.Kind),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.SpaceInput.
func (f SpaceFixture) Input() application.SpaceInput {
	return application.SpaceInput{
		Name:     f.Name,
		Building: f.Building,
		Floor:    f.Floor,
		Code:     f.Code,
		Kind:     f.Kind,
	}
}

// --------------------------- Reservation fixtures -------------------------

// ReservationFixture represents a deterministic reservation record.
type ReservationFixture struct {
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

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a deterministic pending reservation fixture
// with optional overrides. Successive fixtures occupy disjoint hour slots.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	id := fmt.Sprintf("reservation-%03d", idx)
	start := booking.TimeOfDay(8*60 + int(idx%8)*60)
	fixture := ReservationFixture{
		ID:          id,
		UserID:      fmt.Sprintf("user-%03d", idx),
		SpaceID:     fmt.Sprintf("space-%03d", idx),
		Date:        ReferenceDate(),
		Start:       start,
		End:         start + 60,
		Description: fmt.Sprintf("Reservation %03d", idx),
		Status:      booking.StatusPending,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationUser sets the owning user ID.
func WithReservationUser(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserID = id
	}
}

// WithReservationSpace sets the target space ID.
func WithReservationSpace(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.SpaceID = id
	}
}

// WithReservationDate sets the reservation date.
func WithReservationDate(date booking.Date) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = date
	}
}

// WithReservationWindow sets the start and end clock times.
func WithReservationWindow(start, end booking.TimeOfDay) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationStatus sets the lifecycle status.
func WithReservationStatus(status booking.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:          f.ID,
		UserID:      f.UserID,
		SpaceID:     f.SpaceID,
		Date:        f.Date,
		Start:       f.Start,
		End:         f.End,
		Description: f.Description,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:          f.ID,
		UserID:      f.UserID,
		SpaceID:     f.SpaceID,
		Date:        f.Date,
		Start:       f.Start,
		End:         f.End,
		Description: f.Description,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ReservationInput.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		UserID:      f.UserID,
		SpaceID:     f.SpaceID,
		Date:        f.Date,
		Start:       f.Start,
		End:         f.End,
		Description: f.Description,
	}
}

// Slot projects the fixture into the conflict engine's view.
func (f ReservationFixture) Slot() booking.Slot {
	return booking.Slot{
		ID:     f.ID,
		Window: booking.Window{Start: f.Start, End: f.End},
		Status: f.Status,
	}
}
