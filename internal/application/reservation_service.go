package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/space-reservations/internal/booking"
	"github.com/example/space-reservations/internal/persistence"
)

// ReservationRepository captures the persistence interactions needed by the
// service. The repository guarantees atomicity of the conflict check on
// create and of the cascade on approval.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation persistence.Reservation) error
	GetReservation(ctx context.Context, id string) (persistence.Reservation, error)
	ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error)
	ListForSpaceDate(ctx context.Context, spaceID string, date booking.Date, statuses []booking.Status) ([]persistence.Reservation, error)
	ApproveReservation(ctx context.Context, id string, now time.Time) (persistence.Reservation, []persistence.Reservation, error)
	RejectReservation(ctx context.Context, id string, now time.Time) (persistence.Reservation, error)
	DeletePendingReservation(ctx context.Context, id string) error
}

// SpaceCatalog exposes the space existence check needed by the creation guard.
type SpaceCatalog interface {
	GetSpace(ctx context.Context, id string) (persistence.Space, error)
}

// UserDirectory exposes the user existence check needed by the creation guard.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
}

// ReservationService orchestrates the reservation lifecycle: guarded
// creation, conflict queries, approval with cascade, rejection, deletion and
// the listing surfaces.
type ReservationService struct {
	reservations ReservationRepository
	spaces       SpaceCatalog
	users        UserDirectory
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationRepository, spaces SpaceCatalog, users UserDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		spaces:       spaces,
		users:        users,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation runs the guard checks in order before persisting a
// pending reservation: space exists, user exists, the window is a valid
// range, the date lies strictly after today, the span is within the duration
// cap, and no non-rejected reservation overlaps. The final overlap check and
// the insert execute in one transaction inside the repository.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	input := params.Input
	principal := params.Principal

	if input.UserID == "" {
		input.UserID = principal.UserID
	}
	if input.UserID != principal.UserID && principal.Role != RoleAdministrator {
		return Reservation{}, ErrForbidden
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"actor_id", principal.UserID,
		"space_id", input.SpaceID,
		"date", input.Date.String(),
	)

	if s.spaces != nil {
		if _, err := s.spaces.GetSpace(ctx, input.SpaceID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return Reservation{}, fmt.Errorf("%w: space %s", ErrNotFound, input.SpaceID)
			}
			return Reservation{}, err
		}
	}

	if s.users != nil {
		if _, err := s.users.GetUser(ctx, input.UserID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return Reservation{}, fmt.Errorf("%w: user %s", ErrNotFound, input.UserID)
			}
			return Reservation{}, err
		}
	}

	window := booking.Window{Start: input.Start, End: input.End}
	if !window.Valid() {
		return Reservation{}, ErrInvalidRange
	}

	vErr := &ValidationError{}
	today := booking.DateOf(s.now())
	if !input.Date.After(today) {
		vErr.add("date", "date must be after today")
	}
	if window.Duration() > booking.MaxDuration {
		vErr.add("time", "reservation must not exceed 8 hours")
	}
	if vErr.HasErrors() {
		return Reservation{}, vErr
	}

	reservation := persistence.Reservation{
		ID:          s.idGenerator(),
		UserID:      input.UserID,
		SpaceID:     input.SpaceID,
		Date:        input.Date,
		Start:       input.Start,
		End:         input.End,
		Description: strings.TrimSpace(input.Description),
		Status:      booking.StatusPending,
	}

	if err := s.reservations.CreateReservation(ctx, reservation); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
		return Reservation{}, err
	}

	persisted, err := s.reservations.GetReservation(ctx, reservation.ID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}

	logger.With("reservation_id", persisted.ID).InfoContext(ctx, "reservation created")
	return toReservation(persisted), nil
}

// HasConflict reports whether the window would collide with a non-rejected
// reservation for the space on the date. excludeID omits one reservation
// from consideration, for use when re-checking an existing record.
func (s *ReservationService) HasConflict(ctx context.Context, spaceID string, date booking.Date, start, end booking.TimeOfDay, excludeID string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return false, fmt.Errorf("reservation repository not configured")
	}

	window := booking.Window{Start: start, End: end}
	if !window.Valid() {
		return false, ErrInvalidRange
	}

	existing, err := s.reservations.ListForSpaceDate(ctx, spaceID, date, []booking.Status{booking.StatusPending, booking.StatusApproved})
	if err != nil {
		return false, mapReservationRepoError(err)
	}

	return booking.HasConflict(toSlots(existing), window, excludeID), nil
}

// Approve transitions a pending reservation to approved and reports the
// overlapping pending reservations the cascade rejected. Coordinator or
// administrator only.
func (s *ReservationService) Approve(ctx context.Context, principal Principal, id string) (ApprovalResult, error) {
	if s == nil {
		return ApprovalResult{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ApprovalResult{}, fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Approve", "actor_id", principal.UserID, "reservation_id", id)

	if !principal.Role.CanReview() {
		return ApprovalResult{}, ErrForbidden
	}

	approved, displaced, err := s.reservations.ApproveReservation(ctx, id, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to approve reservation", "error", err, "error_kind", ErrorKind(err))
		return ApprovalResult{}, err
	}

	result := ApprovalResult{Approved: toReservation(approved)}
	for _, reservation := range displaced {
		result.Displaced = append(result.Displaced, toReservation(reservation))
	}

	logger.With("displaced", len(result.Displaced)).InfoContext(ctx, "reservation approved")
	return result, nil
}

// Reject transitions a pending reservation to rejected. No cascade.
// Coordinator or administrator only.
func (s *ReservationService) Reject(ctx context.Context, principal Principal, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Reject", "actor_id", principal.UserID, "reservation_id", id)

	if !principal.Role.CanReview() {
		return Reservation{}, ErrForbidden
	}

	rejected, err := s.reservations.RejectReservation(ctx, id, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to reject reservation", "error", err, "error_kind", ErrorKind(err))
		return Reservation{}, err
	}

	logger.InfoContext(ctx, "reservation rejected")
	return toReservation(rejected), nil
}

// DeletePending removes a reservation that is still pending. The owner may
// delete their own; coordinators and administrators may delete any.
func (s *ReservationService) DeletePending(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "DeletePending", "actor_id", principal.UserID, "reservation_id", id)

	existing, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return mapReservationRepoError(err)
	}

	if existing.UserID != principal.UserID && !principal.Role.CanReview() {
		return ErrForbidden
	}

	if err := s.reservations.DeletePendingReservation(ctx, id); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation deleted")
	return nil
}

// GetReservation retrieves a single reservation. Owners see their own;
// coordinators and administrators see all.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}

	if reservation.UserID != principal.UserID && !principal.Role.CanReview() {
		return Reservation{}, ErrForbidden
	}

	return toReservation(reservation), nil
}

// ListReservations enumerates every reservation ordered by date then start
// time. Coordinator or administrator only.
func (s *ReservationService) ListReservations(ctx context.Context, principal Principal) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}

	reservations, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return toReservations(reservations), nil
}

// ListUserReservations enumerates a user's reservations. Owners list their
// own; coordinators and administrators list any user's.
func (s *ReservationService) ListUserReservations(ctx context.Context, principal Principal, userID string) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	if userID != principal.UserID && !principal.Role.CanReview() {
		return nil, ErrForbidden
	}

	reservations, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{UserID: userID})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return toReservations(reservations), nil
}

// ListSpaceReservations enumerates reservations for one space, optionally
// bounded by a date range and grouped into day, week, or month buckets.
// Groups cover only dates that hold reservations.
func (s *ReservationService) ListSpaceReservations(ctx context.Context, params ListSpaceReservationsParams) ([]Reservation, []ReservationGroup, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, nil, fmt.Errorf("reservation repository not configured")
	}

	if !params.Period.Valid() {
		vErr := &ValidationError{}
		vErr.add("period", "period must be one of day, week, month")
		return nil, nil, vErr
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.From.After(params.To) {
		return nil, nil, ErrInvalidRange
	}

	reservations, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{
		SpaceID:  params.SpaceID,
		FromDate: params.From,
		ToDate:   params.To,
	})
	if err != nil {
		return nil, nil, mapReservationRepoError(err)
	}

	flat := toReservations(reservations)
	if params.Period == ListPeriodNone {
		return flat, nil, nil
	}

	return flat, groupByPeriod(flat, params.Period), nil
}

// Search filters reservations by user, space kind, status and date range.
// Administrator only.
func (s *ReservationService) Search(ctx context.Context, params SearchReservationsParams) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	if params.Principal.Role != RoleAdministrator {
		return nil, ErrForbidden
	}

	vErr := &ValidationError{}
	if params.SpaceKind != "" && !params.SpaceKind.Valid() {
		vErr.add("space_kind", "kind must be one of classroom, laboratory, auditorium")
	}
	if params.Status != "" {
		if _, err := booking.ParseStatus(string(params.Status)); err != nil {
			vErr.add("status", "status must be one of pending, approved, rejected")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.From.After(params.To) {
		return nil, ErrInvalidRange
	}

	reservations, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{
		UserID:    params.UserID,
		SpaceKind: string(params.SpaceKind),
		Status:    params.Status,
		FromDate:  params.From,
		ToDate:    params.To,
	})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return toReservations(reservations), nil
}

// groupByPeriod buckets date-ordered reservations. Input order is preserved
// inside each bucket and across buckets.
func groupByPeriod(reservations []Reservation, period ListPeriod) []ReservationGroup {
	if len(reservations) == 0 {
		return nil
	}

	var groups []ReservationGroup
	index := make(map[string]int)
	for _, reservation := range reservations {
		from, to, label := periodBucket(period, reservation.Date)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, ReservationGroup{Label: label, From: from, To: to})
		}
		groups[i].Reservations = append(groups[i].Reservations, reservation)
	}
	return groups
}

func periodBucket(period ListPeriod, date booking.Date) (from, to booking.Date, label string) {
	switch period {
	case ListPeriodWeek:
		// Monday-start week. In Go, Monday == 1, Sunday == 0.
		weekday := int(date.Time().Weekday())
		offset := (weekday + 6) % 7
		from = date.AddDays(-offset)
		to = from.AddDays(6)
		year, week := from.Time().ISOWeek()
		label = fmt.Sprintf("%04d-W%02d", year, week)
	case ListPeriodMonth:
		from = booking.Date{Year: date.Year, Month: date.Month, Day: 1}
		to = booking.DateOf(from.Time().AddDate(0, 1, -1))
		label = fmt.Sprintf("%04d-%02d", date.Year, date.Month)
	default:
		from, to = date, date
		label = date.String()
	}
	return from, to, label
}

func toReservation(reservation persistence.Reservation) Reservation {
	return Reservation{
		ID:          reservation.ID,
		UserID:      reservation.UserID,
		SpaceID:     reservation.SpaceID,
		Date:        reservation.Date,
		Start:       reservation.Start,
		End:         reservation.End,
		Description: reservation.Description,
		Status:      reservation.Status,
		CreatedAt:   reservation.CreatedAt,
		UpdatedAt:   reservation.UpdatedAt,
	}
}

func toReservations(reservations []persistence.Reservation) []Reservation {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]Reservation, len(reservations))
	for i, reservation := range reservations {
		out[i] = toReservation(reservation)
	}
	return out
}

func toSlots(reservations []persistence.Reservation) []booking.Slot {
	out := make([]booking.Slot, len(reservations))
	for i, reservation := range reservations {
		out[i] = reservation.Slot()
	}
	return out
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConflict) {
		return fmt.Errorf("%w: time slot overlaps an existing reservation", ErrConflict)
	}
	if errors.Is(err, persistence.ErrInvalidState) {
		return fmt.Errorf("%w: reservation is no longer pending", ErrInvalidState)
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end and within the duration cap")
		return vErr
	}
	return err
}
