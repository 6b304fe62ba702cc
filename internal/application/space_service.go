package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/space-reservations/internal/booking"
	"github.com/example/space-reservations/internal/persistence"
)

// Space codes follow the building/floor/space scheme, e.g. E1/P2/E101.
var spaceCodePattern = regexp.MustCompile(`^E\d+/P\d+/E\d{3}$`)

// SpaceRepository captures the persistence interactions needed by the service.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space persistence.Space) error
	UpdateSpace(ctx context.Context, space persistence.Space) error
	GetSpace(ctx context.Context, id string) (persistence.Space, error)
	ListSpaces(ctx context.Context) ([]persistence.Space, error)
	DeleteSpace(ctx context.Context, id string) error
}

// ApprovedReservationSource lists the reservations that make a space busy for
// availability purposes.
type ApprovedReservationSource interface {
	ListForDate(ctx context.Context, date booking.Date, statuses []booking.Status) ([]persistence.Reservation, error)
}

// SpaceService orchestrates the space catalog and availability queries.
// Catalog mutations are restricted to administrators.
type SpaceService struct {
	spaces       SpaceRepository
	reservations ApprovedReservationSource
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewSpaceService wires dependencies for space operations.
func NewSpaceService(spaces SpaceRepository, reservations ApprovedReservationSource, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SpaceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SpaceService{
		spaces:       spaces,
		reservations: reservations,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *SpaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SpaceService", operation, attrs...)
}

// CreateSpace validates the request before delegating to persistence.
func (s *SpaceService) CreateSpace(ctx context.Context, params CreateSpaceParams) (Space, error) {
	if s == nil {
		return Space{}, fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return Space{}, fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateSpace", "actor_id", params.Principal.UserID)

	if params.Principal.Role != RoleAdministrator {
		return Space{}, ErrForbidden
	}

	input := params.Input
	vErr := &ValidationError{}
	validateSpaceCore(input, vErr)
	if vErr.HasErrors() {
		return Space{}, vErr
	}

	space := persistence.Space{
		ID:       s.idGenerator(),
		Name:     strings.TrimSpace(input.Name),
		Building: strings.TrimSpace(input.Building),
		Floor:    input.Floor,
		Code:     strings.ToUpper(strings.TrimSpace(input.Code)),
		Kind:     string(input.Kind),
	}

	if err := s.spaces.CreateSpace(ctx, space); err != nil {
		err = mapSpaceRepoError(err)
		logger.ErrorContext(ctx, "failed to create space", "error", err, "error_kind", ErrorKind(err))
		return Space{}, err
	}

	created, err := s.spaces.GetSpace(ctx, space.ID)
	if err != nil {
		return Space{}, mapSpaceRepoError(err)
	}

	logger.With("space_id", created.ID, "code", created.Code).InfoContext(ctx, "space created")
	return toSpace(created), nil
}

// UpdateSpace applies validation and authorization before updating the catalog.
func (s *SpaceService) UpdateSpace(ctx context.Context, params UpdateSpaceParams) (Space, error) {
	if s == nil {
		return Space{}, fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return Space{}, fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSpace", "actor_id", params.Principal.UserID, "space_id", params.SpaceID)

	if params.Principal.Role != RoleAdministrator {
		return Space{}, ErrForbidden
	}

	existing, err := s.spaces.GetSpace(ctx, params.SpaceID)
	if err != nil {
		return Space{}, mapSpaceRepoError(err)
	}

	input := params.Input
	vErr := &ValidationError{}
	validateSpaceCore(input, vErr)
	if vErr.HasErrors() {
		return Space{}, vErr
	}

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Building = strings.TrimSpace(input.Building)
	updated.Floor = input.Floor
	updated.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	updated.Kind = string(input.Kind)

	if err := s.spaces.UpdateSpace(ctx, updated); err != nil {
		err = mapSpaceRepoError(err)
		logger.ErrorContext(ctx, "failed to update space", "error", err, "error_kind", ErrorKind(err))
		return Space{}, err
	}

	persisted, err := s.spaces.GetSpace(ctx, updated.ID)
	if err != nil {
		return Space{}, mapSpaceRepoError(err)
	}

	logger.InfoContext(ctx, "space updated")
	return toSpace(persisted), nil
}

// GetSpace retrieves a single catalog entry.
func (s *SpaceService) GetSpace(ctx context.Context, id string) (Space, error) {
	if s == nil {
		return Space{}, fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return Space{}, fmt.Errorf("space repository not configured")
	}

	space, err := s.spaces.GetSpace(ctx, id)
	if err != nil {
		return Space{}, mapSpaceRepoError(err)
	}
	return toSpace(space), nil
}

// ListSpaces enumerates the catalog ordered by code.
func (s *SpaceService) ListSpaces(ctx context.Context) ([]Space, error) {
	if s == nil {
		return nil, fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return nil, fmt.Errorf("space repository not configured")
	}

	spaces, err := s.spaces.ListSpaces(ctx)
	if err != nil {
		return nil, mapSpaceRepoError(err)
	}

	out := make([]Space, len(spaces))
	for i, space := range spaces {
		out[i] = toSpace(space)
	}
	return out, nil
}

// DeleteSpace removes a catalog entry. Administrator only. Spaces referenced
// by reservations cannot be removed.
func (s *SpaceService) DeleteSpace(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return fmt.Errorf("space repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSpace", "actor_id", principal.UserID, "space_id", id)

	if principal.Role != RoleAdministrator {
		return ErrForbidden
	}

	if err := s.spaces.DeleteSpace(ctx, id); err != nil {
		err = mapSpaceRepoError(err)
		logger.ErrorContext(ctx, "failed to delete space", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "space deleted")
	return nil
}

// FindAvailable returns every space that has no approved reservation
// overlapping the window on the date. Pending and rejected reservations do
// not block availability. The returned slice preserves catalog order: one
// verdict per space, no skips, no duplicates.
func (s *SpaceService) FindAvailable(ctx context.Context, params FindAvailableParams) ([]Space, error) {
	if s == nil {
		return nil, fmt.Errorf("SpaceService is nil")
	}
	if s.spaces == nil {
		return nil, fmt.Errorf("space repository not configured")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation source not configured")
	}

	window := booking.Window{Start: params.Start, End: params.End}
	if !window.Valid() {
		return nil, ErrInvalidRange
	}

	spaces, err := s.spaces.ListSpaces(ctx)
	if err != nil {
		return nil, mapSpaceRepoError(err)
	}

	approved, err := s.reservations.ListForDate(ctx, params.Date, []booking.Status{booking.StatusApproved})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			approved = nil
		} else {
			return nil, err
		}
	}

	bySpace := make(map[string][]booking.Slot, len(approved))
	for _, reservation := range approved {
		bySpace[reservation.SpaceID] = append(bySpace[reservation.SpaceID], reservation.Slot())
	}

	available := make([]Space, 0, len(spaces))
	for _, space := range spaces {
		if booking.BlocksAvailability(bySpace[space.ID], window) {
			continue
		}
		available = append(available, toSpace(space))
	}
	return available, nil
}

func validateSpaceCore(input SpaceInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Building) == "" {
		vErr.add("building", "building is required")
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		vErr.add("code", "code is required")
	} else if !spaceCodePattern.MatchString(code) {
		vErr.add("code", "code must match the E<building>/P<floor>/E<number> format")
	}

	if !input.Kind.Valid() {
		vErr.add("kind", "kind must be one of classroom, laboratory, auditorium")
	}
}

func toSpace(space persistence.Space) Space {
	return Space{
		ID:        space.ID,
		Name:      space.Name,
		Building:  space.Building,
		Floor:     space.Floor,
		Code:      space.Code,
		Kind:      SpaceKind(space.Kind),
		CreatedAt: space.CreatedAt,
		UpdatedAt: space.UpdatedAt,
	}
}

func mapSpaceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return fmt.Errorf("%w: space code is already in use", ErrConflict)
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return fmt.Errorf("%w: space still has reservations", ErrConflict)
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("kind", "kind must be one of classroom, laboratory, auditorium")
		return vErr
	}
	return err
}
