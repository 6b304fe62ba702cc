package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/space-reservations/internal/application"
	"github.com/example/space-reservations/internal/booking"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, principal application.Principal) ([]application.Reservation, error)
	ListUserReservations(ctx context.Context, principal application.Principal, userID string) ([]application.Reservation, error)
	ListSpaceReservations(ctx context.Context, params application.ListSpaceReservationsParams) ([]application.Reservation, []application.ReservationGroup, error)
	Approve(ctx context.Context, principal application.Principal, id string) (application.ApprovalResult, error)
	Reject(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	DeletePending(ctx context.Context, principal application.Principal, id string) error
	Search(ctx context.Context, params application.SearchReservationsParams) ([]application.Reservation, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create",
		"principal_id", principal.UserID,
		"space_id", input.SpaceID,
		"date", input.Date.String(),
	)

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "reservation_id", reservationID)

	reservation, err := h.service.GetReservation(r.Context(), principal, reservationID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	reservations, err := h.service.ListReservations(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// Approve grants a pending reservation and reports the pending overlaps the
// cascade rejected.
func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Approve", "principal_id", principal.UserID, "reservation_id", reservationID)

	result, err := h.service.Approve(r.Context(), principal, reservationID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation approval failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("displaced", len(result.Displaced)).InfoContext(r.Context(), "reservation approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, approvalResponse{
		Reservation: toReservationDTO(result.Approved),
		Displaced:   toReservationDTOs(result.Displaced),
	})
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Reject", "principal_id", principal.UserID, "reservation_id", reservationID)

	reservation, err := h.service.Reject(r.Context(), principal, reservationID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation rejection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation rejected")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "reservation_id", reservationID)

	if err := h.service.DeletePending(r.Context(), principal, reservationID); err != nil {
		logger.ErrorContext(r.Context(), "reservation delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListBySpace lists a space's reservations, optionally bounded by from/to
// dates and grouped with the period query parameter (day, week, month).
func (h *ReservationHandler) ListBySpace(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	from, err := parseOptionalDate(query.Get("from"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParameter)
		return
	}
	to, err := parseOptionalDate(query.Get("to"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParameter)
		return
	}

	logger := h.log(r.Context(), "ListBySpace", "principal_id", principal.UserID, "space_id", spaceID)

	reservations, groups, err := h.service.ListSpaceReservations(r.Context(), application.ListSpaceReservationsParams{
		Principal: principal,
		SpaceID:   spaceID,
		From:      from,
		To:        to,
		Period:    application.ListPeriod(strings.TrimSpace(query.Get("period"))),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "space reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "space reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{
		Reservations: toReservationDTOs(reservations),
		Groups:       toGroupDTOs(groups),
	})
}

func (h *ReservationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListByUser", "principal_id", principal.UserID, "user_id", userID)

	reservations, err := h.service.ListUserReservations(r.Context(), principal, userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "user reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "user reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// Search runs the administrator filter query over user, space kind, status
// and date range.
func (h *ReservationHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Search", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode search request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	from, err := parseOptionalDate(req.From)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParameter)
		return
	}
	to, err := parseOptionalDate(req.To)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParameter)
		return
	}

	logger := h.log(r.Context(), "Search", "principal_id", principal.UserID)

	reservations, err := h.service.Search(r.Context(), application.SearchReservationsParams{
		Principal: principal,
		UserID:    strings.TrimSpace(req.UserID),
		SpaceKind: application.SpaceKind(strings.TrimSpace(req.SpaceKind)),
		Status:    booking.Status(strings.TrimSpace(req.Status)),
		From:      from,
		To:        to,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "reservations searched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

func parseOptionalDate(value string) (booking.Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return booking.Date{}, nil
	}
	return booking.ParseDate(trimmed)
}

type reservationRequest struct {
	UserID      string `json:"user_id"`
	SpaceID     string `json:"space_id"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

func (r reservationRequest) toInput() (application.ReservationInput, error) {
	date, err := booking.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return application.ReservationInput{}, errInvalidDateParameter
	}
	start, err := booking.ParseTimeOfDay(strings.TrimSpace(r.Start))
	if err != nil {
		return application.ReservationInput{}, errInvalidClockParameter
	}
	end, err := booking.ParseTimeOfDay(strings.TrimSpace(r.End))
	if err != nil {
		return application.ReservationInput{}, errInvalidClockParameter
	}

	return application.ReservationInput{
		UserID:      strings.TrimSpace(r.UserID),
		SpaceID:     strings.TrimSpace(r.SpaceID),
		Date:        date,
		Start:       start,
		End:         end,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

type searchRequest struct {
	UserID    string `json:"user_id"`
	SpaceKind string `json:"space_kind"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type approvalResponse struct {
	Reservation reservationDTO   `json:"reservation"`
	Displaced   []reservationDTO `json:"displaced,omitempty"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO      `json:"reservations"`
	Groups       []reservationGroupDTO `json:"groups,omitempty"`
}

type reservationDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	SpaceID     string `json:"space_id"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type reservationGroupDTO struct {
	Label        string           `json:"label"`
	From         string           `json:"from"`
	To           string           `json:"to"`
	Reservations []reservationDTO `json:"reservations"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:          reservation.ID,
		UserID:      reservation.UserID,
		SpaceID:     reservation.SpaceID,
		Date:        reservation.Date.String(),
		Start:       reservation.Start.String(),
		End:         reservation.End.String(),
		Description: reservation.Description,
		Status:      string(reservation.Status),
		CreatedAt:   reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

func toGroupDTOs(groups []application.ReservationGroup) []reservationGroupDTO {
	if len(groups) == 0 {
		return nil
	}
	out := make([]reservationGroupDTO, 0, len(groups))
	for _, group := range groups {
		out = append(out, reservationGroupDTO{
			Label:        group.Label,
			From:         group.From.String(),
			To:           group.To.String(),
			Reservations: toReservationDTOs(group.Reservations),
		})
	}
	return out
}
