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

type spaceService interface {
	CreateSpace(ctx context.Context, params application.CreateSpaceParams) (application.Space, error)
	UpdateSpace(ctx context.Context, params application.UpdateSpaceParams) (application.Space, error)
	GetSpace(ctx context.Context, id string) (application.Space, error)
	ListSpaces(ctx context.Context) ([]application.Space, error)
	DeleteSpace(ctx context.Context, principal application.Principal, id string) error
	FindAvailable(ctx context.Context, params application.FindAvailableParams) ([]application.Space, error)
}

type SpaceHandler struct {
	service   spaceService
	responder responder
	logger    *slog.Logger
}

func NewSpaceHandler(service spaceService, logger *slog.Logger) *SpaceHandler {
	base := defaultLogger(logger)
	return &SpaceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SpaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpaceHandler", operation, attrs...)
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req spaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode space request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	space, err := h.service.CreateSpace(r.Context(), application.CreateSpaceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "space creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("space_id", space.ID, "code", space.Code).InfoContext(r.Context(), "space created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing space id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req spaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "space_id", spaceID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode space update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "space_id", spaceID)

	space, err := h.service.UpdateSpace(r.Context(), application.UpdateSpaceParams{
		Principal: principal,
		SpaceID:   spaceID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "space update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	logger := h.log(r.Context(), "Get", "space_id", spaceID)

	space, err := h.service.GetSpace(r.Context(), spaceID)
	if err != nil {
		logger.ErrorContext(r.Context(), "space lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, spaceResponse{Space: toSpaceDTO(space)})
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	spaces, err := h.service.ListSpaces(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "space list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(spaces)).InfoContext(r.Context(), "spaces listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSpacesResponse{Spaces: toSpaceDTOs(spaces)})
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	spaceID, ok := SpaceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(spaceID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing space id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpaceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "space_id", spaceID)

	if err := h.service.DeleteSpace(r.Context(), principal, spaceID); err != nil {
		logger.ErrorContext(r.Context(), "space delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// FindAvailable answers which spaces are free for the whole window on the
// requested date. Only approved reservations make a space busy.
func (h *SpaceHandler) FindAvailable(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "FindAvailable", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	date, err := booking.ParseDate(req.Date)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParameter)
		return
	}
	start, err := booking.ParseTimeOfDay(req.Start)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidClockParameter)
		return
	}
	end, err := booking.ParseTimeOfDay(req.End)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidClockParameter)
		return
	}

	logger := h.log(r.Context(), "FindAvailable", "principal_id", principal.UserID, "date", date.String())

	spaces, err := h.service.FindAvailable(r.Context(), application.FindAvailableParams{
		Principal: principal,
		Date:      date,
		Start:     start,
		End:       end,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(spaces)).InfoContext(r.Context(), "availability resolved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSpacesResponse{Spaces: toSpaceDTOs(spaces)})
}

type spaceRequest struct {
	Name     string `json:"name"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	Code     string `json:"code"`
	Kind     string `json:"kind"`
}

func (r spaceRequest) toInput() application.SpaceInput {
	return application.SpaceInput{
		Name:     strings.TrimSpace(r.Name),
		Building: strings.TrimSpace(r.Building),
		Floor:    r.Floor,
		Code:     strings.TrimSpace(r.Code),
		Kind:     application.SpaceKind(strings.TrimSpace(r.Kind)),
	}
}

type availabilityRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type spaceResponse struct {
	Space spaceDTO `json:"space"`
}

type listSpacesResponse struct {
	Spaces []spaceDTO `json:"spaces"`
}

type spaceDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Building  string `json:"building"`
	Floor     int    `json:"floor"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toSpaceDTO(space application.Space) spaceDTO {
	return spaceDTO{
		ID:        space.ID,
		Name:      space.Name,
		Building:  space.Building,
		Floor:     space.Floor,
		Code:      space.Code,
		Kind:      string(space.Kind),
		CreatedAt: space.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: space.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toSpaceDTOs(spaces []application.Space) []spaceDTO {
	if len(spaces) == 0 {
		return nil
	}
	out := make([]spaceDTO, 0, len(spaces))
	for _, space := range spaces {
		out = append(out, toSpaceDTO(space))
	}
	return out
}
