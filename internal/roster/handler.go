package roster

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/pkg/response"
)

// Handler handles HTTP requests for the participant roster
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for participant endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/suggestions", h.Suggest)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidColor):
		response.ValidationFailed(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrDuplicateName):
		response.Conflict(w, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

// List handles GET /participants
// @Summary      List participants
// @Tags         participants
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Participant}
// @Router       /participants [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.List()
	if err != nil {
		h.writeError(w, err, "Failed to list participants")
		return
	}
	response.JSON(w, http.StatusOK, participants)
}

// Create handles POST /participants
// @Summary      Add a participant
// @Description  Names are stored title-cased. Repeating a request with the same id returns the stored participant.
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        request body CreateParticipantRequest true "Participant"
// @Success      201 {object} response.APIResponse{data=Participant}
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /participants [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, created, err := h.service.Create(&req)
	if err != nil {
		h.writeError(w, err, "Failed to create participant")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, p)
}

// Suggest handles GET /participants/suggestions
// @Summary      Suggest participant names
// @Tags         participants
// @Produce      json
// @Param        prefix query string false "Name prefix"
// @Param        limit query int false "Maximum names" default(10)
// @Success      200 {object} response.APIResponse{data=[]string}
// @Router       /participants/suggestions [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	names, err := h.service.Suggest(r.URL.Query().Get("prefix"), limit)
	if err != nil {
		h.writeError(w, err, "Failed to suggest participants")
		return
	}
	response.JSON(w, http.StatusOK, names)
}

// Get handles GET /participants/{id}
// @Summary      Get a participant
// @Tags         participants
// @Produce      json
// @Param        id path string true "Participant ID"
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      404 {object} response.APIResponse
// @Router       /participants/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get participant")
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Update handles PUT /participants/{id}
// @Summary      Update a participant
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        id path string true "Participant ID"
// @Param        request body UpdateParticipantRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /participants/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Update(chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeError(w, err, "Failed to update participant")
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /participants/{id}
// @Summary      Remove a participant
// @Tags         participants
// @Produce      json
// @Param        id path string true "Participant ID"
// @Success      200 {object} response.APIResponse
// @Router       /participants/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete participant")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Participant removed"})
}
