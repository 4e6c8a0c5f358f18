package trip

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/pkg/response"
)

// Handler handles HTTP requests for trip operations
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for trip endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidCurrency):
		response.ValidationFailed(w, err.Error())
	case errors.Is(err, ErrTripNotFound):
		response.NotFound(w, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

// Create handles POST /trips
// @Summary      Create a trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request body CreateTripRequest true "Trip creation request"
// @Success      201 {object} response.APIResponse{data=Trip}
// @Failure      400 {object} response.APIResponse
// @Router       /trips [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to create trip")
		return
	}

	response.JSON(w, http.StatusCreated, t)
}

// GetByID handles GET /trips/{id}
// @Summary      Get trip by ID
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=Trip}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get trip")
		return
	}

	response.JSON(w, http.StatusOK, t)
}

// List handles GET /trips
// @Summary      List trips
// @Description  Get a paginated list of trips, newest first
// @Tags         trips
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]Trip}
// @Router       /trips [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	trips, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list trips")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, trips, response.NewMeta(page, perPage, total))
}

// Update handles PUT /trips/{id}
// @Summary      Update a trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        id path string true "Trip ID"
// @Param        request body UpdateTripRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=Trip}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeError(w, err, "Failed to update trip")
		return
	}

	response.JSON(w, http.StatusOK, t)
}

// Delete handles DELETE /trips/{id}
// @Summary      Delete a trip
// @Description  Expenses of the trip are kept
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete trip")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Trip deleted successfully"})
}
