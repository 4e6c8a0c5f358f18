package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/Arcturus91/travel-divider/pkg/response"
)

// Handler handles HTTP requests for notification operations
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for notification endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/unread-count", h.GetUnreadCount)
	r.Post("/{id}/read", h.MarkAsRead)
	r.Post("/read-all", h.MarkAllAsRead)

	return r
}

type NotificationResponse struct {
	ID                string           `json:"id"`
	Recipient         string           `json:"recipient"`
	Type              NotificationType `json:"type"`
	Message           string           `json:"message"`
	IsRead            bool             `json:"is_read"`
	RelatedEntityType *string          `json:"related_entity_type,omitempty"`
	RelatedEntityID   *string          `json:"related_entity_id,omitempty"`
	CreatedAt         string           `json:"created_at"`
}

func toResponse(n *Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:                n.ID,
		Recipient:         n.Recipient,
		Type:              n.Type,
		Message:           n.Message,
		IsRead:            n.IsRead,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		CreatedAt:         n.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// recipient reads the participant whose feed is addressed.
func recipient(r *http.Request) string {
	return split.FormatName(r.URL.Query().Get("recipient"))
}

// List handles GET /notifications
// @Summary      List notifications
// @Description  Get a participant's activity feed, newest first
// @Tags         notifications
// @Produce      json
// @Param        recipient query string true "Participant name"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Param        unread_only query bool false "Only unread notifications"
// @Success      200 {object} response.APIResponse{data=[]NotificationResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	notifications, total, err := h.service.ListByRecipient(r.Context(), recipient(r), page, perPage, unreadOnly)
	if err != nil {
		if errors.Is(err, ErrMissingRecipient) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list notifications")
		return
	}

	notificationResponses := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		notificationResponses[i] = toResponse(n)
	}

	response.JSONWithMeta(w, http.StatusOK, notificationResponses, response.NewMeta(page, perPage, total))
}

// GetUnreadCount handles GET /notifications/unread-count
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Param        recipient query string true "Participant name"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /notifications/unread-count [get]
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetUnreadCount(r.Context(), recipient(r))
	if err != nil {
		if errors.Is(err, ErrMissingRecipient) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get unread count")
		return
	}

	response.JSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// MarkAsRead handles POST /notifications/{id}/read
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Param        recipient query string true "Participant name"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.MarkAsRead(r.Context(), id, recipient(r)); err != nil {
		if errors.Is(err, ErrNotificationNotFound) || errors.Is(err, ErrNotRecipient) {
			response.NotFound(w, ErrNotificationNotFound.Error())
			return
		}
		response.InternalError(w, "Failed to mark notification as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead handles POST /notifications/read-all
// @Summary      Mark every notification of a participant as read
// @Tags         notifications
// @Produce      json
// @Param        recipient query string true "Participant name"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllAsRead(r.Context(), recipient(r)); err != nil {
		if errors.Is(err, ErrMissingRecipient) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to mark all notifications as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}
