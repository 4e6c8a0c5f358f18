package expense

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/internal/expense/draft"
	"github.com/Arcturus91/travel-divider/internal/receipt"
	"github.com/Arcturus91/travel-divider/pkg/response"
)

const (
	maxBodyBytes     = 1 << 20
	multipartMemory  = 8 << 20
	expenseFormField = "expense"
	draftFormField   = "draft"
	receiptFormField = "receipt"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service         *Service
	maxReceiptBytes int64
	logger          *slog.Logger
}

// NewHandler creates a new expense handler. maxReceiptBytes bounds the
// receipt file accepted by the submit endpoint.
func NewHandler(service *Service, maxReceiptBytes int64, logger *slog.Logger) *Handler {
	return &Handler{service: service, maxReceiptBytes: maxReceiptBytes, logger: logger}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/submit", h.Submit)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	// Live form editing
	r.Post("/drafts/redistribute", h.Redistribute)

	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case IsValidation(err), errors.Is(err, ErrSchema):
		response.ValidationFailed(w, err.Error())
	case errors.Is(err, ErrExpenseNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, receipt.ErrTooLarge):
		response.PayloadTooLarge(w, err.Error())
	case errors.Is(err, ErrReceiptOrphaned), errors.Is(err, ErrReceiptCleanup), errors.Is(err, ErrReceiptUpload):
		h.logger.Error(fallback, "error", err)
		response.InternalError(w, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create an expense. Allocations are split equally, by percentage or taken as exact amounts and must add up to the total.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	var req CreateExpenseRequest
	if err := decodeRequest(createRequestSchema, body, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, expense.ToResponse())
}

// Submit handles POST /expenses/submit
// @Summary      Submit an expense with a receipt
// @Description  Multipart form with either an "expense" JSON field (create request) or a "draft" JSON field (form state), plus an optional "receipt" file. The expense is validated before the receipt is uploaded.
// @Tags         expenses
// @Accept       multipart/form-data
// @Produce      json
// @Param        expense formData string false "CreateExpenseRequest as JSON"
// @Param        draft formData string false "Draft as JSON"
// @Param        receipt formData file false "Receipt image"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      413 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /expenses/submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxReceiptBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(w, receipt.ErrTooLarge.Error())
			return
		}
		response.BadRequest(w, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := submissionRequest(r.MultipartForm)
	if err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	var upload *ReceiptUpload
	file, header, err := r.FormFile(receiptFormField)
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > h.maxReceiptBytes {
			response.PayloadTooLarge(w, receipt.ErrTooLarge.Error())
			return
		}
		upload = &ReceiptUpload{
			ContentType: header.Header.Get("Content-Type"),
			FileName:    header.Filename,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.BadRequest(w, "Invalid receipt file")
		return
	}

	expense, err := h.service.SubmitExpense(r.Context(), req, upload)
	if err != nil {
		h.writeError(w, err, "Failed to submit expense")
		return
	}

	response.JSON(w, http.StatusCreated, expense.ToResponse())
}

// submissionRequest reads the create request from the form. A draft is
// validated as a whole before it is mapped.
func submissionRequest(form *multipart.Form) (*CreateExpenseRequest, error) {
	if raw := form.Value[draftFormField]; len(raw) > 0 {
		var d draft.Draft
		if err := json.Unmarshal([]byte(raw[0]), &d); err != nil {
			return nil, ErrSchema
		}
		sub, err := d.Submission()
		if err != nil {
			return nil, err
		}
		return FromSubmission(sub), nil
	}

	raw := form.Value[expenseFormField]
	if len(raw) == 0 {
		return nil, draft.ErrMissingFields
	}
	var req CreateExpenseRequest
	if err := decodeRequest(createRequestSchema, []byte(raw[0]), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// List handles GET /expenses
// @Summary      List expenses
// @Description  Get a paginated list of expenses, newest first
// @Tags         expenses
// @Produce      json
// @Param        tripId query string false "Only expenses of this trip"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var tripID *string
	if v := q.Get("tripId"); v != "" {
		tripID = &v
	}

	expenses, total, err := h.service.ListExpenses(r.Context(), tripID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list expenses")
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		expenseResponses[i] = e.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with its allocations
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	expense, err := h.service.GetExpenseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// Update handles PUT /expenses/{id}
// @Summary      Update an expense
// @Description  Change some fields of an expense. The result is validated like a new expense.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	var req UpdateExpenseRequest
	if err := decodeRequest(updateRequestSchema, body, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	expense, err := h.service.UpdateExpense(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeError(w, err, "Failed to update expense")
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense and its receipt. The expense is kept when the receipt cannot be removed.
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete expense")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}

// Redistribute handles POST /expenses/drafts/redistribute
// @Summary      Apply a form edit
// @Description  Applies one edit to a draft and returns the new draft with recomputed amounts. Nothing is stored.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        request body RedistributeRequest true "Draft and action"
// @Success      200 {object} response.APIResponse{data=draft.Draft}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses/drafts/redistribute [post]
func (h *Handler) Redistribute(w http.ResponseWriter, r *http.Request) {
	var req RedistributeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	d, err := h.service.Redistribute(req.Draft, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrMinParticipants), errors.Is(err, draft.ErrParticipantIndex), errors.Is(err, draft.ErrUnknownAction):
			response.BadRequest(w, err.Error())
		default:
			h.writeError(w, err, "Failed to apply draft action")
		}
		return
	}

	response.JSON(w, http.StatusOK, d)
}
