package settlement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler handles HTTP requests for settlement reports
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Report)
	r.Get("/export", h.Export)
	r.Get("/balances/{name}", h.GetBalance)

	return r
}

func tripParam(r *http.Request) *string {
	if v := r.URL.Query().Get("tripId"); v != "" {
		return &v
	}
	return nil
}

// Report handles GET /settlements
// @Summary      Settlement report
// @Description  Per-participant totals and the payments that settle them, one plan per currency
// @Tags         settlements
// @Produce      json
// @Param        tripId query string false "Only expenses of this trip"
// @Success      200 {object} response.APIResponse{data=Report}
// @Router       /settlements [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context(), tripParam(r))
	if err != nil {
		h.logger.Error("failed to build settlement report", "error", err)
		response.InternalError(w, "Failed to build settlement report")
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// Export handles GET /settlements/export
// @Summary      Export settlement report
// @Description  Downloads the report as an XLSX workbook with Summary and Payments sheets
// @Tags         settlements
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        tripId query string false "Only expenses of this trip"
// @Success      200 {file} file
// @Router       /settlements/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportXLSX(r.Context(), tripParam(r))
	if err != nil {
		h.logger.Error("failed to export settlement report", "error", err)
		response.InternalError(w, "Failed to export settlement report")
		return
	}

	name := "settlement-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write export", "error", err)
	}
}

// GetBalance handles GET /settlements/balances/{name}
// @Summary      Participant balance
// @Description  Where one participant stands, with messages such as "You owe Ana 12.50 EUR"
// @Tags         settlements
// @Produce      json
// @Param        name path string true "Participant name"
// @Param        tripId query string false "Only expenses of this trip"
// @Success      200 {object} response.APIResponse{data=[]BalanceResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/balances/{name} [get]
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.Balances(r.Context(), tripParam(r), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrParticipantNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		h.logger.Error("failed to get balance", "error", err)
		response.InternalError(w, "Failed to get balance")
		return
	}
	response.JSON(w, http.StatusOK, balances)
}
