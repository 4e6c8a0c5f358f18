package receipt

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Arcturus91/travel-divider/pkg/response"
)

// multipartOverhead leaves room for the form fields next to the file.
const multipartOverhead = 1 << 20

// Handler handles HTTP requests for receipt objects
type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes returns the router for receipt endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/upload-url", h.UploadURL)
	r.Post("/upload", h.Upload)
	r.Get("/download-url", h.DownloadURL)
	r.Get("/download", h.Download)

	return r
}

// UploadURL handles GET /receipts/upload-url
// @Summary      Get a receipt upload ticket
// @Description  Reserves a receipt key and returns the signed form fields to post the file with
// @Tags         receipts
// @Produce      json
// @Param        contentType query string false "MIME type of the file" default(image/jpeg)
// @Param        fileName query string false "Original file name, used for the extension"
// @Success      200 {object} response.APIResponse{data=UploadTicket}
// @Router       /receipts/upload-url [get]
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticket, err := h.store.PresignUpload(q.Get("contentType"), q.Get("fileName"))
	if err != nil {
		h.logger.Error("failed to presign upload", "error", err)
		response.InternalError(w, "Failed to generate upload URL")
		return
	}
	response.JSON(w, http.StatusOK, ticket)
}

// Upload handles POST /receipts/upload
// @Summary      Upload a receipt
// @Description  Multipart form with the fields of an upload ticket and the file
// @Tags         receipts
// @Accept       multipart/form-data
// @Produce      json
// @Param        key formData string true "Receipt key from the ticket"
// @Param        Content-Type formData string true "Content type from the ticket"
// @Param        policy formData string true "Signed policy from the ticket"
// @Param        file formData file true "Receipt image"
// @Success      201 {object} response.APIResponse{data=UploadResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      413 {object} response.APIResponse
// @Router       /receipts/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.store.MaxUploadBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(w, ErrTooLarge.Error())
			return
		}
		response.BadRequest(w, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	claims, err := h.store.VerifyUpload(r.FormValue("policy"))
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}
	if key := r.FormValue("key"); key != claims.Subject {
		response.BadRequest(w, "Key does not match the upload policy")
		return
	}
	if ct := r.FormValue("Content-Type"); ct != claims.ContentType {
		response.BadRequest(w, "Content type does not match the upload policy")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file")
		return
	}
	defer file.Close()

	if header.Size > claims.MaxBytes {
		response.PayloadTooLarge(w, ErrTooLarge.Error())
		return
	}

	n, err := h.store.Save(r.Context(), claims.Subject, file)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			response.PayloadTooLarge(w, err.Error())
			return
		}
		h.logger.Error("failed to save receipt", "key", claims.Subject, "error", err)
		response.InternalError(w, "Failed to upload receipt")
		return
	}

	response.JSON(w, http.StatusCreated, UploadResponse{FileKey: claims.Subject, Size: n})
}

// DownloadURL handles GET /receipts/download-url
// @Summary      Get a signed receipt download link
// @Tags         receipts
// @Produce      json
// @Param        fileKey query string true "Receipt key"
// @Param        expiresIn query int false "Link lifetime in seconds, capped at 86400" default(3600)
// @Success      200 {object} response.APIResponse{data=DownloadTicket}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /receipts/download-url [get]
func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("fileKey")
	if key == "" {
		response.BadRequest(w, "Missing required parameter: fileKey")
		return
	}
	seconds, _ := strconv.Atoi(r.URL.Query().Get("expiresIn"))

	ticket, err := h.store.PresignDownload(key, time.Duration(seconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidKey):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, err.Error())
		default:
			h.logger.Error("failed to presign download", "key", key, "error", err)
			response.InternalError(w, "Failed to generate download URL")
		}
		return
	}
	response.JSON(w, http.StatusOK, ticket)
}

// Download handles GET /receipts/download
// @Summary      Download a receipt
// @Tags         receipts
// @Produce      octet-stream
// @Param        token query string true "Signed download token"
// @Success      200 {file} file
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /receipts/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	claims, err := h.store.VerifyDownload(r.URL.Query().Get("token"))
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	f, err := h.store.Open(claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		h.logger.Error("failed to open receipt", "key", claims.Subject, "error", err)
		response.InternalError(w, "Failed to download receipt")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.InternalError(w, "Failed to download receipt")
		return
	}
	http.ServeContent(w, r, path.Base(claims.Subject), info.ModTime(), f)
}
