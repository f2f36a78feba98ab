package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"qrmenu/internal/model"
	"qrmenu/internal/upload"
)

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 64 << 10

// UploadHandler handles image uploads.
type UploadHandler struct {
	uploader *upload.Uploader
	logger   zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploader *upload.Uploader, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		logger:   logger.With().Str("handler", "upload").Logger(),
	}
}

// Upload handles POST /api/upload requests with a multipart "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionAdmin(w, r, h.logger); !ok {
		return
	}

	maxBytes := h.uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, upload.ErrTooLarge, "failed to upload image", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid multipart form", h.logger)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		handleServiceError(w, upload.ErrEmptyFile, "failed to upload image", h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "failed to read file", h.logger)
		return
	}

	result, err := h.uploader.Save(r.Context(), data)
	if err != nil {
		handleServiceError(w, err, "failed to upload image", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
