package handler

import (
	"net/http"

	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/file"
	"github.com/askielabs/askie-api/internal/response"
)

// maxUploadSize caps question images at 10MB.
const maxUploadSize = 10 << 20

type UploadHandler struct {
	Uploader   file.Uploader
	ErrHandler *errHandler.ErrorHandler
}

func NewUploadHandler(handler *UploadHandler) *UploadHandler {
	return &UploadHandler{
		Uploader:   handler.Uploader,
		ErrHandler: handler.ErrHandler,
	}
}

// HandleUploadQuestionImage stores a photographed question and returns
// the hosted URL the client passes back as image_ref when submitting.
func (h *UploadHandler) HandleUploadQuestionImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	upload, _, err := r.FormFile("image")
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}
	defer upload.Close()

	url, err := h.Uploader.UploadImage(r.Context(), upload)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"image_ref": url,
	}

	err = response.JSONCreatedResponse(w, data, "Image uploaded successfully")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
