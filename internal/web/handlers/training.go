package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/faces"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/kozaktomas/face-registry/internal/registry"
)

const (
	msgIncompleteBody     = "Body isn't complete!"
	msgNoImagePart        = "No image part in the request"
	msgNoImageSelected    = "No image selected"
	msgNoFace             = "No face found in the uploaded image"
	msgMultipleFaces      = "Multiple faces found in the uploaded image"
	msgAlreadyRegistered  = "Face is already registered in the database!"
	msgRegistered         = "Training successful."
	msgDeleted            = "Training data deleted successfully."
	msgInvalidForm        = "failed to parse multipart form"
	msgExtractorFailed    = "face extractor unavailable"
	msgTrainingDataFailed = "training data is unavailable"
)

// TrainingHandler serves the enrollment, recognition and training data endpoints.
type TrainingHandler struct {
	service *registry.Service
	logger  *slog.Logger
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(service *registry.Service, logger *slog.Logger) *TrainingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainingHandler{
		service: service,
		logger:  logger,
	}
}

// errNoImagePart and errNoImageSelected describe why readImage found no upload.
var (
	errNoImagePart     = errors.New(msgNoImagePart)
	errNoImageSelected = errors.New(msgNoImageSelected)
	errInvalidForm     = errors.New(msgInvalidForm)
)

// parseForm parses a multipart body of at most constants.MaxUploadSize bytes.
// Non-multipart bodies are accepted so that missing parts are reported
// by the field checks.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return errInvalidForm
	}
	return nil
}

// readImage returns the bytes of the "image" file part.
func readImage(r *http.Request) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, errNoImagePart
	}
	headers := r.MultipartForm.File["image"]
	if len(headers) == 0 {
		// A part named image without a filename is an empty file input.
		if _, ok := r.MultipartForm.Value["image"]; ok {
			return nil, errNoImageSelected
		}
		return nil, errNoImagePart
	}
	if headers[0].Filename == "" {
		return nil, errNoImageSelected
	}

	file, err := headers[0].Open()
	if err != nil {
		return nil, errInvalidForm
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errInvalidForm
	}
	if len(data) == 0 {
		return nil, errNoImageSelected
	}
	return data, nil
}

// pathParam returns the decoded chi URL parameter.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
	}
	return v
}

// Recognize identifies the single face in the uploaded image.
func (h *TrainingHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		respondRecognizeError(w, http.StatusBadRequest, err.Error())
		return
	}
	image, err := readImage(r)
	if err != nil {
		respondRecognizeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Recognize(r.Context(), image)
	if err != nil {
		status, message := h.classifyError(r, err)
		respondRecognizeError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Register enrolls the single face in the uploaded image.
func (h *TrainingHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Only body fields count; query parameters are ignored.
	id := r.PostFormValue("id")
	filename := r.PostFormValue("filename")
	if id == "" || filename == "" {
		respondError(w, http.StatusBadRequest, msgIncompleteBody)
		return
	}

	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Register(r.Context(), id, filename, image); err != nil {
		status, message := h.classifyError(r, err)
		respondError(w, status, message)
		return
	}

	respondMessage(w, http.StatusCreated, msgRegistered)
}

// AllTrainingData lists every enrolled record.
func (h *TrainingHandler) AllTrainingData(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAll(r.Context())
	if err != nil {
		status, message := h.classifyError(r, err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// GetTrainingData lists the filenames enrolled under an id.
func (h *TrainingHandler) GetTrainingData(w http.ResponseWriter, r *http.Request) {
	filenames, err := h.service.ListByID(r.Context(), pathParam(r, "id"))
	if err != nil {
		status, message := h.classifyError(r, err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string][]string{"result": filenames})
}

// DeleteTrainingData removes every record with the given id and filename.
func (h *TrainingHandler) DeleteTrainingData(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Delete(r.Context(), pathParam(r, "id"), pathParam(r, "filename")); err != nil {
		status, message := h.classifyError(r, err)
		respondError(w, status, message)
		return
	}

	respondMessage(w, http.StatusOK, msgDeleted)
}

// respondRecognizeError sends an error response flagged as not recognized.
func respondRecognizeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"message":  message,
		"is_valid": false,
	})
}

// classifyError maps a service error to a status code and client message.
func (h *TrainingHandler) classifyError(r *http.Request, err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrMissingField):
		return http.StatusBadRequest, msgIncompleteBody
	case errors.Is(err, registry.ErrMissingImage):
		return http.StatusBadRequest, msgNoImageSelected
	case errors.Is(err, registry.ErrNoFace):
		return http.StatusBadRequest, msgNoFace
	case errors.Is(err, registry.ErrMultipleFaces):
		return http.StatusBadRequest, msgMultipleFaces
	case errors.Is(err, registry.ErrAlreadyRegistered):
		return http.StatusBadRequest, msgAlreadyRegistered
	case errors.Is(err, faces.ErrExtractor):
		h.logger.WarnContext(r.Context(), "face extraction failed", "path", r.URL.Path, "error", err)
		return http.StatusBadGateway, msgExtractorFailed
	case errors.Is(err, records.ErrCorrupt):
		h.logger.ErrorContext(r.Context(), "training data is corrupt", "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError, msgTrainingDataFailed
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError, msgTrainingDataFailed
	}
}
