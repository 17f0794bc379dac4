package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/assetflow/uploader/internal/domain"
	errpkg "github.com/assetflow/uploader/internal/errors"
)

// UploadServiceI defines the engine surface the display layer drives.
type UploadServiceI interface {
	AddFiles(files []domain.FileSpec) ([]domain.TaskSnapshot, error)
	RemoveFile(id uuid.UUID) error
	ClearBatch() error
	SetParallelism(n int) (int, error)
	Start(ctx context.Context) error
	Cancel()
	TaskSnapshots() []domain.TaskSnapshot
	RunSnapshot() domain.RunSnapshot
}

// UploadHandler handles HTTP requests for the upload engine.
type UploadHandler struct {
	service   UploadServiceI
	validator *validator.Validate
	logger    *slog.Logger
}

// NewUploadHandler creates a new UploadHandler with the provided service and logger.
func NewUploadHandler(service UploadServiceI, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// AddFiles handles POST /batch/files.
func (h *UploadHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	var req domain.AddFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := make([]domain.FileSpec, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, domain.FileSpec{
			Name:        f.Name,
			Size:        f.Size,
			ModTime:     f.ModTime,
			ContentType: f.ContentType,
		})
	}

	snapshots, err := h.service.AddFiles(files)
	if err != nil {
		h.logger.Warn("failed to add files", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"tasks": snapshots,
	})
}

// RemoveFile handles DELETE /batch/files/{taskID}.
func (h *UploadHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	if err := h.service.RemoveFile(id); err != nil {
		switch {
		case errors.Is(err, errpkg.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, errpkg.ErrTaskInFlight):
			writeError(w, http.StatusConflict, "task is currently processing")
		default:
			h.logger.Error("failed to remove task", "task_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearBatch handles DELETE /batch.
func (h *UploadHandler) ClearBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearBatch(); err != nil {
		if errors.Is(err, errpkg.ErrRunActive) {
			writeError(w, http.StatusConflict, "an upload run is active")
			return
		}
		h.logger.Error("failed to clear batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBatch handles GET /batch.
func (h *UploadHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": h.service.TaskSnapshots(),
	})
}

// StartRun handles POST /runs.
func (h *UploadHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, errpkg.ErrRunActive):
			writeError(w, http.StatusConflict, "an upload run is already active")
		case errors.Is(err, errpkg.ErrEmptyBatch):
			writeError(w, http.StatusBadRequest, "batch is empty")
		case errors.Is(err, errpkg.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "asset store credentials are not configured")
		case errors.Is(err, errpkg.ErrConnect):
			h.logger.Error("asset store connection failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("failed to start run", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, h.service.RunSnapshot())
}

// CancelRun handles DELETE /runs/current. Cancellation is idempotent.
func (h *UploadHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	h.service.Cancel()
	writeJSON(w, http.StatusOK, h.service.RunSnapshot())
}

// GetRun handles GET /runs/current.
func (h *UploadHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.RunSnapshot())
}

// SetParallelism handles PUT /settings/parallelism.
func (h *UploadHandler) SetParallelism(w http.ResponseWriter, r *http.Request) {
	var req domain.SetParallelismRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	effective, err := h.service.SetParallelism(req.Parallel)
	if err != nil {
		if errors.Is(err, errpkg.ErrRunActive) {
			writeError(w, http.StatusConflict, "parallelism cannot change during a run")
			return
		}
		h.logger.Error("failed to set parallelism", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"parallel": effective})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
