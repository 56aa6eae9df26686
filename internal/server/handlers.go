package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Denzyyyy/Youtube-clone/internal/job"
	"github.com/Denzyyyy/Youtube-clone/internal/metrics"
	"github.com/Denzyyyy/Youtube-clone/internal/storage"
)

// IdentityHeader carries the caller identity set by the authentication layer
// in front of this service.
const IdentityHeader = "X-Identity-ID"

// processedPrefix is prepended to a raw object name to derive its output name.
const processedPrefix = "processed-"

// Pipeline runs and lists video processing jobs.
type Pipeline interface {
	Process(ctx context.Context, input job.ProcessInput) (*job.ProcessOutput, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	pipeline  Pipeline
	uploads   storage.UploadURLIssuer
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(pipeline Pipeline, uploads storage.UploadURLIssuer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		pipeline:  pipeline,
		uploads:   uploads,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ProcessVideo handles POST /process-video requests. The pipeline runs to
// completion before the response is written.
func (h *Handlers) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req ProcessVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input, err := h.resolveInput(req)
	if err != nil {
		h.logger.Warn("invalid push message",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PUSH_MESSAGE")
		return
	}

	out, err := h.pipeline.Process(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrBadRequest):
			writeError(w, http.StatusBadRequest, "Bad Request: "+err.Error(), "VALIDATION_ERROR")
		case errors.Is(err, job.ErrConflict):
			writeError(w, http.StatusConflict, err.Error(), "JOB_CONFLICT")
		case errors.Is(err, job.ErrShuttingDown):
			writeError(w, http.StatusServiceUnavailable, err.Error(), "SHUTTING_DOWN")
		default:
			writeError(w, http.StatusInternalServerError, "An error occurred: "+err.Error(), "PIPELINE_FAILED")
		}
		return
	}

	resp := ProcessVideoResponse{
		JobID:          out.JobID,
		Status:         "done",
		Message:        "Processing finished successfully",
		InputFileName:  out.InputFileName,
		OutputFileName: out.OutputFileName,
		URL:            out.URL,
	}
	if out.Degraded {
		resp.Status = "degraded"
		resp.Message = "Processing finished, but the video is not publicly readable"
		resp.Warning = out.Warning
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveInput turns any accepted request shape into pipeline input. Explicit
// names win over a raw object name, which wins over a push envelope.
func (h *Handlers) resolveInput(req ProcessVideoRequest) (job.ProcessInput, error) {
	switch {
	case req.InputFileName != "" || req.OutputFileName != "":
		return job.ProcessInput{InputFileName: req.InputFileName, OutputFileName: req.OutputFileName}, nil
	case req.Name != "":
		return deriveInput(req.Name), nil
	case req.Message != nil:
		if req.Message.Data == "" {
			return job.ProcessInput{}, errors.New("message data is empty")
		}
		data, err := base64.StdEncoding.DecodeString(req.Message.Data)
		if err != nil {
			return job.ProcessInput{}, fmt.Errorf("message data is not base64: %w", err)
		}
		var n StorageNotification
		if err := json.Unmarshal(data, &n); err != nil {
			return job.ProcessInput{}, fmt.Errorf("message data is not a storage notification: %w", err)
		}
		if err := h.validator.Struct(n); err != nil {
			return job.ProcessInput{}, err
		}
		h.logger.Debug("received storage notification",
			slog.String("message_id", req.Message.MessageID),
			slog.String("bucket", n.Bucket),
			slog.String("name", n.Name),
		)
		return deriveInput(n.Name), nil
	default:
		return job.ProcessInput{}, nil
	}
}

func deriveInput(name string) job.ProcessInput {
	return job.ProcessInput{InputFileName: name, OutputFileName: processedPrefix + name}
}

// IssueUploadURL handles POST /upload-url requests.
func (h *Handlers) IssueUploadURL(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.Header.Get(IdentityHeader))
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "The function must be called while authenticated.", "UNAUTHENTICATED")
		return
	}

	var req UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	u, err := h.uploads.IssueUploadURL(r.Context(), identity, req.FileExtension)
	metrics.IncUploadURL(err == nil)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFileName) || errors.Is(err, storage.ErrExtensionRequired) {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		h.logger.Error("failed to issue upload URL",
			slog.String("identity_id", identity),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to issue upload URL", "UPLOAD_URL_FAILED")
		return
	}

	h.logger.Info("upload URL issued",
		slog.String("identity_id", identity),
		slog.String("file_name", u.FileName),
		slog.Time("expires_at", u.ExpiresAt),
	)

	writeJSON(w, http.StatusOK, UploadURLResponse{
		URL:       u.URL,
		FileName:  u.FileName,
		ExpiresAt: u.ExpiresAt,
	})
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.pipeline.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobResponse{
			ID:             j.ID,
			InputFileName:  j.InputFileName,
			OutputFileName: j.OutputFileName,
			Status:         string(j.Status),
			StartedAt:      j.CreatedAt,
			UpdatedAt:      j.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
