// Package server provides the HTTP surface of the video processing service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// ProcessVideoRequest is the HTTP request body for POST /process-video.
// It accepts three shapes: explicit input and output names, a single raw
// object name, or a push envelope carrying a storage notification.
type ProcessVideoRequest struct {
	// InputFileName is the object key in the raw bucket.
	InputFileName string `json:"inputFileName" validate:"omitempty,max=1024"`
	// OutputFileName is the object key to create in the processed bucket.
	OutputFileName string `json:"outputFileName" validate:"omitempty,max=1024"`
	// Name is a raw object key; the output name is derived from it.
	Name string `json:"name" validate:"omitempty,max=1024"`
	// Message is the push envelope delivered by a storage notification subscription.
	Message *PushMessage `json:"message,omitempty"`
}

// PushMessage is the message part of a push subscription envelope.
type PushMessage struct {
	// Data is the base64-encoded StorageNotification.
	Data string `json:"data"`
	// MessageID is the broker's message identifier.
	MessageID string `json:"messageId,omitempty"`
}

// StorageNotification is the decoded payload of a PushMessage.
type StorageNotification struct {
	// Name is the key of the object that was written to the raw bucket.
	Name string `json:"name" validate:"required,max=1024"`
	// Bucket is the bucket the object was written to.
	Bucket string `json:"bucket,omitempty"`
}

// ProcessVideoResponse is the HTTP response after a finished pipeline run.
type ProcessVideoResponse struct {
	// JobID is the unique identifier of the run.
	JobID string `json:"jobId"`
	// Status is "done", or "degraded" when the object is not publicly readable.
	Status string `json:"status"`
	// Message is a human-readable summary.
	Message string `json:"message"`
	// InputFileName is the processed raw object key.
	InputFileName string `json:"inputFileName"`
	// OutputFileName is the created processed object key.
	OutputFileName string `json:"outputFileName"`
	// URL is the public URL of the processed object.
	URL string `json:"url"`
	// Warning describes why the run is degraded.
	Warning string `json:"warning,omitempty"`
}

// UploadURLRequest is the HTTP request body for POST /upload-url.
type UploadURLRequest struct {
	// FileExtension is the extension of the file to upload, with or without a leading dot.
	FileExtension string `json:"fileExtension" validate:"required,max=16"`
}

// UploadURLResponse is the HTTP response carrying a signed upload URL.
type UploadURLResponse struct {
	// URL is the signed PUT URL.
	URL string `json:"url"`
	// FileName is the generated raw object key.
	FileName string `json:"fileName"`
	// ExpiresAt is when the URL stops being accepted.
	ExpiresAt time.Time `json:"expiresAt"`
}

// JobResponse describes one in-flight job.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// InputFileName is the raw object key.
	InputFileName string `json:"inputFileName"`
	// OutputFileName is the processed object key.
	OutputFileName string `json:"outputFileName"`
	// Status is the current job status.
	Status string `json:"status"`
	// StartedAt is when the job was admitted.
	StartedAt time.Time `json:"startedAt"`
	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListJobsResponse is the HTTP response for GET /jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
