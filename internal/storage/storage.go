// Package storage provides the local stage directories and the remote object
// store used by the video pipeline. It defines the ports the pipeline depends
// on and their implementations for local disk and S3-compatible buckets.
package storage

import (
	"context"
	"errors"
	"time"
)

// Static errors for storage operations.
var (
	// ErrRemoteFetch is returned when a raw object cannot be downloaded.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrRemoteUpload is returned when a processed object cannot be uploaded.
	ErrRemoteUpload = errors.New("remote upload failed")
	// ErrRemoteACL is returned when an uploaded object could not be made
	// publicly readable. The object itself exists in the bucket.
	ErrRemoteACL = errors.New("remote acl update failed")
	// ErrLocalIO is returned when a stage directory or file operation fails.
	ErrLocalIO = errors.New("local io failed")
	// ErrInvalidFileName is returned for names that cannot live in a stage directory.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrIdentityRequired is returned when an upload URL is requested without an identity.
	ErrIdentityRequired = errors.New("identity id is required")
	// ErrExtensionRequired is returned when an upload URL is requested without a file extension.
	ErrExtensionRequired = errors.New("file extension is required")
)

// Stage manages the local raw and processed working directories.
type Stage interface {
	// EnsureDirectories creates both stage directories if absent.
	EnsureDirectories() error

	// RawPath returns <rawStageDir>/<fileName>.
	RawPath(fileName string) string

	// ProcessedPath returns <processedStageDir>/<fileName>.
	ProcessedPath(fileName string) string

	// DeleteIfPresent ensures path is absent. A missing path is not an error.
	DeleteIfPresent(ctx context.Context, path string) error
}

// ObjectStore moves videos between the stage directories and the buckets.
type ObjectStore interface {
	// DownloadRaw fetches fileName from the raw bucket into the raw stage directory.
	DownloadRaw(ctx context.Context, fileName string) error

	// UploadProcessed uploads fileName from the processed stage directory to the
	// processed bucket and marks it publicly readable. It returns the object's
	// public URL. When only the visibility change fails, the URL is returned
	// together with an error wrapping ErrRemoteACL.
	UploadProcessed(ctx context.Context, fileName string) (url string, err error)
}

// UploadURL is a time-boxed, write-capable URL for a client-side raw upload.
type UploadURL struct {
	// URL is the signed PUT URL.
	URL string
	// FileName is the generated object key in the raw bucket.
	FileName string
	// ExpiresAt is when the signature stops being accepted.
	ExpiresAt time.Time
}

// UploadURLIssuer issues signed upload URLs for the raw bucket.
type UploadURLIssuer interface {
	IssueUploadURL(ctx context.Context, identityID, fileExtension string) (*UploadURL, error)
}
