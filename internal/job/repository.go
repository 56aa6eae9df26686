package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Registry tracks in-flight jobs and enforces per-file mutual exclusion.
// A file name is held from Acquire until Release, so two jobs never share a
// stage file or a processed object key.
type Registry interface {
	// Acquire registers job as in flight. Returns an error wrapping
	// ErrConflict if its input or output name is already held.
	Acquire(ctx context.Context, job *Job) error

	// Release removes job and frees its file names. Releasing a job that is
	// not held is a no-op.
	Release(ctx context.Context, job *Job)

	// FindByID retrieves an in-flight job by its unique identifier.
	// Returns ErrJobNotFound if no such job is in flight.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all in-flight jobs.
	List(ctx context.Context) ([]*Job, error)
}
