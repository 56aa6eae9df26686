// Package id provides unique identifier generation for jobs.
package id

import (
	"github.com/google/uuid"
)

// Prefix is prepended to every job ID.
const Prefix = "job-"

// Generate creates a new unique job ID.
// Format: job-<uuid v4>
// Example: job-6f1c2e8a-3b1d-4c55-9a8e-2d7f0c9b1e44
func Generate() string {
	return Prefix + uuid.NewString()
}
