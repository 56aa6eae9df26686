package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time check that MemoryRegistry implements Registry.
var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry is an in-memory implementation of Registry.
// It uses maps with a mutex for thread-safe access; the check and the insert
// in Acquire happen under one lock so concurrent requests cannot both win.
type MemoryRegistry struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	inputs  map[string]string // input file name -> job ID
	outputs map[string]string // output file name -> job ID
}

// NewMemoryRegistry creates a new in-memory job registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		jobs:    make(map[string]*Job),
		inputs:  make(map[string]string),
		outputs: make(map[string]string),
	}
}

// Acquire registers job if neither of its file names is held.
func (r *MemoryRegistry) Acquire(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, ok := r.inputs[job.InputFileName]; ok {
		return fmt.Errorf("%w: %s is being processed by %s", ErrConflict, job.InputFileName, holder)
	}
	if holder, ok := r.outputs[job.OutputFileName]; ok {
		return fmt.Errorf("%w: %s is being produced by %s", ErrConflict, job.OutputFileName, holder)
	}

	r.jobs[job.ID] = job
	r.inputs[job.InputFileName] = job.ID
	r.outputs[job.OutputFileName] = job.ID
	return nil
}

// Release frees the file names held by job.
func (r *MemoryRegistry) Release(_ context.Context, job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return
	}
	delete(r.jobs, job.ID)
	if r.inputs[job.InputFileName] == job.ID {
		delete(r.inputs, job.InputFileName)
	}
	if r.outputs[job.OutputFileName] == job.ID {
		delete(r.outputs, job.OutputFileName)
	}
}

// FindByID retrieves an in-flight job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRegistry) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// List returns all in-flight jobs, oldest first.
// Returns clones to prevent external mutations.
func (r *MemoryRegistry) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	result := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		result = append(result, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// Len returns the number of in-flight jobs.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
