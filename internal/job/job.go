// Package job provides the ProcessingJob aggregate and the pipeline that moves
// a video from the raw bucket, through a local transcode, to the processed
// bucket. It includes the job state machine, the in-flight registry that keeps
// two jobs off the same stage files, and the PipelineService orchestrator.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Denzyyyy/Youtube-clone/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusReceived indicates a validated request that has not started work.
	StatusReceived Status = "RECEIVED"
	// StatusDownloading indicates the raw object is being fetched.
	StatusDownloading Status = "DOWNLOADING"
	// StatusDownloaded indicates the raw object is in the raw stage directory.
	StatusDownloaded Status = "DOWNLOADED"
	// StatusTranscoding indicates the engine is running.
	StatusTranscoding Status = "TRANSCODING"
	// StatusTranscoded indicates the rendition is in the processed stage directory.
	StatusTranscoded Status = "TRANSCODED"
	// StatusUploading indicates the rendition is being published.
	StatusUploading Status = "UPLOADING"
	// StatusUploaded indicates the processed object exists in the bucket.
	StatusUploaded Status = "UPLOADED"
	// StatusCleaningUp indicates local stage files are being removed.
	StatusCleaningUp Status = "CLEANING_UP"
	// StatusDone indicates the job finished successfully.
	StatusDone Status = "DONE"
	// StatusFailed indicates the job stopped at FailedStage.
	StatusFailed Status = "FAILED"
)

// Stage names the pipeline step a failure originated from.
type Stage string

const (
	// StagePrepare covers stage directory setup before the download.
	StagePrepare Stage = "prepare"
	// StageDownload covers fetching the raw object.
	StageDownload Stage = "download"
	// StageTranscode covers the engine run.
	StageTranscode Stage = "transcode"
	// StageUpload covers publishing the processed object.
	StageUpload Stage = "upload"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed. FAILED is
// reachable from every non-terminal state except CLEANING_UP: by then the
// object is published and cleanup problems no longer change the outcome.
var validTransitions = map[Status][]Status{
	StatusReceived:    {StatusDownloading, StatusFailed},
	StatusDownloading: {StatusDownloaded, StatusFailed},
	StatusDownloaded:  {StatusTranscoding, StatusFailed},
	StatusTranscoding: {StatusTranscoded, StatusFailed},
	StatusTranscoded:  {StatusUploading, StatusFailed},
	StatusUploading:   {StatusUploaded, StatusFailed},
	StatusUploaded:    {StatusCleaningUp, StatusFailed},
	StatusCleaningUp:  {StatusDone},
	StatusDone:        {},
	StatusFailed:      {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is one ProcessingJob: the ephemeral unit of work for one input file.
// It lives only for the duration of a PipelineService.Process call.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job, used for log correlation.
	ID string
	// InputFileName is the raw object key and raw stage file name.
	InputFileName string
	// OutputFileName is the processed object key and processed stage file name.
	OutputFileName string
	// Status is the current job state.
	Status Status
	// History lists every status the job has been in, in order.
	History []Status
	// FailedStage is set when Status is FAILED.
	FailedStage Stage
	// Error contains the failure message if the job failed.
	Error string
	// URL is the public URL of the processed object once uploaded.
	URL string
	// Warning describes a non-fatal problem, such as a failed visibility change.
	Warning string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the job reached DONE or FAILED.
	CompletedAt time.Time
}

// New creates a new Job in RECEIVED state with a generated ID.
func New(inputFileName, outputFileName string) *Job {
	return NewWithID(id.Generate(), inputFileName, outputFileName)
}

// NewWithID creates a new Job with the specified ID in RECEIVED state.
func NewWithID(jobID, inputFileName, outputFileName string) *Job {
	now := time.Now()
	return &Job{
		ID:             jobID,
		InputFileName:  inputFileName,
		OutputFileName: outputFileName,
		Status:         StatusReceived,
		History:        []Status{StatusReceived},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.History = append(j.History, status)
	j.UpdatedAt = time.Now()

	if status == StatusDone || status == StatusFailed {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Fail transitions the job to FAILED, recording the stage and message.
// Returns ErrInvalidTransition if the job cannot fail from its current state.
func (j *Job) Fail(stage Stage, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.FailedStage = stage
	j.Error = errMsg
	return nil
}

// SetPublished records the public URL and an optional warning.
func (j *Job) SetPublished(url, warning string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.URL = url
	j.Warning = warning
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is DONE or FAILED.
func (j *Job) IsTerminal() bool {
	s := j.GetStatus()
	return s == StatusDone || s == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:             j.ID,
		InputFileName:  j.InputFileName,
		OutputFileName: j.OutputFileName,
		Status:         j.Status,
		History:        slices.Clone(j.History),
		FailedStage:    j.FailedStage,
		Error:          j.Error,
		URL:            j.URL,
		Warning:        j.Warning,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		CompletedAt:    j.CompletedAt,
	}
}
