package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Denzyyyy/Youtube-clone/internal/media"
	"github.com/Denzyyyy/Youtube-clone/internal/storage"
)

// ProcessInput contains the input parameters for one pipeline run.
type ProcessInput struct {
	// InputFileName is the object key in the raw bucket.
	InputFileName string
	// OutputFileName is the object key to create in the processed bucket.
	OutputFileName string
}

// Validate checks that both names are present and usable as stage file names.
// Errors wrap ErrBadRequest.
func (in ProcessInput) Validate() error {
	if strings.TrimSpace(in.InputFileName) == "" || strings.TrimSpace(in.OutputFileName) == "" {
		return fmt.Errorf("%w: input and output file names are required", ErrBadRequest)
	}
	if err := storage.ValidateFileName(in.InputFileName); err != nil {
		return fmt.Errorf("%w: input: %w", ErrBadRequest, err)
	}
	if err := storage.ValidateFileName(in.OutputFileName); err != nil {
		return fmt.Errorf("%w: output: %w", ErrBadRequest, err)
	}
	return nil
}

// ProcessOutput contains the result of a successful pipeline run.
type ProcessOutput struct {
	// JobID is the unique identifier of the run.
	JobID string
	// Status is the final job status.
	Status Status
	// InputFileName is the raw object key that was processed.
	InputFileName string
	// OutputFileName is the processed object key.
	OutputFileName string
	// URL is the public URL of the processed object.
	URL string
	// Degraded is true when the object was uploaded but could not be made public.
	Degraded bool
	// Warning describes why the run is degraded.
	Warning string
}

// Outcome classifies a finished Process call for metrics.
type Outcome string

// Outcomes reported to Recorder.JobFinished.
const (
	OutcomeDone       Outcome = "done"
	OutcomeDegraded   Outcome = "degraded"
	OutcomeFailed     Outcome = "failed"
	OutcomeConflict   Outcome = "conflict"
	OutcomeBadRequest Outcome = "bad_request"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	// StageCompleted is called after every download, transcode and upload.
	StageCompleted(stage Stage, d time.Duration, err error)
	// JobFinished is called once per Process call.
	JobFinished(outcome Outcome, d time.Duration)
	// InFlight adjusts the number of running jobs by delta.
	InFlight(delta int)
}

type nopRecorder struct{}

func (nopRecorder) StageCompleted(Stage, time.Duration, error) {}
func (nopRecorder) JobFinished(Outcome, time.Duration)        {}
func (nopRecorder) InFlight(int)                              {}

// PipelineService orchestrates one video through download, transcode and
// upload, then removes both stage files whatever the outcome.
//
// Dependencies:
//   - storage.Stage: local raw and processed directories
//   - storage.ObjectStore: raw and processed buckets
//   - media.Transcoder: the 360p transcode
//   - Registry: per-file mutual exclusion
type PipelineService struct {
	stage      storage.Stage
	store      storage.ObjectStore
	transcoder media.Transcoder
	registry   Registry
	transform  media.Transform
	recorder   Recorder
	logger     *slog.Logger

	// base is cancelled by Shutdown once admitted jobs are out of time.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// ServiceOption configures a PipelineService.
type ServiceOption func(*PipelineService)

// WithTransform overrides the default 360p transform.
func WithTransform(t media.Transform) ServiceOption {
	return func(s *PipelineService) {
		s.transform = t
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *PipelineService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(
	stage storage.Stage,
	store storage.ObjectStore,
	transcoder media.Transcoder,
	registry Registry,
	logger *slog.Logger,
	opts ...ServiceOption,
) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	s := &PipelineService{
		stage:      stage,
		store:      store,
		transcoder: transcoder,
		registry:   registry,
		transform:  media.ScaleToHeight(media.DefaultTargetHeight),
		recorder:   nopRecorder{},
		logger:     logger,
		base:       base,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListJobs returns the jobs currently in flight.
func (s *PipelineService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.registry.List(ctx)
}

// Process runs the complete pipeline for one input file.
//
// The workflow:
//  1. Validate the names and claim them in the registry (ErrConflict if held)
//  2. Ensure the stage directories exist
//  3. Download the raw object into the raw stage directory
//  4. Transcode it to the target height into the processed stage directory
//  5. Upload the rendition and make it public
//  6. Remove both stage files and release the names
//
// Once the names are claimed the run no longer follows ctx cancellation, so a
// client that goes away cannot leave the engine or the stage files behind.
// The run is only cancelled by Shutdown. Failures are returned as *StageError;
// jobs submitted after Shutdown began get ErrShuttingDown.
func (s *PipelineService) Process(ctx context.Context, input ProcessInput) (*ProcessOutput, error) {
	if err := input.Validate(); err != nil {
		s.recorder.JobFinished(OutcomeBadRequest, 0)
		return nil, err
	}

	if !s.admit() {
		return nil, ErrShuttingDown
	}
	defer s.inflight.Done()

	job := New(input.InputFileName, input.OutputFileName)
	logger := s.logger.With(
		slog.String("job_id", job.ID),
		slog.String("input_file", job.InputFileName),
		slog.String("output_file", job.OutputFileName),
	)

	if err := s.registry.Acquire(ctx, job); err != nil {
		logger.Warn("rejecting job",
			slog.String("error", err.Error()),
		)
		if errors.Is(err, ErrConflict) {
			s.recorder.JobFinished(OutcomeConflict, 0)
		}
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	defer s.registry.Release(detached, job)

	ctx, cancel := context.WithCancel(detached)
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	s.recorder.InFlight(1)
	defer s.recorder.InFlight(-1)

	logger.Info("job received")
	started := time.Now()

	if err := s.run(ctx, job, logger); err != nil {
		s.recorder.JobFinished(OutcomeFailed, time.Since(started))
		return nil, err
	}

	snapshot := job.Clone()
	out := &ProcessOutput{
		JobID:          snapshot.ID,
		Status:         snapshot.Status,
		InputFileName:  snapshot.InputFileName,
		OutputFileName: snapshot.OutputFileName,
		URL:            snapshot.URL,
		Degraded:       snapshot.Warning != "",
		Warning:        snapshot.Warning,
	}

	outcome := OutcomeDone
	if out.Degraded {
		outcome = OutcomeDegraded
	}
	s.recorder.JobFinished(outcome, time.Since(started))

	logger.Info("job completed",
		slog.String("status", string(out.Status)),
		slog.String("url", out.URL),
		slog.Bool("degraded", out.Degraded),
		slog.Duration("duration", time.Since(started)),
	)
	return out, nil
}

// admit registers a job with the in-flight group unless Shutdown has begun.
func (s *PipelineService) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Shutdown stops admitting jobs and waits for in-flight ones to finish. If ctx
// expires first, the remaining jobs are cancelled, which terminates the engine,
// and Shutdown waits for their cleanup before returning ctx's error.
func (s *PipelineService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.cancel()
		return nil
	case <-ctx.Done():
	}

	s.logger.Warn("shutdown deadline reached, cancelling in-flight jobs")
	s.cancel()
	<-drained
	return ctx.Err()
}

// run executes the stages in order. Cleanup is deferred so it runs on every
// exit path, including a panic in a collaborator.
func (s *PipelineService) run(ctx context.Context, job *Job, logger *slog.Logger) error {
	defer s.cleanup(ctx, job, logger)

	if err := s.stage.EnsureDirectories(); err != nil {
		return s.fail(job, StagePrepare, err, logger)
	}

	rawPath := s.stage.RawPath(job.InputFileName)
	processedPath := s.stage.ProcessedPath(job.OutputFileName)

	err := s.step(ctx, job, StageDownload, StatusDownloading, StatusDownloaded, logger, func(ctx context.Context) error {
		return s.store.DownloadRaw(ctx, job.InputFileName)
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, job, StageTranscode, StatusTranscoding, StatusTranscoded, logger, func(ctx context.Context) error {
		return s.transcoder.Transcode(ctx, rawPath, processedPath, s.transform)
	})
	if err != nil {
		return err
	}

	var url, warning string
	err = s.step(ctx, job, StageUpload, StatusUploading, StatusUploaded, logger, func(ctx context.Context) error {
		u, err := s.store.UploadProcessed(ctx, job.OutputFileName)
		if err != nil && errors.Is(err, storage.ErrRemoteACL) && u != "" {
			logger.Warn("processed video uploaded but not public",
				slog.String("url", u),
				slog.String("error", err.Error()),
			)
			url, warning = u, err.Error()
			return nil
		}
		url = u
		return err
	})
	if err != nil {
		return err
	}
	job.SetPublished(url, warning)

	return nil
}

// step moves job into running, calls fn, and moves it into finished on success.
func (s *PipelineService) step(
	ctx context.Context,
	job *Job,
	stage Stage,
	running, finished Status,
	logger *slog.Logger,
	fn func(context.Context) error,
) error {
	if err := job.TransitionTo(running); err != nil {
		return s.fail(job, stage, fmt.Errorf("%w: %s -> %s", err, job.GetStatus(), running), logger)
	}

	logger.Info("stage started", slog.String("stage", string(stage)))
	start := time.Now()

	err := fn(ctx)
	elapsed := time.Since(start)
	s.recorder.StageCompleted(stage, elapsed, err)
	if err != nil {
		return s.fail(job, stage, err, logger)
	}

	if err := job.TransitionTo(finished); err != nil {
		return s.fail(job, stage, err, logger)
	}
	logger.Info("stage completed",
		slog.String("stage", string(stage)),
		slog.Duration("duration", elapsed),
	)
	return nil
}

func (s *PipelineService) fail(job *Job, stage Stage, err error, logger *slog.Logger) error {
	stageErr := &StageError{Stage: stage, Err: err}
	_ = job.Fail(stage, stageErr.Error())
	logger.Error("job failed",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()),
	)
	return stageErr
}

// cleanup removes both stage files. Failures are logged and never change the
// job outcome. It runs even when the job was cancelled by Shutdown.
func (s *PipelineService) cleanup(ctx context.Context, job *Job, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)

	published := job.GetStatus() == StatusUploaded
	if published {
		_ = job.TransitionTo(StatusCleaningUp)
	}

	paths := []string{
		s.stage.RawPath(job.InputFileName),
		s.stage.ProcessedPath(job.OutputFileName),
	}
	for _, path := range paths {
		if err := s.stage.DeleteIfPresent(ctx, path); err != nil {
			logger.Warn("failed to remove stage file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	if published {
		_ = job.TransitionTo(StatusDone)
	}
}
