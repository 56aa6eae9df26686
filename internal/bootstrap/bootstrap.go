// Package bootstrap provides dependency initialization for the video processing service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Denzyyyy/Youtube-clone/internal/config"
	"github.com/Denzyyyy/Youtube-clone/internal/job"
	"github.com/Denzyyyy/Youtube-clone/internal/media"
	"github.com/Denzyyyy/Youtube-clone/internal/metrics"
	"github.com/Denzyyyy/Youtube-clone/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *job.PipelineService
	Uploads  storage.UploadURLIssuer
}

// NewDependencies creates and initializes all dependencies for the application.
// The stage directories are created here so a misconfigured path fails startup
// instead of the first job.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	stage := storage.NewLocalStage(cfg.RawStageDir, cfg.ProcessedStageDir, logger)
	if err := stage.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare stage directories: %w", err)
	}
	logger.Info("stage directories ready",
		slog.String("raw_stage_dir", stage.RawDir()),
		slog.String("processed_stage_dir", stage.ProcessedDir()),
	)

	store, err := initStore(ctx, cfg, stage, logger)
	if err != nil {
		return nil, err
	}

	transcoder := media.NewFFmpegTranscoder(cfg.FFmpegPath,
		media.WithTimeout(cfg.TranscodeTimeout),
		media.WithLogger(logger),
	)

	pipeline := job.NewPipelineService(
		stage,
		store,
		transcoder,
		job.NewMemoryRegistry(),
		logger,
		job.WithTransform(media.ScaleToHeight(cfg.TargetHeight)),
		job.WithRecorder(metrics.PipelineRecorder{}),
	)

	return &Dependencies{
		Pipeline: pipeline,
		Uploads:  store,
	}, nil
}

// initStore creates the S3 object store for the raw and processed buckets.
func initStore(ctx context.Context, cfg *config.Config, stage *storage.LocalStage, logger *slog.Logger) (*storage.S3Store, error) {
	s3Cfg := storage.S3Config{
		RawBucket:       cfg.RawBucket,
		ProcessedBucket: cfg.ProcessedBucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		UploadURLTTL:    cfg.UploadURLTTL,
	}
	store, err := storage.NewS3Store(ctx, stage, s3Cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create S3 store: %w", err)
	}
	logger.Info("S3 store configured",
		slog.String("raw_bucket", cfg.RawBucket),
		slog.String("processed_bucket", cfg.ProcessedBucket),
		slog.String("region", cfg.S3Region),
		slog.String("endpoint", cfg.S3Endpoint),
		slog.Bool("static_credentials", cfg.StaticCredentials()),
	)
	return store, nil
}
