package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultUploadURLTTL is how long an issued upload URL stays valid.
const DefaultUploadURLTTL = 15 * time.Minute

// Compile-time checks that S3Store implements the pipeline ports.
var (
	_ ObjectStore     = (*S3Store)(nil)
	_ UploadURLIssuer = (*S3Store)(nil)
)

// S3Config holds the configuration for the S3 object store.
type S3Config struct {
	RawBucket       string
	ProcessedBucket string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	UploadURLTTL    time.Duration
}

// S3Store implements ObjectStore and UploadURLIssuer against two buckets.
// Downloads land in the raw stage directory and uploads are read from the
// processed stage directory of the wrapped LocalStage.
type S3Store struct {
	stage     *LocalStage
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       S3Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewS3Store creates a new S3Store backed by stage.
func NewS3Store(ctx context.Context, stage *LocalStage, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = DefaultUploadURLTTL
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Store{
		stage:     stage,
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// DownloadRaw fetches fileName from the raw bucket to <rawStageDir>/<fileName>.
// A missing object or an interrupted transfer returns an error wrapping
// ErrRemoteFetch and leaves nothing at the destination path.
func (s *S3Store) DownloadRaw(ctx context.Context, fileName string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.RawBucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: %s not found in bucket %s", ErrRemoteFetch, fileName, s.cfg.RawBucket)
		}
		return fmt.Errorf("%w: get %s/%s: %w", ErrRemoteFetch, s.cfg.RawBucket, fileName, err)
	}
	defer func() { _ = out.Body.Close() }()

	dst := s.stage.RawPath(fileName)
	if err := s.stage.writeFile(dst, out.Body); err != nil {
		if errors.Is(err, ErrLocalIO) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}

	s.logger.Info("raw video downloaded",
		slog.String("source", s.objectURI(s.cfg.RawBucket, fileName)),
		slog.String("destination", dst),
	)
	return nil
}

// UploadProcessed uploads <processedStageDir>/<fileName> to the processed
// bucket under the same key, waits for the write to complete, then grants
// public read access.
func (s *S3Store) UploadProcessed(ctx context.Context, fileName string) (string, error) {
	src := s.stage.ProcessedPath(fileName)
	f, err := os.Open(src) // #nosec G304 - path is built from a validated stage file name
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrRemoteUpload, src, err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.ProcessedBucket),
		Key:    aws.String(fileName),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %w", ErrRemoteUpload, s.cfg.ProcessedBucket, fileName, err)
	}

	s.logger.Info("processed video uploaded",
		slog.String("source", src),
		slog.String("destination", s.objectURI(s.cfg.ProcessedBucket, fileName)),
	)

	url := s.PublicURL(fileName)

	if _, err := s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(s.cfg.ProcessedBucket),
		Key:    aws.String(fileName),
		ACL:    types.ObjectCannedACLPublicRead,
	}); err != nil {
		return url, fmt.Errorf("%w: %s/%s: %w", ErrRemoteACL, s.cfg.ProcessedBucket, fileName, err)
	}

	return url, nil
}

// IssueUploadURL generates the object name <identityID>-<epochMillis>.<ext>
// and returns a signed PUT URL for it in the raw bucket.
func (s *S3Store) IssueUploadURL(ctx context.Context, identityID, fileExtension string) (*UploadURL, error) {
	if strings.TrimSpace(identityID) == "" {
		return nil, ErrIdentityRequired
	}
	ext := strings.TrimPrefix(strings.TrimSpace(fileExtension), ".")
	if ext == "" {
		return nil, ErrExtensionRequired
	}

	now := s.now()
	fileName := fmt.Sprintf("%s-%d.%s", identityID, now.UnixMilli(), ext)
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.RawBucket),
		Key:    aws.String(fileName),
	}, s3.WithPresignExpires(s.cfg.UploadURLTTL))
	if err != nil {
		return nil, fmt.Errorf("presign upload url: %w", err)
	}

	return &UploadURL{
		URL:       req.URL,
		FileName:  fileName,
		ExpiresAt: now.Add(s.cfg.UploadURLTTL),
	}, nil
}

// PublicURL returns the anonymous-read URL of a processed object.
func (s *S3Store) PublicURL(key string) string {
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.ProcessedBucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.ProcessedBucket, s.cfg.Region, key)
}

func (s *S3Store) objectURI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
