package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that LocalStage implements Stage.
var _ Stage = (*LocalStage)(nil)

// LocalStage implements Stage on local disk. Files are named exactly as their
// remote object keys, so distinct videos never share a path.
type LocalStage struct {
	rawDir       string
	processedDir string
	logger       *slog.Logger
}

// NewLocalStage creates a LocalStage for the given directories.
// Empty directories default to ./raw-videos and ./processed-videos.
// The directories are not created until EnsureDirectories is called.
func NewLocalStage(rawDir, processedDir string, logger *slog.Logger) *LocalStage {
	if rawDir == "" {
		rawDir = "./raw-videos"
	}
	if processedDir == "" {
		processedDir = "./processed-videos"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStage{
		rawDir:       rawDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// RawDir returns the raw stage directory.
func (s *LocalStage) RawDir() string {
	return s.rawDir
}

// ProcessedDir returns the processed stage directory.
func (s *LocalStage) ProcessedDir() string {
	return s.processedDir
}

// EnsureDirectories creates the raw and processed stage directories,
// including missing parents. It is idempotent.
func (s *LocalStage) EnsureDirectories() error {
	for _, dir := range []string{s.rawDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("%w: create stage directory %s: %w", ErrLocalIO, dir, err)
		}
	}
	return nil
}

// RawPath returns the raw stage path for fileName.
func (s *LocalStage) RawPath(fileName string) string {
	return filepath.Join(s.rawDir, fileName)
}

// ProcessedPath returns the processed stage path for fileName.
func (s *LocalStage) ProcessedPath(fileName string) string {
	return filepath.Join(s.processedDir, fileName)
}

// DeleteIfPresent removes path if it exists. Deleting a path that does not
// exist succeeds without side effects; only other failures are returned.
func (s *LocalStage) DeleteIfPresent(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("stage file not found, skipping delete",
				slog.String("path", path),
			)
			return nil
		}
		return fmt.Errorf("%w: remove %s: %w", ErrLocalIO, path, err)
	}

	s.logger.Debug("stage file deleted", slog.String("path", path))
	return nil
}

// writeFile streams data into path. The content is written to a sibling
// temporary file and renamed into place, so path only ever appears complete.
func (s *LocalStage) writeFile(path string, data io.Reader) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrLocalIO, err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %w", ErrLocalIO, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename into place: %w", ErrLocalIO, err)
	}

	return nil
}

// ValidateFileName rejects names that are empty, would resolve outside a
// stage directory, or are hidden. Hidden names are reserved for in-progress
// files such as download temps and partial transcodes.
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidFileName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is a hidden name", ErrInvalidFileName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFileName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidFileName)
	}
	return nil
}
