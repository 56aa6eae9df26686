package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// stderrTailBytes bounds how much engine output is kept for diagnostics.
const stderrTailBytes = 8 << 10

// Compile-time check that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// timeout bounds a single transcode; zero means no limit.
	timeout time.Duration
	// killGrace is how long a terminated engine may take to exit before it is killed.
	killGrace time.Duration
	logger    *slog.Logger
}

// Option configures an FFmpegTranscoder.
type Option func(*FFmpegTranscoder)

// WithTimeout sets the maximum duration of one transcode. When exceeded the
// engine's process group is terminated and the run fails with ErrTranscodeTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *FFmpegTranscoder) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithKillGrace sets how long the engine gets to exit after SIGTERM.
func WithKillGrace(d time.Duration) Option {
	return func(p *FFmpegTranscoder) {
		if d > 0 {
			p.killGrace = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *FFmpegTranscoder) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, opts ...Option) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p := &FFmpegTranscoder{
		ffmpegPath: ffmpegPath,
		killGrace:  5 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run is one in-flight engine invocation. It completes exactly once.
type Run struct {
	once   sync.Once
	done   chan struct{}
	err    error
	logger *slog.Logger
}

func newRun(logger *slog.Logger) *Run {
	return &Run{done: make(chan struct{}), logger: logger}
}

// Done is closed when the engine has reported completion.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns the outcome of the run. It is only meaningful after Done is closed.
func (r *Run) Err() error {
	<-r.done
	return r.err
}

// complete records the outcome. The first call wins; later signals are logged
// and dropped.
func (r *Run) complete(err error) bool {
	first := false
	r.once.Do(func() {
		r.err = err
		first = true
		close(r.done)
	})
	if !first {
		r.logger.Warn("ignoring duplicate transcode completion",
			slog.Any("error", err),
		)
	}
	return first
}

// Transcode applies t to inputPath and writes outputPath, blocking until the
// engine reports completion.
func (p *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, t Transform) error {
	run, err := p.Start(ctx, inputPath, outputPath, t)
	if err != nil {
		return err
	}
	<-run.Done()
	return run.Err()
}

// Start launches the engine and returns immediately. The output is written to
// a hidden sibling of outputPath and renamed into place only on success, so
// outputPath never holds a partial rendition.
func (p *FFmpegTranscoder) Start(ctx context.Context, inputPath, outputPath string, t Transform) (*Run, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	partial := partialPath(outputPath)
	args := []string{
		"-y",         // Overwrite output file without asking
		"-nostdin",   // Never wait for console input
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath, // Input file
		"-vf", t.Filter(), // Fixed-height scale
		partial, // Output file
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(runCtx, p.ffmpegPath, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateProcessGroup(cmd) }
	cmd.WaitDelay = p.killGrace

	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start %s: %w", ErrTranscode, p.ffmpegPath, err)
	}

	p.logger.Debug("transcode started",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.String("filter", t.Filter()),
	)

	run := newRun(p.logger)
	go func() {
		defer cancel()
		waitErr := cmd.Wait()
		run.complete(p.finish(ctx, runCtx, args, partial, outputPath, stderr.String(), waitErr))
	}()

	return run, nil
}

// finish turns the engine's exit into the run outcome and moves the partial
// output into place or removes it.
func (p *FFmpegTranscoder) finish(ctx, runCtx context.Context, args []string, partial, outputPath, stderr string, waitErr error) error {
	if waitErr == nil {
		if err := os.Rename(partial, outputPath); err != nil {
			_ = os.Remove(partial)
			return fmt.Errorf("%w: move output into place: %w", ErrTranscode, err)
		}
		return nil
	}

	_ = os.Remove(partial)

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: ffmpeg cancelled: %w", ErrTranscode, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		p.logger.Warn("transcode exceeded timeout, engine terminated",
			slog.Duration("timeout", p.timeout),
			slog.String("output", outputPath),
		)
		return fmt.Errorf("%w: %w after %s", ErrTranscode, ErrTranscodeTimeout, p.timeout)
	default:
		return &FFmpegError{
			Args:   args,
			Stderr: stderr,
			Err:    waitErr,
		}
	}
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

// Message returns the engine's own error text, or the exit error if the
// engine printed nothing.
func (e *FFmpegError) Message() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return e.Err.Error()
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Is makes every engine failure match ErrTranscode.
func (e *FFmpegError) Is(target error) bool {
	return target == ErrTranscode
}

// partialPath keeps the extension so ffmpeg still infers the container.
func partialPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), ".partial-"+filepath.Base(outputPath))
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
