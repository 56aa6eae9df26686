// Package media provides video transcoding through an external engine.
package media

import (
	"context"
	"errors"
	"fmt"
)

// DefaultTargetHeight is the vertical resolution of the processed rendition.
const DefaultTargetHeight = 360

// Static errors for media operations.
var (
	// ErrTranscode is returned when the engine reports a failure.
	ErrTranscode = errors.New("transcode failed")
	// ErrTranscodeTimeout is returned when a transcode exceeds its deadline
	// and the engine process was terminated.
	ErrTranscodeTimeout = errors.New("transcode timed out")
	// ErrInvalidTransform is returned for transforms the engine cannot express.
	ErrInvalidTransform = errors.New("invalid transform")
)

// Transform describes the output transform applied by a transcode.
type Transform struct {
	// Height is the fixed output height in pixels. The width is derived from
	// the source aspect ratio.
	Height int
}

// ScaleToHeight returns a Transform that scales to height, preserving aspect ratio.
func ScaleToHeight(height int) Transform {
	return Transform{Height: height}
}

// Validate reports whether the transform can be applied.
func (t Transform) Validate() error {
	if t.Height <= 0 {
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidTransform, t.Height)
	}
	return nil
}

// Filter returns the ffmpeg video filter for the transform. Width is locked to
// auto (-2 keeps it divisible by two, which most encoders require).
func (t Transform) Filter() string {
	return fmt.Sprintf("scale=-2:%d", t.Height)
}

// Transcoder converts a local input file into a local output file.
type Transcoder interface {
	// Transcode applies t to inputPath and writes outputPath. It returns once,
	// after the engine has reported completion.
	Transcode(ctx context.Context, inputPath, outputPath string, t Transform) error
}
