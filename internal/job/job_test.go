package job

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Denzyyyy/Youtube-clone/internal/media"
)

func TestNew(t *testing.T) {
	job := New("video.mp4", "processed-video.mp4")

	if job.ID == "" {
		t.Error("expected job to have an ID")
	}
	if job.Status != StatusReceived {
		t.Errorf("expected status %s, got %s", StatusReceived, job.Status)
	}
	if job.InputFileName != "video.mp4" || job.OutputFileName != "processed-video.mp4" {
		t.Errorf("unexpected file names: %s -> %s", job.InputFileName, job.OutputFileName)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if job.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
	if !slices.Equal(job.History, []Status{StatusReceived}) {
		t.Errorf("expected history to start at RECEIVED, got %v", job.History)
	}
}

func TestNewWithID(t *testing.T) {
	id := "test-job-123"
	job := NewWithID(id, "a.mp4", "b.mp4")

	if job.ID != id {
		t.Errorf("expected ID %s, got %s", id, job.ID)
	}
	if job.Status != StatusReceived {
		t.Errorf("expected status %s, got %s", StatusReceived, job.Status)
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		// Happy path
		{"RECEIVED to DOWNLOADING", StatusReceived, StatusDownloading, false},
		{"DOWNLOADING to DOWNLOADED", StatusDownloading, StatusDownloaded, false},
		{"DOWNLOADED to TRANSCODING", StatusDownloaded, StatusTranscoding, false},
		{"TRANSCODING to TRANSCODED", StatusTranscoding, StatusTranscoded, false},
		{"TRANSCODED to UPLOADING", StatusTranscoded, StatusUploading, false},
		{"UPLOADING to UPLOADED", StatusUploading, StatusUploaded, false},
		{"UPLOADED to CLEANING_UP", StatusUploaded, StatusCleaningUp, false},
		{"CLEANING_UP to DONE", StatusCleaningUp, StatusDone, false},
		// Failures from non-terminal states
		{"RECEIVED to FAILED", StatusReceived, StatusFailed, false},
		{"DOWNLOADING to FAILED", StatusDownloading, StatusFailed, false},
		{"TRANSCODING to FAILED", StatusTranscoding, StatusFailed, false},
		{"UPLOADING to FAILED", StatusUploading, StatusFailed, false},
		// Invalid transitions
		{"RECEIVED to TRANSCODING", StatusReceived, StatusTranscoding, true},
		{"DOWNLOADING to UPLOADING", StatusDownloading, StatusUploading, true},
		{"TRANSCODED to DONE", StatusTranscoded, StatusDone, true},
		{"CLEANING_UP to FAILED", StatusCleaningUp, StatusFailed, true},
		{"DONE to RECEIVED", StatusDone, StatusReceived, true},
		{"DONE to FAILED", StatusDone, StatusFailed, true},
		{"FAILED to DOWNLOADING", StatusFailed, StatusDownloading, true},
		{"FAILED to DONE", StatusFailed, StatusDone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewWithID("test", "a.mp4", "b.mp4")
			job.Status = tt.from

			err := job.TransitionTo(tt.to)

			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition for %s -> %s, got %v", tt.from, tt.to, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestJob_FullSequence(t *testing.T) {
	job := New("a.mp4", "b.mp4")
	sequence := []Status{
		StatusDownloading, StatusDownloaded,
		StatusTranscoding, StatusTranscoded,
		StatusUploading, StatusUploaded,
		StatusCleaningUp, StatusDone,
	}
	for _, s := range sequence {
		if err := job.TransitionTo(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	want := append([]Status{StatusReceived}, sequence...)
	if !slices.Equal(job.History, want) {
		t.Errorf("expected history %v, got %v", want, job.History)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestJob_Fail(t *testing.T) {
	job := New("a.mp4", "b.mp4")
	_ = job.TransitionTo(StatusDownloading)

	err := job.Fail(StageDownload, "remote fetch failed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, job.Status)
	}
	if job.FailedStage != StageDownload {
		t.Errorf("expected failed stage %s, got %s", StageDownload, job.FailedStage)
	}
	if job.Error != "remote fetch failed" {
		t.Errorf("expected error message, got %s", job.Error)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestJob_Fail_FromTerminalState(t *testing.T) {
	job := New("a.mp4", "b.mp4")
	job.Status = StatusDone

	if err := job.Fail(StageUpload, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if job.FailedStage != "" || job.Error != "" {
		t.Error("a rejected failure must not record a stage or message")
	}
}

func TestJob_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusReceived, false},
		{StatusDownloading, false},
		{StatusTranscoding, false},
		{StatusUploaded, false},
		{StatusCleaningUp, false},
		{StatusDone, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := NewWithID("test", "a.mp4", "b.mp4")
			job.Status = tt.status

			if job.IsTerminal() != tt.terminal {
				t.Errorf("expected IsTerminal() = %v for status %s", tt.terminal, tt.status)
			}
		})
	}
}

func TestJob_SetPublished(t *testing.T) {
	job := New("a.mp4", "b.mp4")
	before := job.UpdatedAt
	time.Sleep(time.Millisecond)

	job.SetPublished("https://example.com/b.mp4", "not public")

	if job.URL != "https://example.com/b.mp4" {
		t.Errorf("unexpected URL %s", job.URL)
	}
	if job.Warning != "not public" {
		t.Errorf("unexpected warning %s", job.Warning)
	}
	if !job.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestJob_Clone(t *testing.T) {
	job := New("a.mp4", "b.mp4")
	_ = job.TransitionTo(StatusDownloading)
	job.SetPublished("https://example.com/b.mp4", "")

	clone := job.Clone()

	if clone.ID != job.ID || clone.Status != job.Status || clone.URL != job.URL {
		t.Error("expected clone to match the original")
	}

	// Modify clone and verify original is unchanged
	clone.Status = StatusFailed
	clone.History[0] = StatusDone

	if job.Status == StatusFailed {
		t.Error("modifying clone status should not affect original")
	}
	if job.History[0] != StatusReceived {
		t.Error("modifying clone history should not affect original")
	}
}

func TestJob_GetStatus_ThreadSafe(t *testing.T) {
	job := New("a.mp4", "b.mp4")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = job.GetStatus()
		}()
		go func() {
			defer wg.Done()
			_ = job.Clone()
		}()
	}
	_ = job.TransitionTo(StatusDownloading)
	wg.Wait()
}

func TestStageError(t *testing.T) {
	cause := errors.New("remote fetch failed: NoSuchKey")
	err := &StageError{Stage: StageDownload, Err: cause}

	if err.Error() != "download failed: remote fetch failed: NoSuchKey" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected StageError to unwrap to its cause")
	}
}

func TestStageError_TranscodeCauseIsNotRepeated(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  string
	}{
		{
			name:  "timeout",
			cause: fmt.Errorf("%w: %w after 30m0s", media.ErrTranscode, media.ErrTranscodeTimeout),
			want:  "transcode failed: transcode timed out after 30m0s",
		},
		{
			name:  "engine missing",
			cause: fmt.Errorf("%w: start ffmpeg: executable file not found", media.ErrTranscode),
			want:  "transcode failed: start ffmpeg: executable file not found",
		},
		{
			name:  "engine stderr",
			cause: &media.FFmpegError{Stderr: "in.mp4: Invalid data found when processing input\n", Err: errors.New("exit status 1")},
			want:  "transcode failed: in.mp4: Invalid data found when processing input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &StageError{Stage: StageTranscode, Err: tt.cause}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
			if !errors.Is(err, media.ErrTranscode) {
				t.Error("expected StageError to match ErrTranscode")
			}
		})
	}
}
