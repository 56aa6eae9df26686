// Package metrics exposes Prometheus collectors for the video pipeline and
// its HTTP surface.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Denzyyyy/Youtube-clone/internal/job"
	"github.com/Denzyyyy/Youtube-clone/internal/media"
)

const namespace = "video_processing"

var (
	// jobsTotal counts finished Process calls by outcome.
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Total number of pipeline runs by outcome",
	}, []string{"outcome"})

	// jobDuration tracks end-to-end run time of admitted jobs.
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Time from admission to completion of a pipeline run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	}, []string{"outcome"})

	// stageDuration tracks each pipeline stage separately.
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of download, transcode and upload stages",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180, 600, 1800},
	}, []string{"stage", "result"})

	// jobsInFlight is the number of admitted jobs that have not finished.
	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_in_flight",
		Help:      "Number of pipeline runs currently holding their files",
	})

	// uploadURLsTotal counts signed upload URL requests.
	uploadURLsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_urls_total",
		Help:      "Total number of signed upload URL requests by result",
	}, []string{"result"})

	// httpRequestsTotal counts HTTP requests by route and status.
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "code"})

	// httpRequestDuration tracks HTTP handler latency by route.
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Compile-time check that PipelineRecorder implements job.Recorder.
var _ job.Recorder = PipelineRecorder{}

// PipelineRecorder feeds PipelineService measurements into the collectors.
type PipelineRecorder struct{}

// StageCompleted records one stage duration.
func (PipelineRecorder) StageCompleted(stage job.Stage, d time.Duration, err error) {
	stageDuration.WithLabelValues(string(stage), stageResult(err)).Observe(d.Seconds())
}

// JobFinished records the outcome of a Process call. Rejected requests never
// ran, so only admitted jobs contribute to the duration histogram.
func (PipelineRecorder) JobFinished(outcome job.Outcome, d time.Duration) {
	jobsTotal.WithLabelValues(string(outcome)).Inc()
	switch outcome {
	case job.OutcomeConflict, job.OutcomeBadRequest:
		return
	}
	jobDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

// InFlight adjusts the in-flight gauge.
func (PipelineRecorder) InFlight(delta int) {
	jobsInFlight.Add(float64(delta))
}

func stageResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, media.ErrTranscodeTimeout):
		return "timeout"
	default:
		return "failure"
	}
}

// IncUploadURL records a signed upload URL request.
func IncUploadURL(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	uploadURLsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served request. An empty route means no
// pattern matched and is reported as "unmatched".
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
