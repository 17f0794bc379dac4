package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_runs_started_total",
		Help: "Total number of upload runs started",
	})

	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_uploads_total",
		Help: "Total number of upload attempts",
	})

	UploadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_uploads_completed_total",
		Help: "Total number of successful uploads",
	})

	UploadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_uploads_failed_total",
		Help: "Total number of failed uploads",
	})

	UploadsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_uploads_cancelled_total",
		Help: "Total number of cancelled uploads",
	})

	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "asset_uploader_upload_duration_seconds",
		Help:    "Upload duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_upload_bytes_total",
		Help: "Total bytes uploaded",
	})

	RateLimitEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_uploader_rate_limit_events_total",
		Help: "Total number of HTTP 429 conditions observed",
	})
)
