// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	StoreEnvelopes      prometheus.Counter
	StoreFailures       prometheus.Counter
	EditsSent           prometheus.Counter
	EditsDropped        prometheus.Counter
	RetryAttempts       prometheus.Counter
	DownloadsSucceeded  prometheus.Counter
	DownloadsFailed     prometheus.Counter
	ConversionsFinished prometheus.Counter

	// Histograms (seconds)
	DownloadDuration prometheus.Observer
	ConvertDuration  prometheus.Observer

	// Gauges
	StoreQueueDepth prometheus.Gauge
	MsgQueueDepth   prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		StoreEnvelopes = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_store_envelopes_total", Help: "Envelopes processed by the storage actor"})
		StoreFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_store_failures_total", Help: "Envelopes that failed inside the storage actor"})
		EditsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_edits_sent_total", Help: "Message edits applied by the notification pool"})
		EditsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_edits_dropped_total", Help: "Best-effort message edits dropped under load"})
		RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_retry_attempts_total", Help: "Retry attempts made by the bounded-retry wrapper"})
		DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_downloads_succeeded_total", Help: "Number of downloads succeeded"})
		DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_downloads_failed_total", Help: "Number of downloads failed"})
		ConversionsFinished = promauto.NewCounter(prometheus.CounterOpts{Name: "ydl_conversions_finished_total", Help: "Number of audio conversions finished"})
		DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ydl_download_duration_seconds", Help: "Download duration seconds", Buckets: prometheus.DefBuckets})
		ConvertDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ydl_convert_duration_seconds", Help: "Audio conversion duration seconds", Buckets: prometheus.DefBuckets})
		StoreQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "ydl_store_queue_depth", Help: "Envelopes waiting in the storage actor queue"})
		MsgQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "ydl_msg_queue_depth", Help: "Envelopes waiting in the notification pool queue"})
	})
}

// SetStoreQueueDepth records the current storage actor queue depth.
func SetStoreQueueDepth(n int) {
	if StoreQueueDepth != nil {
		StoreQueueDepth.Set(float64(n))
	}
}

// SetMsgQueueDepth records the current notification pool queue depth.
func SetMsgQueueDepth(n int) {
	if MsgQueueDepth != nil {
		MsgQueueDepth.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
