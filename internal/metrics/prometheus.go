package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the interview pipeline.
type Metrics struct {
	// Capture and upstream
	FramesCaptured prometheus.Counter
	FramesSent     prometheus.Counter
	FramesQueued   prometheus.Counter
	FramesDropped  prometheus.Counter
	SendErrors     prometheus.Counter

	// Downstream
	EventsReceived *prometheus.CounterVec

	// Playback
	ChunksScheduled prometheus.Counter
	PlaybackSeconds prometheus.Counter
	PlaybackStops   prometheus.Counter

	// Transcript
	TurnsFinalized *prometheus.CounterVec
	Interruptions  prometheus.Counter

	// Sessions
	SessionsStarted prometheus.Counter
	ActiveSessions  prometheus.Gauge
	SessionErrors   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Reports
	ReportRequests prometheus.Counter
	ReportFailures prometheus.Counter
	ReportDuration prometheus.Histogram
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_capture_frames_total",
			Help: "Total number of microphone frames encoded",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_upstream_frames_sent_total",
			Help: "Total number of audio frames written to the voice session",
		}),
		FramesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_upstream_frames_queued_before_open_total",
			Help: "Total number of audio frames queued before the voice session opened",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_upstream_frames_dropped_total",
			Help: "Total number of audio frames dropped because the send queue was full",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_upstream_send_errors_total",
			Help: "Total number of failed upstream writes",
		}),

		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotseat_server_events_total",
			Help: "Total number of server events received, by kind",
		}, []string{"kind"}),

		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_playback_chunks_total",
			Help: "Total number of playback chunks scheduled",
		}),
		PlaybackSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_playback_seconds_total",
			Help: "Total seconds of model audio scheduled for playback",
		}),
		PlaybackStops: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_playback_stops_total",
			Help: "Total number of times the output device was torn down",
		}),

		TurnsFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotseat_transcript_turns_total",
			Help: "Total number of finalized transcript turns, by role",
		}, []string{"role"}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_interruptions_total",
			Help: "Total number of barge-in interruptions",
		}),

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_sessions_started_total",
			Help: "Total number of interview sessions started",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hotseat_active_sessions",
			Help: "Current number of interview sessions",
		}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotseat_session_errors_total",
			Help: "Total number of session errors, by code",
		}, []string{"code"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hotseat_session_duration_seconds",
			Help:    "Elapsed microphone time of finished sessions",
			Buckets: []float64{30, 60, 120, 300, 600, 900, 1800},
		}),

		ReportRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_report_requests_total",
			Help: "Total number of report generation requests",
		}),
		ReportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotseat_report_failures_total",
			Help: "Total number of failed report generations",
		}),
		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hotseat_report_duration_seconds",
			Help:    "Time spent generating reports",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
