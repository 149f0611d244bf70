// Package metrics provides Prometheus metrics for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hirewise"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Model metrics
	LLMRequests *prometheus.CounterVec
	LLMErrors   *prometheus.CounterVec
	LLMLatency  *prometheus.HistogramVec
	LLMTokens   *prometheus.CounterVec

	// Realtime metrics
	RealtimeSessions      prometheus.Counter
	RealtimeSessionErrors prometheus.Counter
	TranscriptLines       *prometheus.CounterVec
	LiveConnectionsActive prometheus.Gauge
	InterviewsSaved       prometheus.Counter
	InterviewsExpired     prometheus.Counter
	DocumentsExtracted    prometheus.Counter
	DocumentExtractErrors prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),

		LLMRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of language model calls",
		}, []string{"operation"}),
		LLMErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total number of failed language model calls",
		}, []string{"operation"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_latency_seconds",
			Help:      "Language model call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60},
		}, []string{"operation"}),
		LLMTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total tokens consumed by language model calls",
		}, []string{"operation", "kind"}),

		RealtimeSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_sessions_total",
			Help:      "Total number of realtime sessions minted",
		}),
		RealtimeSessionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_session_errors_total",
			Help:      "Total number of failed realtime session requests",
		}),
		TranscriptLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_lines_total",
			Help:      "Total number of live transcript lines relayed",
		}, []string{"speaker"}),
		LiveConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections_active",
			Help:      "Number of open live transcript websocket connections",
		}),
		InterviewsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_saved_total",
			Help:      "Total number of interview results stored",
		}),
		InterviewsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_expired_total",
			Help:      "Total number of interviews marked expired",
		}),
		DocumentsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_extracted_total",
			Help:      "Total number of resume documents extracted",
		}),
		DocumentExtractErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_extract_errors_total",
			Help:      "Total number of failed resume extractions",
		}),

		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latencySeconds)
}

// RecordLLMCall records a language model call and its token usage.
func (m *Metrics) RecordLLMCall(operation string, promptTokens, completionTokens int, err error, latencySeconds float64) {
	m.LLMRequests.WithLabelValues(operation).Inc()
	m.LLMLatency.WithLabelValues(operation).Observe(latencySeconds)
	if err != nil {
		m.LLMErrors.WithLabelValues(operation).Inc()
		return
	}
	m.LLMTokens.WithLabelValues(operation, "prompt").Add(float64(promptTokens))
	m.LLMTokens.WithLabelValues(operation, "completion").Add(float64(completionTokens))
}

// RecordRealtimeSession records a realtime session request.
func (m *Metrics) RecordRealtimeSession(err error) {
	if err != nil {
		m.RealtimeSessionErrors.Inc()
		return
	}
	m.RealtimeSessions.Inc()
}

// RecordTranscriptLine records a relayed transcript line.
func (m *Metrics) RecordTranscriptLine(speaker string) {
	m.TranscriptLines.WithLabelValues(speaker).Inc()
}

// RecordLiveConnection tracks live websocket connections; pass -1 on close.
func (m *Metrics) RecordLiveConnection(delta float64) {
	m.LiveConnectionsActive.Add(delta)
}

// RecordInterviewSaved records a stored interview result.
func (m *Metrics) RecordInterviewSaved() {
	m.InterviewsSaved.Inc()
}

// RecordInterviewsExpired records interviews marked expired by cleanup.
func (m *Metrics) RecordInterviewsExpired(n int64) {
	m.InterviewsExpired.Add(float64(n))
}

// RecordDocumentExtract records a resume extraction attempt.
func (m *Metrics) RecordDocumentExtract(err error) {
	if err != nil {
		m.DocumentExtractErrors.Inc()
		return
	}
	m.DocumentsExtracted.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
