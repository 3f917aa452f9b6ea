package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

type metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	documents          *prometheus.CounterVec
	processingDuration prometheus.Histogram
	regions            *prometheus.CounterVec
	fieldsFound        *prometheus.CounterVec
	uploadSize         prometheus.Histogram
	wsConnections      prometheus.Gauge
	wsMessages         *prometheus.CounterVec
}

// newMetrics registers the collectors on reg. Each server owns its registry
// so that several servers can live in one process.
func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdocr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qdocr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdocr_documents_processed_total",
			Help: "Documents processed, by entry point and outcome",
		}, []string{"source", "outcome"}),
		processingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qdocr_document_processing_seconds",
			Help:    "Pipeline processing time per document",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 60},
		}),
		regions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdocr_regions_total",
			Help: "Recognized regions by status",
		}, []string{"status"}),
		fieldsFound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdocr_fields_found_total",
			Help: "Extracted fields by key",
		}, []string{"field"}),
		uploadSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qdocr_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "qdocr_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		}),
		wsMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdocr_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		}, []string{"direction"}),
	}
}

// observeResult records the outcome of one processed document.
func (m *metrics) observeResult(source string, res *pipeline.Result) {
	m.documents.WithLabelValues(source, "ok").Inc()
	m.processingDuration.Observe(res.Duration.Seconds())
	for _, r := range res.Regions {
		m.regions.WithLabelValues(string(r.Status)).Inc()
	}
	for _, match := range res.Extraction.Matches {
		m.fieldsFound.WithLabelValues(match.Field).Inc()
	}
	if res.Extraction.Fields.SealByLayout != nil && *res.Extraction.Fields.SealByLayout {
		m.fieldsFound.WithLabelValues(extract.KeySealByLayout).Inc()
	}
}

func (m *metrics) observeFailure(source string, err error) {
	m.documents.WithLabelValues(source, errorOutcome(err)).Inc()
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
