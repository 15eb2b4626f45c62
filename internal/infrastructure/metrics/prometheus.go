package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/trip-finance/internal/application/port"
)

// Recorder exports business and HTTP metrics through a private registry
type Recorder struct {
	registry *prometheus.Registry
	handler  http.Handler

	transitions     *prometheus.CounterVec
	costsFlagged    *prometheus.CounterVec
	flagsResolved   prometheus.Counter
	auditRecords    *prometheus.CounterVec
	invoiceEvents   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewRecorder registers the collectors
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfin_workflow_transitions_total",
		Help: "Workflow step transitions",
	}, []string{"from", "to"})

	costsFlagged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfin_costs_flagged_total",
		Help: "Cost entries flagged for investigation",
	}, []string{"category"})

	flagsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripfin_flags_resolved_total",
		Help: "Flagged cost entries resolved",
	})

	auditRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfin_audit_records_total",
		Help: "Audit records written",
	}, []string{"kind"})

	invoiceEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfin_invoice_events_total",
		Help: "Invoice submissions, payments and follow-ups",
	}, []string{"event"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	registry.MustRegister(
		transitions, costsFlagged, flagsResolved, auditRecords, invoiceEvents,
		requestDuration, requestTotal,
		collectors.NewGoCollector(),
	)

	return &Recorder{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		transitions:     transitions,
		costsFlagged:    costsFlagged,
		flagsResolved:   flagsResolved,
		auditRecords:    auditRecords,
		invoiceEvents:   invoiceEvents,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return r.handler
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) WorkflowTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) CostFlagged(category string) {
	r.costsFlagged.WithLabelValues(category).Inc()
}

func (r *Recorder) FlagResolved() {
	r.flagsResolved.Inc()
}

func (r *Recorder) AuditRecorded(kind string) {
	r.auditRecords.WithLabelValues(kind).Inc()
}

func (r *Recorder) InvoiceEvent(event string) {
	r.invoiceEvents.WithLabelValues(event).Inc()
}

// ObserveHTTPRequest records one served request. path is the route pattern.
func (r *Recorder) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	r.requestTotal.WithLabelValues(method, path, code).Inc()
	r.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// Verify interface compliance
var _ port.Metrics = (*Recorder)(nil)
