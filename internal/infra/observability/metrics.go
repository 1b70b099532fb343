package observability

import (
	"time"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	messagesTotal    *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	handleDuration   *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec
	emailFallbacks   *prometheus.CounterVec
	pdfSendFailures  prometheus.Counter
	lookupsTotal     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_messages_total",
				Help: "Total messages by direction (IN/OUT).",
			},
			[]string{"direction"},
		),
		stateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_state_transitions_total",
				Help: "Total conversation state transitions by target state.",
			},
			[]string{"state"},
		),
		handleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bot_handle_duration_seconds",
				Help:    "Duration of inbound message handling by origin state.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_provider_errors_total",
				Help: "Total billing provider errors by class (dns/http/transport).",
			},
			[]string{"reason"},
		),
		emailFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_email_fallbacks_total",
				Help: "Total e-mail fallback attempts by outcome.",
			},
			[]string{"outcome"},
		),
		pdfSendFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bot_pdf_send_failures_total",
				Help: "Total boleto PDF deliveries that degraded to text.",
			},
		),
		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_boleto_lookups_total",
				Help: "Total boleto lookups by result (invoices/empty/email_sent/failed).",
			},
			[]string{"result"},
		),
	}
}

// IncrMessage increments the message counter for a direction (IN/OUT).
func (m *Metrics) IncrMessage(direction string) {
	m.messagesTotal.WithLabelValues(direction).Inc()
}

// IncrStateTransition increments the transition counter for the target state.
func (m *Metrics) IncrStateTransition(state string) {
	m.stateTransitions.WithLabelValues(state).Inc()
}

// RecordHandleDuration records how long one inbound message took to process.
func (m *Metrics) RecordHandleDuration(state string, d time.Duration) {
	m.handleDuration.WithLabelValues(state).Observe(d.Seconds())
}

// IncrProviderError increments the provider error counter.
func (m *Metrics) IncrProviderError(reason string) {
	m.providerErrors.WithLabelValues(reason).Inc()
}

// IncrEmailFallback increments the e-mail fallback counter.
func (m *Metrics) IncrEmailFallback(outcome string) {
	m.emailFallbacks.WithLabelValues(outcome).Inc()
}

// IncrPDFSendFailure increments the PDF degradation counter.
func (m *Metrics) IncrPDFSendFailure() {
	m.pdfSendFailures.Inc()
}

// IncrLookup increments the boleto lookup counter by result.
func (m *Metrics) IncrLookup(result string) {
	m.lookupsTotal.WithLabelValues(result).Inc()
}

// GetBotSnapshot returns a snapshot of conversation metrics suitable for
// the GET /v1/metrics/bot endpoint.
func (m *Metrics) GetBotSnapshot() *domain.BotMetrics {
	in := getCounterValue(m.messagesTotal, "IN")
	out := getCounterValue(m.messagesTotal, "OUT")

	lookups := float64(0)
	for _, result := range []string{"invoices", "empty", "email_sent", "failed"} {
		lookups += getCounterValue(m.lookupsTotal, result)
	}
	failed := getCounterValue(m.lookupsTotal, "failed")
	emailSent := getCounterValue(m.lookupsTotal, "email_sent")

	failureRate := float64(0)
	emailRate := float64(0)
	if lookups > 0 {
		failureRate = failed / lookups
		emailRate = emailSent / lookups
	}

	return &domain.BotMetrics{
		MessagesIn:        int64(in),
		MessagesOut:       int64(out),
		BoletoLookups:     int64(lookups),
		LookupFailureRate: failureRate,
		EmailFallbackRate: emailRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
