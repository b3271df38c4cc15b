package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink is the Sink implementation that mirrors accumulator
// events into Prometheus collectors, registered with the same
// namespace/subsystem convention the teacher uses in
// internal/observability/metrics.go.
type PrometheusSink struct {
	emailsTotal       *prometheus.CounterVec
	sendDuration      prometheus.Histogram
	connectionErrors  prometheus.Counter
	rateLimitExceeded prometheus.Counter
	bannedRecipients  prometheus.Gauge
}

// NewPrometheusSink registers the mailer's collectors with reg and returns
// a Sink ready to pass to New.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		emailsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Total number of emails sent, by outcome.",
		}, []string{"status"}),
		sendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mailer",
			Subsystem: "email",
			Name:      "send_duration_seconds",
			Help:      "Time to complete an SMTP send attempt.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5},
		}),
		connectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "smtp",
			Name:      "connection_errors_total",
			Help:      "Total SMTP connection errors.",
		}),
		rateLimitExceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mailer",
			Subsystem: "ratelimit",
			Name:      "exceeded_total",
			Help:      "Total send attempts rejected by the rate limiter.",
		}),
		bannedRecipients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mailer",
			Subsystem: "ratelimit",
			Name:      "banned_recipients",
			Help:      "Current number of recipients under an active ban.",
		}),
	}
}

func (p *PrometheusSink) ObserveEmailSendDuration(seconds float64) { p.sendDuration.Observe(seconds) }

func (p *PrometheusSink) IncEmailsTotal(status string) { p.emailsTotal.WithLabelValues(status).Inc() }

func (p *PrometheusSink) IncConnectionError() { p.connectionErrors.Inc() }

func (p *PrometheusSink) IncRateLimitExceeded() { p.rateLimitExceeded.Inc() }

func (p *PrometheusSink) SetBannedRecipients(n int64) { p.bannedRecipients.Set(float64(n)) }
