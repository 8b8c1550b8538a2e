package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails handed to the SMTP transport",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total failed email send attempts",
		},
	)

	LettersDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "letters_dispatched_total",
			Help: "Total letters fully dispatched (marked sent)",
		},
	)

	DispatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_retries_total",
			Help: "Total dispatch invocations that failed and were handed back for retry",
		},
	)

	RecipientsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipients_skipped_total",
			Help: "Total recipients skipped for having no email address",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		EmailsSent,
		EmailFailures,
		LettersDispatched,
		DispatchRetries,
		RecipientsSkipped,
	)
}
