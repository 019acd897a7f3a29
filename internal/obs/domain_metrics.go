package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// AuditAppendFailures counts audit log writes that could not be persisted.
	AuditAppendFailures prometheus.Counter
	// PaymentHookTasksTotal tracks side-effect task dispatch outcomes by topic.
	PaymentHookTasksTotal *prometheus.CounterVec
	// LiqPayStatusRequests counts outbound status API calls by result.
	LiqPayStatusRequests *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"result"})
		AuditAppendFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_append_failures_total",
			Help:      "Number of webhook audit entries that failed to persist.",
		})
		PaymentHookTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_hook_tasks_total",
			Help:      "Count of enqueued post-payment side-effect tasks.",
		}, []string{"topic", "result"})
		LiqPayStatusRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liqpay_status_requests_total",
			Help:      "Count of outbound LiqPay status API requests by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
			}
		})
		mustRegisterCollector(reg, AuditAppendFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				AuditAppendFailures = v
			}
		})
		mustRegisterCollector(reg, PaymentHookTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentHookTasksTotal = v
			}
		})
		mustRegisterCollector(reg, LiqPayStatusRequests, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LiqPayStatusRequests = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
