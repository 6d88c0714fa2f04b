package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics содержит метрики операций жизненного цикла заказа.
type LifecycleMetrics struct {
	// Счётчики операций
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutFailed    prometheus.Counter
	transitions       *prometheus.CounterVec
	transitionsFailed *prometheus.CounterVec

	// Платёжная сверка
	paymentAttempts  *prometheus.CounterVec
	callbacksHandled *prometheus.CounterVec

	// Фулфилмент
	waybillsCreated prometheus.Counter
	waybillsFailed  prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration   prometheus.Histogram
	transitionDuration *prometheus.HistogramVec

	// События outbox
	outboxEvents prometheus.Counter
}

// NewLifecycleMetrics создаёт новый экземпляр метрик жизненного цикла.
func NewLifecycleMetrics() *LifecycleMetrics {
	return newLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_checkout_started_total",
			Help: "Total number of checkout operations started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_checkout_completed_total",
			Help: "Total number of checkout operations completed successfully",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_checkout_failed_total",
			Help: "Total number of checkout operations failed",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_transitions_total",
			Help: "Total number of applied order status transitions",
		}, []string{"from", "to"}),
		transitionsFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_transitions_failed_total",
			Help: "Total number of rejected order status transitions",
		}, []string{"from", "to"}),
		paymentAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_payment_attempts_total",
			Help: "Total number of payment attempts grouped by method",
		}, []string{"method"}),
		callbacksHandled: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_payment_callbacks_total",
			Help: "Total number of handled payment callbacks grouped by result",
		}, []string{"result"}),
		waybillsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_waybills_created_total",
			Help: "Total number of carrier waybills created",
		}),
		waybillsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_waybills_failed_total",
			Help: "Total number of carrier waybill creation failures",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orderflow_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		transitionDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orderflow_transition_duration_seconds",
			Help:    "Duration of order status transitions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"to"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых checkout.
func (m *LifecycleMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
}

// RecordCheckoutCompleted увеличивает счётчик успешных checkout.
func (m *LifecycleMetrics) RecordCheckoutCompleted() {
	m.checkoutCompleted.Inc()
}

// RecordCheckoutFailed увеличивает счётчик неудачных checkout.
func (m *LifecycleMetrics) RecordCheckoutFailed() {
	m.checkoutFailed.Inc()
}

// RecordTransition фиксирует применённый переход статуса.
func (m *LifecycleMetrics) RecordTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordTransitionFailed фиксирует отклонённый переход статуса.
func (m *LifecycleMetrics) RecordTransitionFailed(from, to string) {
	m.transitionsFailed.WithLabelValues(from, to).Inc()
}

// RecordPaymentAttempt фиксирует созданную платёжную попытку.
func (m *LifecycleMetrics) RecordPaymentAttempt(method string) {
	m.paymentAttempts.WithLabelValues(method).Inc()
}

// RecordCallback фиксирует результат обработки callback'а провайдера.
func (m *LifecycleMetrics) RecordCallback(result string) {
	m.callbacksHandled.WithLabelValues(result).Inc()
}

// RecordWaybillCreated увеличивает счётчик созданных накладных.
func (m *LifecycleMetrics) RecordWaybillCreated() {
	m.waybillsCreated.Inc()
}

// RecordWaybillFailed увеличивает счётчик ошибок создания накладных.
func (m *LifecycleMetrics) RecordWaybillFailed() {
	m.waybillsFailed.Inc()
}

// RecordCheckoutDuration записывает время выполнения checkout.
func (m *LifecycleMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordTransitionDuration записывает время выполнения перехода.
func (m *LifecycleMetrics) RecordTransitionDuration(to string, duration time.Duration) {
	m.transitionDuration.WithLabelValues(to).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *LifecycleMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
