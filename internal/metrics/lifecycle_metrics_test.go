package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewLifecycleMetrics(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newLifecycleMetricsWithRegisterer should not return nil")
	}
	if metrics.checkoutStarted == nil {
		t.Error("checkoutStarted counter should not be nil")
	}
	if metrics.transitions == nil {
		t.Error("transitions counter vec should not be nil")
	}
	if metrics.paymentAttempts == nil {
		t.Error("paymentAttempts counter vec should not be nil")
	}
	if metrics.callbacksHandled == nil {
		t.Error("callbacksHandled counter vec should not be nil")
	}
	if metrics.waybillsCreated == nil {
		t.Error("waybillsCreated counter should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}
	if metrics.transitionDuration == nil {
		t.Error("transitionDuration histogram vec should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

// Повторная регистрация в том же registry возвращает существующие коллекторы.
func TestNewLifecycleMetrics_Reregister(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newLifecycleMetricsWithRegisterer(registry)
	second := newLifecycleMetricsWithRegisterer(registry)

	first.RecordCheckoutStarted()
	second.RecordCheckoutStarted()

	metric := &dto.Metric{}
	if err := second.checkoutStarted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutLifecycle(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheckoutStarted()
	metrics.RecordCheckoutStarted()
	metrics.RecordCheckoutCompleted()
	metrics.RecordCheckoutFailed()

	assertCounter(t, metrics.checkoutStarted, 2.0)
	assertCounter(t, metrics.checkoutCompleted, 1.0)
	assertCounter(t, metrics.checkoutFailed, 1.0)
}

func TestRecordTransition(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransition("unpaid", "packed")
	metrics.RecordTransition("unpaid", "packed")
	metrics.RecordTransitionFailed("unpaid", "shipped")

	assertCounter(t, metrics.transitions.WithLabelValues("unpaid", "packed"), 2.0)
	assertCounter(t, metrics.transitionsFailed.WithLabelValues("unpaid", "shipped"), 1.0)
}

func TestRecordPaymentAttempt(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordPaymentAttempt("gateway")
	metrics.RecordPaymentAttempt("cod")
	metrics.RecordCallback("paid")
	metrics.RecordCallback("duplicate")

	assertCounter(t, metrics.paymentAttempts.WithLabelValues("gateway"), 1.0)
	assertCounter(t, metrics.paymentAttempts.WithLabelValues("cod"), 1.0)
	assertCounter(t, metrics.callbacksHandled.WithLabelValues("paid"), 1.0)
	assertCounter(t, metrics.callbacksHandled.WithLabelValues("duplicate"), 1.0)
}

func TestRecordCheckoutDuration(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheckoutDuration(100 * time.Millisecond)
	metrics.RecordCheckoutDuration(500 * time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.checkoutDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
	sum := metric.Histogram.GetSampleSum()
	if sum < 0.55 || sum > 0.65 {
		t.Errorf("expected sum around 0.6, got %f", sum)
	}
}

func TestRecordTransitionDuration(t *testing.T) {
	metrics := newLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransitionDuration("shipped", 50*time.Millisecond)

	observer := metrics.transitionDuration.WithLabelValues("shipped")
	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
}

func assertCounter(t *testing.T, counter prometheus.Counter, want float64) {
	t.Helper()

	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write counter: %v", err)
	}
	if got := metric.Counter.GetValue(); got != want {
		t.Errorf("expected counter value %f, got %f", want, got)
	}
}
