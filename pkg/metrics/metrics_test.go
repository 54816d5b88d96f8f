package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCoreMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	core := NewCoreMetrics(reg)

	core.IncOrdersCreated("branch-a")
	core.IncOrdersCreated("branch-a")
	core.IncOrdersCreated("")
	core.IncCouponRedemptions()
	core.IncStockRejections()
	core.IncOutboxPublished("success")

	if got := counterValue(t, reg, "orders_created_total", map[string]string{"branch": "branch-a"}); got != 2 {
		t.Fatalf("orders_created_total{branch-a} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "orders_created_total", map[string]string{"branch": "unknown"}); got != 1 {
		t.Fatalf("empty branch should map to unknown, got %v", got)
	}
	if got := counterValue(t, reg, "coupon_redemptions_total", nil); got != 1 {
		t.Fatalf("coupon_redemptions_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "outbox_publish_total", map[string]string{"result": "success"}); got != 1 {
		t.Fatalf("outbox_publish_total{success} = %v, want 1", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	core := NewCoreMetrics(nil)
	core.IncOrdersCreated("branch")
	core.IncCouponRedemptions()
	core.IncPartialDebits()
	var nilCore *CoreMetrics
	nilCore.IncStockRejections()
}
