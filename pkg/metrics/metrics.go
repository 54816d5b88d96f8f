package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics records the transactional counters exposed by the order core.
type CoreMetrics struct {
	ordersCreated     *prometheus.CounterVec
	couponRedemptions prometheus.Counter
	stockRejections   prometheus.Counter
	partialDebits     prometheus.Counter
	outboxPublished   *prometheus.CounterVec
}

// NewCoreMetrics registers the core metrics on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders persisted at checkout, labelled by branch.",
	}, []string{"branch"})
	couponRedemptions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupon usage counters successfully incremented.",
	})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_stock_rejections_total",
		Help: "Checkout line items rejected for insufficient stock.",
	})
	partialDebits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_partial_debits_total",
		Help: "Inventory debit sequences that stopped partway through.",
	})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	reg.MustRegister(ordersCreated, couponRedemptions, stockRejections, partialDebits, outboxPublished)
	return &CoreMetrics{
		ordersCreated:     ordersCreated,
		couponRedemptions: couponRedemptions,
		stockRejections:   stockRejections,
		partialDebits:     partialDebits,
		outboxPublished:   outboxPublished,
	}
}

// IncOrdersCreated increments the created-orders counter for a branch.
func (c *CoreMetrics) IncOrdersCreated(branch string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	if branch == "" {
		branch = "unknown"
	}
	c.ordersCreated.WithLabelValues(branch).Inc()
}

// IncCouponRedemptions increments the coupon redemption counter.
func (c *CoreMetrics) IncCouponRedemptions() {
	if c == nil || c.couponRedemptions == nil {
		return
	}
	c.couponRedemptions.Inc()
}

// IncStockRejections increments the insufficient-stock counter.
func (c *CoreMetrics) IncStockRejections() {
	if c == nil || c.stockRejections == nil {
		return
	}
	c.stockRejections.Inc()
}

// IncPartialDebits increments the partial-application counter.
func (c *CoreMetrics) IncPartialDebits() {
	if c == nil || c.partialDebits == nil {
		return
	}
	c.partialDebits.Inc()
}

// IncOutboxPublished increments the outbox publish counter for a result label.
func (c *CoreMetrics) IncOutboxPublished(result string) {
	if c == nil || c.outboxPublished == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	c.outboxPublished.WithLabelValues(result).Inc()
}
