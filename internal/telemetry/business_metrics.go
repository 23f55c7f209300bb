package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for cart and catalog activity.
// Cart metrics carry an identity label ("user" or "guest").
//
// All recording methods are safe on a nil receiver so services can run
// without metrics in tests.
type BusinessMetrics struct {
	// Catalog
	ProductViews    *prometheus.CounterVec
	ProductSearches *prometheus.CounterVec

	// Cart
	CartCreated    *prometheus.CounterVec
	CartItemsAdd   *prometheus.CounterVec
	CartUpdated    *prometheus.CounterVec
	CartItemRemove *prometheus.CounterVec
	CartCleared    *prometheus.CounterVec
	CartRejected   *prometheus.CounterVec
	CartValue      *prometheus.HistogramVec

	// Sessions
	SessionsAllocated *prometheus.CounterVec
	GuestCartsSwept   prometheus.Counter
}

// NewBusinessMetrics creates business metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "marbelle"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	subsystem := "business"

	return &BusinessMetrics{
		ProductViews: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_views_total",
				Help:      "Total product detail views",
			},
			[]string{"product_id"},
		),
		ProductSearches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_searches_total",
				Help:      "Total product list requests by filter",
			},
			[]string{"filter_type"}, // filter_type: category, price, stock, search, none
		),

		CartCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_created_total",
				Help:      "Total carts created",
			},
			[]string{"identity"},
		),
		CartItemsAdd: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total successful add-to-cart requests",
			},
			[]string{"identity", "outcome"}, // outcome: created, merged
		),
		CartUpdated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_updated_total",
				Help:      "Total cart line quantity updates",
			},
			[]string{"identity"},
		),
		CartItemRemove: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_removed_total",
				Help:      "Total cart lines removed",
			},
			[]string{"identity"},
		),
		CartCleared: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total cart clear requests",
			},
			[]string{"identity"},
		),
		CartRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_mutations_rejected_total",
				Help:      "Total cart mutations rejected by business rules",
			},
			[]string{"reason"}, // reason: invalid_quantity, out_of_stock, insufficient_stock, limit_exceeded, not_found
		),
		CartValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value",
				Help:      "Cart total after a mutation",
				Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"identity"},
		),

		SessionsAllocated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "guest_sessions_allocated_total",
				Help:      "Total guest session tokens allocated",
			},
			[]string{"path"}, // path: create, retry
		),

		GuestCartsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "guest_carts_swept_total",
				Help:      "Total expired guest carts deleted by the sweeper",
			},
		),
	}
}

func (m *BusinessMetrics) RecordProductView(productID string) {
	if m == nil {
		return
	}
	m.ProductViews.WithLabelValues(productID).Inc()
}

func (m *BusinessMetrics) RecordProductSearch(filterType string) {
	if m == nil {
		return
	}
	m.ProductSearches.WithLabelValues(filterType).Inc()
}

func (m *BusinessMetrics) RecordCartCreated(identity string) {
	if m == nil {
		return
	}
	m.CartCreated.WithLabelValues(identity).Inc()
}

// RecordItemAdded counts an add; created is false when the add merged into
// an existing line.
func (m *BusinessMetrics) RecordItemAdded(identity string, created bool) {
	if m == nil {
		return
	}
	outcome := "merged"
	if created {
		outcome = "created"
	}
	m.CartItemsAdd.WithLabelValues(identity, outcome).Inc()
}

func (m *BusinessMetrics) RecordItemUpdated(identity string) {
	if m == nil {
		return
	}
	m.CartUpdated.WithLabelValues(identity).Inc()
}

func (m *BusinessMetrics) RecordItemRemoved(identity string) {
	if m == nil {
		return
	}
	m.CartItemRemove.WithLabelValues(identity).Inc()
}

func (m *BusinessMetrics) RecordCartCleared(identity string) {
	if m == nil {
		return
	}
	m.CartCleared.WithLabelValues(identity).Inc()
}

func (m *BusinessMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.CartRejected.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) ObserveCartValue(identity string, total float64) {
	if m == nil {
		return
	}
	m.CartValue.WithLabelValues(identity).Observe(total)
}

func (m *BusinessMetrics) RecordSessionAllocated(path string) {
	if m == nil {
		return
	}
	m.SessionsAllocated.WithLabelValues(path).Inc()
}

func (m *BusinessMetrics) RecordCartsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.GuestCartsSwept.Add(float64(n))
}
