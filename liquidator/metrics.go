package liquidator

import (
	"errors"
	"time"

	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/prometheus/client_golang/prometheus"
)

// --- Metrics ---

// Metrics holds all the Prometheus metrics for the liquidator.
type Metrics struct {
	resolutionsTotal    *prometheus.CounterVec
	routeLength         prometheus.Histogram
	liquidationsTotal   *prometheus.CounterVec
	liquidationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the metrics for the liquidator.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidator_resolutions_total",
			Help: "Total number of route resolutions, labeled by result.",
		}, []string{"result"}),
		routeLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "liquidator_route_length",
			Help:    "Number of hops of resolved routes.",
			Buckets: prometheus.LinearBuckets(1, 1, route.DefaultMaxRouteLength),
		}),
		liquidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidator_liquidations_total",
			Help: "Total number of liquidations, labeled by result.",
		}, []string{"result"}),
		liquidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "liquidator_liquidation_duration_seconds",
			Help:    "Time taken to execute a liquidation, including waiting for the execution lock.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}
	reg.MustRegister(m.resolutionsTotal, m.routeLength, m.liquidationsTotal, m.liquidationDuration)
	return m
}

func (m *Metrics) observeResolution(r route.Route, err error) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.routeLength.Observe(float64(len(r)))
	}
}

func (m *Metrics) observeLiquidation(start time.Time, err error) {
	if m == nil {
		return
	}
	label := resultLabel(err)
	m.liquidationsTotal.WithLabelValues(label).Inc()
	m.liquidationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

var resultLabels = []struct {
	err   error
	label string
}{
	{route.ErrSameToken, "same_token"},
	{route.ErrNoPoolForTokenIn, "no_pool_token_in"},
	{route.ErrNoPoolForTokenOut, "no_pool_token_out"},
	{route.ErrNoPoolForTokenIn2, "no_pool_token_in2"},
	{route.ErrNoPoolForTokenOut2, "no_pool_token_out2"},
	{route.ErrPathNotFound, "path_not_found"},
	{route.ErrZeroRouteLength, "zero_route_length"},
	{swapper.ErrPriceProtection, "price_protection"},
	{swapper.ErrZeroConfig, "zero_config"},
}

// resultLabel keeps label cardinality bounded by mapping errors onto a
// fixed set of values.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, l := range resultLabels {
		if errors.Is(err, l.err) {
			return l.label
		}
	}
	return "error"
}
