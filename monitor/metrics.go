// Package monitor 提供做市 bot 的 Prometheus 指标。
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor 持有独立 registry，一个策略进程一个实例。
// 所有方法对 nil 接收者安全，指标采集可整体关闭。
type Monitor struct {
	registry *prometheus.Registry

	ordersPlaced       *prometheus.CounterVec
	ordersFailed       *prometheus.CounterVec
	ordersCanceled     *prometheus.CounterVec
	cancelsUnconfirmed prometheus.Counter

	cycles      prometheus.Counter
	cycleErrors prometheus.Counter

	midPrice     prometheus.Gauge
	midFallbacks *prometheus.CounterVec

	realizedPnL prometheus.Gauge
	totalPnL    prometheus.Gauge

	restRequests *prometheus.CounterVec
	restErrors   *prometheus.CounterVec
}

func New(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Monitor{registry: reg}

	m.ordersPlaced = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "orders_placed_total",
		Help: "Orders accepted by the exchange, by side.",
	}, []string{"side"})
	m.ordersFailed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "orders_failed_total",
		Help: "Order submissions that failed, by side.",
	}, []string{"side"})
	m.ordersCanceled = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "orders_canceled_total",
		Help: "Cancels confirmed by the exchange, by side.",
	}, []string{"side"})
	m.cancelsUnconfirmed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "cancels_unconfirmed_total",
		Help: "Cancel responses that did not confirm the order id.",
	})
	m.cycles = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "quote_cycles_total",
		Help: "Completed quote refresh cycles.",
	})
	m.cycleErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "quote_cycle_errors_total",
		Help: "Cycles that hit a transient error and backed off.",
	})
	m.midPrice = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "mid_price",
		Help: "Latest fair mid price.",
	})
	m.midFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "mid_fallbacks_total",
		Help: "Mid computations that fell back to 0.5, by reason.",
	}, []string{"reason"})
	m.realizedPnL = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "realized_pnl",
		Help: "Realized PnL from confirmed fills.",
	})
	m.totalPnL = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "total_pnl",
		Help: "Realized PnL plus reward earnings.",
	})
	m.restRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "rest_requests_total",
		Help: "CLOB REST requests, by endpoint.",
	}, []string{"endpoint"})
	m.restErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "rest_errors_total",
		Help: "Failed CLOB REST requests, by endpoint.",
	}, []string{"endpoint"})

	return m
}

// Registry 暴露底层 registry（测试与自定义采集用）。
func (m *Monitor) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回该 registry 的 /metrics handler。
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在 addr 上启动 metrics 服务（异步）。
func (m *Monitor) Serve(addr string) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}

func (m *Monitor) OrderPlaced(side string) {
	if m != nil {
		m.ordersPlaced.WithLabelValues(side).Inc()
	}
}

func (m *Monitor) OrderFailed(side string) {
	if m != nil {
		m.ordersFailed.WithLabelValues(side).Inc()
	}
}

func (m *Monitor) OrderCanceled(side string) {
	if m != nil {
		m.ordersCanceled.WithLabelValues(side).Inc()
	}
}

func (m *Monitor) CancelUnconfirmed() {
	if m != nil {
		m.cancelsUnconfirmed.Inc()
	}
}

func (m *Monitor) CycleDone() {
	if m != nil {
		m.cycles.Inc()
	}
}

func (m *Monitor) CycleError() {
	if m != nil {
		m.cycleErrors.Inc()
	}
}

func (m *Monitor) SetMid(price float64) {
	if m != nil {
		m.midPrice.Set(price)
	}
}

func (m *Monitor) MidFallback(reason string) {
	if m != nil {
		m.midFallbacks.WithLabelValues(reason).Inc()
	}
}

func (m *Monitor) SetPnL(realized, total float64) {
	if m != nil {
		m.realizedPnL.Set(realized)
		m.totalPnL.Set(total)
	}
}

// ObserveRequest 实现 clob.RequestObserver。
func (m *Monitor) ObserveRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	m.restRequests.WithLabelValues(endpoint).Inc()
	if err != nil {
		m.restErrors.WithLabelValues(endpoint).Inc()
	}
}
