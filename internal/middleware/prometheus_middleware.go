package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute — метка для запросов мимо зарегистрированных маршрутов
const unmatchedRoute = "unmatched"

var (
	httpLabels     = []string{"method", "path", "status"}
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
)

// PrometheusMiddleware считает запросы админского API. Метки пути берутся из
// шаблона маршрута gin (/api/levels/:name), а не из фактического URL.
type PrometheusMiddleware struct {
	latency  *prometheus.HistogramVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewPrometheusMiddleware регистрирует метрики с префиксом service в reg (nil — дефолтный регистр)
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *PrometheusMiddleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	pm := &PrometheusMiddleware{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки запроса админского API.",
			Buckets:   latencyBuckets,
		}, httpLabels),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_requests_total",
			Help:      "Обработанных запросов админского API.",
		}, httpLabels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Запросов со статусом 4xx/5xx.",
		}, httpLabels),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросов в обработке прямо сейчас.",
		}),
	}
	reg.MustRegister(pm.latency, pm.requests, pm.failures, pm.inflight)
	return pm
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

// Handler — middleware для router.Use
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pm.inflight.Inc()
		defer pm.inflight.Dec()

		start := time.Now()
		c.Next()

		code := c.Writer.Status()
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"path":   routeLabel(c),
			"status": strconv.Itoa(code),
		}
		pm.latency.With(labels).Observe(time.Since(start).Seconds())
		pm.requests.With(labels).Inc()
		if code >= 400 {
			pm.failures.With(labels).Inc()
		}
	}
}

// RegisterMetricsEndpoint вешает GET /metrics на g (nil — дефолтный gatherer)
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
