package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// collector exports the store and refresher counters at scrape time.
type collector struct {
	s *Service

	sensor   *prometheus.Desc
	refresh  *prometheus.Desc
	duration *prometheus.Desc
	imported *prometheus.Desc
	lastOK   *prometheus.Desc
}

func newCollector(s *Service) *collector {
	return &collector{
		s: s,
		sensor: prometheus.NewDesc("ynab_sensor_value",
			"Current value of a budget sensor.", []string{"key", "unit"}, nil),
		refresh: prometheus.NewDesc("ynab_refresh_total",
			"Refresh attempts, partitioned by result.", []string{"result"}, nil),
		duration: prometheus.NewDesc("ynab_refresh_duration_seconds",
			"Duration of the last refresh.", nil, nil),
		imported: prometheus.NewDesc("ynab_transactions_imported_total",
			"Transactions brought in by forced imports.", nil, nil),
		lastOK: prometheus.NewDesc("ynab_last_refresh_timestamp_seconds",
			"Unix time of the last successful refresh.", nil, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sensor
	ch <- c.refresh
	ch <- c.duration
	ch <- c.imported
	ch <- c.lastOK
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for key, v := range c.s.store.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.sensor, prometheus.GaugeValue, v.Float64(), key, string(v.Unit))
	}

	st := c.s.refresher.Stats()
	ch <- prometheus.MustNewConstMetric(c.refresh, prometheus.CounterValue, float64(st.Updates), "success")
	ch <- prometheus.MustNewConstMetric(c.refresh, prometheus.CounterValue, float64(st.Failures), "failure")
	ch <- prometheus.MustNewConstMetric(c.refresh, prometheus.CounterValue, float64(st.Throttled), "throttled")
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, st.LastDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.imported, prometheus.CounterValue, float64(st.TransactionsImported))
	if !st.LastUpdate.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastOK, prometheus.GaugeValue, float64(st.LastUpdate.Unix()))
	}
}

// httpMetrics counts API requests by route template.
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics() *httpMetrics {
	return &httpMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ynabd_http_requests_total",
				Help: "How many HTTP requests processed, partitioned by status code, method and route.",
			},
			[]string{"code", "method", "route"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ynabd_http_request_duration_seconds",
				Help: "The HTTP request latencies in seconds.",
			},
			[]string{"code", "method", "route"},
		),
	}
}

func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		// route templates keep label cardinality bounded
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		code := strconv.Itoa(rec.code)
		m.duration.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(code, r.Method, route).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
