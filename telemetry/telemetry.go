package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures bus traffic emitted by the transport layer.
//
// Implementations may forward metrics to Prometheus or other monitoring
// systems. They should be inexpensive to call because hooks run inline with
// every instrument exchange.
type Collector interface {
	IncWrite(location string)
	IncQuery(location string)
	IncTransportError(location, op string)
	ObserveSession(location string, d time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncWrite(string)                      {}
func (noopCollector) IncQuery(string)                      {}
func (noopCollector) IncTransportError(string, string)     {}
func (noopCollector) ObserveSession(string, time.Duration) {}

// PrometheusCollector exposes bus traffic counters via Prometheus.
type PrometheusCollector struct {
	writes   *prometheus.CounterVec
	queries  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	sessions *prometheus.HistogramVec
}

var (
	writeCounter         *prometheus.CounterVec
	writeCounterLock     sync.Mutex
	queryCounter         *prometheus.CounterVec
	queryCounterLock     sync.Mutex
	errorCounter         *prometheus.CounterVec
	errorCounterLock     sync.Mutex
	sessionHistogram     *prometheus.HistogramVec
	sessionHistogramLock sync.Mutex
)

func registerCounter(reg prometheus.Registerer, lock *sync.Mutex, slot **prometheus.CounterVec, opts prometheus.CounterOpts, labels []string) error {
	lock.Lock()
	defer lock.Unlock()
	if *slot != nil {
		return nil
	}
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return err
		}
		*slot = existing
		return nil
	}
	*slot = counter
	return nil
}

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Registering a second time reuses the existing collectors.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := registerCounter(reg, &writeCounterLock, &writeCounter, prometheus.CounterOpts{
		Name: "labdrivers_bus_writes_total",
		Help: "Number of write operations issued per resource location.",
	}, []string{"location"}); err != nil {
		return nil, err
	}
	if err := registerCounter(reg, &queryCounterLock, &queryCounter, prometheus.CounterOpts{
		Name: "labdrivers_bus_queries_total",
		Help: "Number of query and read operations issued per resource location.",
	}, []string{"location"}); err != nil {
		return nil, err
	}
	if err := registerCounter(reg, &errorCounterLock, &errorCounter, prometheus.CounterOpts{
		Name: "labdrivers_transport_errors_total",
		Help: "Number of transport failures per resource location and operation.",
	}, []string{"location", "op"}); err != nil {
		return nil, err
	}

	sessionHistogramLock.Lock()
	if sessionHistogram == nil {
		histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labdrivers_session_duration_seconds",
			Help:    "Duration of scoped bus sessions from open to release.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"location"})
		if err := reg.Register(histogram); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
					sessionHistogram = existing
				} else {
					sessionHistogramLock.Unlock()
					return nil, err
				}
			} else {
				sessionHistogramLock.Unlock()
				return nil, err
			}
		} else {
			sessionHistogram = histogram
		}
	}
	sessionHistogramLock.Unlock()

	return &PrometheusCollector{
		writes:   writeCounter,
		queries:  queryCounter,
		errors:   errorCounter,
		sessions: sessionHistogram,
	}, nil
}

func (c *PrometheusCollector) IncWrite(location string) {
	c.writes.WithLabelValues(location).Inc()
}

func (c *PrometheusCollector) IncQuery(location string) {
	c.queries.WithLabelValues(location).Inc()
}

func (c *PrometheusCollector) IncTransportError(location, op string) {
	c.errors.WithLabelValues(location, op).Inc()
}

func (c *PrometheusCollector) ObserveSession(location string, d time.Duration) {
	c.sessions.WithLabelValues(location).Observe(d.Seconds())
}
