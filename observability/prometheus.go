// Package observability exports stage metrics to Prometheus.
package observability

import (
	"strconv"
	"time"

	"github.com/hupe1980/rpstage"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver implements rpstage.MetricsObserver.
type PrometheusObserver struct {
	sends        *prometheus.CounterVec
	searches     *prometheus.CounterVec
	receiveWait  *prometheus.HistogramVec
	buffersUsed  prometheus.Histogram
	retrievals   prometheus.Counter
	saturations  prometheus.Counter
	unpaired     prometheus.Counter
	receiveFails *prometheus.CounterVec
}

var _ rpstage.MetricsObserver = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates an observer and registers its collectors
// with reg. A nil reg uses prometheus.DefaultRegisterer. Metric names are
// prefixed with namespace when it is non-empty.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_buffer_sends_total",
			Help:      "Buffers dispatched to the device",
		}, []string{"slot"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_searches_sent_total",
			Help:      "Search requests dispatched to the device",
		}, []string{"slot"}),
		receiveWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpstage_receive_wait_seconds",
			Help:      "Time spent blocked waiting for device results",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"slot"}),
		buffersUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpstage_round_buffers_used",
			Help:      "Buffers filled per submission round",
			Buckets:   prometheus.LinearBuckets(1, 1, 16),
		}),
		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_rounds_total",
			Help:      "Retrieval phases started",
		}),
		saturations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_saturations_total",
			Help:      "Submissions refused because every buffer was full",
		}),
		unpaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_unpaired_queries_total",
			Help:      "Paired retrievals that found no second end",
		}),
		receiveFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpstage_receive_errors_total",
			Help:      "Receives that returned an error",
		}, []string{"slot"}),
	}

	for _, c := range []prometheus.Collector{
		o.sends, o.searches, o.receiveWait, o.buffersUsed,
		o.retrievals, o.saturations, o.unpaired, o.receiveFails,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnBufferSend implements rpstage.MetricsObserver.
func (o *PrometheusObserver) OnBufferSend(slot, searches int) {
	s := strconv.Itoa(slot)
	o.sends.WithLabelValues(s).Inc()
	o.searches.WithLabelValues(s).Add(float64(searches))
}

// OnBufferReceive implements rpstage.MetricsObserver.
func (o *PrometheusObserver) OnBufferReceive(slot int, wait time.Duration, err error) {
	s := strconv.Itoa(slot)
	if err != nil {
		o.receiveFails.WithLabelValues(s).Inc()
		return
	}
	o.receiveWait.WithLabelValues(s).Observe(wait.Seconds())
}

// OnRetrievalBegin implements rpstage.MetricsObserver.
func (o *PrometheusObserver) OnRetrievalBegin(buffersUsed int) {
	o.retrievals.Inc()
	o.buffersUsed.Observe(float64(buffersUsed))
}

// OnSaturation implements rpstage.MetricsObserver.
func (o *PrometheusObserver) OnSaturation() { o.saturations.Inc() }

// OnUnpaired implements rpstage.MetricsObserver.
func (o *PrometheusObserver) OnUnpaired() { o.unpaired.Inc() }
