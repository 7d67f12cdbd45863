package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Collector struct {
	reg *prometheus.Registry

	RouteResolutions  *prometheus.CounterVec // labels: route, outcome
	ResolveDuration   *prometheus.HistogramVec
	ToleranceWarnings *prometheus.CounterVec // label: route
	Assignments       *prometheus.CounterVec // label: kind
	Groups            *prometheus.CounterVec // label: action
	BuildFailures     prometheus.Counter

	Published       *prometheus.CounterVec // label: sink
	PublishErrs     *prometheus.CounterVec // label: sink
	SinkConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	ActiveGroups    prometheus.Gauge
	GroupsStarted   prometheus.Counter
	GroupsFinished  prometheus.Counter
	TickDuration    prometheus.Histogram
	SpeedMultiplier prometheus.Gauge
	PublishInterval prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, publishInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RouteResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_route_resolutions_total",
			Help: "Route resolutions by route key and outcome.",
		}, []string{"route", "outcome"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trajectory_route_resolve_duration_seconds",
			Help:    "Duration of route resolver calls.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"route"}),
		ToleranceWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_endpoint_tolerance_warnings_total",
			Help: "Resolved route endpoints farther than the tolerance from the request.",
		}, []string{"route"}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_assignments_generated_total",
			Help: "Assignments generated by kind.",
		}, []string{"kind"}),
		Groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_timeline_groups_total",
			Help: "Timeline groups produced by action.",
		}, []string{"action"}),
		BuildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trajectory_build_failures_total",
			Help: "Movements or flights that produced no assignments.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_published_total",
			Help: "Messages published by sink.",
		}, []string{"sink"}),
		PublishErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trajectory_publish_errors_total",
			Help: "Publish errors by sink.",
		}, []string{"sink"}),
		SinkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajectory_sink_connected",
			Help: "1 if the publish sink is connected, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trajectory_publish_duration_seconds",
			Help:    "Duration to marshal and publish a message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		ActiveGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajectory_replay_active_groups",
			Help: "Number of groups currently being replayed.",
		}),
		GroupsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trajectory_replay_groups_started_total",
			Help: "Total replayed groups started.",
		}),
		GroupsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trajectory_replay_groups_finished_total",
			Help: "Total replayed groups finished.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trajectory_replay_tick_duration_seconds",
			Help:    "Duration of replay tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajectory_replay_speed_multiplier",
			Help: "Replay speed multiplier.",
		}),
		PublishInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajectory_replay_publish_interval_seconds",
			Help: "Replay publish interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.RouteResolutions, c.ResolveDuration, c.ToleranceWarnings,
		c.Assignments, c.Groups, c.BuildFailures,
		c.Published, c.PublishErrs, c.SinkConnected, c.PublishDuration,
		c.ActiveGroups, c.GroupsStarted, c.GroupsFinished, c.TickDuration,
		c.SpeedMultiplier, c.PublishInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.PublishInterval.Set(publishInterval.Seconds())

	return c
}

// ResolveObserve records one resolver call.
func (c *Collector) ResolveObserve(key string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.RouteResolutions.WithLabelValues(key, outcome).Inc()
	c.ResolveDuration.WithLabelValues(key).Observe(d.Seconds())
}

func (c *Collector) ToleranceWarningInc(key string) { c.ToleranceWarnings.WithLabelValues(key).Inc() }

func (c *Collector) AssignmentsAdd(kind string, n int) {
	c.Assignments.WithLabelValues(kind).Add(float64(n))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Router exposes /metrics and /health.
func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return r
}

// Serve starts an HTTP server exposing the router on the given address.
func (c *Collector) Serve(addr string, log logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      c.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()
	log.WithField("addr", addr).Info("metrics listening")
	return srv
}
