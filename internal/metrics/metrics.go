// Package metrics holds the prometheus collectors of the viewer
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Eval counts model evaluations. A nil *Eval records nothing.
type Eval struct {
	submitted  prometheus.Counter
	dispatched prometheus.Counter
	superseded prometheus.Counter
	failed     prometheus.Counter
	inFlight   prometheus.Gauge
	duration   prometheus.Histogram
}

// Scene counts decomposition rebuilds. A nil *Scene records nothing.
type Scene struct {
	rebuilds prometheus.Counter
	failures prometheus.Counter
}

// Collectors groups every collector of the viewer
type Collectors struct {
	Eval  *Eval
	Scene *Scene
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Collectors, error) {
	e := &Eval{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_eval_submitted_total",
			Help: "Model evaluation requests submitted by the scrub loop.",
		}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_eval_dispatched_total",
			Help: "Model evaluation requests sent to the server.",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_eval_superseded_total",
			Help: "Pending evaluation requests replaced by a newer one before dispatch.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_eval_failed_total",
			Help: "Model evaluations that failed or returned an error payload.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "msview_eval_in_flight",
			Help: "Model evaluations currently in flight.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "msview_eval_duration_seconds",
			Help:    "Latency of model evaluations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	s := &Scene{
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_scene_rebuilds_total",
			Help: "Scene rebuilds after a decomposition change.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msview_scene_fetch_failures_total",
			Help: "Decomposition fetches that failed and kept the previous scene.",
		}),
	}

	for _, c := range []prometheus.Collector{
		e.submitted, e.dispatched, e.superseded, e.failed, e.inFlight, e.duration,
		s.rebuilds, s.failures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &Collectors{Eval: e, Scene: s}, nil
}

func (e *Eval) Submitted() {
	if e != nil {
		e.submitted.Inc()
	}
}

func (e *Eval) Dispatched() {
	if e != nil {
		e.dispatched.Inc()
		e.inFlight.Inc()
	}
}

func (e *Eval) Superseded() {
	if e != nil {
		e.superseded.Inc()
	}
}

// Completed records the end of an in-flight evaluation
func (e *Eval) Completed(d time.Duration, failed bool) {
	if e == nil {
		return
	}
	e.inFlight.Dec()
	e.duration.Observe(d.Seconds())
	if failed {
		e.failed.Inc()
	}
}

func (s *Scene) Rebuilt() {
	if s != nil {
		s.rebuilds.Inc()
	}
}

func (s *Scene) FetchFailed() {
	if s != nil {
		s.failures.Inc()
	}
}

// Serve exposes the registry on addr until ctx is done
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
