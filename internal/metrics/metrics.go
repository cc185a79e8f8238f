// Package metrics exposes guard activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/logger"
)

const namespace = "vpn_guard"

// Recorder records guard transitions, actions and probe failures.
type Recorder struct {
	reg           *prom.Registry
	events        *prom.CounterVec
	transitions   *prom.CounterVec
	actions       *prom.CounterVec
	alerts        *prom.CounterVec
	state         *prom.GaugeVec
	probeRetries  prom.Counter
	droppedNotifs prom.Counter
}

var allStates = []guard.State{
	guard.StateUnset,
	guard.StateDisconnected,
	guard.StateConnected,
	guard.StateConnectWhenSafe,
}

// NewRecorder constructs and registers the metrics on reg (a new registry when nil).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		events: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events processed by the guard engine",
		}, []string{"event"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions by source and target state",
		}, []string{"from", "to"}),
		actions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Pause and resume commands issued",
		}, []string{"action"}),
		alerts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert requests by outcome",
		}, []string{"outcome"}),
		state: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current guard state (1 for the active state)",
		}, []string{"state"}),
		probeRetries: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Failed NetworkManager probe attempts",
		}),
		droppedNotifs: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_notifications_total",
			Help:      "Notifications dropped because the probe exhausted its retries",
		}),
	}
	reg.MustRegister(r.events, r.transitions, r.actions, r.alerts, r.state, r.probeRetries, r.droppedNotifs)
	r.setState(guard.StateUnset)
	return r
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prom.Registry {
	return r.reg
}

// ObserveTransition is a guard.Engine observer.
func (r *Recorder) ObserveTransition(t guard.Transition) {
	r.events.WithLabelValues(t.Event.String()).Inc()
	if t.From != t.To {
		r.transitions.WithLabelValues(t.From.String(), t.To.String()).Inc()
	}
	if t.Action != guard.ActionNone {
		r.actions.WithLabelValues(t.Action.String()).Inc()
	}
	if t.AlertRequested {
		outcome := "played"
		if !t.Alerted {
			outcome = "collapsed"
		}
		r.alerts.WithLabelValues(outcome).Inc()
	}
	r.setState(t.To)
}

// ProbeFailed counts one failed probe attempt.
func (r *Recorder) ProbeFailed(int, error) {
	r.probeRetries.Inc()
}

// NotificationDropped counts a notification dropped after the probe gave up.
func (r *Recorder) NotificationDropped(error) {
	r.droppedNotifs.Inc()
}

func (r *Recorder) setState(s guard.State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		r.state.WithLabelValues(st.String()).Set(v)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer logger.Recover("metrics-server")
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Metrics listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	}
}
