// Package core wires the guard engine to NetworkManager, the routing table
// and the protected process.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-guard/internal/action"
	"github.com/user/vpn-guard/internal/config"
	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/metrics"
	"github.com/user/vpn-guard/internal/netmgr"
	"github.com/user/vpn-guard/internal/probe"
	"github.com/user/vpn-guard/internal/procutil"
	"github.com/user/vpn-guard/internal/routing"
)

// Bus is the NetworkManager surface the service uses.
type Bus interface {
	Connectivity(ctx context.Context) (int, error)
	ListProfiles(ctx context.Context) ([]netmgr.Profile, error)
	ActiveProfilePaths(ctx context.Context) ([]dbus.ObjectPath, error)
	Subscribe(ctx context.Context) (<-chan netmgr.Change, error)
}

// StatusPayload describes the guard for status listeners.
type StatusPayload struct {
	State        string
	LastEvent    string
	Action       string
	Level        int
	LevelKnown   bool
	TunnelActive bool
	Episode      string
	Since        time.Time
	Process      string
	Tunnel       string
}

// StatusListener is a callback invoked after every processed event.
type StatusListener func(status *StatusPayload)

// Options overrides the collaborators built from the configuration.
type Options struct {
	Routes   guard.RouteChecker
	Process  action.ProcessControl
	Alert    action.Runner
	Metrics  *metrics.Recorder
}

// Service is the guard daemon.
type Service struct {
	mu             sync.RWMutex
	cfg            *config.Config
	bus            Bus
	queue          *guard.Queue
	engine         *guard.Engine
	producer       *guard.NotificationProducer
	probe          *probe.Probe
	routes         guard.RouteChecker
	actions        *action.Executor
	metrics        *metrics.Recorder
	status         StatusPayload
	statusListener StatusListener
}

// NewService builds the guard from its configuration.
func NewService(cfg *config.Config, bus Bus, opts Options) *Service {
	routes := opts.Routes
	if routes == nil {
		routes = routing.NewVerifier(cfg.Tunnel.Interface)
	}
	proc := opts.Process
	if proc == nil {
		proc = procutil.NewController()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NewRecorder(nil)
	}

	actions := action.New(proc, action.Options{
		Process:      cfg.Process.Name,
		AlertEnabled: cfg.Alert.Enabled,
		AlertCommand: cfg.Alert.Command,
		AlertArgs:    cfg.Alert.Args,
		AlertSound:   cfg.Alert.Sound,
		Runner:       opts.Alert,
	})

	p := probe.New(bus, cfg.Tunnel.ConnectionID, cfg.Probe.Retries, cfg.Probe.Backoff())
	p.SetAttemptTimeout(cfg.Probe.Timeout())
	p.OnRetry(rec.ProbeFailed)

	queue := guard.NewQueue()
	producer := guard.NewNotificationProducer(p, queue)
	producer.OnDrop(rec.NotificationDropped)

	s := &Service{
		cfg:      cfg,
		bus:      bus,
		queue:    queue,
		engine:   guard.NewEngine(queue, routes, actions),
		producer: producer,
		probe:    p,
		routes:   routes,
		actions:  actions,
		metrics:  rec,
		status: StatusPayload{
			State:   guard.StateUnset.String(),
			Process: cfg.Process.Name,
			Tunnel:  cfg.Tunnel.ConnectionID,
		},
	}
	s.engine.OnTransition(rec.ObserveTransition)
	s.engine.OnTransition(s.onTransition)
	return s
}

// SetStatusListener sets a callback that will be called on every processed event.
func (s *Service) SetStatusListener(listener StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusListener = listener
}

// Metrics returns the service's metrics recorder.
func (s *Service) Metrics() *metrics.Recorder {
	return s.metrics
}

// Queue returns the event queue feeding the engine.
func (s *Service) Queue() *guard.Queue {
	return s.queue
}
