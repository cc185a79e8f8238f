package guard

import (
	"context"
	"sync"

	"github.com/user/vpn-guard/internal/logger"
)

// ViolationLevel is the lowest connectivity level at which running without
// the tunnel counts as a leak.
const ViolationLevel = 2

// Pusher accepts events.
type Pusher interface {
	Push(Event)
}

// TunnelProbe reports whether the guarded tunnel is active.
type TunnelProbe interface {
	TunnelActive(ctx context.Context) (bool, error)
}

// Notification is a connectivity change from the network manager.
type Notification struct {
	Level         *int // nil when the level was not part of the change
	ActiveChanged bool // the active connection set changed
}

// NotificationProducer turns notifications into connect/disconnect events.
type NotificationProducer struct {
	mu    sync.Mutex
	probe TunnelProbe
	queue Pusher

	level        int
	levelKnown   bool
	tunnelActive bool
	tunnelKnown  bool

	onDrop func(error)
}

// NewNotificationProducer creates a producer pushing into q.
func NewNotificationProducer(probe TunnelProbe, q Pusher) *NotificationProducer {
	return &NotificationProducer{probe: probe, queue: q}
}

// OnDrop registers a callback for notifications dropped because the probe failed.
func (p *NotificationProducer) OnDrop(fn func(error)) {
	p.onDrop = fn
}

// Handle evaluates n and pushes at most one event. It returns the pushed
// event and whether one was pushed. The probe runs without p.mu held, so
// Snapshot never waits on a retrying probe. Handle is called from one
// producer goroutine at a time.
func (p *NotificationProducer) Handle(ctx context.Context, n Notification) (Event, bool) {
	p.mu.Lock()
	levelChanged := false
	if n.Level != nil {
		levelChanged = !p.levelKnown || *n.Level != p.level
		p.level = *n.Level
		p.levelKnown = true
	}
	// A level change before the tunnel state was ever determined is
	// evaluated against a fresh probe instead of the zero value.
	needProbe := n.ActiveChanged || (levelChanged && !p.tunnelKnown)
	p.mu.Unlock()

	if !levelChanged && !n.ActiveChanged {
		return 0, false
	}

	if needProbe {
		active, err := p.probe.TunnelActive(ctx)
		if err != nil {
			logger.Error("Cannot determine tunnel state, dropping notification: %v", err)
			if p.onDrop != nil {
				p.onDrop(err)
			}
			return 0, false
		}
		p.mu.Lock()
		p.tunnelActive = active
		p.tunnelKnown = true
		p.mu.Unlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ev := EventConnect
	if p.violating() {
		ev = EventDisconnect
	}
	logger.Debug("Notification: level=%d known=%v tunnel_active=%v -> %s",
		p.level, p.levelKnown, p.tunnelActive, ev)
	p.queue.Push(ev)
	return ev, true
}

func (p *NotificationProducer) violating() bool {
	return p.levelKnown && p.level >= ViolationLevel && !p.tunnelActive
}

// Snapshot returns the last known level and tunnel state.
func (p *NotificationProducer) Snapshot() (level int, levelKnown, tunnelActive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, p.levelKnown, p.tunnelActive
}
