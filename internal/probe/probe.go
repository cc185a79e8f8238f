// Package probe determines whether the guarded tunnel is among the active
// NetworkManager connections, retrying transient query failures.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-guard/internal/logger"
	"github.com/user/vpn-guard/internal/netmgr"
)

// ErrExhausted wraps the last failure once every attempt has failed.
var ErrExhausted = errors.New("connectivity probe retries exhausted")

// Source is the subset of the NetworkManager client the probe needs.
type Source interface {
	ListProfiles(ctx context.Context) ([]netmgr.Profile, error)
	ActiveProfilePaths(ctx context.Context) ([]dbus.ObjectPath, error)
}

// Snapshot is one consistent read of configured and active profiles.
type Snapshot struct {
	Profiles []netmgr.Profile
	Active   []netmgr.Profile
}

// Has reports whether a profile with the given id is active.
func (s Snapshot) Has(id string) bool {
	for _, p := range s.Active {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Probe queries a Source with a fixed retry policy.
type Probe struct {
	src      Source
	tunnelID string
	retries  int
	backoff  time.Duration
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	onRetry  func(attempt int, err error)
}

// New creates a probe for the tunnel profile id. retries is the number of
// attempts after the first failure; backoff is the fixed delay between them.
func New(src Source, tunnelID string, retries int, backoff time.Duration) *Probe {
	if retries < 0 {
		retries = 0
	}
	return &Probe{
		src:      src,
		tunnelID: tunnelID,
		retries:  retries,
		backoff:  backoff,
		sleep:    sleepContext,
	}
}

// OnRetry registers a callback invoked for every failed attempt.
func (p *Probe) OnRetry(fn func(attempt int, err error)) {
	p.onRetry = fn
}

// SetAttemptTimeout bounds each attempt so a hung bus call counts as a failed
// attempt. Zero means no bound beyond ctx.
func (p *Probe) SetAttemptTimeout(d time.Duration) {
	p.timeout = d
}

// Snapshot fetches all profiles and the active set, retrying on failure.
func (p *Probe) Snapshot(ctx context.Context) (Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retries+1; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.backoff); err != nil {
				return Snapshot{}, err
			}
		}

		snap, err := p.attempt(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Connectivity probe recovered on attempt %d", attempt)
			}
			return snap, nil
		}
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}

		lastErr = err
		logger.Warning("Connectivity probe failed (%d/%d): %v", attempt, p.retries+1, err)
		if p.onRetry != nil {
			p.onRetry(attempt, err)
		}
	}
	return Snapshot{}, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// TunnelActive reports whether the configured tunnel profile is active.
func (p *Probe) TunnelActive(ctx context.Context) (bool, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return snap.Has(p.tunnelID), nil
}

func (p *Probe) attempt(ctx context.Context) (Snapshot, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.fetch(ctx)
}

func (p *Probe) fetch(ctx context.Context) (Snapshot, error) {
	profiles, err := p.src.ListProfiles(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	activePaths, err := p.src.ActiveProfilePaths(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	active := make(map[dbus.ObjectPath]bool, len(activePaths))
	for _, path := range activePaths {
		active[path] = true
	}

	snap := Snapshot{Profiles: profiles}
	for _, prof := range profiles {
		if active[prof.Path] {
			snap.Active = append(snap.Active, prof)
		}
	}
	return snap, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
