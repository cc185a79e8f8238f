package core

import (
	"context"
	"fmt"

	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/netmgr"
)

// CheckReport is the outcome of a one-shot evaluation.
type CheckReport struct {
	Connectivity  int
	TunnelActive  bool
	RoutesPresent bool
	RouteError    error
	// Verdict is the state the guard would move to from startup.
	Verdict guard.State
}

// Check evaluates the current network state without touching the process.
func (s *Service) Check(ctx context.Context) (*CheckReport, error) {
	level, err := s.bus.Connectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read connectivity: %w", err)
	}
	active, err := s.probe.TunnelActive(ctx)
	if err != nil {
		return nil, err
	}

	r := &CheckReport{Connectivity: level, TunnelActive: active}
	r.RoutesPresent, r.RouteError = s.routes.RoutesPresent()
	if r.RouteError != nil {
		r.RoutesPresent = false
	}

	switch {
	case level >= guard.ViolationLevel && !active:
		r.Verdict = guard.StateDisconnected
	case r.RoutesPresent:
		r.Verdict = guard.StateConnected
	default:
		r.Verdict = guard.StateConnectWhenSafe
	}
	return r, nil
}

// ConnectivityName names a NetworkManager connectivity level.
func ConnectivityName(level int) string {
	switch level {
	case netmgr.ConnectivityUnknown:
		return "unknown"
	case netmgr.ConnectivityNone:
		return "none"
	case netmgr.ConnectivityPortal:
		return "portal"
	case netmgr.ConnectivityLimited:
		return "limited"
	case netmgr.ConnectivityFull:
		return "full"
	}
	return fmt.Sprintf("level %d", level)
}
