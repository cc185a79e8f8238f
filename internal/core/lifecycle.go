package core

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/logger"
	"github.com/user/vpn-guard/internal/netmgr"
)

// Run starts the guard and blocks until ctx is done or a fatal error occurs.
// A shutdown requested through ctx returns nil. The protected process is
// resumed on every exit path.
func (s *Service) Run(ctx context.Context) (err error) {
	defer s.cleanup()
	defer logger.RecoverError("guard", &err)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := s.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to NetworkManager: %w", err)
	}

	s.prime(ctx)

	ticker, err := guard.NewTicker(s.queue, s.cfg.Tick.IntervalDuration())
	if err != nil {
		return err
	}
	ticker.Start()
	defer func() {
		if stopErr := ticker.Stop(); stopErr != nil {
			logger.Warning("Failed to stop tick scheduler: %v", stopErr)
		}
	}()

	logger.Info("Guarding %s behind %s (%s)", s.cfg.Process.Name, s.cfg.Tunnel.ConnectionID, s.cfg.Tunnel.Interface)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer logger.RecoverError("guard-engine", &err)
		return s.engine.Run(gctx)
	})
	g.Go(func() (err error) {
		defer logger.RecoverError("guard-notifications", &err)
		return s.consume(gctx, changes)
	})
	if addr := s.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error {
			return s.metrics.Serve(gctx, addr)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		logger.Info("Guard stopping")
		return nil
	}
	return err
}

// prime evaluates the current connectivity once so that the guard does not
// wait for the first change to act.
func (s *Service) prime(ctx context.Context) {
	n := guard.Notification{ActiveChanged: true}
	level, err := s.bus.Connectivity(ctx)
	if err != nil {
		logger.Warning("Failed to read connectivity: %v", err)
	} else {
		n.Level = &level
	}
	if ev, ok := s.producer.Handle(ctx, n); ok {
		logger.Info("Initial evaluation: %s", ev)
	}
}

func (s *Service) consume(ctx context.Context, changes <-chan netmgr.Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return netmgr.ErrBusClosed
			}
			s.producer.Handle(ctx, guard.Notification{Level: ch.Level, ActiveChanged: ch.ActiveChanged})
		}
	}
}

// cleanup leaves the protected process running.
func (s *Service) cleanup() {
	logger.Info("Resuming %s before exit", s.cfg.Process.Name)
	s.actions.Resume()
}
