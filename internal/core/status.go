package core

import (
	"github.com/user/vpn-guard/internal/guard"
)

// GetStatusPayload returns the current status.
func (s *Service) GetStatusPayload() *StatusPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.status
	return &status
}

func (s *Service) onTransition(t guard.Transition) {
	level, known, active := s.producer.Snapshot()

	s.mu.Lock()
	if t.From != t.To || s.status.Since.IsZero() {
		s.status.Since = t.At
	}
	s.status.State = t.To.String()
	s.status.LastEvent = t.Event.String()
	s.status.Action = t.Action.String()
	s.status.Episode = t.Episode
	s.status.Level = level
	s.status.LevelKnown = known
	s.status.TunnelActive = active
	s.mu.Unlock()

	s.broadcastStatus()
}

// broadcastStatus sends status update to listener.
func (s *Service) broadcastStatus() {
	s.mu.RLock()
	listener := s.statusListener
	s.mu.RUnlock()
	if listener != nil {
		listener(s.GetStatusPayload())
	}
}
