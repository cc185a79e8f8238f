package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}

	if err := c.Tunnel.Validate(); err != nil {
		return fmt.Errorf("tunnel config: %w", err)
	}
	if err := c.Process.Validate(); err != nil {
		return fmt.Errorf("process config: %w", err)
	}
	if err := c.Alert.Validate(); err != nil {
		return fmt.Errorf("alert config: %w", err)
	}
	if err := c.Tick.Validate(); err != nil {
		return fmt.Errorf("tick config: %w", err)
	}
	if err := c.Probe.Validate(); err != nil {
		return fmt.Errorf("probe config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	return nil
}

// Validate validates tunnel configuration.
func (t *TunnelConfig) Validate() error {
	if t.ConnectionID == "" {
		return fmt.Errorf("connection_id is required")
	}
	if t.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if len(t.Interface) > 15 || strings.ContainsAny(t.Interface, "/ \t") {
		return fmt.Errorf("invalid interface name: %q", t.Interface)
	}
	return nil
}

// Validate validates process configuration.
func (p *ProcessConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.Contains(p.Name, "/") {
		return fmt.Errorf("name must be a process name, not a path: %s", p.Name)
	}
	return nil
}

// Validate validates alert configuration.
func (a *AlertConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.Command == "" {
		return fmt.Errorf("command is required when alerts are enabled")
	}
	if a.Sound == "" {
		return fmt.Errorf("sound is required when alerts are enabled")
	}
	return nil
}

// Validate validates tick configuration.
func (t *TickConfig) Validate() error {
	if t.Interval < 1 || t.Interval > 3600 {
		return fmt.Errorf("interval must be between 1 and 3600 seconds")
	}
	return nil
}

// Validate validates probe configuration.
func (p *ProbeConfig) Validate() error {
	if p.Retries < 0 || p.Retries > 10 {
		return fmt.Errorf("retries must be between 0 and 10")
	}
	if p.BackoffMS < 0 {
		return fmt.Errorf("backoff_ms cannot be negative")
	}
	if p.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms cannot be negative")
	}
	return nil
}

// Validate validates metrics configuration.
func (m *MetricsConfig) Validate() error {
	if m.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", m.Listen, err)
	}
	return nil
}
