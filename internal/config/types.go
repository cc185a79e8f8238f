// Package config handles guard configuration loading, saving, and validation.
package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Version int           `yaml:"version"`
	Tunnel  TunnelConfig  `yaml:"tunnel"`
	Process ProcessConfig `yaml:"process"`
	Alert   AlertConfig   `yaml:"alert"`
	Tick    TickConfig    `yaml:"tick"`
	Probe   ProbeConfig   `yaml:"probe"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tray    TrayConfig    `yaml:"tray"`
}

// TunnelConfig identifies the protected network connection.
type TunnelConfig struct {
	ConnectionID string `yaml:"connection_id"` // NetworkManager profile id
	Interface    string `yaml:"interface"`     // kernel interface carrying the split default routes
}

// ProcessConfig names the process that is paused while unprotected.
type ProcessConfig struct {
	Name string `yaml:"name"`
}

// AlertConfig describes the sound played on a violation.
type AlertConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Sound   string   `yaml:"sound"`
}

// TickConfig controls the periodic re-check.
type TickConfig struct {
	Interval int `yaml:"interval"` // seconds
}

// ProbeConfig controls retries of NetworkManager queries.
type ProbeConfig struct {
	Retries   int `yaml:"retries"`    // attempts after the first failure
	BackoffMS int `yaml:"backoff_ms"` // fixed delay between attempts
	TimeoutMS int `yaml:"timeout_ms"` // bound on a single attempt, 0 disables
}

// LogConfig controls the log file.
type LogConfig struct {
	File    string `yaml:"file,omitempty"`
	Verbose bool   `yaml:"verbose"`
	Stderr  bool   `yaml:"stderr"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // empty disables the endpoint
}

// TrayConfig controls the optional status icon.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// IntervalDuration returns the tick period.
func (t TickConfig) IntervalDuration() time.Duration {
	return time.Duration(t.Interval) * time.Second
}

// Backoff returns the delay between probe attempts.
func (p ProbeConfig) Backoff() time.Duration {
	return time.Duration(p.BackoffMS) * time.Millisecond
}

// Timeout returns the bound on a single probe attempt.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Tunnel: TunnelConfig{
			ConnectionID: "tun0",
			Interface:    defaultInterfaceName(),
		},
		Process: ProcessConfig{
			Name: "transmission-gtk",
		},
		Alert: AlertConfig{
			Enabled: true,
			Command: "mpv",
			Args:    []string{"--no-terminal"},
			Sound:   "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga",
		},
		Tick: TickConfig{
			Interval: 5,
		},
		Probe: ProbeConfig{
			Retries:   2,
			BackoffMS: 500,
			TimeoutMS: 5000,
		},
		Log: LogConfig{
			Stderr: true,
		},
	}
}
