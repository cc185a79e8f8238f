package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvTunnelID     = "VPN_GUARD_TUNNEL_ID"
	EnvInterface    = "VPN_GUARD_INTERFACE"
	EnvProcess      = "VPN_GUARD_PROCESS"
	EnvTickInterval = "VPN_GUARD_TICK_INTERVAL"
)

// Manager handles configuration operations.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	envFile    string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// SetEnvFile names a dotenv file whose variables are loaded before overrides apply.
func (m *Manager) SetEnvFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envFile = path
}

// Path returns the configuration file path.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads configuration from file, applies environment overrides and validates.
// A missing file is created with defaults.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", m.envFile, err)
		}
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		m.config = DefaultConfig()
		if err := m.saveUnsafe(); err != nil {
			return err
		}
	} else {
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		m.config = cfg
	}

	if err := applyEnv(m.config); err != nil {
		return err
	}

	return m.config.Validate()
}

// Init writes the default configuration. An existing file is kept unless force is set.
func (m *Manager) Init(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configPath); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", m.configPath)
	}
	m.config = DefaultConfig()
	return m.saveUnsafe()
}

// Save writes configuration to file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnsafe()
}

func (m *Manager) saveUnsafe() error {
	if m.config == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvTunnelID); v != "" {
		cfg.Tunnel.ConnectionID = v
	}
	if v := os.Getenv(EnvInterface); v != "" {
		cfg.Tunnel.Interface = v
	}
	if v := os.Getenv(EnvProcess); v != "" {
		cfg.Process.Name = v
	}
	if v := os.Getenv(EnvTickInterval); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTickInterval, err)
		}
		cfg.Tick.Interval = n
	}
	return nil
}
