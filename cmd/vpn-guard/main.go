// vpn-guard pauses a process whenever traffic could leave outside the VPN tunnel.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/user/vpn-guard/internal/config"
	"github.com/user/vpn-guard/internal/logger"
)

var version = "dev"

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: config.yaml next to the executable)" type:"path"`
	EnvFile string           `name:"env-file" help:"Load environment overrides from a dotenv file" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"1" help:"Guard the configured process (default)"`
	Init     InitCmd     `cmd:"" help:"Write a default configuration file"`
	Profiles ProfilesCmd `cmd:"" help:"List NetworkManager connection profiles"`
	Check    CheckCmd    `cmd:"" help:"Evaluate the current network state once without touching the process"`
}

func (c *CLI) configPath() string {
	if c.Config != "" {
		return c.Config
	}
	return config.GetConfigPath()
}

// loadConfig loads and validates the configuration named on the command line.
func (c *CLI) loadConfig() (*config.Config, error) {
	m := config.NewManager(c.configPath())
	if c.EnvFile != "" {
		m.SetEnvFile(c.EnvFile)
	}
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", m.Path(), err)
	}
	return m.Get(), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("vpn-guard"),
		kong.Description("Pause a process whenever traffic could leave outside the VPN tunnel."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&cli)
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vpn-guard: %v\n", err)
		os.Exit(1)
	}
}
