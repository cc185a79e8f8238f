package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-guard/internal/config"
	"github.com/user/vpn-guard/internal/core"
	"github.com/user/vpn-guard/internal/elevate"
	"github.com/user/vpn-guard/internal/logger"
	"github.com/user/vpn-guard/internal/netmgr"
	"github.com/user/vpn-guard/internal/ui"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Elevate bool `help:"Re-launch through pkexec or sudo when not running as root"`
	Tray    bool `help:"Show the tray indicator (overrides tray.enabled)"`
}

func (r *RunCmd) Run(root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Options{
		Path:    cfg.Log.File,
		Stderr:  cfg.Log.Stderr,
		Verbose: cfg.Log.Verbose || root.Verbose,
	}); err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	logger.Info("vpn-guard %s starting, config %s", version, root.configPath())

	if !elevate.IsAdmin() {
		if r.Elevate {
			logger.Info("Not running as root, requesting elevation")
			return elevate.RunAsAdmin()
		}
		logger.Warning("Not running as root; processes owned by other users cannot be paused")
	}

	client, err := netmgr.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := core.NewService(cfg, client, core.Options{})
	if r.Tray || cfg.Tray.Enabled {
		return ui.Run(ctx, svc)
	}
	return svc.Run(ctx)
}

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(root *CLI) error {
	m := config.NewManager(root.configPath())
	if err := m.Init(i.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", m.Path())
	return nil
}

// ProfilesCmd implements the 'profiles' command.
type ProfilesCmd struct {
	Active bool `short:"a" help:"Only list active profiles"`
}

func (p *ProfilesCmd) Run(root *CLI) error {
	setupConsoleLog(root.Verbose)

	client, err := netmgr.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	profiles, err := client.ListProfiles(ctx)
	if err != nil {
		return err
	}
	active, err := client.ActiveProfilePaths(ctx)
	if err != nil {
		return err
	}
	printProfiles(os.Stdout, profiles, active, p.Active)
	return nil
}

func printProfiles(w io.Writer, profiles []netmgr.Profile, activePaths []dbus.ObjectPath, onlyActive bool) {
	active := make(map[dbus.ObjectPath]bool, len(activePaths))
	for _, path := range activePaths {
		active[path] = true
	}
	for _, prof := range profiles {
		if onlyActive && !active[prof.Path] {
			continue
		}
		mark := ""
		if active[prof.Path] {
			mark = " *"
		}
		fmt.Fprintf(w, "Setting %d: %s (%s) %s%s\n", prof.N, prof.ID, prof.Type, prof.Path, mark)
	}
}

// CheckCmd implements the 'check' command.
type CheckCmd struct{}

func (c *CheckCmd) Run(root *CLI) error {
	setupConsoleLog(root.Verbose)

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	client, err := netmgr.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := core.NewService(cfg, client, core.Options{}).Check(context.Background())
	if err != nil {
		return err
	}
	printReport(os.Stdout, cfg, report)
	return nil
}

func printReport(out io.Writer, cfg *config.Config, r *core.CheckReport) {
	routes := "absent"
	switch {
	case r.RouteError != nil:
		routes = fmt.Sprintf("unknown (%v)", r.RouteError)
	case r.RoutesPresent:
		routes = "present"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Connectivity:\t%s\n", core.ConnectivityName(r.Connectivity))
	fmt.Fprintf(w, "Tunnel %s:\t%s\n", cfg.Tunnel.ConnectionID, yesNo(r.TunnelActive, "active", "inactive"))
	fmt.Fprintf(w, "Routes via %s:\t%s\n", cfg.Tunnel.Interface, routes)
	fmt.Fprintf(w, "Verdict for %s:\t%s\n", cfg.Process.Name, r.Verdict)
	w.Flush()
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

// setupConsoleLog sends log lines to stderr for one-shot commands.
func setupConsoleLog(verbose bool) {
	if verbose {
		logger.SetOutput(os.Stderr)
		logger.SetVerbose(true)
	}
}
