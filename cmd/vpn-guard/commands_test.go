package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/user/vpn-guard/internal/config"
	"github.com/user/vpn-guard/internal/core"
	"github.com/user/vpn-guard/internal/guard"
	"github.com/user/vpn-guard/internal/netmgr"
)

var testProfiles = []netmgr.Profile{
	{Path: "/org/freedesktop/NetworkManager/Settings/1", N: 1, ID: "Wired connection 1", Type: "802-3-ethernet"},
	{Path: "/org/freedesktop/NetworkManager/Settings/4", N: 4, ID: "tun0", Type: "vpn"},
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf, testProfiles, []dbus.ObjectPath{"/org/freedesktop/NetworkManager/Settings/4"}, false)

	want := "Setting 1: Wired connection 1 (802-3-ethernet) /org/freedesktop/NetworkManager/Settings/1\n" +
		"Setting 4: tun0 (vpn) /org/freedesktop/NetworkManager/Settings/4 *\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("profiles output mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintProfilesActiveOnly(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf, testProfiles, []dbus.ObjectPath{"/org/freedesktop/NetworkManager/Settings/1"}, true)
	require.Equal(t, "Setting 1: Wired connection 1 (802-3-ethernet) /org/freedesktop/NetworkManager/Settings/1 *\n", buf.String())
}

func TestPrintReport(t *testing.T) {
	cfg := config.DefaultConfig()

	var buf bytes.Buffer
	printReport(&buf, cfg, &core.CheckReport{
		Connectivity: netmgr.ConnectivityFull,
		TunnelActive: true,
		RouteError:   errors.New("open /proc/net/route: permission denied"),
		Verdict:      guard.StateConnectWhenSafe,
	})

	out := buf.String()
	require.Contains(t, out, "full")
	require.Contains(t, out, "active")
	require.Contains(t, out, "unknown (open /proc/net/route: permission denied)")
	require.Contains(t, out, "connect_when_safe")
}

func TestConfigPathDefault(t *testing.T) {
	require.Equal(t, config.GetConfigPath(), (&CLI{}).configPath())
	require.Equal(t, "/etc/vpn-guard.yaml", (&CLI{Config: "/etc/vpn-guard.yaml"}).configPath())
}
