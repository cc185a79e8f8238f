// Package netmgr talks to NetworkManager over the D-Bus system bus.
package netmgr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/godbus/dbus/v5"
)

const (
	busName = "org.freedesktop.NetworkManager"

	rootPath     dbus.ObjectPath = "/org/freedesktop/NetworkManager"
	settingsPath dbus.ObjectPath = "/org/freedesktop/NetworkManager/Settings"

	rootIface       = "org.freedesktop.NetworkManager"
	settingsIface   = "org.freedesktop.NetworkManager.Settings"
	connectionIface = "org.freedesktop.NetworkManager.Settings.Connection"
	activeIface     = "org.freedesktop.NetworkManager.Connection.Active"
	propertiesIface = "org.freedesktop.DBus.Properties"
)

// NMConnectivityState values.
const (
	ConnectivityUnknown = 0
	ConnectivityNone    = 1
	ConnectivityPortal  = 2
	ConnectivityLimited = 3
	ConnectivityFull    = 4
)

// ErrBusClosed reports that the change stream ended because the bus went away.
var ErrBusClosed = errors.New("system bus connection closed")

// Profile is a configured connection profile (a Settings.Connection object).
type Profile struct {
	Path dbus.ObjectPath
	N    int // trailing number of Path, -1 when absent
	ID   string
	Type string
}

var profileIndex = regexp.MustCompile(`/(\d+)$`)

// NewProfile builds a Profile from its object path and GetSettings payload.
func NewProfile(path dbus.ObjectPath, settings map[string]map[string]dbus.Variant) Profile {
	p := Profile{Path: path, N: -1}
	if m := profileIndex.FindStringSubmatch(string(path)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.N = n
		}
	}
	if conn, ok := settings["connection"]; ok {
		if v, ok := conn["id"]; ok {
			p.ID, _ = v.Value().(string)
		}
		if v, ok := conn["type"]; ok {
			p.Type, _ = v.Value().(string)
		}
	}
	return p
}

// Client is a NetworkManager client bound to one bus connection.
type Client struct {
	conn *dbus.Conn
}

// Connect opens a private connection to the system bus.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing bus connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) property(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := c.conn.Object(busName, path).
		CallWithContext(ctx, propertiesIface+".Get", 0, iface, name).
		Store(&v)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s.%s on %s: %w", iface, name, path, err)
	}
	return v, nil
}

// Connectivity returns the NMConnectivityState of the host.
func (c *Client) Connectivity(ctx context.Context) (int, error) {
	v, err := c.property(ctx, rootPath, rootIface, "Connectivity")
	if err != nil {
		return 0, err
	}
	level, ok := toInt(v.Value())
	if !ok {
		return 0, fmt.Errorf("unexpected Connectivity type %s", v.Signature())
	}
	return level, nil
}

// ActiveConnections returns the object paths of active connections.
func (c *Client) ActiveConnections(ctx context.Context) ([]dbus.ObjectPath, error) {
	v, err := c.property(ctx, rootPath, rootIface, "ActiveConnections")
	if err != nil {
		return nil, err
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("unexpected ActiveConnections type %s", v.Signature())
	}
	return paths, nil
}

// ActiveProfilePaths resolves every active connection to the profile it was
// started from. Active connections that vanish while being resolved are skipped.
func (c *Client) ActiveProfilePaths(ctx context.Context) ([]dbus.ObjectPath, error) {
	active, err := c.ActiveConnections(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]dbus.ObjectPath, 0, len(active))
	for _, ac := range active {
		v, err := c.property(ctx, ac, activeIface, "Connection")
		if err != nil {
			continue
		}
		if p, ok := v.Value().(dbus.ObjectPath); ok {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// ListProfiles returns every configured profile with its id and type.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	var paths []dbus.ObjectPath
	err := c.conn.Object(busName, settingsPath).
		CallWithContext(ctx, settingsIface+".ListConnections", 0).
		Store(&paths)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	profiles := make([]Profile, 0, len(paths))
	for _, p := range paths {
		var settings map[string]map[string]dbus.Variant
		err := c.conn.Object(busName, p).
			CallWithContext(ctx, connectionIface+".GetSettings", 0).
			Store(&settings)
		if err != nil {
			return nil, fmt.Errorf("failed to get settings of %s: %w", p, err)
		}
		profiles = append(profiles, NewProfile(p, settings))
	}
	return profiles, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case uint32:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
