package netmgr

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-guard/internal/logger"
)

// Change is the part of a NetworkManager PropertiesChanged signal the guard cares about.
type Change struct {
	Level *int // nil when Connectivity did not change

	// ActiveChanged reports that ActiveConnections was part of the signal.
	ActiveChanged bool
	Active        []dbus.ObjectPath
}

// Empty reports whether the change carries nothing of interest.
func (c Change) Empty() bool {
	return c.Level == nil && !c.ActiveChanged
}

// ParseSignal extracts a Change from an org.freedesktop.DBus.Properties.PropertiesChanged
// signal emitted for the NetworkManager root object.
func ParseSignal(sig *dbus.Signal) (Change, bool) {
	if sig == nil || sig.Path != rootPath || sig.Name != propertiesIface+".PropertiesChanged" {
		return Change{}, false
	}
	if len(sig.Body) < 2 {
		return Change{}, false
	}
	if iface, _ := sig.Body[0].(string); iface != rootIface {
		return Change{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return Change{}, false
	}

	var ch Change
	if v, ok := changed["Connectivity"]; ok {
		if level, ok := toInt(v.Value()); ok {
			ch.Level = &level
		}
	}
	if v, ok := changed["ActiveConnections"]; ok {
		ch.ActiveChanged = true
		ch.Active, _ = v.Value().([]dbus.ObjectPath)
	}
	return ch, true
}

// Subscribe registers for NetworkManager property changes and returns a
// channel of them. The match is in place when Subscribe returns. The channel
// is closed when ctx is done or the bus connection is lost; callers tell the
// two apart with ctx.Err().
func (c *Client) Subscribe(ctx context.Context) (<-chan Change, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(rootPath),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, rootIface),
	}
	if err := c.conn.AddMatchSignalContext(ctx, match...); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	c.conn.Signal(signals)

	out := make(chan Change, 32)
	go func() {
		defer logger.Recover("netmgr-subscription")
		defer c.conn.RemoveMatchSignal(match...)
		defer c.conn.RemoveSignal(signals)
		forward(ctx, signals, out)
	}()

	logger.Info("Subscribed to NetworkManager property changes")
	return out, nil
}

// forward parses signals into out until ctx is done or signals is closed,
// then closes out.
func forward(ctx context.Context, signals <-chan *dbus.Signal, out chan<- Change) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				logger.Error("System bus connection lost")
				return
			}
			ch, ok := ParseSignal(sig)
			if !ok || ch.Empty() {
				continue
			}
			select {
			case out <- ch:
			case <-ctx.Done():
				return
			}
		}
	}
}
