// Package routing inspects the kernel routing table to confirm that traffic
// is steered through the tunnel interface.
package routing

import (
	"fmt"
	"net/netip"
)

// Route represents a routing table entry.
type Route struct {
	Destination netip.Prefix
	Gateway     netip.Addr
	Interface   string
	Metric      int
	Flags       uint32
}

// Route flags from <linux/route.h>.
const (
	FlagUp      uint32 = 0x0001
	FlagGateway uint32 = 0x0002
	FlagHost    uint32 = 0x0004
	FlagReject  uint32 = 0x0200
)

// Up reports whether the route is usable.
func (r Route) Up() bool {
	return r.Flags&FlagUp != 0 && r.Flags&FlagReject == 0
}

func (r Route) String() string {
	if r.Gateway.IsValid() && !r.Gateway.IsUnspecified() {
		return fmt.Sprintf("%s via %s dev %s metric %d", r.Destination, r.Gateway, r.Interface, r.Metric)
	}
	return fmt.Sprintf("%s dev %s metric %d", r.Destination, r.Interface, r.Metric)
}

// SplitDefaultRoutes are the two halves of the IPv4 space VPN clients install
// to override the default route without replacing it.
var SplitDefaultRoutes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/1"),
	netip.MustParsePrefix("128.0.0.0/1"),
}

// TableReader returns the current routing table.
type TableReader func() ([]Route, error)

// Verifier checks that the split default routes go through the tunnel interface.
type Verifier struct {
	iface    string
	read     TableReader
	expected []netip.Prefix
}

// NewVerifier creates a verifier for the tunnel interface reading the live kernel table.
func NewVerifier(iface string) *Verifier {
	return NewVerifierWithReader(iface, ReadRouteTable)
}

// NewVerifierWithReader creates a verifier with a custom table source.
func NewVerifierWithReader(iface string, read TableReader) *Verifier {
	return &Verifier{
		iface:    iface,
		read:     read,
		expected: SplitDefaultRoutes,
	}
}

// Interface returns the tunnel interface name.
func (v *Verifier) Interface() string {
	return v.iface
}

// RoutesPresent reads the table and reports whether every expected route is
// installed via the tunnel interface.
func (v *Verifier) RoutesPresent() (bool, error) {
	routes, err := v.read()
	if err != nil {
		return false, fmt.Errorf("failed to read routing table: %w", err)
	}
	return len(v.Missing(routes)) == 0, nil
}

// Missing returns the expected prefixes not routed through the tunnel interface.
func (v *Verifier) Missing(routes []Route) []netip.Prefix {
	var missing []netip.Prefix
	for _, want := range v.expected {
		found := false
		for _, r := range routes {
			if r.Destination == want && r.Interface == v.iface && r.Up() {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}
